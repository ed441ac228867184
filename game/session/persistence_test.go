package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/blockgrid/game/config"
	"github.com/wricardo/blockgrid/game/engine"
	"github.com/wricardo/blockgrid/game/service"
)

var testNow = time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC)

func newConfigManager(t *testing.T) *config.Manager {
	t.Helper()
	configManager, err := config.NewManager("../../configs")
	require.NoError(t, err)
	return configManager
}

// playedSession returns a session with one successful and one rejected placement
func playedSession(t *testing.T, configs *config.Manager, id, configID string) *service.Session {
	t.Helper()
	stored, err := configs.LoadConfig(configID)
	require.NoError(t, err)
	cfg := *stored
	cfg.Seed = 1234

	eng, err := engine.NewEngine(&cfg)
	require.NoError(t, err)

	targets, err := eng.PossiblePlacements(0)
	require.NoError(t, err)
	require.NotEmpty(t, targets)
	res, err := eng.Place(0, &targets[0], testNow)
	require.NoError(t, err)
	require.True(t, res.Placed)

	outside := engine.Position{Row: -5, Column: -5}
	_, err = eng.Place(0, &outside, testNow)
	require.NoError(t, err)

	return &service.Session{
		ID:             id,
		ConfigID:       configID,
		Engine:         eng,
		Config:         &cfg,
		CreatedAt:      testNow,
		LastAccessedAt: testNow.Add(time.Minute),
	}
}

type backend struct {
	name string
	open func(t *testing.T, configs *config.Manager) SessionPersistence
}

func backends() []backend {
	list := []backend{
		{"file", func(t *testing.T, configs *config.Manager) SessionPersistence {
			p, err := NewFilePersistence(t.TempDir(), configs)
			require.NoError(t, err)
			return p
		}},
		{"sqlite", func(t *testing.T, configs *config.Manager) SessionPersistence {
			p, err := NewSQLitePersistence(context.Background(), filepath.Join(t.TempDir(), "sessions.db"), configs)
			require.NoError(t, err)
			t.Cleanup(func() { p.Close() })
			return p
		}},
	}
	if url := os.Getenv("BLOCKGRID_TEST_POSTGRES_URL"); url != "" {
		list = append(list, backend{"postgres", func(t *testing.T, configs *config.Manager) SessionPersistence {
			p, err := NewPostgresPersistence(context.Background(), url, configs)
			require.NoError(t, err)
			t.Cleanup(func() {
				for _, id := range []string{"test1", "daily1"} {
					p.Delete(id)
				}
				p.Close()
			})
			return p
		}})
	}
	return list
}

func TestPersistence_Backends(t *testing.T) {
	configs := newConfigManager(t)

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			p := b.open(t, configs)
			session := playedSession(t, configs, "test1", "classic")

			t.Run("save and load", func(t *testing.T) {
				require.NoError(t, p.Save(session))
				assert.True(t, p.Exists("test1"))

				loaded, err := p.Load("test1")
				require.NoError(t, err)
				assert.Equal(t, session.ID, loaded.ID)
				assert.Equal(t, "classic", loaded.ConfigID)
				assert.Equal(t, int64(1234), loaded.Config.Seed)
				assert.True(t, session.CreatedAt.Equal(loaded.CreatedAt))
				assert.True(t, session.LastAccessedAt.Equal(loaded.LastAccessedAt))

				want, got := session.Engine.GetState(), loaded.Engine.GetState()
				assert.Equal(t, want.Score, got.Score)
				assert.Equal(t, want.RNG, got.RNG)
				assert.Equal(t, want.Stats, got.Stats)
				assert.Equal(t, want.TotalPlacements, got.TotalPlacements)
				assert.Len(t, got.PlacementHistory, 2)
				assert.Equal(t, want.Grid.FilledCount(), got.Grid.FilledCount())
				require.Len(t, got.Queue, len(want.Queue))
				for i := range want.Queue {
					assert.True(t, want.Queue[i].Shape.Equal(got.Queue[i].Shape))
				}
			})

			t.Run("restored session keeps playing", func(t *testing.T) {
				loaded, err := p.Load("test1")
				require.NoError(t, err)
				targets, err := loaded.Engine.PossiblePlacements(0)
				require.NoError(t, err)
				require.NotEmpty(t, targets)
				res, err := loaded.Engine.Place(0, &targets[0], testNow)
				require.NoError(t, err)
				assert.True(t, res.Placed)
			})

			t.Run("overwrite", func(t *testing.T) {
				session.LastAccessedAt = testNow.Add(time.Hour)
				require.NoError(t, p.Save(session))
				loaded, err := p.Load("test1")
				require.NoError(t, err)
				assert.True(t, session.LastAccessedAt.Equal(loaded.LastAccessedAt))

				ids, err := p.ListAll()
				require.NoError(t, err)
				assert.Contains(t, ids, "test1")
			})

			t.Run("challenge session", func(t *testing.T) {
				daily := playedSession(t, configs, "daily1", "daily")
				require.NoError(t, p.Save(daily))

				loaded, err := p.Load("daily1")
				require.NoError(t, err)
				want, got := daily.Engine.GetState(), loaded.Engine.GetState()
				assert.Equal(t, engine.ModeDailyChallenge, got.Mode)
				assert.Equal(t, want.ChallengeSeed, got.ChallengeSeed)
				assert.Equal(t, len(want.Pending), len(got.Pending))
				assert.Equal(t, want.Grid.Tiles()[9].BackgroundColor, got.Grid.Tiles()[9].BackgroundColor)
			})

			t.Run("delete", func(t *testing.T) {
				require.NoError(t, p.Delete("test1"))
				assert.False(t, p.Exists("test1"))
				assert.ErrorIs(t, p.Delete("test1"), ErrSessionNotFound)

				_, err := p.Load("test1")
				assert.ErrorIs(t, err, ErrSessionNotFound)
			})
		})
	}
}

func TestPersistence_NilSession(t *testing.T) {
	p, err := NewFilePersistence(t.TempDir(), newConfigManager(t))
	require.NoError(t, err)
	assert.Error(t, p.Save(nil))
}

func TestFilePersistence_ListAllSkipsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	configs := newConfigManager(t)
	p, err := NewFilePersistence(dir, configs)
	require.NoError(t, err)

	require.NoError(t, p.Save(playedSession(t, configs, "one", "classic")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0755))

	ids, err := p.ListAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, ids)
}

func TestFilePersistence_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	p, err := NewFilePersistence(dir, newConfigManager(t))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{oops"), 0644))
	_, err = p.Load("bad")
	assert.Error(t, err)
}

func TestCodec(t *testing.T) {
	configs := newConfigManager(t)
	data, err := persistedData(playedSession(t, configs, "zz", "classic"), configs)
	require.NoError(t, err)

	blob, err := encodeBlob(data)
	require.NoError(t, err)

	decoded, err := decodeBlob(blob)
	require.NoError(t, err)
	assert.Equal(t, data.ID, decoded.ID)
	assert.Equal(t, data.GameState.Score, decoded.GameState.Score)
	assert.Len(t, decoded.GameState.Tiles, len(data.GameState.Tiles))

	_, err = decodeBlob([]byte("not zstd"))
	assert.Error(t, err)
}

func TestManagerWithPersistence(t *testing.T) {
	configs := newConfigManager(t)
	persistence, err := NewFilePersistence(t.TempDir(), configs)
	require.NoError(t, err)
	manager := NewManagerWithPersistence(persistence)

	classic, err := configs.LoadConfig("classic")
	require.NoError(t, err)

	t.Run("create auto-saves", func(t *testing.T) {
		s, err := manager.Create("auto1", "classic", classic)
		require.NoError(t, err)
		assert.True(t, persistence.Exists(s.ID))
	})

	t.Run("get loads from persistence", func(t *testing.T) {
		manager2 := NewManagerWithPersistence(persistence)
		s, err := manager2.Get("auto1")
		require.NoError(t, err)
		assert.Equal(t, "auto1", s.ID)

		again, err := manager2.Get("auto1")
		require.NoError(t, err)
		assert.Same(t, s, again, "cached in memory after loading")
	})

	t.Run("save persists mutations", func(t *testing.T) {
		s, err := manager.Get("auto1")
		require.NoError(t, err)
		outside := engine.Position{Row: -5, Column: -5}
		_, err = s.Engine.Place(0, &outside, testNow)
		require.NoError(t, err)
		require.NoError(t, manager.Save("auto1"))

		loaded, err := persistence.Load("auto1")
		require.NoError(t, err)
		assert.Equal(t, 1, loaded.Engine.GetState().TotalPlacements)
	})

	t.Run("load persisted sessions", func(t *testing.T) {
		_, err := manager.Create("auto2", "classic", classic)
		require.NoError(t, err)

		manager3 := NewManagerWithPersistence(persistence)
		require.NoError(t, manager3.LoadPersistedSessions())
		assert.Equal(t, 2, manager3.Count())
	})

	t.Run("prune orphans", func(t *testing.T) {
		require.NoError(t, persistence.Delete("auto2"))
		assert.Equal(t, 1, manager.PruneOrphans())
		_, err := manager.Get("auto2")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("delete removes persisted copy", func(t *testing.T) {
		require.NoError(t, manager.Delete("AUTO1"))
		assert.False(t, persistence.Exists("auto1"))
	})

	t.Run("save all", func(t *testing.T) {
		_, err := manager.Create("auto3", "classic", classic)
		require.NoError(t, err)
		require.NoError(t, persistence.Delete("auto3"))
		require.NoError(t, manager.SaveAllSessions())
		assert.True(t, persistence.Exists("auto3"))
	})
}
