package session

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/blockgrid/game/engine"
)

func testConfig() *engine.GameConfig {
	config := engine.DefaultGameConfig()
	config.GridSize = 6
	config.Seed = 42
	return config
}

func TestManager_Create(t *testing.T) {
	m := NewManager()

	t.Run("generated id", func(t *testing.T) {
		s, err := m.Create("", "classic", testConfig())
		require.NoError(t, err)
		assert.Len(t, s.ID, 4)
		assert.Equal(t, "classic", s.ConfigID)
		assert.NotNil(t, s.Engine)
		assert.False(t, s.CreatedAt.IsZero())
		assert.Equal(t, s.CreatedAt, s.LastAccessedAt)
	})

	t.Run("explicit id", func(t *testing.T) {
		s, err := m.Create("Custom-1", "classic", testConfig())
		require.NoError(t, err)
		assert.Equal(t, "Custom-1", s.ID)
	})

	t.Run("duplicate id is case-insensitive", func(t *testing.T) {
		_, err := m.Create("custom-1", "classic", testConfig())
		assert.ErrorIs(t, err, ErrSessionAlreadyExists)
	})

	t.Run("invalid id", func(t *testing.T) {
		for _, id := range []string{"../etc", "has space", strings.Repeat("x", 65)} {
			_, err := m.Create(id, "classic", testConfig())
			assert.ErrorIs(t, err, ErrInvalidSessionID, id)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		bad := testConfig()
		bad.GridSize = 1
		_, err := m.Create("", "classic", bad)
		assert.Error(t, err)
	})

	assert.Equal(t, 2, m.Count())
}

func TestManager_Get(t *testing.T) {
	m := NewManager()
	created, err := m.Create("AbCd", "classic", testConfig())
	require.NoError(t, err)

	for _, id := range []string{"AbCd", "abcd", "ABCD"} {
		got, err := m.Get(id)
		require.NoError(t, err, id)
		assert.Same(t, created, got)
	}

	_, err = m.Get("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_GetOrCreate(t *testing.T) {
	m := NewManager()
	first, err := m.GetOrCreate("game", "classic", testConfig())
	require.NoError(t, err)
	second, err := m.GetOrCreate("GAME", "classic", testConfig())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, m.Count())
}

func TestManager_Delete(t *testing.T) {
	m := NewManager()
	_, err := m.Create("gone", "classic", testConfig())
	require.NoError(t, err)

	require.NoError(t, m.Delete("GONE"))
	assert.Equal(t, 0, m.Count())
	assert.ErrorIs(t, m.Delete("gone"), ErrSessionNotFound)

	_, err = m.Create("mem", "classic", testConfig())
	require.NoError(t, err)
	require.NoError(t, m.DeleteFromMemory("mem"))
	assert.ErrorIs(t, m.DeleteFromMemory("mem"), ErrSessionNotFound)
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	m := NewManager()
	s, err := m.Create("touch", "classic", testConfig())
	require.NoError(t, err)

	s.LastAccessedAt = time.Now().Add(-time.Hour)
	require.NoError(t, m.UpdateLastAccessed("TOUCH"))
	assert.WithinDuration(t, time.Now(), s.LastAccessedAt, time.Second)

	assert.ErrorIs(t, m.UpdateLastAccessed("missing"), ErrSessionNotFound)
}

func TestManager_CleanupExpiredSessions(t *testing.T) {
	m := NewManager()
	old, err := m.Create("old", "classic", testConfig())
	require.NoError(t, err)
	_, err = m.Create("fresh", "classic", testConfig())
	require.NoError(t, err)

	old.LastAccessedAt = time.Now().Add(-48 * time.Hour)
	assert.Equal(t, 1, m.CleanupExpiredSessions(24*time.Hour))
	assert.Equal(t, 1, m.Count())

	_, err = m.Get("old")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_SaveWithoutPersistence(t *testing.T) {
	m := NewManager()
	assert.NoError(t, m.Save("anything"))
	assert.NoError(t, m.SaveAllSessions())
	assert.NoError(t, m.LoadPersistedSessions())
	assert.Equal(t, 0, m.PruneOrphans())
}

func TestManager_ConcurrentCreate(t *testing.T) {
	m := NewManager()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Create(fmt.Sprintf("s%d", i), "classic", testConfig())
			assert.NoError(t, err)
			_, err = m.Get(fmt.Sprintf("S%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, m.Count())
	assert.Len(t, m.List(), 20)
}
