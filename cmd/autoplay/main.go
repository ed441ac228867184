// Command autoplay plays games with a greedy bot and reports how far it gets.
// It is a quick way to check that a configuration is playable and that its
// scoring settings produce sensible numbers.
//
// Each move the bot tries every queued shape at every valid target and keeps
// the one that clears the most lines, breaking ties by the emptiest resulting
// board. Games run in parallel; a game with a given seed always plays the same.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/blockgrid/game/config"
	"github.com/wricardo/blockgrid/game/engine"
	"github.com/wricardo/blockgrid/logging"
)

var log = logging.New("autoplay")

// GameReport is the outcome of one bot game
type GameReport struct {
	Seed              int64             `json:"seed"`
	Score             int               `json:"score"`
	Moves             int               `json:"moves"`
	LinesCleared      int               `json:"lines_cleared"`
	GameOver          bool              `json:"game_over"`
	ChallengeComplete bool              `json:"challenge_complete"`
	Stats             engine.ComboStats `json:"stats"`
}

// Summary aggregates reports for one configuration
type Summary struct {
	ConfigID  string        `json:"config_id"`
	Games     []*GameReport `json:"games"`
	BestScore int           `json:"best_score"`
	MeanScore float64       `json:"mean_score"`
	MeanMoves float64       `json:"mean_moves"`
}

// move is a candidate placement with its evaluation
type move struct {
	queueIndex int
	target     engine.Position
	lines      int
	filled     int
	openLines  int
}

// better orders candidates: more lines cleared, then fewer filled cells,
// then more completely empty rows and columns.
func (m move) better(o move) bool {
	if m.lines != o.lines {
		return m.lines > o.lines
	}
	if m.filled != o.filled {
		return m.filled < o.filled
	}
	return m.openLines > o.openLines
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "autoplay: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "autoplay",
		Usage:     "play games with a greedy bot",
		ArgsUsage: "[config-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "directory containing game configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.IntFlag{
				Name:  "games",
				Value: 10,
				Usage: "number of games to play",
			},
			&cli.Int64Flag{
				Name:  "seed",
				Value: 1,
				Usage: "seed of the first game; game i uses seed+i",
			},
			&cli.IntFlag{
				Name:  "max-moves",
				Value: 1000,
				Usage: "stop a game after this many placements",
			},
			&cli.IntFlag{
				Name:  "workers",
				Value: 4,
				Usage: "games played in parallel",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the summary as JSON",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
			},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if err := logging.Setup(cmd.String("log-level"), logging.FormatTerminal); err != nil {
		return err
	}
	if cmd.Int("games") < 1 {
		return fmt.Errorf("--games must be at least 1")
	}

	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return err
	}
	configID := "classic"
	if cmd.Args().Len() > 0 {
		configID = cmd.Args().First()
	}
	cfg, err := manager.LoadConfig(configID)
	if err != nil {
		return err
	}

	reports, err := playAll(ctx, cfg, cmd.Int64("seed"), cmd.Int("games"), cmd.Int("max-moves"), cmd.Int("workers"))
	if err != nil {
		return err
	}
	summary := summarize(configID, reports)

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	if cmd.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	printSummary(out, summary)
	return nil
}

// playAll plays games concurrently; reports come back in seed order
func playAll(ctx context.Context, cfg *engine.GameConfig, seed int64, games, maxMoves, workers int) ([]*GameReport, error) {
	reports := make([]*GameReport, games)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i := 0; i < games; i++ {
		g.Go(func() error {
			report, err := playGame(ctx, cfg, seed+int64(i), maxMoves)
			if err != nil {
				return fmt.Errorf("game %d: %w", i, err)
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// playGame runs the greedy bot until the game ends or maxMoves placements
func playGame(ctx context.Context, cfg *engine.GameConfig, seed int64, maxMoves int) (*GameReport, error) {
	eng, err := engine.NewEngineWithSeed(cfg, seed)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	report := &GameReport{Seed: seed}
	for report.Moves < maxMoves && !eng.IsGameOver() && !eng.IsChallengeComplete() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		best, ok := chooseMove(eng.GetState())
		if !ok {
			break
		}
		result, err := eng.Place(best.queueIndex, &best.target, start.Add(time.Duration(report.Moves)*time.Second))
		if err != nil {
			return nil, err
		}
		if !result.Placed {
			return nil, fmt.Errorf("engine rejected %s for shape %d", best.target, best.queueIndex)
		}
		report.Moves++
		report.LinesCleared += len(result.Rows) + len(result.Columns)
	}

	state := eng.GetState()
	report.Score = state.Score
	report.GameOver = state.GameOver
	report.ChallengeComplete = state.ChallengeComplete
	report.Stats = state.Stats
	log.Debug("game finished", "seed", seed, "score", report.Score, "moves", report.Moves)
	return report, nil
}

// chooseMove evaluates every valid placement of every queued shape
func chooseMove(state *engine.GameState) (move, bool) {
	var best move
	found := false
	for i, q := range state.Queue {
		for _, target := range engine.ValidTargets(q.Shape, state.Grid) {
			placed, ok := engine.ApplyPlacement(q.Shape, target, state.Grid)
			if !ok {
				continue
			}
			clear := engine.ClearFullLines(placed)
			after := clear.Grid
			m := move{
				queueIndex: i,
				target:     target,
				lines:      clear.LinesCleared(),
				filled:     after.FilledCount(),
				openLines:  emptyLines(after),
			}
			if !found || m.better(best) {
				best, found = m, true
			}
		}
	}
	return best, found
}

// emptyLines counts rows and columns without a single filled tile
func emptyLines(grid *engine.Grid) int {
	n := grid.Size()
	rows := make([]bool, n+1)
	cols := make([]bool, n+1)
	for _, tile := range grid.Tiles() {
		if tile.Block.Filled {
			rows[tile.Position.Row] = true
			cols[tile.Position.Column] = true
		}
	}
	count := 0
	for i := 1; i <= n; i++ {
		if !rows[i] {
			count++
		}
		if !cols[i] {
			count++
		}
	}
	return count
}

func summarize(configID string, reports []*GameReport) *Summary {
	s := &Summary{ConfigID: configID, Games: reports}
	if len(reports) == 0 {
		return s
	}
	total, moves := 0, 0
	for _, r := range reports {
		total += r.Score
		moves += r.Moves
		s.BestScore = max(s.BestScore, r.Score)
	}
	s.MeanScore = float64(total) / float64(len(reports))
	s.MeanMoves = float64(moves) / float64(len(reports))
	return s
}

func printSummary(w io.Writer, s *Summary) {
	fmt.Fprintf(w, "=== Autoplay %s (%d games) ===\n", s.ConfigID, len(s.Games))

	byScore := append([]*GameReport(nil), s.Games...)
	sort.SliceStable(byScore, func(i, j int) bool { return byScore[i].Score > byScore[j].Score })
	for _, r := range byScore {
		status := "stopped"
		switch {
		case r.ChallengeComplete:
			status = "complete"
		case r.GameOver:
			status = "game over"
		}
		fmt.Fprintf(w, "seed %-8d score %-6d moves %-5d lines %-4d %s\n", r.Seed, r.Score, r.Moves, r.LinesCleared, status)
	}
	fmt.Fprintf(w, "Best: %d  Mean score: %.1f  Mean moves: %.1f\n", s.BestScore, s.MeanScore, s.MeanMoves)
}
