// Command analyze prints quick, human-readable heuristics about configuration
// files in the project's configs directory. It summarizes dimensions, queue
// and scoring settings, how much of the board a layout blocks, how many piece
// orientations still fit, and for daily challenges the decomposition the
// solver produces for a seed.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/blockgrid/game/config"
	"github.com/wricardo/blockgrid/game/engine"
	"github.com/wricardo/blockgrid/logging"
)

// pieceSymbols label decomposition pieces in rendered solutions
const pieceSymbols = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Analysis is the summary of one configuration
type Analysis struct {
	ConfigID        string               `json:"config_id"`
	Name            string               `json:"name"`
	Mode            engine.GameMode      `json:"mode"`
	GridSize        int                  `json:"grid_size"`
	QueueSize       int                  `json:"queue_size"`
	FilledCells     int                  `json:"filled_cells"`
	FreeCells       int                  `json:"free_cells"`
	Variants        int                  `json:"variants"`
	FittingVariants int                  `json:"fitting_variants"`
	Seed            int64                `json:"seed,omitempty"`
	Solution        []engine.SolvedShape `json:"solution,omitempty"`
	SolveStats      *engine.SolveStats   `json:"solve_stats,omitempty"`
	SolveTime       time.Duration        `json:"solve_time_ns,omitempty"`
	Templates       map[string]int       `json:"templates,omitempty"`
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "summarize game configurations and decompose daily challenges",
		ArgsUsage: "[config-id ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "directory containing game configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.Int64Flag{
				Name:  "seed",
				Usage: "challenge seed; 0 derives it from --date",
			},
			&cli.StringFlag{
				Name:  "date",
				Usage: "challenge day as YYYY-MM-DD (default today)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print analyses as JSON",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
				Usage: "log level for config loading",
			},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if err := logging.Setup(cmd.String("log-level"), logging.FormatTerminal); err != nil {
		return err
	}

	seed, err := resolveSeed(cmd.Int64("seed"), cmd.String("date"), time.Now())
	if err != nil {
		return err
	}

	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return err
	}

	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		infos, err := manager.ListConfigs()
		if err != nil {
			return err
		}
		for _, info := range infos {
			ids = append(ids, info.ConfigID)
		}
	}

	var analyses []*Analysis
	for _, id := range ids {
		cfg, err := manager.LoadConfig(id)
		if err != nil {
			return err
		}
		analysis, err := analyzeConfig(id, cfg, seed)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		analyses = append(analyses, analysis)
	}

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	if cmd.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(analyses)
	}
	for _, analysis := range analyses {
		printAnalysis(out, analysis)
	}
	return nil
}

// resolveSeed picks the explicit seed, else the seed of date, else of now
func resolveSeed(seed int64, date string, now time.Time) (int64, error) {
	if seed != 0 {
		return seed, nil
	}
	if date == "" {
		return engine.DailySeed(now), nil
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, fmt.Errorf("invalid --date %q: %w", date, err)
	}
	return engine.DailySeed(day), nil
}

// analyzeConfig computes the summary for one configuration. Daily challenges
// are decomposed with seed; classic configs are not solved.
func analyzeConfig(id string, cfg *engine.GameConfig, seed int64) (*Analysis, error) {
	grid := cfg.LayoutGrid()
	library := engine.DefaultShapeLibrary()

	a := &Analysis{
		ConfigID:    id,
		Name:        cfg.Name,
		Mode:        cfg.Mode,
		GridSize:    cfg.GridSize,
		QueueSize:   cfg.QueueSize,
		FilledCells: grid.FilledCount(),
		FreeCells:   cfg.GridSize*cfg.GridSize - grid.FilledCount(),
		Variants:    len(library.Variants()),
	}

	// Challenge layouts are targets, not obstacles: pieces go on an empty board
	board := grid
	if cfg.Mode == engine.ModeDailyChallenge {
		board = engine.NewGrid(cfg.GridSize)
	}
	for _, v := range library.Variants() {
		if len(engine.ValidTargets(v.Shape, board)) > 0 {
			a.FittingVariants++
		}
	}

	if cfg.Mode != engine.ModeDailyChallenge {
		return a, nil
	}

	solver := engine.NewSolver(library)
	start := time.Now()
	solution, err := solver.Solve(grid, seed)
	if err != nil {
		return nil, err
	}
	stats := solver.Stats()

	a.Seed = seed
	a.Solution = solution
	a.SolveStats = &stats
	a.SolveTime = time.Since(start)
	a.Templates = make(map[string]int)
	for _, piece := range solution {
		a.Templates[piece.TemplateID]++
	}
	return a, nil
}

// renderSolution draws the board with each piece's cells labelled by its index
func renderSolution(size int, solution []engine.SolvedShape) string {
	rows := make([][]byte, size)
	for r := range rows {
		rows[r] = []byte(strings.Repeat(".", size))
	}
	for i, piece := range solution {
		symbol := pieceSymbols[i%len(pieceSymbols)]
		for _, cell := range piece.Shape.Cells() {
			r := piece.GridPosition.Row + cell.Row - 1
			c := piece.GridPosition.Column + cell.Col - 1
			if r >= 0 && r < size && c >= 0 && c < size {
				rows[r][c] = symbol
			}
		}
	}

	var b strings.Builder
	for _, row := range rows {
		b.Write(row)
		b.WriteByte('\n')
	}
	return b.String()
}

func printAnalysis(w io.Writer, a *Analysis) {
	fmt.Fprintf(w, "\n=== Analyzing %s ===\n", a.ConfigID)
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Mode: %s\n", a.Mode)
	fmt.Fprintf(w, "Grid Size: %d x %d\n", a.GridSize, a.GridSize)
	fmt.Fprintf(w, "Queue Size: %d\n", a.QueueSize)

	if a.Mode != engine.ModeDailyChallenge {
		fmt.Fprintf(w, "Obstacles: %d, free cells: %d\n", a.FilledCells, a.FreeCells)
		if a.FittingVariants < a.Variants {
			fmt.Fprintf(w, "⚠️  WARNING: only %d of %d piece orientations fit on the starting board\n", a.FittingVariants, a.Variants)
		} else {
			fmt.Fprintf(w, "✅ All %d piece orientations fit on the starting board\n", a.Variants)
		}
		return
	}

	fmt.Fprintf(w, "Target cells: %d\n", a.FilledCells)
	fmt.Fprintf(w, "Piece orientations that fit the board: %d of %d\n", a.FittingVariants, a.Variants)
	fmt.Fprintf(w, "Seed %d: %d pieces, %d nodes, depth %d, %s\n",
		a.Seed, len(a.Solution), a.SolveStats.Nodes, a.SolveStats.MaxDepth, a.SolveTime.Round(time.Microsecond))

	ids := make([]string, 0, len(a.Templates))
	for id := range a.Templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%s×%d", id, a.Templates[id])
	}
	fmt.Fprintf(w, "Templates: %s\n", strings.Join(parts, ", "))
	fmt.Fprint(w, renderSolution(a.GridSize, a.Solution))
}
