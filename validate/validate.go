// Command validate provides a small CLI that validates game configuration JSON
// files, by default every file in ../configs. It checks:
//   - JSON structure and the engine's own config rules
//   - Layout rows and legend entries
//   - Classic boards: the stock pieces still have room
//   - Daily challenges: the target decomposes for a range of upcoming days
//
// The schema subcommand prints a JSON Schema for the configuration format.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/blockgrid/game/engine"
)

var errInvalid = errors.New("invalid configurations")

// ValidationResult captures the outcome of validating a single file.
// Errors holds problems that make the file invalid; Info holds the
// informational lines printed for valid files.
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single configuration JSON file.
// seeds lists the challenge seeds a daily_challenge target must decompose for.
func validateConfig(filePath string, seeds []int64) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	// Structural JSON errors are reported before rule violations
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	config, err := engine.ParseGameConfig(data)
	if err != nil {
		result.fail("%v", strings.TrimPrefix(err.Error(), "config validation: "))
		return result
	}

	for key := range raw {
		if !knownKeys[key] {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Unknown key %q is ignored", key))
		}
	}

	grid := config.LayoutGrid()
	switch config.Mode {
	case engine.ModeDailyChallenge:
		validateChallenge(&result, grid, seeds)
	default:
		validateBoard(&result, grid)
	}

	if result.Valid {
		result.Info = append(result.Info,
			fmt.Sprintf("✓ Name: %s", config.Name),
			fmt.Sprintf("✓ Mode: %s", config.Mode),
			fmt.Sprintf("✓ Grid: %dx%d", config.GridSize, config.GridSize),
			fmt.Sprintf("✓ Queue: %d", config.QueueSize),
			fmt.Sprintf("✓ Layout cells: %d", grid.FilledCount()),
			fmt.Sprintf("✓ Palette: %s", strings.Join(config.Palette, ", ")),
		)
	}
	return result
}

// knownKeys are the top-level fields of a configuration file
var knownKeys = func() map[string]bool {
	keys := make(map[string]bool)
	data, _ := json.Marshal(engine.DefaultGameConfig())
	var m map[string]json.RawMessage
	json.Unmarshal(data, &m)
	for k := range m {
		keys[k] = true
	}
	for _, k := range []string{"seed", "layout", "legend"} {
		keys[k] = true
	}
	return keys
}()

// validateBoard checks the stock pieces have room on a classic starting board
func validateBoard(result *ValidationResult, grid *engine.Grid) {
	n := grid.Size()
	variants := engine.DefaultShapeLibrary().Variants()
	fitting := 0
	for _, v := range variants {
		if len(engine.ValidTargets(v.Shape, grid)) > 0 {
			fitting++
		}
	}
	if fitting == 0 {
		result.fail("No piece fits on the starting board")
		return
	}
	if fitting < len(variants) {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Only %d of %d piece orientations fit on the starting board", fitting, len(variants)))
	}
	result.Info = append(result.Info, fmt.Sprintf("✓ Free cells: %d", n*n-grid.FilledCount()))
}

// validateChallenge checks a daily challenge target decomposes for every seed
func validateChallenge(result *ValidationResult, target *engine.Grid, seeds []int64) {
	solver := engine.NewSolver(nil)
	maxPieces := 0
	for _, seed := range seeds {
		solution, err := solver.Solve(target, seed)
		if err != nil {
			result.fail("Seed %d: %v", seed, err)
			continue
		}
		maxPieces = max(maxPieces, len(solution))
	}
	if result.Valid {
		result.Info = append(result.Info, fmt.Sprintf("✓ Decomposes for %d seeds (up to %d pieces)", len(seeds), maxPieces))
	}
}

// challengeSeeds returns the daily seeds for days consecutive days from start
func challengeSeeds(start time.Time, days int) []int64 {
	seeds := make([]int64, 0, days)
	for i := 0; i < days; i++ {
		seeds = append(seeds, engine.DailySeed(start.AddDate(0, 0, i)))
	}
	return seeds
}

// configSchema reflects the configuration format into a JSON Schema
func configSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := r.Reflect(&engine.GameConfig{})
	schema.Title = "Block Grid game configuration"
	return schema
}

func report(w io.Writer, result ValidationResult) {
	fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

	if result.Valid {
		fmt.Fprintln(w, "✅ VALID")
		for _, info := range result.Info {
			fmt.Fprintln(w, "  "+info)
		}
	} else {
		fmt.Fprintln(w, "❌ INVALID")
		for _, err := range result.Errors {
			fmt.Fprintln(w, "  ❌ "+err)
		}
	}
	for _, warning := range result.Warnings {
		fmt.Fprintln(w, "  ⚠️  "+warning)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "validate game configuration files",
		ArgsUsage: "[file.json ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "../configs",
				Usage:   "directory scanned when no files are given",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.IntFlag{
				Name:  "days",
				Value: 7,
				Usage: "upcoming days whose challenge seeds must decompose",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "treat warnings as errors",
			},
		},
		Action: runValidate,
		Commands: []*cli.Command{
			{
				Name:  "schema",
				Usage: "print the JSON Schema of a configuration file",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					enc := json.NewEncoder(cmd.Root().Writer)
					enc.SetIndent("", "  ")
					return enc.Encode(configSchema())
				},
			},
		},
	}
}

// runValidate validates each file, printing a concise report, and fails if
// any file is invalid.
func runValidate(ctx context.Context, cmd *cli.Command) error {
	out := cmd.Root().Writer

	files := cmd.Args().Slice()
	if len(files) == 0 {
		var err error
		files, err = filepath.Glob(filepath.Join(cmd.String("config-dir"), "*.json"))
		if err != nil {
			return fmt.Errorf("finding config files: %w", err)
		}
		if len(files) == 0 {
			return fmt.Errorf("no config files in %s", cmd.String("config-dir"))
		}
	}

	seeds := challengeSeeds(time.Now(), max(cmd.Int("days"), 1))
	allValid := true
	for _, file := range files {
		result := validateConfig(file, seeds)
		if cmd.Bool("strict") && len(result.Warnings) > 0 {
			result.Valid = false
			result.Errors = append(result.Errors, result.Warnings...)
			result.Warnings = nil
		}
		report(out, result)
		allValid = allValid && result.Valid
	}

	fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", 40))
	if !allValid {
		fmt.Fprintln(out, "❌ Some configurations have errors")
		return errInvalid
	}
	fmt.Fprintln(out, "✅ All configurations are valid!")
	return nil
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
