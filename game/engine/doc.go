// Package engine provides the board-state rules of the block grid puzzle.
//
// The engine package implements:
//   - Shape geometry: bounds, anchor cell, rotation, cell enumeration
//   - An immutable copy-on-write Grid of tiles
//   - Placement validation and full row/column clearing
//   - Scoring, combo classification and statistics
//   - Wave-timed clear animation scheduling and expiry cleanup
//   - Game-over search and the seeded daily-challenge solver
//   - Configuration loading and validation
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. GameState represents the current game state,
// while GameConfig defines the rules and starting board loaded from JSON files.
// Everything below GameEngine is a pure function from one immutable value to
// another; GameEngine only swaps the state pointer once a transaction is done.
//
// Usage:
//
//	config, err := engine.LoadConfigByName("classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameEngine.Place(0, &engine.Position{Row: 5, Column: 5}, time.Now())
//	state := gameEngine.GetState()
//
// Game Rules:
//
// Players drop shapes from a queue onto an N×N board. Every full row and
// column is cleared at once and scores (rows² + columns² + 2·rows·columns)
// times the multiplier, plus a bonus when the board ends up empty. The game
// ends when no queued shape fits anywhere.
package engine
