// Package service provides the business logic layer for the block grid game.
//
// The service package implements:
//   - Multi-session game management
//   - Placement, rotation and rotation unlocks
//   - Animation cleanup and score statistics
//   - Paginated placement history
//   - Daily challenge solving and challenge sessions
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages game configuration loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Each session owns its own engine instance; the service
// serializes mutations with a single mutex and persists sessions after every
// state change.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	target := engine.Position{Row: 1, Column: 1}
//	result, err := gameService.Place(ctx, info.ID, 0, &target)
//
// Seeds:
//
// A session's seed comes from its config when set. Otherwise classic games are
// seeded from the clock and challenges from the current day (yyyymmdd), so two
// players opening the same challenge on the same day get the same pieces.
package service
