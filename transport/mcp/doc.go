// Package mcp exposes the block grid REST API as Model Context Protocol tools.
//
// The Client is a thin proxy: every tool call becomes one or two HTTP
// requests against a running server, and responses are rendered as plain
// text an agent can read (the grid as letters, queued shapes as '#' with the
// anchor marked '@').
//
// MCP Tools:
//   - create_session, get_session, list_sessions, delete_session
//   - game_state: grid, queue and score
//   - place: put a queued shape's anchor on a target cell
//   - valid_targets: every target where a queued shape fits
//   - rotate, unlock_rotation
//   - reset_game, cleanup_animations, stats, placement_history
//   - list_configs, solve_challenge, daily_challenge
//   - game_instructions
//
// Transport Modes:
//   - Stdio: main -stdio-mcp serves GetMCPServer over stdin/stdout
//   - HTTP: the server mounts a streamable HTTP handler on /mcp
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
