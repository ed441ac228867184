// Package api provides the HTTP REST API for block grid sessions.
//
// Endpoints:
//
// Sessions:
//   - POST   /api/sessions                      - Create a session ({"config_id": "classic"})
//   - GET    /api/sessions                      - List sessions (?sort=accessed|created|score&order=asc|desc&limit=&config=)
//   - GET    /api/sessions/{id}                 - Session info with its current state
//   - DELETE /api/sessions/{id}                 - Delete a session
//
// Game operations:
//   - GET  /api/sessions/{id}/state            - Current GameState
//   - POST /api/sessions/{id}/place            - {"queue_index": 0, "target": {"row": 3, "column": 4}}
//     a null or missing target is answered as an invalid placement
//   - POST /api/sessions/{id}/rotate           - {"queue_index": 0}
//   - POST /api/sessions/{id}/unlock-rotation  - {"queue_index": 0}, spends the unlock cost
//   - POST /api/sessions/{id}/reset            - Start the session over
//   - POST /api/sessions/{id}/cleanup          - Drop finished clearing animations
//   - GET  /api/sessions/{id}/stats            - Score and combo statistics
//   - GET  /api/sessions/{id}/history          - Placement history (?page=&limit=&order=)
//
// Configuration:
//   - GET  /api/configs                        - List configurations
//   - POST /api/configs                        - Save a configuration
//   - GET  /api/configs/{name}                 - Load one configuration
//
// Challenges:
//   - POST /api/challenges/solve               - Decompose a challenge config or an ad-hoc layout
//   - GET  /api/challenges/daily               - The day's decomposition (?config=daily&date=YYYY-MM-DD)
//   - POST /api/challenges/daily               - Start a session on the day's challenge
//
// Other:
//   - GET /api/health
//   - GET /ws?session={id}                     - Live updates, see package websocket
//
// An invalid placement is a normal outcome and answers 200 with
// "success": false. Errors are returned as JSON:
//
//	{
//	  "error": "session ab12: session not found",
//	  "code": 404
//	}
//
// Unknown sessions and configs map to 404, malformed input to 400, a finished
// game to 409 and a classic config passed to a challenge endpoint to 422.
package api
