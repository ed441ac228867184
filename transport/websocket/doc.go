// Package websocket pushes live board updates to browser clients.
//
// A single Hub goroutine owns every connection. Clients join a session with
// /ws?session=<id> and only watch: the hub ignores what they send. After each
// mutation the API layer broadcasts:
//   - state_update: the full GameState, tiles and running animations included
//   - placement: the PlaceResult of the latest placement
//   - cleanup: the result of an animation cleanup pass
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	defer hub.Stop()
//
//	hub.BroadcastToSession(sessionID, state)
//
// Slow clients whose buffers fill up are disconnected instead of blocking
// the other watchers of the session.
package websocket
