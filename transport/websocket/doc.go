// Package websocket provides the WebSocket transport for the game server.
//
// The websocket package implements:
//   - Broadcast rooms (Hub implements engine.Broadcaster)
//   - Per-connection clients (Client implements player.Connection)
//   - Frame decoding, dispatch to the engine and acknowledgements
//   - Heartbeats and slow-consumer disconnection
//
// Architecture:
//
// A central Hub tracks which clients are in which room under a mutex. Each
// client has a read pump, which handles its frames one at a time, and a
// write pump, which owns all writes to the socket. Emit serializes an event
// once and queues it on every recipient without blocking; a client whose
// queue is full is closed.
//
// Message Protocol:
//
// Frames are JSON text messages:
//   - Incoming: {"event": "join", "ack": 1, "data": {"id": "123456"}}
//   - Outgoing: {"event": "state", "data": {"state": {...}, "sender_player_id": 2}}
//   - Ack:      {"event": "ack", "ack": 1, "data": {...}}
//   - Failure:  {"event": "ack", "ack": 1, "error": "...", "code": "not_found"}
//
// A failed frame without an ack id is answered with an "error" event.
// On connect the client receives {"event": "connected", "data": {"player_id": n}}.
//
// Usage:
//
//	hub := websocket.NewHub(logger, cfg.Server.AllowedOrigins)
//	eng := engine.New(hub, engine.Options{Logger: logger})
//	go eng.Run(ctx)
//
//	router.Handle("/ws", websocket.NewHandler(hub, eng))
//
// Connection Lifecycle:
//
// 1. Client connects and is registered as a player
// 2. Client joins a session, which adds it to the session's room
// 3. Client sends state and relay events, receives the room's events
// 4. Disconnection notifies the room and removes the player
package websocket
