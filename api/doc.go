// Package api provides the HTTP REST API for administering game sessions.
//
// The api package implements:
//   - Session listing, inspection, creation, and removal
//   - Read access to a session's shared state document
//   - The session kind catalog
//   - Health and Prometheus metrics endpoints
//   - WebSocket upgrade routing
//   - Static file serving
//
// Endpoints:
//
// Session Management:
//   - GET /api/sessions - List live sessions (sort=created|activity, order=asc|desc, limit=N)
//   - POST /api/sessions - Start a session without members ({"id": "...", "kind": "..."}, both optional)
//   - DELETE /api/sessions - Remove every session
//   - GET /api/sessions/{id} - Get a session with its players and state
//   - DELETE /api/sessions/{id} - Detach the players of a session and remove it
//   - GET /api/sessions/{id}/state - Get the shared state document
//
// Configuration:
//   - GET /api/kinds - List the session kind catalog
//
// Operations:
//   - GET /api/health - Liveness with session and player counts
//   - GET /metrics - Prometheus metrics (when configured)
//   - GET /ws - WebSocket endpoint for players
//
// Usage:
//
//	server := api.NewServer(gameService, websocket.NewHandler(hub, eng),
//		api.WithMetrics(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
//		api.WithStaticDir("public"),
//	)
//	http.ListenAndServe(":5000", server)
//
// Error Handling:
//
// Errors are returned as JSON with an HTTP status derived from the error
// kind (400 invalid argument, 404 not found, 409 conflict, 503 identifier
// space exhausted, 500 otherwise):
//
//	{
//	  "error": "session 123456 not found",
//	  "code": "not_found"
//	}
package api
