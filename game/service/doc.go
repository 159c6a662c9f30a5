// Package service provides the administrative layer over the session engine.
//
// The service package implements:
//   - Session creation without members, lookup, listing and removal
//   - Access to a session's shared state
//   - The session kind catalog
//
// Core Interfaces:
//
// GameService is the interface used by the HTTP API and the MCP tools.
// SessionEngine is the part of engine.Engine it drives, and KindCatalog
// supplies the configured kinds.
//
// Architecture:
//
// Players never go through this package. They talk to the engine over the
// WebSocket transport; the service only observes and administers sessions,
// and every call is serialized by the engine's event loop.
//
// Usage:
//
//	svc := service.NewGameService(eng, cfg)
//
//	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{Kind: "chess"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	doc, err := svc.GetSessionState(ctx, info.ID)
package service
