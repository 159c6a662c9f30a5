// Package mcp provides the Model Context Protocol interface for the game
// server.
//
// The mcp package implements:
//   - An MCP server exposing session administration as tools
//   - A thin REST client: every tool is a call to the HTTP admin API
//
// MCP Tools:
//   - list_sessions: List all live sessions
//   - create_session: Start a session without members
//   - get_session: Session details, players and shared state
//   - get_session_state: The shared state document only
//   - delete_session: Detach the players of a session and remove it
//   - clear_sessions: Remove every session
//   - list_kinds: The configured session kinds
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer()) for local MCP clients
//   - HTTP: POST /mcp, answered with GetMCPServer().HandleMessage
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:5000", version)
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
