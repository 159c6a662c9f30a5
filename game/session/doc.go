// Package session provides the registry of live game sessions.
//
// The session package implements:
//   - Session identifier allocation from a bounded numeric range
//   - Session creation with a caller-proposed or allocated ID
//   - Kind validation against an optional catalog
//   - Member bookkeeping per session
//   - Idle sweep of sessions without members
//
// Core Types:
//
// Registry owns the live sessions, keyed case-insensitively by ID.
// Session holds a session's kind, members, shared state document, and
// creation and last activity times. Allocator draws random IDs and reports
// ErrAllocationExhausted once every attempt collides.
//
// Session Identifiers:
//
// Allocated IDs are six decimal digits by default, short enough to read
// out to another player. Callers may also propose their own ID of up to 32
// letters, digits, underscores, or hyphens.
//
// Concurrency:
//
// Registry and Session are not safe for concurrent use. The engine confines
// them to its event loop, which makes every lookup and mutation sequence
// atomic without locks.
//
// Usage:
//
//	registry := session.NewRegistry(session.NewDefaultAllocator(), nil)
//
//	// Create a session with an allocated ID
//	sess, err := registry.Create("", "chess")
//	if err != nil {
//		return err
//	}
//
//	// Retrieve it again
//	sess, ok := registry.Get(sess.ID)
//
//	// Remove sessions idle since cutoff
//	removed := registry.Sweep(time.Now().Add(-10 * time.Minute))
package session
