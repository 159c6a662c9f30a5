// Package engine coordinates multiplayer sessions over persistent
// connections.
//
// The engine implements:
//   - Player registration per connection
//   - Session creation, lookup and destruction
//   - Membership: one session per player, mirrored into transport rooms
//   - State synchronization by shallow last-write-wins merge
//   - Room-scoped fan-out tagged with the sender's player ID
//
// Core Types:
//
// Engine owns the session and player registries. Broadcaster is the
// transport primitive used for fan-out, and player.Connection is the
// per-player channel handed in by the transport.
//
// Concurrency:
//
// All registry state is confined to the goroutine running Run. Exported
// methods submit a closure to that goroutine and wait for it, so each
// inbound event is processed to completion before the next and
// check-then-act sequences need no further locking. Events emitted for one
// session therefore reach its members in submission order.
//
// Usage:
//
//	eng := engine.New(hub, engine.Options{Logger: logger})
//	go eng.Run(ctx)
//
//	info, err := eng.Connect(ctx, conn)
//	ack, err := eng.Join(ctx, conn, engine.JoinRequest{Kind: "chess"})
//	merged, err := eng.UpdateState(ctx, conn, state.Document{"turn": 2})
//	err = eng.Disconnect(ctx, conn)
//
// Lifecycle:
//
// A session is created by an explicit start or by a join without an ID, and
// is destroyed when its last member leaves. Sessions started without
// members are removed by the idle sweep.
package engine
