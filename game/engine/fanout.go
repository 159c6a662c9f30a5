package engine

import (
	"github.com/richardl62/richards-old-games-server/game/player"
	"github.com/richardl62/richards-old-games-server/game/session"
	"github.com/richardl62/richards-old-games-server/game/state"
)

// Broadcaster delivers named events to every connection in a room. Emit is
// called from the engine's event loop: it must serialize payload before
// returning and must not block on slow receivers. It returns the number of
// connections the event was queued for.
type Broadcaster interface {
	Emit(room, event string, payload any, except player.Connection) int
}

// broadcast fans payload out to the session's room. When sender is set the
// payload is tagged with the sender's ID and the sender's own connection is
// skipped. An empty room is a successful no-op.
func (e *Engine) broadcast(s *session.Session, event string, payload any, sender *player.Player) int {
	var except player.Connection
	if sender != nil {
		payload = withSender(payload, sender.ID)
		except = sender.Conn
	}

	n := e.out.Emit(s.Room(), event, payload, except)
	e.metrics.fanout(event, n)
	return n
}

// withSender returns a copy of payload carrying the sender's ID. Payloads
// that are not documents are wrapped under "data".
func withSender(payload any, senderID uint64) any {
	var src map[string]any
	switch v := payload.(type) {
	case nil:
		return map[string]any{SenderKey: senderID}
	case state.Document:
		src = v
	case map[string]any:
		src = v
	default:
		return map[string]any{"data": v, SenderKey: senderID}
	}

	out := make(map[string]any, len(src)+1)
	for k, v := range src {
		out[k] = v
	}
	out[SenderKey] = senderID
	return out
}
