package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/richardl62/richards-old-games-server/game/engine"
	"github.com/richardl62/richards-old-games-server/game/gameerr"
	"github.com/richardl62/richards-old-games-server/game/player"
	"github.com/richardl62/richards-old-games-server/game/state"
)

// Outbound events sent by the transport itself.
const (
	EventConnected = "connected"
	EventAck       = "ack"
	EventError     = "error"
)

// Dispatcher handles the events read from player connections.
// *engine.Engine satisfies it.
type Dispatcher interface {
	Connect(ctx context.Context, conn player.Connection) (player.Info, error)
	Join(ctx context.Context, conn player.Connection, req engine.JoinRequest) (*engine.JoinAck, error)
	Leave(ctx context.Context, conn player.Connection) error
	UpdateState(ctx context.Context, conn player.Connection, partial state.Document) (state.Document, error)
	Relay(ctx context.Context, conn player.Connection, event string, payload any) error
	IsRelayEvent(event string) bool
	Disconnect(ctx context.Context, conn player.Connection) error
}

// inbound is a frame read from a client.
type inbound struct {
	Event string          `json:"event"`
	Ack   *int64          `json:"ack,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler upgrades HTTP requests to WebSocket connections and feeds their
// frames to the dispatcher.
type Handler struct {
	hub    *Hub
	engine Dispatcher
}

// NewHandler creates the /ws handler.
func NewHandler(hub *Hub, d Dispatcher) *Handler {
	return &Handler{hub: hub, engine: d}
}

// ServeHTTP handles WebSocket requests from clients
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.logger.Warn("WebSocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	client := h.hub.newClient(conn)

	// The request context ends with this handler; the connection outlives it.
	ctx := context.WithoutCancel(r.Context())

	info, err := h.engine.Connect(ctx, client)
	if err != nil {
		h.hub.logger.Error("Player registration failed", "conn_id", client.id, "error", err)
		h.hub.unregister(client)
		conn.Close()
		return
	}
	client.sendMessage(Message{Event: EventConnected, Data: info})

	h.hub.logger.Info("Player connected",
		"conn_id", client.id,
		"player_id", info.PlayerID,
		"remote_addr", r.RemoteAddr)

	go client.writePump()
	go h.readPump(ctx, client)
}

// readPump pumps frames from the WebSocket connection to the dispatcher.
// Frames are handled one at a time, in arrival order.
func (h *Handler) readPump(ctx context.Context, c *Client) {
	defer func() {
		if err := h.engine.Disconnect(ctx, c); err != nil {
			h.hub.logger.Error("Disconnect failed", "conn_id", c.id, "error", err)
		}
		c.Close()
		h.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.hub.logger.Warn("WebSocket error", "conn_id", c.id, "error", err)
			}
			return
		}
		h.handleFrame(ctx, c, frame)
	}
}

// handleFrame dispatches one frame and reports the outcome: as an ack when
// the frame carried an ack id, otherwise only failures, as an error event.
func (h *Handler) handleFrame(ctx context.Context, c *Client, frame []byte) {
	var msg inbound
	var data any
	err := json.Unmarshal(frame, &msg)
	if err != nil {
		msg.Ack = recoverAck(frame)
		err = gameerr.Wrap(gameerr.ErrInvalidArgument, err, "malformed frame: %v", err)
	} else {
		data, err = h.dispatch(ctx, c, msg)
	}

	if err != nil {
		h.hub.logger.Debug("Event failed", "conn_id", c.id, "event", msg.Event, "error", err)
	}

	switch {
	case msg.Ack != nil && err != nil:
		c.sendMessage(Message{Event: EventAck, Ack: msg.Ack, Error: err.Error(), Code: gameerr.Code(err)})
	case msg.Ack != nil:
		c.sendMessage(Message{Event: EventAck, Ack: msg.Ack, Data: data})
	case err != nil:
		c.sendMessage(Message{Event: EventError, Data: map[string]any{"event": msg.Event}, Error: err.Error(), Code: gameerr.Code(err)})
	}
}

func (h *Handler) dispatch(ctx context.Context, c *Client, msg inbound) (any, error) {
	switch msg.Event {
	case engine.EventJoin:
		var req engine.JoinRequest
		if err := decodeData(msg.Data, &req); err != nil {
			return nil, err
		}
		return h.engine.Join(ctx, c, req)

	case engine.EventLeave:
		return nil, h.engine.Leave(ctx, c)

	case engine.EventState:
		partial, err := state.Parse(msg.Data)
		if err != nil {
			return nil, err
		}
		merged, err := h.engine.UpdateState(ctx, c, partial)
		if err != nil {
			return nil, err
		}
		return map[string]any{"state": merged}, nil

	case "":
		return nil, gameerr.New(gameerr.ErrInvalidArgument, "frame has no event")
	}

	if !h.engine.IsRelayEvent(msg.Event) {
		return nil, gameerr.New(gameerr.ErrInvalidArgument, "unknown event %q", msg.Event)
	}
	var payload any
	if err := decodeData(msg.Data, &payload); err != nil {
		return nil, err
	}
	return nil, h.engine.Relay(ctx, c, msg.Event, payload)
}

// decodeData decodes an event's data, keeping numbers as json.Number. An
// absent data field leaves v untouched.
func decodeData(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return gameerr.Wrap(gameerr.ErrInvalidArgument, err, "invalid %s: expected %s", typeErr.Field, typeErr.Type)
		}
		return gameerr.Wrap(gameerr.ErrInvalidArgument, err, "invalid event data: %v", err)
	}
	return nil
}

// recoverAck extracts the ack id from a frame that failed to decode as a
// whole.
func recoverAck(frame []byte) *int64 {
	var probe struct {
		Ack *int64 `json:"ack"`
	}
	if json.Unmarshal(frame, &probe) != nil {
		return nil
	}
	return probe.Ack
}
