package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/goblingibber/arena/src/app/arena"
	"github.com/goblingibber/arena/src/domain/duel"
	"github.com/goblingibber/arena/src/domain/shared"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10
	sendBuffer     = 32
)

// Engine is the inbound surface the gateway dispatches into.
type Engine interface {
	Join(ctx context.Context, conn shared.ConnectionID, loadout duel.Loadout) error
	Action(ctx context.Context, conn shared.ConnectionID, roomID shared.RoomID, attack string, timingBonus bool) error
	Disconnect(ctx context.Context, conn shared.ConnectionID)
}

type inboundEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type joinPayload struct {
	Loadout duel.Loadout `json:"loadout"`
}

type actionPayload struct {
	RoomID      string `json:"roomId"`
	AttackKind  string `json:"attackKind"`
	TimingBonus bool   `json:"timingBonus"`
}

// Hub owns every websocket connection and implements arena.EventSink.
// It never starts recurring work per connection; the scheduler is the only
// source of periodic activity.
type Hub struct {
	mu       sync.RWMutex
	clients  map[shared.ConnectionID]*client
	engine   Engine
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

type client struct {
	id   shared.ConnectionID
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// enqueue hands an outbound frame to the write pump. It reports false when
// the client is closed or its buffer is full.
func (c *client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// NewHub creates a gateway restricted to the given origins. An empty list
// allows any origin.
func NewHub(logger *zap.Logger, allowedOrigins []string) *Hub {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}
	return &Hub{
		clients: make(map[shared.ConnectionID]*client),
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// Attach binds the engine after construction, breaking the hub/engine
// initialization cycle.
func (h *Hub) Attach(engine Engine) {
	h.engine = engine
}

// ServeWS upgrades the request and runs the connection's read loop.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	id := shared.ConnectionID(uuid.Must(uuid.NewV4()).String())
	c := &client{id: id, conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	h.logger.Info("participant connected", zap.String("connection", string(id)))

	go h.writePump(c)
	h.readPump(r.Context(), c)
}

// Send implements arena.EventSink. A slow consumer has the event dropped
// rather than blocking the engine.
func (h *Hub) Send(id shared.ConnectionID, event arena.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("event marshal failed", zap.String("type", event.Type), zap.Error(err))
		return
	}

	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if !c.enqueue(data) {
		h.logger.Warn("dropping event for unreachable connection",
			zap.String("connection", string(id)),
			zap.String("type", event.Type),
		)
	}
}

// Close tears down every connection, used on shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[shared.ConnectionID]*client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	defer h.drop(ctx, c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", zap.String("connection", string(c.id)), zap.Error(err))
			}
			return
		}
		h.dispatch(ctx, c, raw)
	}
}

func (h *Hub) dispatch(ctx context.Context, c *client, raw []byte) {
	var envelope inboundEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		h.sendError(c.id, "malformed message")
		return
	}
	switch envelope.Type {
	case "join":
		var payload joinPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			h.sendError(c.id, "malformed join payload")
			return
		}
		_ = h.engine.Join(ctx, c.id, payload.Loadout)
	case "action":
		var payload actionPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			h.sendError(c.id, "malformed action payload")
			return
		}
		_ = h.engine.Action(ctx, c.id, shared.RoomID(payload.RoomID), payload.AttackKind, payload.TimingBonus)
	default:
		h.sendError(c.id, "unknown event type")
	}
}

func (h *Hub) sendError(id shared.ConnectionID, message string) {
	h.Send(id, arena.Event{Type: arena.EventError, Data: arena.ErrorPayload{Message: message}})
}

func (h *Hub) drop(ctx context.Context, c *client) {
	h.mu.Lock()
	_, present := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()

	c.close()
	if present {
		h.logger.Info("participant disconnected", zap.String("connection", string(c.id)))
		h.engine.Disconnect(ctx, c.id)
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

