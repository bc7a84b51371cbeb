package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/goblingibber/arena/src/app/arena"
	"github.com/goblingibber/arena/src/domain/duel"
	"github.com/goblingibber/arena/src/domain/shared"
	"github.com/goblingibber/arena/src/infra/gateway"
)

type joinCall struct {
	conn    shared.ConnectionID
	loadout duel.Loadout
}

type actionCall struct {
	conn        shared.ConnectionID
	roomID      shared.RoomID
	attack      string
	timingBonus bool
}

type mockEngine struct {
	joins       chan joinCall
	actions     chan actionCall
	disconnects chan shared.ConnectionID
}

func newMockEngine() *mockEngine {
	return &mockEngine{
		joins:       make(chan joinCall, 4),
		actions:     make(chan actionCall, 4),
		disconnects: make(chan shared.ConnectionID, 4),
	}
}

func (m *mockEngine) Join(ctx context.Context, conn shared.ConnectionID, loadout duel.Loadout) error {
	m.joins <- joinCall{conn: conn, loadout: loadout}
	return nil
}

func (m *mockEngine) Action(ctx context.Context, conn shared.ConnectionID, roomID shared.RoomID, attack string, timingBonus bool) error {
	m.actions <- actionCall{conn: conn, roomID: roomID, attack: attack, timingBonus: timingBonus}
	return nil
}

func (m *mockEngine) Disconnect(ctx context.Context, conn shared.ConnectionID) {
	m.disconnects <- conn
}

func dialTestHub(t *testing.T, engine gateway.Engine) (*gateway.Hub, *websocket.Conn) {
	t.Helper()
	hub := gateway.NewHub(zap.NewNop(), nil)
	hub.Attach(engine)

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return hub, conn
}

func readEvent(t *testing.T, conn *websocket.Conn) arena.Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var event arena.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	return event
}

func TestHubDispatchesJoinAndDelivers(t *testing.T) {
	engine := newMockEngine()
	hub, conn := dialTestHub(t, engine)

	msg := `{"type":"join","data":{"loadout":{"id":"loadout-1","gibberish":"blargh","audioUrl":"a.mp3","imageUrl":"a.png","stats":{"cringe":1,"chaos":2,"iq":3},"timestamp":1700000000000}}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var join joinCall
	select {
	case join = <-engine.joins:
	case <-time.After(2 * time.Second):
		t.Fatal("engine never received the join")
	}
	if join.loadout.ID != "loadout-1" || join.loadout.Stats.Chaos != 2 {
		t.Errorf("loadout = %+v", join.loadout)
	}
	if join.conn == "" {
		t.Fatal("expected a generated connection id")
	}

	hub.Send(join.conn, arena.Event{Type: arena.EventWaiting, Data: arena.WaitingPayload{Message: "Waiting for an opponent..."}})
	event := readEvent(t, conn)
	if event.Type != arena.EventWaiting {
		t.Errorf("event type = %q, want waiting", event.Type)
	}
}

func TestHubDispatchesAction(t *testing.T) {
	engine := newMockEngine()
	_, conn := dialTestHub(t, engine)

	msg := `{"type":"action","data":{"roomId":"a-b","attackKind":"chaos","timingBonus":true}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	select {
	case action := <-engine.actions:
		if action.roomID != "a-b" || action.attack != "chaos" || !action.timingBonus {
			t.Errorf("action = %+v", action)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("engine never received the action")
	}
}

func TestHubRejectsUnknownEventType(t *testing.T) {
	engine := newMockEngine()
	_, conn := dialTestHub(t, engine)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"teleport","data":{}}`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	event := readEvent(t, conn)
	if event.Type != arena.EventError {
		t.Errorf("event type = %q, want error", event.Type)
	}
}

func TestHubRejectsMalformedMessage(t *testing.T) {
	engine := newMockEngine()
	_, conn := dialTestHub(t, engine)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`not json`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	event := readEvent(t, conn)
	if event.Type != arena.EventError {
		t.Errorf("event type = %q, want error", event.Type)
	}
}

func TestHubReportsDisconnect(t *testing.T) {
	engine := newMockEngine()
	_, conn := dialTestHub(t, engine)

	msg := `{"type":"join","data":{"loadout":{"id":"loadout-1","gibberish":"blargh","audioUrl":"a.mp3","imageUrl":"a.png","stats":{"cringe":1,"chaos":2,"iq":3},"timestamp":1700000000000}}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	var join joinCall
	select {
	case join = <-engine.joins:
	case <-time.After(2 * time.Second):
		t.Fatal("engine never received the join")
	}

	_ = conn.Close()

	select {
	case id := <-engine.disconnects:
		if id != join.conn {
			t.Errorf("disconnect id = %s, want %s", id, join.conn)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("engine never received the disconnect")
	}
}
