package ws_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"incentive-monitor/internal/domain/entity"
	"incentive-monitor/internal/handler/ws"
)

type wireMessage struct {
	Type  string `json:"type"`
	Event struct {
		ID             int64             `json:"id"`
		JurisdictionID string            `json:"jurisdictionId"`
		SourceID       *int64            `json:"sourceId"`
		EventType      string            `json:"eventType"`
		Severity       string            `json:"severity"`
		Title          string            `json:"title"`
		Summary        string            `json:"summary"`
		SourceURL      string            `json:"sourceUrl"`
		DetectedAt     time.Time         `json:"detectedAt"`
		Metadata       map[string]string `json:"metadata"`
	} `json:"event"`
}

func testEvent(jurisdiction string) *entity.Event {
	sourceID := int64(3)
	return &entity.Event{
		ID:             11,
		JurisdictionID: jurisdiction,
		SourceID:       &sourceID,
		EventType:      entity.EventTypeIncentiveChange,
		Severity:       entity.SeverityWarning,
		Title:          "Rate updated",
		Summary:        "Credit rate moved to 25%.",
		SourceURL:      "https://example.gov/updates",
		DetectedAt:     time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Metadata:       map[string]string{"published": "2026-03-01T09:00:00Z"},
	}
}

// dial connects a test client to the handler and waits for registration.
func dial(t *testing.T, hub *ws.Hub, srvURL, query string, wantClients int) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srvURL, "http") + query
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial err=%v", err)
	}
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	waitForClients(t, hub, wantClients)
	return conn
}

func waitForClients(t *testing.T, hub *ws.Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d clients, have %d", want, hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read err=%v", err)
	}
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal err=%v: %s", err, data)
	}
	return msg
}

func TestBroadcast_DeliversToSubscribedClient(t *testing.T) {
	hub := ws.NewHub()
	srv := httptest.NewServer(ws.NewHandler(hub))
	defer srv.Close()

	conn := dial(t, hub, srv.URL, "", 1)

	hub.Broadcast(testEvent("CA"))

	msg := readMessage(t, conn)
	if msg.Type != "monitoring_event" {
		t.Errorf("type = %q", msg.Type)
	}
	if msg.Event.ID != 11 || msg.Event.JurisdictionID != "CA" {
		t.Errorf("event = %+v", msg.Event)
	}
	if msg.Event.SourceID == nil || *msg.Event.SourceID != 3 {
		t.Errorf("sourceId = %v", msg.Event.SourceID)
	}
	if msg.Event.EventType != "incentive_change" || msg.Event.Severity != "warning" {
		t.Errorf("classification fields = %q/%q", msg.Event.EventType, msg.Event.Severity)
	}
	if msg.Event.Metadata["published"] == "" {
		t.Error("metadata dropped")
	}
}

func TestBroadcast_JurisdictionFilter(t *testing.T) {
	hub := ws.NewHub()
	srv := httptest.NewServer(ws.NewHandler(hub))
	defer srv.Close()

	caOnly := dial(t, hub, srv.URL, "?jurisdictions=CA", 1)
	all := dial(t, hub, srv.URL, "", 2)

	hub.Broadcast(testEvent("NY"))
	hub.Broadcast(testEvent("CA"))

	// The unfiltered client receives both, in order.
	first := readMessage(t, all)
	second := readMessage(t, all)
	if first.Event.JurisdictionID != "NY" || second.Event.JurisdictionID != "CA" {
		t.Errorf("unfiltered client got %q then %q", first.Event.JurisdictionID, second.Event.JurisdictionID)
	}

	// The filtered client receives only the CA event.
	got := readMessage(t, caOnly)
	if got.Event.JurisdictionID != "CA" {
		t.Errorf("filtered client got %q", got.Event.JurisdictionID)
	}
}

func TestSubscribeMessage_ReplacesFilter(t *testing.T) {
	hub := ws.NewHub()
	srv := httptest.NewServer(ws.NewHandler(hub))
	defer srv.Close()

	conn := dial(t, hub, srv.URL, "?jurisdictions=CA", 1)

	err := conn.WriteJSON(map[string]interface{}{
		"type":          "subscribe",
		"jurisdictions": []string{"NY"},
	})
	if err != nil {
		t.Fatalf("write err=%v", err)
	}

	// The subscribe message is applied asynchronously by the read loop;
	// poll until an NY event gets through.
	deadline := time.Now().Add(3 * time.Second)
	for {
		hub.Broadcast(testEvent("NY"))
		_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		_, data, err := conn.ReadMessage()
		if err == nil {
			var msg wireMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("unmarshal err=%v", err)
			}
			if msg.Event.JurisdictionID != "NY" {
				t.Fatalf("got %q after re-subscribe", msg.Event.JurisdictionID)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("re-subscribed client never received NY event")
		}
	}
}

func TestBroadcast_EvictsClosedClient(t *testing.T) {
	hub := ws.NewHub()
	srv := httptest.NewServer(ws.NewHandler(hub))
	defer srv.Close()

	gone := dial(t, hub, srv.URL, "", 1)
	alive := dial(t, hub, srv.URL, "", 2)

	_ = gone.Close()

	// The read loop notices the close and unregisters; a broadcast against
	// a closed connection also evicts. Either way the count converges to 1
	// and the healthy client keeps receiving.
	deadline := time.Now().Add(3 * time.Second)
	for hub.ClientCount() != 1 {
		hub.Broadcast(testEvent("CA"))
		if time.Now().After(deadline) {
			t.Fatalf("closed client never evicted, count=%d", hub.ClientCount())
		}
		time.Sleep(20 * time.Millisecond)
	}

	hub.Broadcast(testEvent("NY"))

	// Drain messages until the NY one arrives, skipping earlier CA sends.
	for {
		msg := readMessage(t, alive)
		if msg.Event.JurisdictionID == "NY" {
			return
		}
	}
}

func TestUnregister_Idempotent(t *testing.T) {
	hub := ws.NewHub()
	srv := httptest.NewServer(ws.NewHandler(hub))
	defer srv.Close()

	conn := dial(t, hub, srv.URL, "", 1)
	_ = conn.Close()

	waitForClients(t, hub, 0)
	if hub.ClientCount() != 0 {
		t.Fatalf("count = %d", hub.ClientCount())
	}
}
