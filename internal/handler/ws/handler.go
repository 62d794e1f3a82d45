package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const maxControlMessageSize = 4096

// subscribeMessage is the optional client-side handshake and re-subscribe
// message. An empty or absent jurisdiction list subscribes to all.
type subscribeMessage struct {
	Type          string   `json:"type"`
	Jurisdictions []string `json:"jurisdictions"`
}

// Handler upgrades HTTP requests to WebSocket subscriptions and registers
// them with the hub.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler creates a WebSocket handler bound to the given hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The stream carries no client-specific state, so cross-origin
			// dashboards may subscribe directly.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP implements http.Handler. The initial jurisdiction filter can be
// passed as a comma-separated "jurisdictions" query parameter; clients can
// also replace it at any time with a subscribe message.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.Any("error", err))
		return
	}

	client := newClient(conn, parseJurisdictions(r.URL.Query().Get("jurisdictions")))
	h.hub.Register(client)

	go h.readLoop(client)
	go h.pingLoop(client)
}

// parseJurisdictions splits a comma-separated filter list, dropping blanks.
func parseJurisdictions(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	jurisdictions := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			jurisdictions = append(jurisdictions, trimmed)
		}
	}
	return jurisdictions
}

// readLoop consumes control messages from the client until the connection
// closes. Subscribe messages replace the jurisdiction filter; everything
// else is ignored.
func (h *Handler) readLoop(client *Client) {
	defer func() {
		clientsEvictedTotal.WithLabelValues("read_closed").Inc()
		h.hub.Unregister(client)
	}()

	client.conn.SetReadLimit(maxControlMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(readTimeout))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = client.conn.SetReadDeadline(time.Now().Add(readTimeout))

		var msg subscribeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		if msg.Type == "" || msg.Type == "subscribe" {
			client.setInterests(msg.Jurisdictions)
			slog.Debug("WebSocket subscription updated",
				slog.Int("jurisdictions", len(msg.Jurisdictions)))
		}
	}
}

// pingLoop keeps the connection alive; a failed ping evicts the client.
func (h *Handler) pingLoop(client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		if err := client.ping(); err != nil {
			h.hub.Unregister(client)
			return
		}
	}
}
