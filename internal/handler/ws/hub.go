// Package ws implements the live event stream: a WebSocket endpoint that
// fans out monitoring events to connected clients filtered by jurisdiction
// interest.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"incentive-monitor/internal/domain/entity"
)

// eventMessage is the wire shape for one broadcast event.
type eventMessage struct {
	Type  string       `json:"type"`
	Event eventPayload `json:"event"`
}

type eventPayload struct {
	ID             int64             `json:"id"`
	JurisdictionID string            `json:"jurisdictionId"`
	SourceID       *int64            `json:"sourceId,omitempty"`
	EventType      entity.EventType  `json:"eventType"`
	Severity       entity.Severity   `json:"severity"`
	Title          string            `json:"title"`
	Summary        string            `json:"summary"`
	SourceURL      string            `json:"sourceUrl"`
	DetectedAt     time.Time         `json:"detectedAt"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Hub maintains the registry of live subscriptions and fans persisted
// events out to them. The registry is shared mutable state touched from
// both the polling pipeline (Broadcast) and connection lifecycle events
// (Register/Unregister), so all access goes through the mutex.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates an empty broadcast hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
	}
}

// Register adds a client to the broadcast registry.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	connectionsTotal.Inc()
	clientsConnected.Set(float64(count))

	slog.Info("WebSocket client registered",
		slog.Int("connected_clients", count))
}

// Unregister removes a client from the registry and closes its connection.
// Safe to call multiple times for the same client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	c.close()

	if present {
		clientsConnected.Set(float64(count))
		slog.Info("WebSocket client unregistered",
			slog.Int("connected_clients", count))
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast delivers an event to every registered client whose interest
// set is empty or contains the event's jurisdiction. A send failure evicts
// only that client; delivery to the rest continues.
func (h *Hub) Broadcast(event *entity.Event) {
	data, err := json.Marshal(eventMessage{
		Type: "monitoring_event",
		Event: eventPayload{
			ID:             event.ID,
			JurisdictionID: event.JurisdictionID,
			SourceID:       event.SourceID,
			EventType:      event.EventType,
			Severity:       event.Severity,
			Title:          event.Title,
			Summary:        event.Summary,
			SourceURL:      event.SourceURL,
			DetectedAt:     event.DetectedAt.UTC(),
			Metadata:       event.Metadata,
		},
	})
	if err != nil {
		slog.Error("Failed to marshal broadcast event",
			slog.Int64("event_id", event.ID),
			slog.Any("error", err))
		return
	}

	// Snapshot under the read lock so a slow client write never blocks
	// registration or other broadcasts.
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c.wantsJurisdiction(event.JurisdictionID) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if err := c.send(data); err != nil {
			slog.Warn("WebSocket send failed, evicting client",
				slog.Int64("event_id", event.ID),
				slog.Any("error", err))
			clientsEvictedTotal.WithLabelValues("send_failure").Inc()
			h.Unregister(c)
			continue
		}
		delivered++
	}

	if delivered > 0 {
		messagesDeliveredTotal.Add(float64(delivered))
	}

	slog.Debug("Event broadcast complete",
		slog.Int64("event_id", event.ID),
		slog.String("jurisdiction_id", event.JurisdictionID),
		slog.Int("delivered", delivered),
		slog.Int("targets", len(targets)))
}
