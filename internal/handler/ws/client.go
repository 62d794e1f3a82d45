package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	readTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

// Client is one live WebSocket subscription: a connection handle plus the
// set of jurisdiction IDs it wants events for. An empty set means all
// jurisdictions.
type Client struct {
	conn        *websocket.Conn
	connectedAt time.Time

	// interests is replaced wholesale on each subscribe message
	interests   map[string]struct{}
	interestsMu sync.RWMutex

	// gorilla/websocket panics on concurrent writes to one connection
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, jurisdictions []string) *Client {
	c := &Client{
		conn:        conn,
		connectedAt: time.Now(),
		interests:   make(map[string]struct{}),
	}
	c.setInterests(jurisdictions)
	return c
}

// setInterests replaces the jurisdiction filter. An empty or nil list
// subscribes the client to all jurisdictions.
func (c *Client) setInterests(jurisdictions []string) {
	next := make(map[string]struct{}, len(jurisdictions))
	for _, j := range jurisdictions {
		if j != "" {
			next[j] = struct{}{}
		}
	}

	c.interestsMu.Lock()
	c.interests = next
	c.interestsMu.Unlock()
}

// wantsJurisdiction reports whether the client should receive events for
// the given jurisdiction.
func (c *Client) wantsJurisdiction(jurisdictionID string) bool {
	c.interestsMu.RLock()
	defer c.interestsMu.RUnlock()

	if len(c.interests) == 0 {
		return true
	}
	_, ok := c.interests[jurisdictionID]
	return ok
}

// send writes a text message to the connection under the write mutex
// with a bounded deadline.
func (c *Client) send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// ping sends a control ping under the write mutex.
func (c *Client) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// close closes the underlying connection exactly once.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
	})
}
