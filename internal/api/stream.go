package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Complaint event types.
const (
	EventCreated    = "complaint_created"
	EventUpdated    = "complaint_updated"
	EventReassigned = "complaint_reassigned"
)

// ComplaintEvent describes websocket payloads emitted when complaints change.
type ComplaintEvent struct {
	Type         string        `json:"type"`
	ComplaintID  uint          `json:"complaint_id"`
	DepartmentID *uint         `json:"department_id"`
	Complaint    *ComplaintDTO `json:"complaint,omitempty"`
	Message      string        `json:"message,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// wsClient wraps a websocket connection with write locking. A client only
// receives events for its department; admins see everything.
type wsClient struct {
	conn         *websocket.Conn
	mu           sync.Mutex
	departmentID uint
	all          bool
}

func (c *wsClient) wants(event ComplaintEvent) bool {
	if c.all {
		return true
	}
	return event.DepartmentID != nil && *event.DepartmentID == c.departmentID
}

// ComplaintNotifier keeps track of dashboard websocket clients and broadcasts
// complaint events.
type ComplaintNotifier struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	last    *ComplaintEvent
}

// NewComplaintNotifier constructs a notifier instance.
func NewComplaintNotifier() *ComplaintNotifier {
	return &ComplaintNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection. departmentID scopes officer
// feeds; pass all for admin feeds.
func (n *ComplaintNotifier) Register(conn *websocket.Conn, departmentID uint, all bool) *wsClient {
	client := &wsClient{conn: conn, departmentID: departmentID, all: all}
	n.mu.Lock()
	n.clients[client] = struct{}{}
	n.mu.Unlock()
	return client
}

// Unregister removes the websocket client from the notifier and closes the socket.
func (n *ComplaintNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast sends the supplied event to every interested client.
func (n *ComplaintNotifier) Broadcast(event ComplaintEvent) {
	event.Timestamp = time.Now().UTC()

	n.mu.Lock()
	snapshot := event
	n.last = &snapshot
	for client := range n.clients {
		if !client.wants(event) {
			continue
		}
		if err := client.writeJSON(event); err != nil {
			delete(n.clients, client)
			_ = client.conn.Close()
		}
	}
	n.mu.Unlock()
}

// ClientCount reports the number of connected clients.
func (n *ComplaintNotifier) ClientCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.clients)
}

// LastEvent returns a copy of the most recent broadcast, if any.
func (n *ComplaintNotifier) LastEvent() *ComplaintEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.last == nil {
		return nil
	}
	copy := *n.last
	return &copy
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}
