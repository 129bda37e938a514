package sse

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

// Event is one server-sent event addressed to a user.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Manager fans out events to the active SSE connections of each user.
// A user may hold several connections (multiple tabs).
type Manager struct {
	mu      sync.RWMutex
	clients map[string]map[chan Event]struct{}
}

func NewManager() *Manager {
	return &Manager{
		clients: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers a new connection for the user and returns its
// event channel plus an unsubscribe function.
func (m *Manager) Subscribe(userID string) (chan Event, func()) {
	ch := make(chan Event, 16)

	m.mu.Lock()
	if m.clients[userID] == nil {
		m.clients[userID] = make(map[chan Event]struct{})
	}
	m.clients[userID][ch] = struct{}{}
	m.mu.Unlock()

	unsubscribe := func() {
		m.mu.Lock()
		if conns, ok := m.clients[userID]; ok {
			delete(conns, ch)
			if len(conns) == 0 {
				delete(m.clients, userID)
			}
		}
		m.mu.Unlock()
		close(ch)
	}

	return ch, unsubscribe
}

// SendToUser delivers an event to every active connection of the user.
// Slow connections are skipped rather than blocking the sender.
func (m *Manager) SendToUser(userID string, eventType string, payload interface{}) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conns, ok := m.clients[userID]
	if !ok {
		return
	}

	event := Event{Type: eventType, Payload: payload}
	for ch := range conns {
		select {
		case ch <- event:
		default:
			log.Printf("[SSE] Dropping event %s for user %s: client buffer full", eventType, userID)
		}
	}
}

// HandleSSE is the gin handler that streams events to one connection.
// It expects the auth middleware to have set "userID" in the context.
func (m *Manager) HandleSSE(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming unsupported"})
		return
	}

	ch, unsubscribe := m.Subscribe(userID.(string))
	defer unsubscribe()

	// Initial event so the client knows the stream is live
	fmt.Fprintf(c.Writer, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Payload)
			if err != nil {
				log.Printf("[SSE] Failed to marshal payload for event %s: %v", event.Type, err)
				continue
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}
