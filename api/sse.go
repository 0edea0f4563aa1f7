package api

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Broadcaster fans lead events out to connected dashboard clients over
// server-sent events.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[chan string]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[chan string]struct{})}
}

// AddClient registers a new listener channel.
func (b *Broadcaster) AddClient() chan string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan string, 8)
	b.clients[ch] = struct{}{}
	return ch
}

// RemoveClient unregisters and closes a listener channel.
func (b *Broadcaster) RemoveClient(ch chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[ch]; ok {
		delete(b.clients, ch)
		close(ch)
	}
}

// BroadcastLeadCreated notifies every listener of a new registration.
// Sends are non-blocking; a client that cannot keep up drops events.
func (b *Broadcaster) BroadcastLeadCreated(leadID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	msg := fmt.Sprintf(`{"type":"lead_created","leadId":%d}`, leadID)
	for ch := range b.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

// EventsHandler is the SSE endpoint the admin dashboard listens on to
// refresh its lead list live.
func (a *App) EventsHandler(c *gin.Context) {
	if a.Events == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Event stream unavailable"})
		return
	}

	ch := a.Events.AddClient()
	defer a.Events.RemoveClient(ch)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-ch:
			if !ok {
				return false
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			return true
		case <-heartbeat.C:
			fmt.Fprint(w, ": keepalive\n\n")
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
