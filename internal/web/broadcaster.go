package web

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/logic/urts"
)

// Event types carried on the status stream.
const (
	EventLog        = "log"
	EventPosition   = "position"
	EventTravelTime = "travel_time"
	EventConnection = "connection"
)

// StatusEvent represents a single status message for SSE.
type StatusEvent struct {
	Time      string   `json:"t"`
	Type      string   `json:"type"`
	Level     string   `json:"l,omitempty"`
	Msg       string   `json:"msg,omitempty"`
	Address   string   `json:"address,omitempty"`
	Value     *float64 `json:"value,omitempty"`
	Connected *bool    `json:"connected,omitempty"`
}

// StatusBroadcaster distributes status messages to multiple SSE clients.
// It is also a shade reporter: position, travel time and connection changes
// are pushed to every client.
type StatusBroadcaster struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}
}

// NewStatusBroadcaster creates a new broadcaster.
func NewStatusBroadcaster() *StatusBroadcaster {
	return &StatusBroadcaster{
		clients: make(map[chan string]struct{}),
	}
}

// Subscribe returns a channel that receives broadcast messages and a cleanup function.
// The caller must call the returned cleanup when done (e.g. on client disconnect).
func (b *StatusBroadcaster) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		delete(b.clients, ch)
		b.mu.Unlock()
		close(ch)
	}
	return ch, unsub
}

// Broadcast sends a log line to all subscribed clients.
func (b *StatusBroadcaster) Broadcast(level, msg string) {
	b.publish(StatusEvent{Type: EventLog, Level: level, Msg: msg})
}

// BroadcastMsg is a convenience for level "info".
func (b *StatusBroadcaster) BroadcastMsg(msg string) {
	b.Broadcast("info", msg)
}

func (b *StatusBroadcaster) ReportPosition(addr urts.Address, percent float64) {
	b.publish(StatusEvent{Type: EventPosition, Address: addr.String(), Value: &percent})
}

func (b *StatusBroadcaster) ReportTravelTime(addr urts.Address, seconds float64) {
	b.publish(StatusEvent{Type: EventTravelTime, Address: addr.String(), Value: &seconds})
}

func (b *StatusBroadcaster) ReportConnection(connected bool) {
	b.publish(StatusEvent{Type: EventConnection, Connected: &connected})
}

// publish stamps and fans out evt. Slow clients miss messages.
func (b *StatusBroadcaster) publish(evt StatusEvent) {
	evt.Time = time.Now().Format(time.RFC3339)
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	payload := string(data)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
			// channel full, skip
		}
	}
}

// BroadcastWriter implements io.Writer; each Write broadcasts the content to SSE clients.
func BroadcastWriter(b *StatusBroadcaster) *broadcastWriter {
	return &broadcastWriter{b: b}
}

// broadcastWriter wraps StatusBroadcaster as io.Writer for use with debug.SetOutput.
type broadcastWriter struct {
	b *StatusBroadcaster
}

func (w *broadcastWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		w.b.BroadcastMsg(msg)
	}
	return len(p), nil
}
