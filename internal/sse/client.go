package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/piske-alex/mongoexpr/internal/history"
)

var (
	// ErrStreamingUnsupported is returned when the response writer cannot flush
	ErrStreamingUnsupported = errors.New("streaming not supported")
	// ErrClientClosed is returned when sending to a disconnected client
	ErrClientClosed = errors.New("client context cancelled")
	// ErrQueueFull is returned when a slow client's buffer is full; the message is dropped
	ErrQueueFull = errors.New("client message queue full")
)

const (
	clientBufferSize  = 100
	keepaliveInterval = 30 * time.Second
)

// Client represents a connected SSE client
type Client struct {
	ID      string
	Filters []*Filter

	w       http.ResponseWriter
	flusher http.Flusher
	ctx     context.Context
	cancel  context.CancelFunc
	msgs    chan []byte

	mu           sync.Mutex
	lastActivity time.Time
}

// NewClient creates a client, writes the SSE headers and parses its filters.
// No filters means every entry is delivered.
func NewClient(w http.ResponseWriter, filterExprs []string) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	var filters []*Filter
	for _, expr := range filterExprs {
		if expr != "" {
			filters = append(filters, NewFilter(expr))
		}
	}
	if len(filters) == 0 {
		filters = append(filters, NewFilter(Wildcard))
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		ID:           uuid.NewString(),
		Filters:      filters,
		w:            w,
		flusher:      flusher,
		ctx:          ctx,
		cancel:       cancel,
		msgs:         make(chan []byte, clientBufferSize),
		lastActivity: time.Now(),
	}, nil
}

// Send queues an SSE event. data is sent as-is when it is a string or byte
// slice and JSON-encoded otherwise.
func (c *Client) Send(event string, data any) error {
	if c.ctx.Err() != nil {
		return ErrClientClosed
	}

	var payload string
	switch v := data.(type) {
	case string:
		payload = v
	case []byte:
		payload = string(v)
	default:
		encoded, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal data: %w", err)
		}
		payload = string(encoded)
	}

	return c.enqueue([]byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event, payload)))
}

// SendComment queues an SSE comment line
func (c *Client) SendComment(comment string) error {
	if c.ctx.Err() != nil {
		return ErrClientClosed
	}
	return c.enqueue([]byte(fmt.Sprintf(": %s\n\n", comment)))
}

func (c *Client) enqueue(msg []byte) error {
	select {
	case c.msgs <- msg:
		return nil
	case <-c.ctx.Done():
		return ErrClientClosed
	default:
		return ErrQueueFull
	}
}

// ShouldNotify reports whether any of the client's filters match entry
func (c *Client) ShouldNotify(entry history.Entry) bool {
	for _, filter := range c.Filters {
		if filter.IsMatch(entry) {
			return true
		}
	}
	return false
}

// Close makes Run return and rejects further sends
func (c *Client) Close() {
	c.cancel()
}

// Done is closed once the client has been closed or its connection failed
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// LastActivity returns the time of the last successful write
func (c *Client) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// Run writes queued messages and keep-alives to the response until ctx ends,
// the client is closed or a write fails. It blocks, and must be called from
// the handler goroutine that owns the response writer so that no write can
// outlive the handler. The client is closed when Run returns.
func (c *Client) Run(ctx context.Context) {
	defer c.cancel()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.ctx.Done():
			return
		case msg := <-c.msgs:
			if !c.write(msg) {
				return
			}
		case <-keepalive.C:
			if !c.write([]byte(": keepalive\n\n")) {
				return
			}
		}
	}
}

func (c *Client) write(msg []byte) bool {
	if _, err := c.w.Write(msg); err != nil {
		c.cancel()
		return false
	}
	c.flusher.Flush()

	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
	return true
}
