package sse

import (
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/piske-alex/mongoexpr/internal/history"
)

// ErrTooManyClients is returned by AddClient once MaxClients are connected
var ErrTooManyClients = errors.New("too many SSE clients")

const (
	// EventConnected is sent once to every new client
	EventConnected = "connected"
	// EventExpression carries a history entry
	EventExpression = "expression"
	// EventCleared announces that the history was cleared
	EventCleared = "cleared"
)

// Options tunes a Server
type Options struct {
	MaxClients      int
	CleanupInterval time.Duration
	IdleTimeout     time.Duration
}

// DefaultOptions returns the default server options
func DefaultOptions() Options {
	return Options{
		MaxClients:      10000,
		CleanupInterval: 5 * time.Minute,
		IdleTimeout:     10 * time.Minute,
	}
}

// Server manages SSE client connections and broadcasting of analyzed expressions
type Server struct {
	opts         Options
	clients      map[string]*Client
	clientsMutex sync.RWMutex
	stop         chan struct{}
	stopOnce     sync.Once
}

// NewServer creates a server and starts its cleanup loop
func NewServer(opts Options) *Server {
	defaults := DefaultOptions()
	if opts.MaxClients <= 0 {
		opts.MaxClients = defaults.MaxClients
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaults.CleanupInterval
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaults.IdleTimeout
	}

	s := &Server{
		opts:    opts,
		clients: make(map[string]*Client),
		stop:    make(chan struct{}),
	}

	go s.startCleanup()

	return s
}

// AddClient registers a client for the request and queues the connected
// event. The caller streams to it with Client.Run. The client is removed when
// the request context ends or the client is closed.
func (s *Server) AddClient(w http.ResponseWriter, r *http.Request, filterExprs []string) (*Client, error) {
	client, err := NewClient(w, filterExprs)
	if err != nil {
		return nil, err
	}

	s.clientsMutex.Lock()
	if len(s.clients) >= s.opts.MaxClients {
		s.clientsMutex.Unlock()
		client.Close()
		return nil, ErrTooManyClients
	}
	s.clients[client.ID] = client
	s.clientsMutex.Unlock()

	go func() {
		select {
		case <-r.Context().Done():
		case <-client.Done():
		}
		s.RemoveClient(client.ID)
	}()

	client.Send(EventConnected, map[string]string{"id": client.ID})
	log.Printf("SSE client %s connected with %d filters", client.ID, len(client.Filters))

	return client, nil
}

// RemoveClient closes and forgets a client
func (s *Server) RemoveClient(clientID string) {
	s.clientsMutex.Lock()
	client, exists := s.clients[clientID]
	if exists {
		delete(s.clients, clientID)
	}
	s.clientsMutex.Unlock()

	if exists {
		client.Close()
		log.Printf("SSE client %s disconnected", clientID)
	}
}

// BroadcastEntry sends entry to every client whose filters match it
func (s *Server) BroadcastEntry(entry history.Entry) {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()

	for _, client := range s.clients {
		if !client.ShouldNotify(entry) {
			continue
		}
		if err := client.Send(EventExpression, entry); err != nil {
			log.Printf("Failed to send entry %s to client %s: %v", entry.ID, client.ID, err)
		}
	}
}

// Broadcast sends an event to every client regardless of filters
func (s *Server) Broadcast(event string, data any) {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()

	for _, client := range s.clients {
		if err := client.Send(event, data); err != nil {
			log.Printf("Failed to send %s to client %s: %v", event, client.ID, err)
		}
	}
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()
	return len(s.clients)
}

// Shutdown disconnects every client and stops the cleanup loop
func (s *Server) Shutdown() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})

	s.clientsMutex.Lock()
	clients := s.clients
	s.clients = make(map[string]*Client)
	s.clientsMutex.Unlock()

	for _, client := range clients {
		client.Close()
	}
	log.Printf("SSE server shut down, %d clients disconnected", len(clients))
}

func (s *Server) startCleanup() {
	ticker := time.NewTicker(s.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.cleanupInactiveClients()
		}
	}
}

func (s *Server) cleanupInactiveClients() {
	cutoff := time.Now().Add(-s.opts.IdleTimeout)

	s.clientsMutex.RLock()
	var stale []string
	for id, client := range s.clients {
		if client.LastActivity().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.clientsMutex.RUnlock()

	for _, id := range stale {
		s.RemoveClient(id)
	}
	if len(stale) > 0 {
		log.Printf("Removed %d inactive SSE clients", len(stale))
	}
}
