package sse

import (
	"encoding/json"
	"sync"
	"time"

	"followup-tracker/internal/logger"
	"followup-tracker/internal/service"
)

const (
	EventStateChanged  = "state_changed"
	EventRefreshFailed = "refresh_failed"
)

// Event is the JSON envelope written to every SSE listener.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	Time int64       `json:"time"`
}

// SSEManager manages Server-Sent Event connections
type SSEManager struct {
	// each listener maps to a done channel closed on removal
	clients    map[chan []byte]chan struct{}
	clientsMux sync.RWMutex
	closed     chan struct{}
	closeOnce  sync.Once

	sendTimeout time.Duration
	logger      *logger.Logger
	now         func() time.Time
}

// NewSSEManager creates a new SSE manager
func NewSSEManager(logger *logger.Logger) *SSEManager {
	return &SSEManager{
		clients:     make(map[chan []byte]chan struct{}),
		closed:      make(chan struct{}),
		sendTimeout: 5 * time.Second,
		logger:      logger,
		now:         time.Now,
	}
}

// AddClient registers a new listener
func (s *SSEManager) AddClient() chan []byte {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()

	channel := make(chan []byte, 10)
	s.clients[channel] = make(chan struct{})

	s.logger.Info("Added SSE client, total clients:", len(s.clients))
	return channel
}

// RemoveClient unregisters a listener and abandons any send still pending to it.
// The channel itself is left open since a broadcast may still hold it.
func (s *SSEManager) RemoveClient(channel chan []byte) {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()

	if done, exists := s.clients[channel]; exists {
		delete(s.clients, channel)
		close(done)
		s.logger.Info("Removed SSE client, remaining clients:", len(s.clients))
	}
}

// Broadcast sends one event to every listener. Slow listeners are skipped
// after the send timeout.
func (s *SSEManager) Broadcast(eventType string, data interface{}) {
	jsonData, err := json.Marshal(Event{Type: eventType, Data: data, Time: s.now().Unix()})
	if err != nil {
		s.logger.Error("Failed to marshal broadcast event:", err)
		return
	}

	type target struct {
		channel chan []byte
		done    chan struct{}
	}
	s.clientsMux.RLock()
	targets := make([]target, 0, len(s.clients))
	for channel, done := range s.clients {
		targets = append(targets, target{channel: channel, done: done})
	}
	s.clientsMux.RUnlock()

	for _, t := range targets {
		select {
		case t.channel <- jsonData:
		case <-t.done:
		case <-time.After(s.sendTimeout):
			s.logger.Warn("Timeout sending", eventType, "to SSE client")
		}
	}
}

// PublishChange forwards tracker changes; register it with TrackerService.OnChange.
func (s *SSEManager) PublishChange(change service.Change) {
	s.Broadcast(EventStateChanged, change)
}

// Close disconnects every listener; Done is closed afterwards.
func (s *SSEManager) Close() {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()

	for channel, done := range s.clients {
		close(done)
		delete(s.clients, channel)
	}
	s.closeOnce.Do(func() { close(s.closed) })
}

// Done is closed once the manager shuts down
func (s *SSEManager) Done() <-chan struct{} {
	return s.closed
}

// ConnectionCount returns the number of active listeners
func (s *SSEManager) ConnectionCount() int {
	s.clientsMux.RLock()
	defer s.clientsMux.RUnlock()

	return len(s.clients)
}

// HasConnections reports whether anyone is listening
func (s *SSEManager) HasConnections() bool {
	return s.ConnectionCount() > 0
}
