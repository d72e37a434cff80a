package signaling

import (
	"context"
	"fmt"
	"sync"

	"github.com/berrylive/live-service/internal/config"
	"github.com/berrylive/live-service/internal/domain"
)

// Manager tracks one broker per room. Starting a stream for a room that
// already has one is rejected; stopping is idempotent.
type Manager struct {
	cfg    config.SignalingConfig
	client *Client

	mu      sync.Mutex
	brokers map[string]*Broker
}

// NewManager creates a broker manager.
func NewManager(cfg config.SignalingConfig) *Manager {
	return &Manager{
		cfg:     cfg,
		client:  NewClient(cfg.BaseURL, cfg.Timeout),
		brokers: make(map[string]*Broker),
	}
}

// Start negotiates a media session for the room. The broker and its media
// source live until Stop.
func (m *Manager) Start(ctx context.Context, roomID, streamURL string, dir Direction) (*Broker, error) {
	m.mu.Lock()
	if _, running := m.brokers[roomID]; running {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: stream already running for room", domain.ErrValidation)
	}

	source, err := NewStaticSource(roomID)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	broker := NewBroker(m.cfg, m.client, source)
	m.brokers[roomID] = broker
	m.mu.Unlock()

	if err := broker.Connect(ctx, dir, streamURL); err != nil {
		m.mu.Lock()
		delete(m.brokers, roomID)
		m.mu.Unlock()
		return nil, err
	}
	return broker, nil
}

// Get returns the room's broker, if any.
func (m *Manager) Get(roomID string) (*Broker, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.brokers[roomID]
	return b, ok
}

// Stop tears the room's stream down. Stopping an absent room is a no-op.
func (m *Manager) Stop(ctx context.Context, roomID string) error {
	m.mu.Lock()
	broker, ok := m.brokers[roomID]
	if ok {
		delete(m.brokers, roomID)
	}
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return broker.Stop(ctx)
}

// StopAll stops every running stream. Called on shutdown.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	brokers := make([]*Broker, 0, len(m.brokers))
	for _, b := range m.brokers {
		brokers = append(brokers, b)
	}
	m.brokers = make(map[string]*Broker)
	m.mu.Unlock()

	for _, b := range brokers {
		b.Stop(ctx)
	}
}
