package store

import (
	"context"
	"sync"
	"time"
)

// Store keeps session presence, the ids of panel actions already handled,
// and the ack status of packets delivered to sessions.
type Store interface {
	SetSession(ctx context.Context, endpointID, addr string) error
	GetSession(ctx context.Context, endpointID string) (string, error)
	DeleteSession(ctx context.Context, endpointID string) error
	IsProcessed(ctx context.Context, msgID string) (bool, error)
	MarkProcessed(ctx context.Context, msgID string, ttl time.Duration) error
	SetAckStatus(ctx context.Context, msgID, status string, ttl time.Duration) error
	AckStatus(ctx context.Context, msgID string) (string, error)
}

type ackEntry struct {
	status   string
	expireAt time.Time
}

type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]string
	processed map[string]time.Time
	acks      map[string]ackEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]string),
		processed: make(map[string]time.Time),
		acks:      make(map[string]ackEntry),
	}
}

func (m *MemoryStore) SetSession(_ context.Context, endpointID, addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[endpointID] = addr
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, endpointID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[endpointID], nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, endpointID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, endpointID)
	return nil
}

func (m *MemoryStore) IsProcessed(_ context.Context, msgID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	expireAt, ok := m.processed[msgID]
	if !ok {
		return false, nil
	}
	return time.Now().Before(expireAt), nil
}

func (m *MemoryStore) MarkProcessed(_ context.Context, msgID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[msgID] = time.Now().Add(ttl)
	return nil
}

func (m *MemoryStore) SetAckStatus(_ context.Context, msgID, status string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acks[msgID] = ackEntry{status: status, expireAt: time.Now().Add(ttl)}
	return nil
}

func (m *MemoryStore) AckStatus(_ context.Context, msgID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.acks[msgID]
	if !ok || !time.Now().Before(e.expireAt) {
		return "", nil
	}
	return e.status, nil
}
