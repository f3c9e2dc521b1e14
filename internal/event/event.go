// Package event lets collaborators observe or cancel packet sends before any
// native instance is built.
package event

import (
	"log/slog"
	"sync"

	"github.com/HsiangNianian/AMonItor/bridge/internal/host"
)

// Packet is the view of a packet wrapper observers get.
type Packet interface {
	Kind() string
}

// Observer returns true to cancel the send.
type Observer interface {
	BeforeSend(p Packet, endpoints []host.Endpoint) (cancel bool)
}

type ObserverFunc func(p Packet, endpoints []host.Endpoint) bool

func (f ObserverFunc) BeforeSend(p Packet, endpoints []host.Endpoint) bool {
	return f(p, endpoints)
}

type registration struct {
	id  uint64
	obs Observer
}

// Bus runs observers in registration order. The first one to cancel stops the
// rest.
type Bus struct {
	log *slog.Logger

	mu        sync.RWMutex
	nextID    uint64
	observers []registration
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{log: logger}
}

// Register adds obs and returns a func that removes it.
func (b *Bus) Register(obs Observer) (unregister func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.observers = append(b.observers, registration{id: id, obs: obs})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, r := range b.observers {
				if r.id == id {
					b.observers = append(b.observers[:i:i], b.observers[i+1:]...)
					return
				}
			}
		})
	}
}

func (b *Bus) BeforeSend(p Packet, endpoints []host.Endpoint) bool {
	b.mu.RLock()
	observers := make([]registration, len(b.observers))
	copy(observers, b.observers)
	b.mu.RUnlock()

	for _, r := range observers {
		if r.obs.BeforeSend(p, endpoints) {
			b.log.Debug("packet send cancelled", "kind", p.Kind(), "endpoints", len(endpoints), "observer", r.id)
			return true
		}
	}
	return false
}

func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

// BlockKinds cancels every send of the listed kinds.
func BlockKinds(kinds ...string) Observer {
	blocked := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		blocked[k] = struct{}{}
	}
	return ObserverFunc(func(p Packet, _ []host.Endpoint) bool {
		_, ok := blocked[p.Kind()]
		return ok
	})
}
