// Package resolver finds native host types by logical namespace and name and
// caches the result for the life of the resolver.
package resolver

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/HsiangNianian/AMonItor/bridge/internal/host"
)

var (
	ErrUnknownNamespace = errors.New("unknown namespace")
	ErrTypeNotFound     = errors.New("type not found")
)

// TypeResolutionError reports a type that does not exist on the running host.
// It is cached: the same lookup fails the same way until restart.
type TypeResolutionError struct {
	Namespace string
	Name      string
	Err       error
}

func (e *TypeResolutionError) Error() string {
	return fmt.Sprintf("resolve %s.%s: %v", e.Namespace, e.Name, e.Err)
}

func (e *TypeResolutionError) Unwrap() error { return e.Err }

// Lookup is the host type namespace the resolver reads from.
type Lookup interface {
	Lookup(namespace, name string) (*host.TypeDescriptor, bool)
}

type key struct {
	namespace string
	name      string
}

type entry struct {
	handle *TypeHandle
	err    error
}

type Resolver struct {
	lookup     Lookup
	namespaces map[string]string
	log        *slog.Logger

	mu    sync.RWMutex
	cache map[key]entry
	group singleflight.Group
}

// New returns a resolver reading from lookup. namespaces maps logical
// namespaces to the qualified ones lookup is keyed by.
func New(lookup Lookup, namespaces map[string]string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	ns := make(map[string]string, len(namespaces))
	for k, v := range namespaces {
		ns[k] = v
	}
	return &Resolver{
		lookup:     lookup,
		namespaces: ns,
		log:        logger,
		cache:      make(map[key]entry),
	}
}

// Resolve returns the handle for namespace.name. Concurrent first calls for
// the same key share a single lookup.
func (r *Resolver) Resolve(namespace, name string) (*TypeHandle, error) {
	k := key{namespace: namespace, name: name}
	if e, ok := r.cached(k); ok {
		return e.handle, e.err
	}

	v, _, _ := r.group.Do(namespace+"\x00"+name, func() (any, error) {
		if e, ok := r.cached(k); ok {
			return e, nil
		}
		e := r.load(k)
		r.mu.Lock()
		r.cache[k] = e
		r.mu.Unlock()
		return e, nil
	})
	e := v.(entry)
	return e.handle, e.err
}

func (r *Resolver) cached(k key) (entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.cache[k]
	return e, ok
}

func (r *Resolver) load(k key) entry {
	qualified, ok := r.namespaces[k.namespace]
	if !ok {
		r.log.Warn("resolve type failed", "namespace", k.namespace, "name", k.name, "err", ErrUnknownNamespace)
		return entry{err: &TypeResolutionError{Namespace: k.namespace, Name: k.name, Err: ErrUnknownNamespace}}
	}
	desc, ok := r.lookup.Lookup(qualified, k.name)
	if !ok {
		r.log.Warn("resolve type failed", "namespace", qualified, "name", k.name, "err", ErrTypeNotFound)
		return entry{err: &TypeResolutionError{Namespace: k.namespace, Name: k.name, Err: ErrTypeNotFound}}
	}
	r.log.Debug("resolved type", "namespace", qualified, "name", k.name, "constructors", len(desc.Constructors))
	return entry{handle: newTypeHandle(k.namespace, desc)}
}
