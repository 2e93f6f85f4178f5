// Package registry is the directory of resource handlers, keyed by the
// case-insensitive "domain:name" composite. It is an explicit value
// owned by application startup, not a process-wide singleton.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/artpar/datagate/app"
)

// Registry maps resource ids to their handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]*app.Handler
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		handlers: make(map[string]*app.Handler),
	}
}

// Key normalizes a domain and name into a registry key.
func Key(domain, name string) string {
	return strings.ToLower(domain + ":" + name)
}

// Register adds a handler under its id. Re-registering the identical
// instance is a no-op; a different instance replaces the old one.
func (r *Registry) Register(h *app.Handler) error {
	if h == nil {
		return fmt.Errorf("register: nil handler")
	}
	if h.Domain() == "" || h.Name() == "" {
		return fmt.Errorf("register: handler needs domain and name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.handlers[h.ID()]; ok && existing == h {
		return nil
	}
	r.handlers[h.ID()] = h
	return nil
}

// Unregister removes the handler with the given id.
func (r *Registry) Unregister(domain, name string) error {
	key := Key(domain, name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[key]; !ok {
		return fmt.Errorf("resource %q not registered", key)
	}
	delete(r.handlers, key)
	return nil
}

// ByName returns the handler for domain:name.
func (r *Registry) ByName(domain, name string) (*app.Handler, bool) {
	return r.ByID(Key(domain, name))
}

// ByID returns the handler for a "domain:name" id.
func (r *Registry) ByID(id string) (*app.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[strings.ToLower(id)]
	return h, ok
}

// List returns all handlers sorted by id.
func (r *Registry) List() []*app.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handlers := make([]*app.Handler, 0, len(r.handlers))
	for _, h := range r.handlers {
		handlers = append(handlers, h)
	}
	sort.Slice(handlers, func(i, j int) bool {
		return handlers[i].ID() < handlers[j].ID()
	})
	return handlers
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Replace swaps the whole handler set atomically. Used by hot reload
// to install a freshly built set without readers observing a half
// empty directory.
func (r *Registry) Replace(handlers []*app.Handler) {
	next := make(map[string]*app.Handler, len(handlers))
	for _, h := range handlers {
		if h != nil {
			next[h.ID()] = h
		}
	}

	r.mu.Lock()
	r.handlers = next
	r.mu.Unlock()
}
