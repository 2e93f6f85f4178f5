package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/artpar/datagate/domain/calllog"
	"github.com/artpar/datagate/ports"
)

// CallStore is an in-memory implementation of ports.CallStore.
type CallStore struct {
	mu     sync.RWMutex
	events []calllog.Event
}

// NewCallStore creates a new in-memory call store.
func NewCallStore() *CallStore {
	return &CallStore{
		events: make([]calllog.Event, 0),
	}
}

// RecordBatch stores multiple call events.
func (s *CallStore) RecordBatch(ctx context.Context, events []calllog.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, events...)
	return nil
}

// GetSummary returns aggregated call activity for a period.
func (s *CallStore) GetSummary(ctx context.Context, resource string, start, end time.Time) (calllog.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matching []calllog.Event
	for _, e := range s.events {
		if matchResource(e.Resource, resource) && !e.Timestamp.Before(start) && !e.Timestamp.After(end) {
			matching = append(matching, e)
		}
	}

	summary := calllog.Aggregate(matching, start, end)
	summary.Resource = resource
	return summary, nil
}

// GetRecent returns the latest call events for a resource, newest
// first. An empty resource matches all resources.
func (s *CallStore) GetRecent(ctx context.Context, resource string, limit int) ([]calllog.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matching []calllog.Event
	for i := len(s.events) - 1; i >= 0 && len(matching) < limit; i-- {
		if matchResource(s.events[i].Resource, resource) {
			matching = append(matching, s.events[i])
		}
	}

	return matching, nil
}

// GetAll returns all events (for testing).
func (s *CallStore) GetAll() []calllog.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]calllog.Event{}, s.events...)
}

// Clear removes all events (for testing).
func (s *CallStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make([]calllog.Event, 0)
}

func matchResource(have, want string) bool {
	return want == "" || strings.EqualFold(have, want)
}

// Ensure interface compliance.
var _ ports.CallStore = (*CallStore)(nil)
