package test

import (
	"sync"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/event"
)

// CapturingSink records every emitted event.
type CapturingSink struct {
	mu     sync.Mutex
	events []event.Event
}

// Emit implements event.Sink.
func (s *CapturingSink) Emit(e event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

// Events returns a copy of the recorded events.
func (s *CapturingSink) Events() []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.Event(nil), s.events...)
}

// Statuses returns the status of every recorded event, in order.
func (s *CapturingSink) Statuses() []model.APIStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.APIStatus, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Status)
	}
	return out
}
