package task

import "sync"

// Set is an ordered Registry of tasks, parents first.
type Set struct {
	mu     sync.RWMutex
	order  []*Task
	byName map[string]*Task
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{byName: make(map[string]*Task)}
}

// Add appends a task. A task with the same object name replaces the earlier one in lookups.
func (s *Set) Add(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append(s.order, t)
	s.byName[t.Name()] = t
}

// TaskByName implements Registry.
func (s *Set) TaskByName(name string) (*Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byName[name]
	return t, ok
}

// Tasks implements Registry. The returned slice is in insertion order.
func (s *Set) Tasks() []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Task(nil), s.order...)
}
