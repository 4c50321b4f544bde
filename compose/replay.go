package compose

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/augmentkit/errors"
	"github.com/kbukum/augmentkit/target"
)

// Ledger is a thread-safe store of recorded traces keyed by generated id,
// for replaying an augmentation on other inputs later in a job.
type Ledger struct {
	mu     sync.RWMutex
	traces map[string]*Trace
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{traces: make(map[string]*Trace)}
}

// Record stores a copy of the trace and returns its id.
func (l *Ledger) Record(tr *Trace) string {
	id := uuid.NewString()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.traces[id] = tr.Clone()
	return id
}

// Get returns a copy of the trace stored under id.
func (l *Ledger) Get(id string) (*Trace, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	tr, ok := l.traces[id]
	if !ok {
		return nil, false
	}
	return tr.Clone(), true
}

// List returns all stored ids in sorted order.
func (l *Ledger) List() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.traces))
	for id := range l.traces {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Remove deletes the trace stored under id.
func (l *Ledger) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.traces[id]
	delete(l.traces, id)
	return ok
}

// Len returns the number of stored traces.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.traces)
}

// Replay runs the trace stored under id through p against the bundle.
func (l *Ledger) Replay(ctx context.Context, p *Pipeline, id string, b *target.Bundle) (*target.Bundle, error) {
	tr, ok := l.Get(id)
	if !ok {
		return nil, errors.TraceMismatch("", "no trace recorded under id "+id)
	}
	return p.Replay(ctx, tr, b)
}
