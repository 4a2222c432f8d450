package challenge

import (
	"sync"

	"reviewshop/pkg/logger"
)

// Tracker is the in-process challenge tracker. It remembers which
// predicates have been observed true and logs each first observation.
// Notifications never feed back into request handling.
type Tracker struct {
	mu     sync.Mutex
	solved map[string]bool
}

func NewTracker() *Tracker {
	return &Tracker{
		solved: make(map[string]bool),
	}
}

func (t *Tracker) Notify(name string, observed bool) {
	if !observed {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.solved[name] {
		return
	}
	t.solved[name] = true
	logger.Warn("Challenge condition observed: %s", name)
}

// Solved reports whether the predicate has been observed true.
func (t *Tracker) Solved(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.solved[name]
}
