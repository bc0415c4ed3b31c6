package engine

import (
	"sync"
	"time"

	"scadenze/internal/core"
)

// pendingDelete is a delete whose durable finalization has not fired yet.
// The snapshot holds everything needed to restore the obligation exactly.
type pendingDelete struct {
	timer         *time.Timer
	record        core.Obligation
	contributions []core.Contribution
}

// undoRegistry tracks deletes inside their undo window. The finalization is a
// cancellable scheduled task: either the timer fires and the durable delete
// goes out, or an explicit undo takes the entry first. take is the single
// point of arbitration, so the two paths cannot both win.
type undoRegistry struct {
	mu      sync.Mutex
	pending map[int64]*pendingDelete
}

func newUndoRegistry() *undoRegistry {
	return &undoRegistry{pending: make(map[int64]*pendingDelete)}
}

func (r *undoRegistry) schedule(id int64, record core.Obligation, contributions []core.Contribution, window time.Duration, finalize func()) {
	entry := &pendingDelete{
		record:        record,
		contributions: contributions,
	}
	r.mu.Lock()
	r.pending[id] = entry
	r.mu.Unlock()
	entry.timer = time.AfterFunc(window, finalize)
}

// take removes and returns the pending entry, stopping its timer. Returns nil
// when the window already settled.
func (r *undoRegistry) take(id int64) *pendingDelete {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.pending[id]
	if !ok {
		return nil
	}
	delete(r.pending, id)
	if entry.timer != nil {
		entry.timer.Stop()
	}
	return entry
}
