// Package engine applies obligation mutations optimistically: every state
// change hits the in-memory store first, then the durable persistence, and is
// rolled back to its snapshot when the durable call fails. Destructive
// deletes stay reversible for a bounded undo window.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"scadenze/internal/core"
	"scadenze/internal/ledger"
	"scadenze/internal/schedule"
	"scadenze/internal/store"
)

// DefaultUndoWindow is how long a delete stays reversible.
const DefaultUndoWindow = 5 * time.Second

const finalizeTimeout = 10 * time.Second

// EventPublisher receives non-fatal notifications after successful commits.
// A nil publisher disables eventing.
type EventPublisher interface {
	PublishPostingSync(ctx context.Context, postingID string, obligationID int64) error
	PublishObligationDelete(ctx context.Context, obligationID int64) error
}

// Receipt summarizes a completed mark-paid or skip.
type Receipt struct {
	ObligationID       int64
	PostingID          string
	PreviousOccurrence core.Date
	NextOccurrence     core.Date
	Deactivated        bool
}

type Engine struct {
	store   *store.Store
	persist ledger.ObligationPersistence
	ledger  ledger.Store
	events  EventPublisher

	undo       *undoRegistry
	undoWindow time.Duration

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

func New(s *store.Store, persist ledger.ObligationPersistence, ledgerStore ledger.Store, events EventPublisher, undoWindow time.Duration) *Engine {
	if undoWindow <= 0 {
		undoWindow = DefaultUndoWindow
	}
	return &Engine{
		store:      s,
		persist:    persist,
		ledger:     ledgerStore,
		events:     events,
		undo:       newUndoRegistry(),
		undoWindow: undoWindow,
		inFlight:   make(map[int64]struct{}),
	}
}

// begin marks an obligation as having an outstanding mutation. A second
// mutation against the same id is refused until the first settles; this is
// what prevents a stale optimistic state overwriting a just-applied one.
func (e *Engine) begin(id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inFlight[id]; busy {
		return ErrMutationInFlight
	}
	e.inFlight[id] = struct{}{}
	return nil
}

// beginCreate assigns a fresh id and claims its in-flight slot in one step,
// so two concurrent creates can never race to the same id. Ids claimed by a
// create whose optimistic insert has not landed yet are skipped over.
func (e *Engine) beginCreate() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.store.NextID()
	for {
		if _, busy := e.inFlight[id]; !busy {
			break
		}
		id++
	}
	e.inFlight[id] = struct{}{}
	return id
}

func (e *Engine) end(id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, id)
}

// InFlight reports whether a mutation for the obligation is outstanding,
// which callers use to disable per-item controls.
func (e *Engine) InFlight(id int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, busy := e.inFlight[id]
	return busy
}

// exec sequences one mutation: optimistic apply, durable commit, rollback on
// commit failure.
func (e *Engine) exec(ctx context.Context, op string, m Mutation) error {
	if err := m.Apply(); err != nil {
		return err
	}
	if err := m.Commit(ctx); err != nil {
		m.Rollback()
		return &PersistenceError{Op: op, Err: err}
	}
	return nil
}

// Create validates and inserts a new obligation, assigning the next local id.
// The scheduling cursor starts at the start date unless set explicitly. On
// durable failure the optimistic insert is removed again.
func (e *Engine) Create(ctx context.Context, o core.Obligation) (core.Obligation, error) {
	if o.NextOccurrence.IsZero() {
		o.NextOccurrence = o.StartDate
	}
	o.Category = core.NormalizeCategory(o.Kind, o.Category)
	if err := o.Validate(); err != nil {
		return core.Obligation{}, err
	}

	o.ID = e.beginCreate()
	defer e.end(o.ID)

	m := &createMutation{store: e.store, persist: e.persist, record: o}
	if err := e.exec(ctx, "create", m); err != nil {
		return core.Obligation{}, err
	}

	slog.InfoContext(ctx, "Obligation created",
		"id", o.ID,
		"name", o.Name,
		"frequency", o.Frequency,
		"next_occurrence", o.NextOccurrence.String())
	return o, nil
}

// Update replaces every field of an existing obligation except the id. The
// in-flight slot is claimed before the snapshot is read, so the snapshot can
// never go stale under a concurrent mutation.
func (e *Engine) Update(ctx context.Context, o core.Obligation) error {
	o.Category = core.NormalizeCategory(o.Kind, o.Category)
	if err := o.Validate(); err != nil {
		return err
	}

	if err := e.begin(o.ID); err != nil {
		return err
	}
	defer e.end(o.ID)

	prev, ok := e.store.ByID(o.ID)
	if !ok {
		return ErrNotFound
	}

	m := &updateMutation{store: e.store, persist: e.persist, prev: prev, next: o}
	return e.exec(ctx, "update", m)
}

// Toggle flips the active flag and returns the new state.
func (e *Engine) Toggle(ctx context.Context, id int64) (bool, error) {
	if err := e.begin(id); err != nil {
		return false, err
	}
	defer e.end(id)

	prev, ok := e.store.ByID(id)
	if !ok {
		return false, ErrNotFound
	}

	next := !prev.IsActive
	m := &toggleMutation{store: e.store, persist: e.persist, id: id, prev: prev.IsActive, next: next}
	if err := e.exec(ctx, "toggle", m); err != nil {
		return prev.IsActive, err
	}
	return next, nil
}

// Delete removes the obligation and its tracked contributions from the store
// immediately and schedules the durable delete to fire when the undo window
// elapses. Until then Undo restores the exact snapshot without any durable
// write. The id stays in-flight for the whole window so no other mutation can
// race the pending delete.
func (e *Engine) Delete(ctx context.Context, id int64) error {
	if err := e.begin(id); err != nil {
		return err
	}

	prev, ok := e.store.ByID(id)
	if !ok {
		e.end(id)
		return ErrNotFound
	}

	contributions := e.store.RemoveContributions(id)
	e.store.Remove(id)
	e.undo.schedule(id, prev, contributions, e.undoWindow, func() { e.finalizeDelete(id) })

	slog.InfoContext(ctx, "Obligation delete pending",
		"id", id,
		"name", prev.Name,
		"undo_window", e.undoWindow.String())
	return nil
}

// finalizeDelete runs when the undo window elapses without an undo. A failed
// durable delete is unwound exactly like an explicit undo.
func (e *Engine) finalizeDelete(id int64) {
	entry := e.undo.take(id)
	if entry == nil {
		return // undone in time
	}
	defer e.end(id)

	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	if err := e.persist.DeleteObligation(ctx, id); err != nil {
		e.restore(entry)
		slog.ErrorContext(ctx, "Durable delete failed, obligation restored",
			"id", id,
			"error", err)
		return
	}

	e.publishDelete(ctx, id)
	slog.InfoContext(ctx, "Obligation delete finalized", "id", id)
}

// Undo reverses a delete still inside its window. After the window it is a
// no-op returning ErrUndoExpired.
func (e *Engine) Undo(ctx context.Context, id int64) error {
	entry := e.undo.take(id)
	if entry == nil {
		return ErrUndoExpired
	}
	defer e.end(id)

	e.restore(entry)
	slog.InfoContext(ctx, "Obligation delete undone", "id", id)
	return nil
}

func (e *Engine) restore(entry *pendingDelete) {
	e.store.Insert(entry.record)
	e.store.RestoreContributions(entry.record.ID, entry.contributions)
}

// MarkPaid records a payment against the obligation: it creates a ledger
// posting, then advances the scheduling cursor and bumps the execution
// bookkeeping, mirroring the advance durably. When the durable advance fails
// the local change is rolled back and the posting deleted again as a
// compensating action; only when that compensation also fails is the caller
// told about the orphaned posting.
func (e *Engine) MarkPaid(ctx context.Context, id int64, today core.Date) (Receipt, error) {
	if err := e.begin(id); err != nil {
		return Receipt{}, err
	}
	defer e.end(id)

	prev, ok := e.store.ByID(id)
	if !ok {
		return Receipt{}, ErrNotFound
	}

	target := schedule.Advance(prev.NextOccurrence, prev.Frequency)

	// Category is normalized again here so records hydrated from older
	// durable rows cannot leak an unrecognized category into the ledger.
	postingID, err := e.ledger.CreatePosting(ctx, ledger.Posting{
		Kind:     prev.Kind,
		Category: core.NormalizeCategory(prev.Kind, prev.Category),
		Amount:   prev.Amount,
		Note:     fmt.Sprintf("Recurring %s: %s", prev.Kind, prev.Name),
		Date:     today,
	})
	if err != nil {
		return Receipt{}, &PayError{Stage: StagePosting, Err: err}
	}

	next := prev
	next.NextOccurrence = target
	next.ExecutionCount++
	next.LastExecuted = today
	if schedule.Expired(prev, target) {
		// The cursor moved past the end date; stop scheduling.
		next.IsActive = false
	}

	m := &advanceMutation{
		store:   e.store,
		persist: e.persist,
		prev:    prev,
		next:    next,
		contribution: &core.Contribution{
			PostingID:    postingID,
			ObligationID: id,
			Date:         today,
			Amount:       prev.Amount,
		},
	}
	if err := e.exec(ctx, "mark-paid", m); err != nil {
		if delErr := e.ledger.DeletePosting(ctx, postingID); delErr != nil {
			slog.ErrorContext(ctx, "Posting compensation failed",
				"id", id,
				"posting_id", postingID,
				"error", delErr)
			return Receipt{}, &PayError{Stage: StageAdvance, PostingID: postingID, Orphaned: true, Err: err}
		}
		return Receipt{}, &PayError{Stage: StageAdvance, Err: err}
	}

	e.publishPosting(ctx, postingID, id)

	slog.InfoContext(ctx, "Obligation paid",
		"id", id,
		"name", prev.Name,
		"posting_id", postingID,
		"amount_cents", prev.Amount.Cents,
		"next_occurrence", target.String(),
		"deactivated", !next.IsActive)

	return Receipt{
		ObligationID:       id,
		PostingID:          postingID,
		PreviousOccurrence: prev.NextOccurrence,
		NextOccurrence:     target,
		Deactivated:        !next.IsActive,
	}, nil
}

// Skip advances the scheduling cursor without creating a posting. Callers
// are expected to have confirmed the skip with the user.
func (e *Engine) Skip(ctx context.Context, id int64) (Receipt, error) {
	if err := e.begin(id); err != nil {
		return Receipt{}, err
	}
	defer e.end(id)

	prev, ok := e.store.ByID(id)
	if !ok {
		return Receipt{}, ErrNotFound
	}

	target := schedule.Advance(prev.NextOccurrence, prev.Frequency)

	next := prev
	next.NextOccurrence = target
	if schedule.Expired(prev, target) {
		next.IsActive = false
	}

	m := &advanceMutation{store: e.store, persist: e.persist, prev: prev, next: next}
	if err := e.exec(ctx, "skip", m); err != nil {
		return Receipt{}, err
	}

	slog.InfoContext(ctx, "Occurrence skipped",
		"id", id,
		"name", prev.Name,
		"next_occurrence", target.String())

	return Receipt{
		ObligationID:       id,
		PreviousOccurrence: prev.NextOccurrence,
		NextOccurrence:     target,
		Deactivated:        !next.IsActive,
	}, nil
}

func (e *Engine) publishPosting(ctx context.Context, postingID string, obligationID int64) {
	if e.events == nil {
		return
	}
	if err := e.events.PublishPostingSync(ctx, postingID, obligationID); err != nil {
		// Non-fatal: the posting is durable locally, sync will catch up.
		slog.ErrorContext(ctx, "Failed to publish posting sync event",
			"posting_id", postingID,
			"obligation_id", obligationID,
			"error", err)
	}
}

func (e *Engine) publishDelete(ctx context.Context, obligationID int64) {
	if e.events == nil {
		return
	}
	if err := e.events.PublishObligationDelete(ctx, obligationID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish obligation delete event",
			"obligation_id", obligationID,
			"error", err)
	}
}
