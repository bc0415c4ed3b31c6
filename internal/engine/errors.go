package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means a mutation targeted an id absent from the store.
	// Surfaced to the caller, never fatal.
	ErrNotFound = errors.New("obligation not found")

	// ErrMutationInFlight means another mutation for the same obligation has
	// not finished yet. The caller should retry after it settles.
	ErrMutationInFlight = errors.New("mutation already in flight for obligation")

	// ErrUndoExpired means the undo window for a delete has elapsed.
	ErrUndoExpired = errors.New("undo window elapsed")
)

// PersistenceError wraps a failed durable call. The optimistic local change
// has already been rolled back when the caller sees it; retrying is safe.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PayStage names the half of a mark-paid operation that failed.
type PayStage string

const (
	StagePosting PayStage = "ledger-posting"
	StageAdvance PayStage = "schedule-advance"
)

// PayError reports a failed mark-paid. When Stage is StagePosting nothing was
// changed. When Stage is StageAdvance the local change was rolled back and
// the posting was deleted again, unless Orphaned is set, in which case the
// posting identified by PostingID exists in the ledger without a matching
// schedule advance and needs manual reconciliation.
type PayError struct {
	Stage     PayStage
	PostingID string
	Orphaned  bool
	Err       error
}

func (e *PayError) Error() string {
	if e.Orphaned {
		return fmt.Sprintf("mark-paid failed at %s, posting %s left in ledger: %v", e.Stage, e.PostingID, e.Err)
	}
	return fmt.Sprintf("mark-paid failed at %s: %v", e.Stage, e.Err)
}

func (e *PayError) Unwrap() error { return e.Err }
