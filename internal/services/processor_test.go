package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"scadenze/internal/core"
	"scadenze/internal/engine"
	"scadenze/internal/ledger"
	"scadenze/internal/ledger/memory"
	"scadenze/internal/store"
)

func newTestProcessor(t *testing.T) (*Processor, *engine.Engine, *store.Store, *memory.Ledger) {
	t.Helper()
	st := store.New()
	lg := memory.NewLedger()
	eng := engine.New(st, memory.NewPersistence(), lg, nil, time.Second)
	return NewProcessor(st, eng), eng, st, lg
}

func seed(t *testing.T, eng *engine.Engine, name string, next core.Date) core.Obligation {
	t.Helper()
	created, err := eng.Create(context.Background(), core.Obligation{
		Name:           name,
		Kind:           core.Expense,
		Category:       "Utilities",
		Amount:         core.Money{Cents: 4200},
		Frequency:      core.Monthly,
		StartDate:      core.NewDate(2026, 1, 1),
		NextOccurrence: next,
		IsActive:       true,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
	return created
}

func TestProcessDueExecutesDueOnly(t *testing.T) {
	proc, eng, st, lg := newTestProcessor(t)
	today := core.NewDate(2026, 9, 1)

	due := seed(t, eng, "electricity", core.NewDate(2026, 8, 29)) // 3 days overdue
	seed(t, eng, "netflix", core.NewDate(2026, 9, 15))

	result, err := proc.ProcessDue(context.Background(), today)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Executed != 1 || result.Skipped != 0 || len(result.Failures) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	got, _ := st.ByID(due.ID)
	if got.NextOccurrence.String() != "2026-09-29" {
		t.Fatalf("cursor expected 2026-09-29, got %s", got.NextOccurrence)
	}
	if got.ExecutionCount != 1 {
		t.Fatalf("execution count expected 1, got %d", got.ExecutionCount)
	}

	postings, _ := lg.ListPostings(context.Background())
	if len(postings) != 1 {
		t.Fatalf("expected exactly one posting, got %d", len(postings))
	}
}

func TestProcessDueSingleCatchUpPerRun(t *testing.T) {
	proc, eng, st, _ := newTestProcessor(t)
	today := core.NewDate(2026, 9, 1)

	// Four months behind: a run advances one occurrence, not all of them.
	behind := seed(t, eng, "rent", core.NewDate(2026, 5, 1))

	result, err := proc.ProcessDue(context.Background(), today)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Executed != 1 {
		t.Fatalf("expected one execution, got %d", result.Executed)
	}
	got, _ := st.ByID(behind.ID)
	if got.NextOccurrence.String() != "2026-06-01" {
		t.Fatalf("expected single-step advance to 2026-06-01, got %s", got.NextOccurrence)
	}
	if got.ExecutionCount != 1 {
		t.Fatalf("expected one execution recorded, got %d", got.ExecutionCount)
	}
}

func TestProcessDueIdempotentSecondRun(t *testing.T) {
	proc, eng, _, lg := newTestProcessor(t)
	today := core.NewDate(2026, 9, 1)

	seed(t, eng, "gym", today)

	first, err := proc.ProcessDue(context.Background(), today)
	if err != nil || first.Executed != 1 {
		t.Fatalf("first run: executed=%d err=%v", first.Executed, err)
	}

	second, err := proc.ProcessDue(context.Background(), today)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Executed != 0 {
		t.Fatalf("second run on the same day must execute nothing, got %d", second.Executed)
	}

	postings, _ := lg.ListPostings(context.Background())
	if len(postings) != 1 {
		t.Fatalf("expected one posting after both runs, got %d", len(postings))
	}
}

func TestProcessDueSkipsInFlight(t *testing.T) {
	proc, eng, _, _ := newTestProcessor(t)
	today := core.NewDate(2026, 9, 1)

	held := seed(t, eng, "rent", today)
	seed(t, eng, "water", today)

	// A pending delete holds the first obligation in flight.
	if err := eng.Delete(context.Background(), held.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	result, err := proc.ProcessDue(context.Background(), today)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	// The deleted record is out of the store entirely, so only the second
	// obligation is in the due set and it executes.
	if result.Executed != 1 || result.Skipped != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	if err := eng.Undo(context.Background(), held.ID); err != nil {
		t.Fatalf("undo: %v", err)
	}
}

func TestProcessDueCountsInFlightAsSkipped(t *testing.T) {
	st := store.New()
	gate := &gatedPersistence{
		ObligationPersistence: memory.NewPersistence(),
		entered:               make(chan struct{}),
		release:               make(chan struct{}),
	}
	eng := engine.New(st, gate, memory.NewLedger(), nil, time.Second)
	proc := NewProcessor(st, eng)
	today := core.NewDate(2026, 9, 1)

	held := seed(t, eng, "rent", today)
	seed(t, eng, "water", today)

	// An update stalled in its durable call keeps the first obligation in
	// flight while it is still due in the store.
	updated := held
	updated.Amount = core.Money{Cents: 4300}
	done := make(chan error, 1)
	go func() { done <- eng.Update(context.Background(), updated) }()
	<-gate.entered

	result, err := proc.ProcessDue(context.Background(), today)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Executed != 1 || result.Skipped != 1 || len(result.Failures) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	close(gate.release)
	if err := <-done; err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestProcessDueReportsFailures(t *testing.T) {
	st := store.New()
	lg := &failingLedger{}
	eng := engine.New(st, memory.NewPersistence(), lg, nil, time.Second)
	proc := NewProcessor(st, eng)

	seed(t, eng, "rent", core.NewDate(2026, 9, 1))

	result, err := proc.ProcessDue(context.Background(), core.NewDate(2026, 9, 1))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Executed != 0 || len(result.Failures) != 1 {
		t.Fatalf("expected one failure, got %+v", result)
	}
	if result.Failures[0].Name != "rent" {
		t.Fatalf("failure should name the obligation, got %+v", result.Failures[0])
	}
}

// gatedPersistence delays the first durable update until released; later
// updates (e.g. pay commits for other obligations) pass through.
type gatedPersistence struct {
	ledger.ObligationPersistence
	entered chan struct{}
	release chan struct{}
	gated   atomic.Bool
}

func (g *gatedPersistence) UpdateObligation(ctx context.Context, o core.Obligation) error {
	if g.gated.CompareAndSwap(false, true) {
		close(g.entered)
		<-g.release
	}
	return g.ObligationPersistence.UpdateObligation(ctx, o)
}

// failingLedger refuses every posting.
type failingLedger struct{}

var errLedgerDown = errors.New("ledger down")

func (f *failingLedger) CreatePosting(context.Context, ledger.Posting) (string, error) {
	return "", errLedgerDown
}

func (f *failingLedger) DeletePosting(context.Context, string) error { return nil }

func (f *failingLedger) ListPostings(context.Context) ([]ledger.Posting, error) { return nil, nil }
