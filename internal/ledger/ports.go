// Package ledger declares the outbound ports of the scheduler: the posting
// ledger and the durable obligation persistence.
package ledger

import (
	"context"

	"scadenze/internal/core"
)

// Posting is a concrete ledger transaction created when an obligation is
// paid. The ledger collaborator owns it; the scheduler only constructs the
// request and remembers the returned id.
type Posting struct {
	ID       string
	Kind     core.Kind
	Category string
	Amount   core.Money
	Note     string
	Date     core.Date
}

type (
	// Store is the external transaction ledger.
	Store interface {
		CreatePosting(ctx context.Context, p Posting) (postingID string, err error)
		DeletePosting(ctx context.Context, postingID string) error
		ListPostings(ctx context.Context) ([]Posting, error)
	}

	// Mirror copies postings to an external reporting sheet. Mirroring is
	// asynchronous and best effort; the returned ref identifies the written
	// row for log correlation only.
	Mirror interface {
		AppendPosting(ctx context.Context, p Posting) (ref string, err error)
	}

	// ObligationPersistence is the durable home of obligation records. The
	// in-memory store is the working copy; every mutation is mirrored here.
	ObligationPersistence interface {
		CreateObligation(ctx context.Context, o core.Obligation) error
		UpdateObligation(ctx context.Context, o core.Obligation) error
		DeleteObligation(ctx context.Context, id int64) error
		ToggleObligation(ctx context.Context, id int64, active bool) error
		ListObligations(ctx context.Context) ([]core.Obligation, error)
	}
)
