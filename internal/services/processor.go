// Package services provides the batch orchestration on top of the mutation
// engine.
package services

import (
	"context"
	"errors"
	"log/slog"

	"scadenze/internal/core"
	"scadenze/internal/engine"
	"scadenze/internal/store"
)

// ItemFailure records one obligation the batch could not process.
type ItemFailure struct {
	ObligationID int64  `json:"obligation_id"`
	Name         string `json:"name"`
	Error        string `json:"error"`
}

// Result aggregates one batch run.
type Result struct {
	Executed int           `json:"executed"`
	Skipped  int           `json:"skipped"`
	Failures []ItemFailure `json:"failures,omitempty"`
}

// Processor scans for due obligations and pays each of them once. It is the
// single component allowed to pay on behalf of many obligations at once; the
// HTTP execute-due endpoint and the due-worker daemon are both thin proxies
// over it.
type Processor struct {
	store  *store.Store
	engine *engine.Engine
}

func NewProcessor(s *store.Store, e *engine.Engine) *Processor {
	return &Processor{store: s, engine: e}
}

// ProcessDue pays every active obligation whose next occurrence is on or
// before today. The due set is computed once up front and each obligation is
// advanced a single occurrence per invocation, so one run is bounded even for
// an obligation far in the past: it catches up one occurrence per trigger.
// Obligations with an in-flight mutation are skipped, not failed.
func (p *Processor) ProcessDue(ctx context.Context, today core.Date) (Result, error) {
	due := p.store.DueOnOrBefore(today)

	slog.InfoContext(ctx, "Processing due obligations",
		"total_due", len(due),
		"processing_date", today.String())

	var result Result
	for _, o := range due {
		_, err := p.engine.MarkPaid(ctx, o.ID, today)
		if err != nil {
			if errors.Is(err, engine.ErrMutationInFlight) {
				result.Skipped++
				slog.WarnContext(ctx, "Skipping obligation with in-flight mutation",
					"id", o.ID,
					"name", o.Name)
				continue
			}
			result.Failures = append(result.Failures, ItemFailure{
				ObligationID: o.ID,
				Name:         o.Name,
				Error:        err.Error(),
			})
			slog.ErrorContext(ctx, "Failed to process due obligation",
				"id", o.ID,
				"name", o.Name,
				"error", err)
			continue
		}
		result.Executed++
	}

	slog.InfoContext(ctx, "Due processing complete",
		"executed", result.Executed,
		"skipped", result.Skipped,
		"failed", len(result.Failures),
		"total_checked", len(due))

	return result, nil
}
