// Package worker mirrors locally recorded postings to the external sheet
// ledger. It consumes queue messages published by the mutation engine and
// sweeps the pending-sync backlog as a backup.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"scadenze/internal/amqp"
	"scadenze/internal/ledger"
	applog "scadenze/internal/log"
	"scadenze/internal/storage"
)

// SyncWorker handles synchronization of postings from SQLite to the sheet
// mirror.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	mirror    ledger.Mirror
	batchSize int
	log       *slog.Logger
}

func NewSyncWorker(storage *storage.SQLiteRepository, mirror ledger.Mirror, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		mirror:    mirror,
		batchSize: batchSize,
		log:       applog.ForComponent(applog.ComponentWorker),
	}
}

// HandlePostingMessage processes a single posting sync message from AMQP.
func (w *SyncWorker) HandlePostingMessage(ctx context.Context, msg *amqp.PostingSyncMessage) error {
	w.log.InfoContext(ctx, "Processing posting sync message",
		applog.FieldPostingID, msg.PostingID,
		applog.FieldObligationID, msg.ObligationID)

	posting, err := w.storage.GetPosting(ctx, msg.PostingID)
	if err != nil {
		if errors.Is(err, storage.ErrNoRecord) {
			// The posting was rolled back after the message was published.
			// Nothing to mirror.
			w.log.WarnContext(ctx, "Posting no longer exists, skipping sync",
				applog.FieldPostingID, msg.PostingID)
			return nil
		}
		return fmt.Errorf("get posting from storage: %w", err)
	}

	if err := w.mirrorPosting(ctx, posting); err != nil {
		return fmt.Errorf("mirror posting: %w", err)
	}

	return nil
}

// HandleDeleteMessage processes an obligation delete message. The sheet keeps
// already-mirrored postings as history, so the message is only logged.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.ObligationDeleteMessage) error {
	w.log.InfoContext(ctx, "Obligation deleted, keeping mirrored postings as history",
		applog.FieldObligationID, msg.ObligationID)
	return nil
}

// ProcessPendingPostings processes any postings that haven't been mirrored
// yet. This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPendingPostings(ctx context.Context) error {
	pending, err := w.storage.PendingSyncPostings(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending postings: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	w.log.InfoContext(ctx, "Processing pending postings", "count", len(pending))

	for _, id := range pending {
		posting, err := w.storage.GetPosting(ctx, id)
		if err != nil {
			w.log.ErrorContext(ctx, "Failed to get posting", applog.FieldPostingID, id, applog.FieldError, err)
			if err := w.storage.MarkPostingSyncError(ctx, id); err != nil {
				w.log.ErrorContext(ctx, "Failed to mark sync error", applog.FieldPostingID, id, applog.FieldError, err)
			}
			continue
		}

		if err := w.mirrorPosting(ctx, posting); err != nil {
			w.log.ErrorContext(ctx, "Failed to mirror posting", applog.FieldPostingID, id, applog.FieldError, err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck mirrors any pending postings at worker startup. This
// recovers from missed AMQP messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.PendingSyncPostings(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending postings for startup check: %w", err)
	}

	if len(pending) == 0 {
		w.log.InfoContext(ctx, "No pending postings found on startup")
		return nil
	}

	w.log.InfoContext(ctx, "Found pending postings on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, id := range pending {
		posting, err := w.storage.GetPosting(ctx, id)
		if err != nil {
			w.log.ErrorContext(ctx, "Failed to get posting for startup sync",
				applog.FieldPostingID, id, applog.FieldError, err)
			if err := w.storage.MarkPostingSyncError(ctx, id); err != nil {
				w.log.ErrorContext(ctx, "Failed to mark sync error", applog.FieldPostingID, id, applog.FieldError, err)
			}
			errorCount++
			continue
		}

		if err := w.mirrorPosting(ctx, posting); err != nil {
			w.log.ErrorContext(ctx, "Failed to mirror posting during startup",
				applog.FieldPostingID, id, applog.FieldError, err)
			errorCount++
			continue
		}

		successCount++
	}

	w.log.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

func (w *SyncWorker) mirrorPosting(ctx context.Context, p ledger.Posting) error {
	// Tag the note with a timestamp so identical recurring postings stay
	// distinguishable on the sheet.
	tagged := p
	tagged.Note = fmt.Sprintf("%s [ts:%d]", p.Note, time.Now().UnixMilli())

	ref, err := w.mirror.AppendPosting(ctx, tagged)
	if err != nil {
		if markErr := w.storage.MarkPostingSyncError(ctx, p.ID); markErr != nil {
			w.log.ErrorContext(ctx, "Failed to mark sync error", applog.FieldPostingID, p.ID, applog.FieldError, markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.storage.MarkPostingSynced(ctx, p.ID); err != nil {
		// The mirror write succeeded; the pending sweep will retry the flag.
		w.log.ErrorContext(ctx, "Failed to mark as synced", applog.FieldPostingID, p.ID, applog.FieldError, err)
	}

	w.log.InfoContext(ctx, "Successfully mirrored posting",
		applog.FieldPostingID, p.ID,
		applog.FieldSheetRef, ref,
		"note", p.Note,
		applog.FieldAmountCents, p.Amount.Cents)

	return nil
}
