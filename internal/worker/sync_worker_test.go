package worker

import (
	"context"
	"testing"

	"scadenze/internal/amqp"
)

func TestNewSyncWorker(t *testing.T) {
	w := NewSyncWorker(nil, nil, 25)

	if w == nil {
		t.Fatal("NewSyncWorker should return non-nil worker")
	}
	if w.storage != nil {
		t.Error("storage should be nil when passed nil")
	}
	if w.mirror != nil {
		t.Error("mirror should be nil when passed nil")
	}
	if w.batchSize != 25 {
		t.Errorf("expected batchSize 25, got %d", w.batchSize)
	}
}

func TestHandleDeleteMessageKeepsHistory(t *testing.T) {
	// Mirrored postings stay on the sheet after the obligation is removed,
	// so the delete message never touches storage or the mirror.
	w := NewSyncWorker(nil, nil, 10)

	err := w.HandleDeleteMessage(context.Background(), &amqp.ObligationDeleteMessage{ObligationID: 42})
	if err != nil {
		t.Errorf("HandleDeleteMessage should not error: %v", err)
	}
}
