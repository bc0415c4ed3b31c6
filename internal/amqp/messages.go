package amqp

import (
	"encoding/json"
	"time"
)

const (
	kindPostingSync    = "posting_sync"
	kindObligationDrop = "obligation_delete"
)

// envelope wraps every queue message with a kind tag so one queue can carry
// both message types.
type envelope struct {
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// PostingSyncMessage asks the sync worker to mirror one posting to the
// external sheet. Only ids travel; the worker fetches the full posting from
// storage.
type PostingSyncMessage struct {
	PostingID    string `json:"posting_id"`
	ObligationID int64  `json:"obligation_id"`
}

// ObligationDeleteMessage announces a finalized obligation delete.
type ObligationDeleteMessage struct {
	ObligationID int64 `json:"obligation_id"`
}

func wrap(kind string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		Kind:      kind,
		Payload:   body,
		Timestamp: time.Now(),
	})
}
