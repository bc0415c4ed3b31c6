// Package http provides the JSON API of the scheduler.
//
// This file implements the Builder Pattern for constructing JSON responses
// and the wire views of domain records. It keeps handlers free of encoding
// and status-code plumbing.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"scadenze/internal/core"
	"scadenze/internal/engine"
	"scadenze/internal/schedule"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Payload sets the response body.
func (b *JSONResponseBuilder) Payload(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.payload != nil {
		_ = json.NewEncoder(w).Encode(b.payload)
	}
}

// errorBody is the uniform error envelope.
type errorBody struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
	Stage     string `json:"stage,omitempty"`
	PostingID string `json:"posting_id,omitempty"`
	Orphaned  bool   `json:"orphaned,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Payload(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusMethodNotAllowed).
		Header("Allow", allowedMethods)
}

// EngineErrorResponse maps mutation engine errors onto wire status codes.
// Validation failures are the callers' job; anything unrecognized here is a
// 422 so client bugs never read as server faults.
func EngineErrorResponse(err error) *JSONResponseBuilder {
	var persistErr *engine.PersistenceError
	var payErr *engine.PayError

	switch {
	case errors.Is(err, engine.ErrNotFound):
		return NotFoundError("obligation not found")
	case errors.Is(err, engine.ErrMutationInFlight):
		return ErrorResponse(http.StatusConflict, "another change for this obligation is still settling")
	case errors.Is(err, engine.ErrUndoExpired):
		return ErrorResponse(http.StatusGone, "undo window elapsed")
	case errors.As(err, &payErr):
		return NewJSONResponse().Status(http.StatusBadGateway).Payload(errorBody{
			Error:     payErr.Error(),
			Retryable: !payErr.Orphaned,
			Stage:     string(payErr.Stage),
			PostingID: payErr.PostingID,
			Orphaned:  payErr.Orphaned,
		})
	case errors.As(err, &persistErr):
		return NewJSONResponse().Status(http.StatusBadGateway).Payload(errorBody{
			Error:     persistErr.Error(),
			Retryable: true,
		})
	default:
		return UnprocessableEntityError(err.Error())
	}
}

// ObligationView is the wire shape of an obligation in responses.
type ObligationView struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	Category       string `json:"category"`
	Amount         string `json:"amount"`
	AmountCents    int64  `json:"amount_cents"`
	Description    string `json:"description,omitempty"`
	Frequency      string `json:"frequency"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date,omitempty"`
	NextExecution  string `json:"next_execution"`
	IsActive       bool   `json:"is_active"`
	LastExecuted   string `json:"last_executed,omitempty"`
	ExecutionCount int64  `json:"execution_count"`
	ReminderDays   int    `json:"reminder_days,omitempty"`
	Bucket         string `json:"bucket"`
	DaysUntil      int    `json:"days_until"`
	Pending        bool   `json:"pending,omitempty"`
}

// NewObligationView projects an obligation onto the wire, classifying its
// cursor against the given as-of date.
func NewObligationView(o core.Obligation, today core.Date, pending bool) ObligationView {
	v := ObligationView{
		ID:             o.ID,
		Name:           o.Name,
		Type:           string(o.Kind),
		Category:       o.Category,
		Amount:         o.Amount.StringFixed(),
		AmountCents:    o.Amount.Cents,
		Description:    o.Description,
		Frequency:      string(o.Frequency),
		StartDate:      o.StartDate.String(),
		NextExecution:  o.NextOccurrence.String(),
		IsActive:       o.IsActive,
		ExecutionCount: o.ExecutionCount,
		ReminderDays:   o.ReminderLeadDays,
		Bucket:         string(schedule.Classify(o.NextOccurrence, today)),
		DaysUntil:      schedule.DaysUntil(o.NextOccurrence, today),
		Pending:        pending,
	}
	if !o.EndDate.IsEmpty() {
		v.EndDate = o.EndDate.String()
	}
	if !o.LastExecuted.IsEmpty() {
		v.LastExecuted = o.LastExecuted.String()
	}
	return v
}

// ReceiptView is the wire shape of a pay or skip receipt.
type ReceiptView struct {
	ObligationID       int64  `json:"obligation_id"`
	PostingID          string `json:"posting_id,omitempty"`
	PreviousOccurrence string `json:"previous_occurrence"`
	NextOccurrence     string `json:"next_occurrence"`
	Deactivated        bool   `json:"deactivated"`
}

// NewReceiptView projects an engine receipt onto the wire.
func NewReceiptView(r engine.Receipt) ReceiptView {
	return ReceiptView{
		ObligationID:       r.ObligationID,
		PostingID:          r.PostingID,
		PreviousOccurrence: r.PreviousOccurrence.String(),
		NextOccurrence:     r.NextOccurrence.String(),
		Deactivated:        r.Deactivated,
	}
}
