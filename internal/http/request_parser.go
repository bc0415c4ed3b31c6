// Package http provides the JSON API of the scheduler.
//
// This file implements parsing and validation of obligation request bodies.
// It keeps wire-shape concerns out of the handlers: amounts travel as decimal
// strings and dates as YYYY-MM-DD, both converted here into core types.
package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"scadenze/internal/core"
)

// maxBodyBytes bounds request bodies; obligation payloads are tiny.
const maxBodyBytes = 64 * 1024

// ObligationPayload is the wire shape of a create or update request.
type ObligationPayload struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Category      string `json:"category"`
	Amount        string `json:"amount"`
	Description   string `json:"description"`
	Frequency     string `json:"frequency"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	NextExecution string `json:"next_execution"`
	IsActive      *bool  `json:"is_active"`
	ReminderDays  int    `json:"reminder_days"`
}

// ParseObligationPayload decodes and converts a request body into a core
// obligation. Field-level validation beyond shape conversion is left to
// Obligation.Validate.
func ParseObligationPayload(r *http.Request) (core.Obligation, error) {
	var payload ObligationPayload

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return core.Obligation{}, fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return core.Obligation{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return payload.ToObligation()
}

// ToObligation converts the wire payload into a core obligation.
func (p ObligationPayload) ToObligation() (core.Obligation, error) {
	o := core.Obligation{
		Name:             sanitizeInput(p.Name),
		Kind:             core.Kind(p.Type),
		Category:         sanitizeInput(p.Category),
		Description:      sanitizeInput(p.Description),
		Frequency:        core.Frequency(p.Frequency),
		IsActive:         true,
		ReminderLeadDays: p.ReminderDays,
	}

	if p.IsActive != nil {
		o.IsActive = *p.IsActive
	}

	cents, err := core.ParseDecimalToCents(p.Amount)
	if err != nil {
		return core.Obligation{}, fmt.Errorf("invalid amount %q: %w", p.Amount, err)
	}
	o.Amount = core.Money{Cents: cents}

	o.StartDate, err = parseDate(p.StartDate)
	if err != nil {
		return core.Obligation{}, fmt.Errorf("invalid start_date %q", p.StartDate)
	}

	if p.EndDate != "" {
		o.EndDate, err = parseDate(p.EndDate)
		if err != nil {
			return core.Obligation{}, fmt.Errorf("invalid end_date %q", p.EndDate)
		}
	}

	if p.NextExecution != "" {
		o.NextOccurrence, err = parseDate(p.NextExecution)
		if err != nil {
			return core.Obligation{}, fmt.Errorf("invalid next_execution %q", p.NextExecution)
		}
	}

	return o, nil
}

// skipPayload carries the explicit confirmation required to advance an
// occurrence without a payment.
type skipPayload struct {
	Confirm bool `json:"confirm"`
}

// parseSkipPayload accepts the confirmation either as a JSON body
// {"confirm":true} or as a confirm=true query parameter.
func parseSkipPayload(r *http.Request) (skipPayload, error) {
	var payload skipPayload
	payload.Confirm = r.URL.Query().Get("confirm") == "true"

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return payload, fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, fmt.Errorf("invalid JSON: %w", err)
	}
	return payload, nil
}
