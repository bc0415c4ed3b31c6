package http

import (
	"net/http/httptest"
	"strings"
	"testing"

	"scadenze/internal/core"
)

func TestParseObligationPayload(t *testing.T) {
	body := `{
		"name": "Rent",
		"type": "expense",
		"category": "Housing",
		"amount": "950.00",
		"description": "apartment",
		"frequency": "monthly",
		"start_date": "2026-01-01",
		"end_date": "2026-12-31",
		"reminder_days": 3
	}`
	r := httptest.NewRequest("POST", "/obligations", strings.NewReader(body))

	o, err := ParseObligationPayload(r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if o.Name != "Rent" || o.Kind != core.Expense || o.Category != "Housing" {
		t.Fatalf("unexpected fields: %+v", o)
	}
	if o.Amount.Cents != 95000 {
		t.Fatalf("amount expected 95000 cents, got %d", o.Amount.Cents)
	}
	if o.StartDate.String() != "2026-01-01" || o.EndDate.String() != "2026-12-31" {
		t.Fatalf("dates not parsed: %s, %s", o.StartDate, o.EndDate)
	}
	if !o.IsActive {
		t.Fatalf("is_active should default to true")
	}
	if o.ReminderLeadDays != 3 {
		t.Fatalf("reminder days expected 3, got %d", o.ReminderLeadDays)
	}
	if !o.NextOccurrence.IsEmpty() {
		t.Fatalf("cursor should stay unset without next_execution")
	}
}

func TestParseObligationPayloadCommaAmount(t *testing.T) {
	body := `{"name":"Gym","type":"expense","category":"Health","amount":"29,90","frequency":"monthly","start_date":"2026-02-01"}`
	r := httptest.NewRequest("POST", "/obligations", strings.NewReader(body))

	o, err := ParseObligationPayload(r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if o.Amount.Cents != 2990 {
		t.Fatalf("amount expected 2990 cents, got %d", o.Amount.Cents)
	}
}

func TestParseObligationPayloadExplicitFields(t *testing.T) {
	body := `{"name":"Salary","type":"income","category":"Salary","amount":"2500","frequency":"monthly","start_date":"2026-01-27","next_execution":"2026-09-27","is_active":false}`
	r := httptest.NewRequest("POST", "/obligations", strings.NewReader(body))

	o, err := ParseObligationPayload(r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if o.Kind != core.Income {
		t.Fatalf("expected income kind")
	}
	if o.NextOccurrence.String() != "2026-09-27" {
		t.Fatalf("cursor expected 2026-09-27, got %s", o.NextOccurrence)
	}
	if o.IsActive {
		t.Fatalf("explicit is_active=false must be honored")
	}
}

func TestParseObligationPayloadErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", `{{`},
		{"bad amount", `{"name":"x","type":"expense","category":"Other","amount":"abc","frequency":"monthly","start_date":"2026-01-01"}`},
		{"negative amount", `{"name":"x","type":"expense","category":"Other","amount":"-5","frequency":"monthly","start_date":"2026-01-01"}`},
		{"bad start date", `{"name":"x","type":"expense","category":"Other","amount":"5","frequency":"monthly","start_date":"01/01/2026"}`},
		{"bad end date", `{"name":"x","type":"expense","category":"Other","amount":"5","frequency":"monthly","start_date":"2026-01-01","end_date":"soon"}`},
		{"bad next execution", `{"name":"x","type":"expense","category":"Other","amount":"5","frequency":"monthly","start_date":"2026-01-01","next_execution":"later"}`},
	}
	for _, tc := range cases {
		r := httptest.NewRequest("POST", "/obligations", strings.NewReader(tc.body))
		if _, err := ParseObligationPayload(r); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestParseSkipPayload(t *testing.T) {
	r := httptest.NewRequest("POST", "/obligations/1/skip", strings.NewReader(`{"confirm":true}`))
	p, err := parseSkipPayload(r)
	if err != nil || !p.Confirm {
		t.Fatalf("expected confirm=true, got %+v err=%v", p, err)
	}

	r = httptest.NewRequest("POST", "/obligations/1/skip", strings.NewReader(""))
	p, err = parseSkipPayload(r)
	if err != nil || p.Confirm {
		t.Fatalf("empty body must default to confirm=false, got %+v err=%v", p, err)
	}

	r = httptest.NewRequest("POST", "/obligations/1/skip?confirm=true", strings.NewReader(""))
	p, err = parseSkipPayload(r)
	if err != nil || !p.Confirm {
		t.Fatalf("query confirmation must be accepted, got %+v err=%v", p, err)
	}

	r = httptest.NewRequest("POST", "/obligations/1/skip?confirm=yes", strings.NewReader(""))
	p, err = parseSkipPayload(r)
	if err != nil || p.Confirm {
		t.Fatalf("only confirm=true confirms, got %+v err=%v", p, err)
	}
}

func TestSanitizeInput(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Rent  ", "Rent"},
		{"Rent\x00Bill", "RentBill"},
		{"line1\nline2", "line1\nline2"},
	}
	for _, tc := range cases {
		if got := sanitizeInput(tc.in); got != tc.want {
			t.Fatalf("sanitizeInput(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID("42"); err != nil || id != 42 {
		t.Fatalf("expected 42, got %d err=%v", id, err)
	}
	for _, bad := range []string{"0", "-1", "abc", ""} {
		if _, err := parseID(bad); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
}
