package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"scadenze/internal/engine"
	"scadenze/internal/ledger/memory"
	"scadenze/internal/services"
	"scadenze/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st := store.New()
	eng := engine.New(st, memory.NewPersistence(), memory.NewLedger(), nil, time.Hour)
	proc := services.NewProcessor(st, eng)
	srv := NewServer(":0", st, eng, proc)
	t.Cleanup(func() { srv.cacheManager.Stop(); srv.rateLimiter.stop() })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, r)
	return rec
}

const rentBody = `{"name":"Rent","type":"expense","category":"Housing","amount":"950.00","frequency":"monthly","start_date":"2026-01-01","next_execution":"2026-09-01"}`

func TestCreateAndGetObligation(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, "POST", "/obligations", rentBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d, body %s", rec.Code, rec.Body.String())
	}
	var created ObligationView
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID != 1 || created.Amount != "950.00" {
		t.Fatalf("unexpected view %+v", created)
	}

	rec = doJSON(t, srv, "GET", "/obligations/1?date=2026-09-01", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status %d", rec.Code)
	}
	var got ObligationView
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Bucket != "due_today" {
		t.Fatalf("expected due_today, got %s", got.Bucket)
	}
}

func TestCreateValidationStatus(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, "POST", "/obligations", `{"name":"","type":"expense","category":"x","amount":"5","frequency":"monthly","start_date":"2026-01-01"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestListFilters(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, "POST", "/obligations", rentBody)
	doJSON(t, srv, "POST", "/obligations", `{"name":"Salary","type":"income","category":"Salary","amount":"2500","frequency":"monthly","start_date":"2026-01-27"}`)
	doJSON(t, srv, "POST", "/obligations/1/toggle", "")

	cases := []struct {
		query string
		want  int
	}{
		{"", 2},
		{"?status=active", 1},
		{"?status=inactive", 1},
		{"?type=income", 1},
		{"?status=active&type=expense", 0},
	}
	for _, tc := range cases {
		rec := doJSON(t, srv, "GET", "/obligations"+tc.query, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%q: status %d", tc.query, rec.Code)
		}
		var views []ObligationView
		_ = json.Unmarshal(rec.Body.Bytes(), &views)
		if len(views) != tc.want {
			t.Fatalf("%q: expected %d, got %d", tc.query, tc.want, len(views))
		}
	}

	rec := doJSON(t, srv, "GET", "/obligations?status=bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad filter expected 400, got %d", rec.Code)
	}
}

func TestPayAdvancesCursor(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, "POST", "/obligations", rentBody)

	rec := doJSON(t, srv, "POST", "/obligations/1/pay?date=2026-09-01", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("pay status %d, body %s", rec.Code, rec.Body.String())
	}
	var receipt ReceiptView
	_ = json.Unmarshal(rec.Body.Bytes(), &receipt)
	if receipt.NextOccurrence != "2026-10-01" || receipt.PostingID == "" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
}

func TestSkipRequiresConfirmation(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, "POST", "/obligations", rentBody)

	rec := doJSON(t, srv, "POST", "/obligations/1/skip", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unconfirmed skip expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, srv, "POST", "/obligations/1/skip", `{"confirm":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirmed skip status %d", rec.Code)
	}

	// The query form works too.
	rec = doJSON(t, srv, "POST", "/obligations/1/skip?confirm=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("query-confirmed skip status %d", rec.Code)
	}
	var receipt ReceiptView
	_ = json.Unmarshal(rec.Body.Bytes(), &receipt)
	if receipt.PostingID != "" {
		t.Fatalf("skip must not create a posting")
	}
}

func TestDeleteThenUndo(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, "POST", "/obligations", rentBody)

	rec := doJSON(t, srv, "DELETE", "/obligations/1", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("delete status %d", rec.Code)
	}

	// The record is gone from reads while the delete is pending.
	if rec := doJSON(t, srv, "GET", "/obligations/1", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("pending delete should 404 reads, got %d", rec.Code)
	}

	// A competing mutation during the window conflicts.
	if rec := doJSON(t, srv, "POST", "/obligations/1/pay", ""); rec.Code != http.StatusConflict {
		t.Fatalf("pay during pending delete expected 409, got %d", rec.Code)
	}

	rec = doJSON(t, srv, "POST", "/obligations/1/undo", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("undo status %d, body %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, srv, "GET", "/obligations/1", ""); rec.Code != http.StatusOK {
		t.Fatalf("record should be back after undo, got %d", rec.Code)
	}
}

func TestUndoWithoutPendingDelete(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, "POST", "/obligations", rentBody)

	rec := doJSON(t, srv, "POST", "/obligations/1/undo", "")
	if rec.Code != http.StatusGone {
		t.Fatalf("expected 410, got %d", rec.Code)
	}
}

func TestDueAndUpcomingViews(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, "POST", "/obligations", rentBody) // due 2026-09-01
	doJSON(t, srv, "POST", "/obligations", `{"name":"Insurance","type":"expense","category":"Insurance","amount":"120","frequency":"yearly","start_date":"2026-01-01","next_execution":"2026-12-01"}`)

	rec := doJSON(t, srv, "GET", "/obligations/due?date=2026-09-01", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("due status %d", rec.Code)
	}
	var due []ObligationView
	_ = json.Unmarshal(rec.Body.Bytes(), &due)
	if len(due) != 1 || due[0].Name != "Rent" {
		t.Fatalf("unexpected due set %+v", due)
	}

	rec = doJSON(t, srv, "GET", "/obligations/upcoming?date=2026-09-01", "")
	var upcoming []ObligationView
	_ = json.Unmarshal(rec.Body.Bytes(), &upcoming)
	if len(upcoming) != 1 {
		t.Fatalf("december cursor is outside the 30-day window, got %d", len(upcoming))
	}
}

func TestViewCacheInvalidatedByMutation(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, "POST", "/obligations", rentBody)

	// Prime the cache.
	doJSON(t, srv, "GET", "/obligations/due?date=2026-09-01", "")

	// Paying advances the cursor; the due view must reflect it immediately.
	doJSON(t, srv, "POST", "/obligations/1/pay?date=2026-09-01", "")

	rec := doJSON(t, srv, "GET", "/obligations/due?date=2026-09-01", "")
	var due []ObligationView
	_ = json.Unmarshal(rec.Body.Bytes(), &due)
	if len(due) != 0 {
		t.Fatalf("stale due view served after mutation: %+v", due)
	}
}

func TestExecuteDue(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, "POST", "/obligations", rentBody)
	doJSON(t, srv, "POST", "/obligations", `{"name":"Water","type":"expense","category":"Utilities","amount":"35","frequency":"monthly","start_date":"2026-01-01","next_execution":"2026-08-15"}`)

	rec := doJSON(t, srv, "POST", "/obligations/execute-due?date=2026-09-01", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("execute-due status %d, body %s", rec.Code, rec.Body.String())
	}
	var result services.Result
	_ = json.Unmarshal(rec.Body.Bytes(), &result)
	if result.Executed != 2 || len(result.Failures) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	// Second run finds nothing due.
	rec = doJSON(t, srv, "POST", "/obligations/execute-due?date=2026-09-01", "")
	_ = json.Unmarshal(rec.Body.Bytes(), &result)
	if result.Executed != 0 {
		t.Fatalf("second run expected 0 executed, got %d", result.Executed)
	}
}

func TestMethodGuards(t *testing.T) {
	srv := newTestServer(t)
	cases := []struct {
		method, path string
	}{
		{"PUT", "/obligations"},
		{"GET", "/obligations/execute-due"},
		{"POST", "/obligations/due"},
		{"GET", "/obligations/1/pay"},
	}
	for _, tc := range cases {
		rec := doJSON(t, srv, tc.method, tc.path, "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s expected 405, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestUnknownPaths(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/obligations/abc", "/obligations/1/frobnicate", "/obligations/1/2/3"} {
		rec := doJSON(t, srv, "GET", path, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s expected 404, got %d", path, rec.Code)
		}
	}
}
