package http

import (
	"net/http"

	applog "scadenze/internal/log"
)

// handleDue returns the active obligations whose occurrence is due on or
// before the as-of date. Responses are cached per date until the next
// mutation.
func (s *Server) handleDue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}

	today, err := parseAsOfDate(r)
	if err != nil {
		BadRequestError("invalid date parameter").Write(w)
		return
	}

	cacheKey := "due:" + today.String()
	if views, ok := s.viewCache.Get(cacheKey); ok {
		NewJSONResponse().Payload(views).Write(w)
		return
	}

	due := s.store.DueOnOrBefore(today)
	views := make([]ObligationView, 0, len(due))
	for _, o := range due {
		views = append(views, NewObligationView(o, today, s.engine.InFlight(o.ID)))
	}

	s.viewCache.Set(cacheKey, views)
	NewJSONResponse().Payload(views).Write(w)
}

// handleUpcoming returns the active obligations inside the dashboard window:
// up to 30 days ahead plus a short overdue grace.
func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}

	today, err := parseAsOfDate(r)
	if err != nil {
		BadRequestError("invalid date parameter").Write(w)
		return
	}

	cacheKey := "upcoming:" + today.String()
	if views, ok := s.viewCache.Get(cacheKey); ok {
		NewJSONResponse().Payload(views).Write(w)
		return
	}

	upcoming := s.store.UpcomingWindow(today)
	views := make([]ObligationView, 0, len(upcoming))
	for _, o := range upcoming {
		views = append(views, NewObligationView(o, today, s.engine.InFlight(o.ID)))
	}

	s.viewCache.Set(cacheKey, views)
	NewJSONResponse().Payload(views).Write(w)
}

// handleExecuteDue runs the batch due processor for the as-of date and
// returns its per-item outcome report.
func (s *Server) handleExecuteDue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}

	today, err := parseAsOfDate(r)
	if err != nil {
		BadRequestError("invalid date parameter").Write(w)
		return
	}

	result, err := s.processor.ProcessDue(r.Context(), today)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Batch due processing failed", applog.FieldError, err)
		ErrorResponse(http.StatusInternalServerError, "due processing failed").Write(w)
		return
	}
	s.invalidateViews()

	status := http.StatusOK
	if len(result.Failures) > 0 {
		// Partial success still reports every outcome; the status flags it.
		status = http.StatusMultiStatus
	}

	NewJSONResponse().Status(status).Payload(result).Write(w)
}
