package http

import (
	"net/http"
	"time"

	"scadenze/internal/core"
	applog "scadenze/internal/log"
)

// handleListObligations returns all obligations, optionally filtered by
// status (active, inactive) and type (income, expense).
func (s *Server) handleListObligations(w http.ResponseWriter, r *http.Request) {
	today, err := parseAsOfDate(r)
	if err != nil {
		BadRequestError("invalid date parameter").Write(w)
		return
	}

	var records []core.Obligation
	switch r.URL.Query().Get("status") {
	case "", "all":
		records = s.store.All()
	case "active":
		records = s.store.Active()
	case "inactive":
		records = s.store.Inactive()
	default:
		BadRequestError("invalid status filter, want active, inactive or all").Write(w)
		return
	}

	if kind := r.URL.Query().Get("type"); kind != "" {
		k := core.Kind(kind)
		if err := k.Validate(); err != nil {
			BadRequestError("invalid type filter, want income or expense").Write(w)
			return
		}
		filtered := records[:0]
		for _, o := range records {
			if o.Kind == k {
				filtered = append(filtered, o)
			}
		}
		records = filtered
	}

	views := make([]ObligationView, 0, len(records))
	for _, o := range records {
		views = append(views, NewObligationView(o, today, s.engine.InFlight(o.ID)))
	}

	NewJSONResponse().Payload(views).Write(w)
}

func (s *Server) handleCreateObligation(w http.ResponseWriter, r *http.Request) {
	o, err := ParseObligationPayload(r)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	created, err := s.engine.Create(r.Context(), o)
	if err != nil {
		EngineErrorResponse(err).Write(w)
		return
	}
	s.invalidateViews()

	today := core.DateOf(time.Now())
	NewJSONResponse().
		Status(http.StatusCreated).
		Payload(NewObligationView(created, today, false)).
		Write(w)
}

// handleObligationItem serves a single obligation: read, replace, delete.
func (s *Server) handleObligationItem(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetObligation(w, r, id)
	case http.MethodPut:
		s.handleUpdateObligation(w, r, id)
	case http.MethodDelete:
		s.handleDeleteObligation(w, r, id)
	default:
		MethodNotAllowedError("GET, PUT, DELETE").Write(w)
	}
}

func (s *Server) handleGetObligation(w http.ResponseWriter, r *http.Request, id int64) {
	o, ok := s.store.ByID(id)
	if !ok {
		NotFoundError("obligation not found").Write(w)
		return
	}

	today, err := parseAsOfDate(r)
	if err != nil {
		BadRequestError("invalid date parameter").Write(w)
		return
	}

	NewJSONResponse().Payload(NewObligationView(o, today, s.engine.InFlight(id))).Write(w)
}

func (s *Server) handleUpdateObligation(w http.ResponseWriter, r *http.Request, id int64) {
	o, err := ParseObligationPayload(r)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	o.ID = id

	// The scheduling cursor and bookkeeping survive an edit unless the
	// payload overrides the cursor explicitly.
	if prev, ok := s.store.ByID(id); ok {
		o.ExecutionCount = prev.ExecutionCount
		o.LastExecuted = prev.LastExecuted
		if o.NextOccurrence.IsZero() {
			o.NextOccurrence = prev.NextOccurrence
		}
	}

	if err := s.engine.Update(r.Context(), o); err != nil {
		EngineErrorResponse(err).Write(w)
		return
	}
	s.invalidateViews()

	updated, _ := s.store.ByID(id)
	NewJSONResponse().Payload(NewObligationView(updated, core.DateOf(time.Now()), false)).Write(w)
}

func (s *Server) handleDeleteObligation(w http.ResponseWriter, r *http.Request, id int64) {
	if err := s.engine.Delete(r.Context(), id); err != nil {
		EngineErrorResponse(err).Write(w)
		return
	}
	s.invalidateViews()

	NewJSONResponse().
		Status(http.StatusAccepted).
		Payload(map[string]any{"obligation_id": id, "status": "pending_delete"}).
		Write(w)
}

// handleObligationAction dispatches the POST item operations.
func (s *Server) handleObligationAction(w http.ResponseWriter, r *http.Request, id int64, action string) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}

	switch action {
	case "toggle":
		s.handleToggleObligation(w, r, id)
	case "pay":
		s.handlePayObligation(w, r, id)
	case "skip":
		s.handleSkipObligation(w, r, id)
	case "undo":
		s.handleUndoDelete(w, r, id)
	default:
		NotFoundError("not found").Write(w)
	}
}

func (s *Server) handleToggleObligation(w http.ResponseWriter, r *http.Request, id int64) {
	active, err := s.engine.Toggle(r.Context(), id)
	if err != nil {
		EngineErrorResponse(err).Write(w)
		return
	}
	s.invalidateViews()

	NewJSONResponse().Payload(map[string]any{"obligation_id": id, "is_active": active}).Write(w)
}

func (s *Server) handlePayObligation(w http.ResponseWriter, r *http.Request, id int64) {
	today, err := parseAsOfDate(r)
	if err != nil {
		BadRequestError("invalid date parameter").Write(w)
		return
	}

	receipt, err := s.engine.MarkPaid(r.Context(), id, today)
	if err != nil {
		EngineErrorResponse(err).Write(w)
		return
	}
	s.invalidateViews()

	NewJSONResponse().Payload(NewReceiptView(receipt)).Write(w)
}

func (s *Server) handleSkipObligation(w http.ResponseWriter, r *http.Request, id int64) {
	payload, err := parseSkipPayload(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if !payload.Confirm {
		// Skipping loses an occurrence; an explicit confirmation is required.
		BadRequestError("skip requires confirm=true").Write(w)
		return
	}

	receipt, err := s.engine.Skip(r.Context(), id)
	if err != nil {
		EngineErrorResponse(err).Write(w)
		return
	}
	s.invalidateViews()

	NewJSONResponse().Payload(NewReceiptView(receipt)).Write(w)
}

func (s *Server) handleUndoDelete(w http.ResponseWriter, r *http.Request, id int64) {
	if err := s.engine.Undo(r.Context(), id); err != nil {
		EngineErrorResponse(err).Write(w)
		return
	}
	s.invalidateViews()

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Delete undone via API", applog.FieldObligationID, id)
	NewJSONResponse().Payload(map[string]any{"obligation_id": id, "status": "restored"}).Write(w)
}
