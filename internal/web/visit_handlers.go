package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lmsales/sales-hub/internal/visit"
)

// apiListVisits returns visits, optionally filtered by status and account.
func (s *Server) apiListVisits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := visit.ListOptions{
		Status:    visit.Status(q.Get("status")),
		AccountID: q.Get("account_id"),
	}
	if opts.Status != "" && !opts.Status.IsValid() {
		apiError(w, "status must be pending or completed", http.StatusBadRequest)
		return
	}

	visits, err := s.visits.List(opts)
	if err != nil {
		apiStoreError(w, "listing visits", err)
		return
	}
	if visits == nil {
		visits = make([]*visit.Visit, 0)
	}

	apiJSON(w, visits, http.StatusOK)
}

// apiAddVisit schedules a pending visit for an existing account.
func (s *Server) apiAddVisit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"account_id"`
		Date      string `json:"date"`
		Time      string `json:"time"`
		Category  string `json:"category"`
		Notes     string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	category := visit.Category(req.Category)
	if category == "" {
		category = visit.CategoryVisit
	}

	v := visit.Visit{
		AccountID:     strings.TrimSpace(req.AccountID),
		ScheduledDate: strings.TrimSpace(req.Date),
		ScheduledTime: strings.TrimSpace(req.Time),
		Category:      category,
		Status:        visit.StatusPending,
		Notes:         req.Notes,
	}
	if err := v.Validate(); err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := s.accounts.GetByID(v.AccountID); err != nil {
		apiStoreError(w, "getting account", err)
		return
	}

	created, err := s.visits.Add(v.AccountID, v.ScheduledDate, v.ScheduledTime, v.Category, v.Notes)
	if err != nil {
		apiStoreError(w, "adding visit", err)
		return
	}

	s.refresh(r.Context())
	apiJSON(w, created, http.StatusCreated)
}

// apiCompleteVisit marks a pending visit completed.
func (s *Server) apiCompleteVisit(w http.ResponseWriter, r *http.Request) {
	id, ok := visitID(w, r)
	if !ok {
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	v, err := s.visits.Complete(id, strings.TrimSpace(req.Notes), s.now())
	if err != nil {
		apiStoreError(w, "completing visit", err)
		return
	}

	s.refresh(r.Context())
	apiJSON(w, v, http.StatusOK)
}

// apiDeleteVisit removes a visit.
func (s *Server) apiDeleteVisit(w http.ResponseWriter, r *http.Request) {
	id, ok := visitID(w, r)
	if !ok {
		return
	}

	if err := s.visits.Delete(id); err != nil {
		apiStoreError(w, "deleting visit", err)
		return
	}

	s.refresh(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func visitID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		apiError(w, "invalid visit ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func snapshotVisits(in []*visit.Visit) []visit.Visit {
	out := make([]visit.Visit, len(in))
	for i, v := range in {
		out[i] = *v
	}
	return out
}
