package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lmsales/sales-hub/internal/account"
	"github.com/lmsales/sales-hub/internal/auth"
	"github.com/lmsales/sales-hub/internal/note"
	"github.com/lmsales/sales-hub/internal/prospect"
	"github.com/lmsales/sales-hub/internal/recency"
	"github.com/lmsales/sales-hub/internal/visit"
)

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	resp := map[string]string{"error": msg}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// apiStoreError maps repository errors to status codes.
func apiStoreError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, account.ErrNotFound), errors.Is(err, visit.ErrNotFound), errors.Is(err, note.ErrNotFound):
		apiError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, visit.ErrAlreadyCompleted), errors.Is(err, visit.ErrDuplicate):
		apiError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, visit.ErrInvalid):
		apiError(w, err.Error(), http.StatusBadRequest)
	default:
		apiError(w, fmt.Sprintf("%s: %v", action, err), http.StatusInternalServerError)
	}
}

// apiListAccounts returns accounts with their last completed visit date,
// optionally filtered by classification.
func (s *Server) apiListAccounts(w http.ResponseWriter, r *http.Request) {
	opts := account.ListOptions{}
	if c := r.URL.Query().Get("classification"); c != "" {
		opts.Classification = account.Classification(c)
		if !opts.Classification.IsValid() {
			apiError(w, "classification must be active_customer, prospect or inactive", http.StatusBadRequest)
			return
		}
	}

	accounts, err := s.accounts.List(opts)
	if err != nil {
		apiStoreError(w, "listing accounts", err)
		return
	}
	last, err := s.visits.LastCompletedByAccount()
	if err != nil {
		apiStoreError(w, "listing last visits", err)
		return
	}

	out := make([]accountSummary, 0, len(accounts))
	for _, a := range accounts {
		sum := accountSummary{Account: a}
		if d, ok := last[a.ID]; ok {
			sum.LastVisit = &d
		}
		out = append(out, sum)
	}

	apiJSON(w, out, http.StatusOK)
}

// accountSummary is an account row in the list, with the date of its
// latest completed visit.
type accountSummary struct {
	*account.Account
	LastVisit *string `json:"last_visit"`
}

// apiSaveAccount creates an account, or replaces it when the ID exists.
func (s *Server) apiSaveAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		City           string `json:"city"`
		Phone          string `json:"phone"`
		Email          string `json:"email"`
		Classification string `json:"classification"`
		Frequency      string `json:"frequency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		apiError(w, "name is required", http.StatusBadRequest)
		return
	}

	classification := account.Classification(req.Classification)
	if classification == "" {
		classification = account.Prospect
	}
	if !classification.IsValid() {
		apiError(w, "classification must be active_customer, prospect or inactive", http.StatusBadRequest)
		return
	}
	frequency := account.Frequency(req.Frequency)
	if frequency == "" {
		frequency = account.None
	}
	if !frequency.IsValid() {
		apiError(w, "frequency must be weekly, biweekly, monthly or none", http.StatusBadRequest)
		return
	}

	status := http.StatusCreated
	if req.ID != "" {
		if _, err := s.accounts.GetByID(req.ID); err == nil {
			status = http.StatusOK
		}
	}

	a, err := s.accounts.Save(&account.Account{
		ID:             strings.TrimSpace(req.ID),
		Name:           strings.TrimSpace(req.Name),
		City:           strings.TrimSpace(req.City),
		Phone:          strings.TrimSpace(req.Phone),
		Email:          strings.TrimSpace(req.Email),
		Classification: classification,
		Frequency:      frequency,
	})
	if err != nil {
		apiStoreError(w, "saving account", err)
		return
	}

	s.refresh(r.Context())
	apiJSON(w, a, status)
}

// accountHealth is the derived state shown with an account.
type accountHealth struct {
	account.OverdueCheck
	Stale     bool             `json:"stale"`
	LastVisit *string          `json:"last_visit,omitempty"`
	Prospect  *prospect.Health `json:"prospect,omitempty"`
}

// apiGetAccount returns one account with its visits, notes and health.
func (s *Server) apiGetAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	a, err := s.accounts.GetByID(id)
	if err != nil {
		apiStoreError(w, "getting account", err)
		return
	}

	visits, err := s.visits.ListByAccountID(id)
	if err != nil {
		apiStoreError(w, "listing visits", err)
		return
	}
	notes, err := s.notes.ListByAccountID(id)
	if err != nil {
		apiStoreError(w, "listing notes", err)
		return
	}

	vals := snapshotVisits(visits)

	now := s.now()
	last := account.LastCompletedVisit(id, vals)
	health := accountHealth{
		OverdueCheck: account.CheckOverdue(*a, last, now),
		Stale:        account.LacksRecentContact(*a, vals, account.StaleCutoff(now)),
	}
	if last != nil {
		d := last.Format("2006-01-02")
		health.LastVisit = &d
	}
	if a.Classification == account.Prospect {
		for _, e := range prospect.Board([]account.Account{*a}, vals, now) {
			h := e.Health
			health.Prospect = &h
		}
	}

	if visits == nil {
		visits = make([]*visit.Visit, 0)
	}
	if notes == nil {
		notes = make([]*note.Note, 0)
	}

	apiJSON(w, map[string]interface{}{
		"account": a,
		"visits":  visits,
		"notes":   notes,
		"health":  health,
	}, http.StatusOK)
}

// apiDeleteAccount removes an account with its visits and notes.
func (s *Server) apiDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.Delete(chi.URLParam(r, "id")); err != nil {
		apiStoreError(w, "deleting account", err)
		return
	}

	s.refresh(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// apiMarkContacted records a phone or e-mail contact at the current time.
func (s *Server) apiMarkContacted(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.accounts.MarkContacted(id, s.now()); err != nil {
		apiStoreError(w, "marking contact", err)
		return
	}

	a, err := s.accounts.GetByID(id)
	if err != nil {
		apiStoreError(w, "getting account", err)
		return
	}

	s.refresh(r.Context())
	apiJSON(w, a, http.StatusOK)
}

// apiListNotes returns notes for an account.
func (s *Server) apiListNotes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.accounts.GetByID(id); err != nil {
		apiStoreError(w, "getting account", err)
		return
	}

	notes, err := s.notes.ListByAccountID(id)
	if err != nil {
		apiStoreError(w, "listing notes", err)
		return
	}
	if notes == nil {
		notes = make([]*note.Note, 0)
	}

	apiJSON(w, notes, http.StatusOK)
}

// apiAddNote adds a note to an account, authored by the calling API key.
func (s *Server) apiAddNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		apiError(w, "text is required", http.StatusBadRequest)
		return
	}
	if _, err := s.accounts.GetByID(id); err != nil {
		apiStoreError(w, "getting account", err)
		return
	}

	n, err := s.notes.Add(id, req.Text, auth.KeyName(r.Context()))
	if err != nil {
		apiStoreError(w, "adding note", err)
		return
	}

	apiJSON(w, n, http.StatusCreated)
}

// evaluationTime returns the instant the agenda is computed for. A date
// query parameter moves it to that calendar day at the current time of day.
func (s *Server) evaluationTime(r *http.Request) (time.Time, error) {
	now := s.now()
	ds := r.URL.Query().Get("date")
	if ds == "" {
		return now, nil
	}
	d, err := time.ParseInLocation(recency.DateLayout, ds, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD")
	}
	return time.Date(d.Year(), d.Month(), d.Day(),
		now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), now.Location()), nil
}
