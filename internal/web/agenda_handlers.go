package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/lmsales/sales-hub/internal/agenda"
	"github.com/lmsales/sales-hub/internal/feed"
	"github.com/lmsales/sales-hub/internal/prospect"
)

const heartbeatInterval = 30 * time.Second

// apiAgenda returns the daily plan with the overdue and stale account lists.
func (s *Server) apiAgenda(w http.ResponseWriter, r *http.Request) {
	capacity := s.capacity
	if cs := r.URL.Query().Get("capacity"); cs != "" {
		n, err := strconv.Atoi(cs)
		if err != nil || n < 0 {
			apiError(w, "capacity must be a non-negative integer", http.StatusBadRequest)
			return
		}
		capacity = n
	}

	at, err := s.evaluationTime(r)
	if err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap, err := s.source.Load(r.Context())
	if err != nil {
		apiStoreError(w, "loading agenda", err)
		return
	}

	plan := agenda.BuildPlan(snap.Accounts, snap.Visits, at, capacity, s.logger)
	s.metrics.ObservePlan(plan)

	apiJSON(w, plan, http.StatusOK)
}

// apiAgendaStream sends the daily plan as server-sent events, one per feed
// emission. Slow clients only ever see the latest plan.
func (s *Server) apiAgendaStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		apiError(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	capacity := s.capacity
	if cs := r.URL.Query().Get("capacity"); cs != "" {
		n, err := strconv.Atoi(cs)
		if err != nil || n < 0 {
			apiError(w, "capacity must be a non-negative integer", http.StatusBadRequest)
			return
		}
		capacity = n
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	snaps := make(chan feed.Snapshot, 1)
	errs := make(chan error, 1)
	unsubscribe := s.feed.Subscribe(
		func(snap feed.Snapshot) { offerLatest(snaps, snap) },
		func(err error) { offerLatest(errs, err) },
	)
	defer unsubscribe()

	if _, ok := s.feed.Current(); !ok {
		// Refresh delivers to the subscription above, failures included.
		_ = s.feed.Refresh(r.Context())
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap := <-snaps:
			plan := agenda.BuildPlan(snap.Accounts, snap.Visits, s.now(), capacity, s.logger)
			s.metrics.ObservePlan(plan)
			data, err := json.Marshal(plan)
			if err != nil {
				s.logger.Error("encoding agenda event", "error", err)
				return
			}
			fmt.Fprintf(w, "event: plan\ndata: %s\n\n", data)
			flusher.Flush()
		case err := <-errs:
			data, _ := json.Marshal(map[string]string{"error": err.Error()})
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

// offerLatest puts v on a one-slot channel, replacing any value the reader
// has not taken yet.
func offerLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// apiProspects returns the prospect board and its per-state counts.
func (s *Server) apiProspects(w http.ResponseWriter, r *http.Request) {
	snap, err := s.source.Load(r.Context())
	if err != nil {
		apiStoreError(w, "loading prospects", err)
		return
	}

	board := prospect.Board(snap.Accounts, snap.Visits, s.now())
	apiJSON(w, map[string]interface{}{
		"summary":   prospect.Summarize(board),
		"prospects": board,
	}, http.StatusOK)
}
