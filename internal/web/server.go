// Package web provides the HTTP API for the sales hub.
package web

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lmsales/sales-hub/internal/account"
	"github.com/lmsales/sales-hub/internal/agenda"
	"github.com/lmsales/sales-hub/internal/auth"
	"github.com/lmsales/sales-hub/internal/config"
	"github.com/lmsales/sales-hub/internal/feed"
	"github.com/lmsales/sales-hub/internal/logging"
	"github.com/lmsales/sales-hub/internal/metrics"
	"github.com/lmsales/sales-hub/internal/note"
	"github.com/lmsales/sales-hub/internal/visit"
)

// Options configures a Server. Zero values get defaults.
type Options struct {
	Capacity  int              // daily plan size, default agenda.DefaultCapacity
	RateLimit int              // failed API key attempts per minute, default config.DefaultRateLimit
	Now       func() time.Time // evaluation clock, default time.Now
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// Server is the sales hub HTTP server.
type Server struct {
	accounts *account.Repository
	visits   *visit.Repository
	notes    *note.Repository
	apiKeys  *auth.APIKeyStore
	source   feed.Source
	feed     *feed.Feed
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
	capacity int
	router   chi.Router
}

// NewServer creates a server over the given database.
func NewServer(db *sql.DB, opts Options) *Server {
	if opts.Capacity <= 0 {
		opts.Capacity = agenda.DefaultCapacity
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = config.DefaultRateLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	s := &Server{
		accounts: account.NewRepository(db),
		visits:   visit.NewRepository(db),
		notes:    note.NewRepository(db),
		apiKeys:  auth.NewAPIKeyStore(db),
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		now:      opts.Now,
		capacity: opts.Capacity,
	}
	s.source = feed.StoreSource{Accounts: s.accounts, Visits: s.visits, Now: s.now}
	s.feed = feed.New(s.source, s.logger)

	s.router = s.routes(auth.NewRateLimiter(opts.RateLimit))
	return s
}

func (s *Server) routes(limiter *auth.RateLimiter) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(s.countRequests)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apiError(w, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
	})
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAPIKey(s.apiKeys, limiter, s.logger))

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.apiListAccounts)
			r.Post("/", s.apiSaveAccount)
			r.Get("/{id}", s.apiGetAccount)
			r.Delete("/{id}", s.apiDeleteAccount)
			r.Post("/{id}/contact", s.apiMarkContacted)
			r.Get("/{id}/notes", s.apiListNotes)
			r.Post("/{id}/notes", s.apiAddNote)
		})

		r.Route("/visits", func(r chi.Router) {
			r.Get("/", s.apiListVisits)
			r.Post("/", s.apiAddVisit)
			r.Post("/{id}/complete", s.apiCompleteVisit)
			r.Delete("/{id}", s.apiDeleteVisit)
		})

		r.Get("/agenda", s.apiAgenda)
		r.Get("/agenda/stream", s.apiAgendaStream)
		r.Get("/prospects", s.apiProspects)
		r.Post("/import", s.apiImport)
	})

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Feed returns the live snapshot feed behind the agenda stream.
func (s *Server) Feed() *feed.Feed {
	return s.feed
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

// countRequests records requests by route pattern so IDs do not explode
// label cardinality.
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}

// refresh republishes the feed after a write made through the API.
func (s *Server) refresh(ctx context.Context) {
	if s.feed.Subscribers() == 0 {
		return
	}
	// Refresh reports failures to subscribers and logs them.
	_ = s.feed.Refresh(context.WithoutCancel(ctx))
}
