// Package http serves the ledger to an external UI as a JSON API, with
// Server-Sent Events streams for live views.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"cashbook/internal/backup"
	"cashbook/internal/ledger"
	"cashbook/internal/log"
	"cashbook/internal/middleware/security"
	"cashbook/internal/middleware/trace"
	"cashbook/internal/settings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps is what the server needs from the rest of the application.
type Deps struct {
	Ledger   *ledger.Ledger
	Backup   *backup.Engine
	Settings *settings.Store
	Logger   *log.Logger

	// Location interprets plain dates in query parameters. Defaults to
	// time.Local.
	Location *time.Location
	// Now is the clock used for defaults and reminder previews.
	Now func() time.Time
	// MutationsPerMinute caps writes per client IP.
	MutationsPerMinute int
}

type Server struct {
	http.Server
	ledger   *ledger.Ledger
	backup   *backup.Engine
	settings *settings.Store
	logger   *log.Logger
	loc      *time.Location
	now      func() time.Time

	tracer       *trace.Middleware
	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}
	s := &Server{
		ledger:      deps.Ledger,
		backup:      deps.Backup,
		settings:    deps.Settings,
		logger:      logger.WithComponent(log.ComponentHTTP),
		loc:         deps.Location,
		now:         deps.Now,
		tracer:      trace.NewMiddleware(logger),
		rateLimiter: newRateLimiter(deps.MutationsPerMinute),
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(trace.RequestID))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimiter.limitMutations)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.handleListAccounts)
			r.Post("/", s.handleCreateAccount)
			r.Get("/stats", s.handleAccountStats)
			r.Get("/{id}", s.handleGetAccount)
			r.Put("/{id}", s.handleUpdateAccount)
			r.Delete("/{id}", s.handleDeleteAccount)
			r.Get("/{id}/balance", s.handleAccountBalance)
			r.Get("/{id}/totals", s.handleAccountTotals)
			r.Get("/{id}/transactions", s.handleAccountTransactions)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Get("/recent", s.handleRecentTransactions)
			r.Get("/range", s.handleTransactionsBetween)
			r.Get("/orphaned", s.handleOrphanedTransactions)
			r.Get("/{id}", s.handleGetTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})

		r.Route("/planned", func(r chi.Router) {
			r.Get("/", s.handleListPlanned)
			r.Post("/", s.handleCreatePlanned)
			r.Get("/due", s.handlePlannedDue)
			r.Get("/kind/{kind}", s.handlePlannedByKind)
			r.Get("/{id}", s.handleGetPlanned)
			r.Post("/{id}/complete", s.handleCompletePlanned)
			r.Delete("/{id}", s.handleDeletePlanned)
		})

		r.Get("/balance", s.handleTotalBalance)
		r.Get("/balance/legacy/{kind}", s.handleLegacyBalance)

		r.Get("/backup", s.handleBackup)
		r.Post("/restore", s.handleRestore)
		r.Get("/reminders", s.handleReminders)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)
		r.Post("/setup", s.handleSetup)

		r.Get("/live/{view}", s.handleLive)
	})

	return r
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics returns request counters collected by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
