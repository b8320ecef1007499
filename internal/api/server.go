package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/certbind/internal/api/handler"
	mw "github.com/edvin/certbind/internal/api/middleware"
	"github.com/edvin/certbind/internal/challenge"
	"github.com/edvin/certbind/internal/core"
)

// ReadyCheck is one dependency probed by /readyz.
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Server struct {
	router     chi.Router
	logger     zerolog.Logger
	services   *core.Services
	challenges challenge.Store
	checks     []ReadyCheck
}

func NewServer(logger zerolog.Logger, services *core.Services, challenges challenge.Store, checks ...ReadyCheck) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		logger:     logger,
		services:   services,
		challenges: challenges,
		checks:     checks,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	// The ACME authority fetches challenge responses here; no auth.
	chal := handler.NewChallenge(s.challenges)
	s.router.Get("/.well-known/acme-challenge/{token}", chal.Get)

	domain := handler.NewDomain(s.services.Domain)
	s.router.Post("/domains", domain.Submit)
	s.router.Post("/domains/validate", domain.Validate)

	order := handler.NewOrder(s.services.Order)
	s.router.Get("/domains/{domain}", order.Get)
	s.router.Get("/domains/{domain}/audit", order.ListAudit)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleReadyz runs every check concurrently and reports each result.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var mu sync.Mutex
	results := make(map[string]string, len(s.checks))
	var g errgroup.Group
	for _, c := range s.checks {
		g.Go(func() error {
			err := c.Check(ctx)
			status := "ok"
			if err != nil {
				status = err.Error()
			}
			mu.Lock()
			results[c.Name] = status
			mu.Unlock()
			return err
		})
	}
	healthy := g.Wait() == nil

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(results)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
