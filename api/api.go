// Package api exposes the HTTP surface: scenario listing, on-demand runs,
// and stored report retrieval.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/houndci/sitecheck/catalog"
	"github.com/houndci/sitecheck/runner"
	"github.com/houndci/sitecheck/store"
)

// Config tunes the HTTP server.
type Config struct {
	// TokenHash is a bcrypt hash of the API bearer token. Empty disables
	// authentication; /healthz is always open.
	TokenHash string `yaml:"token_hash"`

	// RunsPerMinute limits on-demand scenario runs per client IP.
	// Default: 10.
	RunsPerMinute int `yaml:"runs_per_minute"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.RunsPerMinute <= 0 {
		c.RunsPerMinute = 10
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Server holds the handler dependencies.
type Server struct {
	runner  *runner.Runner
	cat     *catalog.Catalog
	reports *store.Store // optional; nil disables /api/runs
	cfg     Config
}

// New creates a Server. reports may be nil when nothing is persisted.
func New(run *runner.Runner, cat *catalog.Catalog, reports *store.Store, cfg Config) *Server {
	cfg.defaults()
	return &Server{runner: run, cat: cat, reports: reports, cfg: cfg}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(securityHeaders)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	runLimit := newRateLimiter(s.cfg.RunsPerMinute, time.Minute)

	r.Group(func(r chi.Router) {
		r.Use(s.requestID)
		r.Use(s.requireToken)

		r.Get("/api/scenarios", s.handleScenarios)
		r.With(runLimit.middleware).Post("/api/scenarios/{name}/run", s.handleRun)
		r.Get("/api/runs", s.handleListRuns)
		r.Get("/api/runs/{id}", s.handleGetRun)
	})

	return r
}

// requireToken enforces the bearer token when one is configured.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.TokenHash == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || bcrypt.CompareHashAndPassword([]byte(s.cfg.TokenHash), []byte(token)) != nil {
			writeJSON(w, 401, map[string]string{"error": "invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// scenarioSummary is the listing entry for one plan.
type scenarioSummary struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	Device       string `json:"device,omitempty"`
	Elements     int    `json:"elements"`
	KeywordSets  int    `json:"keyword_sets"`
	Interactions int    `json:"interactions"`
}

func (s *Server) handleScenarios(w http.ResponseWriter, _ *http.Request) {
	out := make([]scenarioSummary, 0, len(s.cat.Plans))
	for _, p := range s.cat.Plans {
		out = append(out, scenarioSummary{
			Name:         p.Name,
			URL:          p.URL,
			Device:       p.Device,
			Elements:     len(p.Elements),
			KeywordSets:  len(p.Keywords),
			Interactions: len(p.Interactions),
		})
	}
	writeJSON(w, 200, out)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := s.cat.Plan(name); !ok {
		writeError(w, 404, fmt.Errorf("unknown scenario %q", name))
		return
	}
	report, err := s.runner.RunNamed(r.Context(), name)
	if err != nil {
		writeError(w, 500, err)
		return
	}
	writeJSON(w, 200, report)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		writeError(w, 503, fmt.Errorf("no report store configured"))
		return
	}
	f := store.ListFilter{
		Scenario:   r.URL.Query().Get("scenario"),
		FailedOnly: r.URL.Query().Get("failed") == "true",
		Limit:      queryInt(r, "limit", 50),
	}
	runs, err := s.reports.ListRuns(r.Context(), f)
	if err != nil {
		s.cfg.Logger.Error("api: list runs", "error", err)
		writeError(w, 500, err)
		return
	}
	if runs == nil {
		runs = []store.RunSummary{}
	}
	writeJSON(w, 200, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		writeError(w, 503, fmt.Errorf("no report store configured"))
		return
	}
	id := chi.URLParam(r, "id")
	report, err := s.reports.GetRun(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, 404, fmt.Errorf("run %q not found", id))
		return
	}
	if err != nil {
		s.cfg.Logger.Error("api: get run", "run_id", id, "error", err)
		writeError(w, 500, err)
		return
	}
	writeJSON(w, 200, report)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
