package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DeafMist/blog-search/backend/internal/config"
	"github.com/DeafMist/blog-search/backend/internal/metrics"
	"github.com/DeafMist/blog-search/backend/internal/models"
	"github.com/DeafMist/blog-search/backend/internal/render"
	"github.com/DeafMist/blog-search/backend/internal/search"
	"github.com/DeafMist/blog-search/backend/internal/searchfilter"
	"github.com/DeafMist/blog-search/backend/internal/session"
)

type postIndex interface {
	Posts() []models.Post
	Ready() bool
}

type queryPublisher interface {
	Publish(session, query string, hits int)
}

// healthChecker reports whether the backing index store is reachable.
type healthChecker interface {
	Health(ctx context.Context) error
}

type server struct {
	log      *slog.Logger
	cfg      *config.API
	idx      postIndex
	sessions *session.Store
	qlog     queryPublisher
	backend  healthChecker
}

// newServer wires the handlers. backend may be nil when the index does not
// come from a live store.
func newServer(log *slog.Logger, cfg *config.API, idx postIndex, qlog queryPublisher, backend healthChecker) *server {
	s := &server{log: log, cfg: cfg, idx: idx, qlog: qlog, backend: backend}
	s.sessions = session.NewStore(cfg.SessionCapacity, cfg.SessionTTL, func(id string, results *searchfilter.Buffer) *searchfilter.Component {
		c := searchfilter.New(idx, &searchfilter.TextInput{}, results, cfg.MaxResults, log)
		c.OnQuery = func(query string, hits int) {
			s.observe(id, query, hits)
		}
		return c
	})
	return s
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/health", s.handleHealth)
	r.Get("/search", s.handleSearch)
	r.Get("/search/fragment", s.handleFragment)
	r.Post("/sessions", s.handleCreateSession)
	r.Post("/sessions/{id}/input", s.handleInput)
	r.Get("/sessions/{id}/results", s.handleResults)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Records int    `json:"records"`
	Error   string `json:"error,omitempty"`
}

type searchResponse struct {
	Query string        `json:"query"`
	Total int           `json:"total"`
	Items []models.Post `json:"items"`
}

type sessionResponse struct {
	ID string `json:"id"`
}

type inputRequest struct {
	Seq   uint64 `json:"seq"`
	Query string `json:"q"`
}

type inputResponse struct {
	Seq     uint64 `json:"seq"`
	Applied bool   `json:"applied"`
	Count   int    `json:"count"`
	HTML    string `json:"html"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Ready:   s.idx.Ready(),
		Records: len(s.idx.Posts()),
	}

	if s.backend != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.backend.Health(ctx); err != nil {
			resp.Status = "degraded"
			resp.Error = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// query runs a stateless search and records it.
func (s *server) query(sessionID, raw string) []models.Post {
	q := search.Normalize(raw)
	hits := search.Filter(s.idx.Posts(), q, s.cfg.MaxResults)
	s.observe(sessionID, q, len(hits))
	return hits
}

func (s *server) observe(sessionID, query string, hits int) {
	metrics.ObserveQuery(query, hits)
	if query != "" && s.qlog != nil {
		s.qlog.Publish(sessionID, query, hits)
	}
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("q")
	hits := s.query("", raw)
	if hits == nil {
		hits = []models.Post{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: raw, Total: len(hits), Items: hits})
}

func (s *server) handleFragment(w http.ResponseWriter, r *http.Request) {
	hits := s.query("", r.URL.Query().Get("q"))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if err := render.Write(w, hits); err != nil {
		s.log.Warn("render fragment", slog.Any("err", err))
	}
}

func (s *server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	sess := s.sessions.Create()
	writeJSON(w, http.StatusCreated, sessionResponse{ID: sess.ID})
}

func (s *server) handleInput(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		return
	}

	var req inputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Seq == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "seq must be positive"})
		return
	}

	res := sess.Component.Apply(req.Seq, req.Query)
	// Non-empty queries are observed through the component's OnQuery hook.
	if !res.Applied {
		metrics.StaleInputsTotal.Inc()
	} else if search.Normalize(req.Query) == "" {
		metrics.ObserveQuery("", 0)
	}

	writeJSON(w, http.StatusOK, inputResponse{
		Seq:     res.Seq,
		Applied: res.Applied,
		Count:   len(res.Hits),
		HTML:    sess.Results.HTML(),
	})
}

func (s *server) handleResults(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Search-Seq", strconv.FormatUint(sess.Component.LastSeq(), 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(sess.Results.HTML()))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
