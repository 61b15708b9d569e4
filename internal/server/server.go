// Package server exposes the layout pipeline over HTTP.
//
// Routes:
//
//	POST /v1/layout       lay out a JSON tune or book, returns a job id and the sheets
//	GET  /v1/sheets/{id}  the sheets of an earlier job
//	GET  /v1/config       the layout policy the server uses
//	GET  /healthz         liveness and build information
//
// Results are kept in the runner's cache under the job id for
// [cache.TTLJob], so any instance sharing a Redis cache can answer for them.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/matzehuels/engraver/pkg/buildinfo"
	"github.com/matzehuels/engraver/pkg/cache"
	errs "github.com/matzehuels/engraver/pkg/errors"
	"github.com/matzehuels/engraver/pkg/io"
	"github.com/matzehuels/engraver/pkg/observability"
	"github.com/matzehuels/engraver/pkg/pipeline"
	"github.com/matzehuels/engraver/pkg/sheet"
)

// MaxBodyBytes bounds the size of a layout request.
const MaxBodyBytes = 8 << 20

// Server handles layout requests.
type Server struct {
	runner *pipeline.Runner
	opts   pipeline.Options
	logger *log.Logger
}

// New returns a server laying out tunes with runner. opts is the base
// policy; requests may only override its width.
func New(runner *pipeline.Runner, opts pipeline.Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = runner.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &Server{runner: runner, opts: opts, logger: runner.Logger}, nil
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/layout", s.layout)
		r.Get("/sheets/{id}", s.sheets)
		r.Get("/config", s.config)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			return err
		}
		return ctx.Err()
	}
}

// =============================================================================
// Handlers
// =============================================================================

// Job is the response of a layout request.
type Job struct {
	ID     string        `json:"id"`
	Sheets []sheet.Sheet `json:"sheets"`
	Failed []string      `json:"failed,omitempty"`
}

func (s *Server) layout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tunes, err := io.ReadBook(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	opts := s.opts
	if v := r.URL.Query().Get("width"); v != "" {
		width, err := strconv.ParseFloat(v, 64)
		if err != nil || width <= 0 {
			s.fail(w, r, errs.New(errs.ErrCodeInvalidInput, "invalid width %q", v))
			return
		}
		opts = s.rebased(width)
	}
	opts.Refresh = r.URL.Query().Get("refresh") == "true"

	res, err := s.runner.Execute(ctx, opts, tunes)
	if res == nil {
		s.fail(w, r, err)
		return
	}
	job := Job{ID: uuid.New().String(), Sheets: res.Sheets}
	if job.Sheets == nil {
		job.Sheets = []sheet.Sheet{}
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		job.Failed = append(job.Failed, err.Error())
	}

	data, err := json.Marshal(job)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.runner.Cache.Set(ctx, s.runner.Keyer.JobKey(job.ID), data, cache.TTLJob); err != nil {
		s.logger.Warn("store job failed", "id", job.ID, "err", err)
	} else {
		observability.Cache().OnCacheSet(ctx, "job", len(data))
	}

	status := http.StatusOK
	if len(job.Sheets) == 0 && len(job.Failed) > 0 {
		status = http.StatusUnprocessableEntity
	}
	writeRaw(w, status, data)
}

// rebased returns the base options with another line width.
func (s *Server) rebased(width float64) pipeline.Options {
	l := s.opts.Policy()
	return pipeline.Options{Layout: &l, Width: width, Metrics: s.opts.Metrics, Logger: s.opts.Logger}
}

func (s *Server) sheets(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		s.fail(w, r, errs.New(errs.ErrCodeInvalidInput, "invalid job id %q", id))
		return
	}
	data, hit, err := s.runner.Cache.Get(r.Context(), s.runner.Keyer.JobKey(id))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !hit {
		observability.Cache().OnCacheMiss(r.Context(), "job")
		s.fail(w, r, errs.New(errs.ErrCodeNotFound, "job %s not found", id))
		return
	}
	observability.Cache().OnCacheHit(r.Context(), "job")
	writeRaw(w, http.StatusOK, data)
}

func (s *Server) config(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Policy())
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		buildinfo.Info
	}{"ok", buildinfo.Get()})
}

// =============================================================================
// Responses
// =============================================================================

type errorBody struct {
	Error string    `json:"error"`
	Code  errs.Code `json:"code,omitempty"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
		observability.HTTP().OnError(r.Context(), r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, errorBody{Error: errs.UserMessage(err), Code: errs.GetCode(err)})
}

func statusOf(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	switch errs.GetCode(err) {
	case errs.ErrCodeInvalidInput, errs.ErrCodeInvalidFormat, errs.ErrCodeInvalidConfig:
		return http.StatusBadRequest
	case errs.ErrCodeNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, data)
}

func writeRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// observe reports every request to the HTTP hooks.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, ww.Status(), time.Since(start))
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "id", middleware.GetReqID(r.Context()), "duration", time.Since(start))
	})
}
