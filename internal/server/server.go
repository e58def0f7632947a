// Package server exposes the packing pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz                      build info
//	POST /v1/pack                      pack a measurement set
//	GET  /v1/layouts/{hash}            fetch a cached layout by measurement hash
//	GET  /v1/layouts/{hash}/chart      render a cached layout's column chart
//
// Layout lookups take the packing options as query parameters (columns,
// spacing, axis, cross_extent) because a measurement hash alone does not
// identify a layout.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/waterfall/pkg/buildinfo"
	"github.com/matzehuels/waterfall/pkg/chart"
	"github.com/matzehuels/waterfall/pkg/errors"
	pkgio "github.com/matzehuels/waterfall/pkg/io"
	"github.com/matzehuels/waterfall/pkg/observability"
	"github.com/matzehuels/waterfall/pkg/pipeline"
)

const (
	// MaxBodyBytes caps request bodies.
	MaxBodyBytes = 8 << 20

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 5 * time.Second
)

// Server serves the HTTP API on top of a pipeline runner.
type Server struct {
	runner   *pipeline.Runner
	defaults pipeline.Options
	logger   *log.Logger
	router   chi.Router
}

// New creates a server. Requests that omit an option inherit it from
// defaults, which usually come from the CLI flags and config file.
func New(runner *pipeline.Runner, defaults pipeline.Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		runner:   runner,
		defaults: defaults,
		logger:   logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/pack", s.handlePack)
		r.Get("/layouts/{hash}", s.handleLayout)
		r.Get("/layouts/{hash}/chart", s.handleChart)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("graceful shutdown failed", "error", err)
		_ = srv.Close()
	}
	s.logger.Info("server stopped")
	return nil
}

// =============================================================================
// Middleware
// =============================================================================

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		observability.HTTP().OnRequest(r.Context(), r.Method, r.URL.Path)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		observability.HTTP().OnResponse(r.Context(), r.Method, r.URL.Path, status, elapsed)
		s.logger.Debug("request",
			"id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", elapsed)
	})
}

// =============================================================================
// Handlers
// =============================================================================

type healthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Build: buildinfo.Get()})
}

// PackRequest is the body of POST /v1/pack. Omitted options fall back to
// the server defaults.
type PackRequest struct {
	Columns     *int         `json:"columns,omitempty"`
	Spacing     *float64     `json:"spacing,omitempty"`
	Axis        *string      `json:"axis,omitempty"`
	CrossExtent *float64     `json:"cross_extent,omitempty"`
	Refresh     bool         `json:"refresh,omitempty"`
	Items       []pkgio.Item `json:"items"`
}

// LayoutResponse is returned by the pack and layout endpoints.
type LayoutResponse struct {
	pkgio.LayoutDocument
	Hash     string           `json:"hash"`
	Cached   bool             `json:"cached"`
	Items    int              `json:"items"`
	Placed   int              `json:"placed"`
	PackTime float64          `json:"pack_time_ms"`
	Balance  pipeline.Balance `json:"balance"`
}

func newLayoutResponse(res *pipeline.Result) LayoutResponse {
	return LayoutResponse{
		LayoutDocument: pkgio.NewLayoutDocument(res.Layout),
		Hash:           res.MeasurementHash,
		Cached:         res.CacheHit,
		Items:          res.Stats.Items,
		Placed:         res.Stats.Placed,
		PackTime:       float64(res.Stats.PackTime.Microseconds()) / 1000,
		Balance:        res.Stats.Balance,
	}
}

func (s *Server) handlePack(w http.ResponseWriter, r *http.Request) {
	var req PackRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	if req.Items == nil {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "items is required"))
		return
	}

	m, err := pkgio.FromItems(req.Items)
	if err != nil {
		s.writeError(w, err)
		return
	}

	opts := s.defaults.Fresh()
	if req.Columns != nil {
		opts.Columns = *req.Columns
	}
	if req.Spacing != nil {
		opts.Spacing = *req.Spacing
	}
	if req.Axis != nil {
		opts.Axis = *req.Axis
	}
	if req.CrossExtent != nil {
		opts.CrossExtent = *req.CrossExtent
	}
	opts.Refresh = req.Refresh

	res, err := s.runner.Pack(r.Context(), m, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newLayoutResponse(res))
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	res, ok := s.cachedLayout(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newLayoutResponse(res))
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	copts := chart.Options{Title: q.Get("title"), Theme: q.Get("theme"), Format: q.Get("format")}
	copts.SetDefaults()
	if err := copts.Validate(); err != nil {
		s.writeError(w, err)
		return
	}

	res, ok := s.cachedLayout(w, r)
	if !ok {
		return
	}

	renderer := chart.Renderer{Cache: s.runner.Cache, Keyer: s.runner.Keyer, Logger: s.logger}
	data, _, err := renderer.Render(r.Context(), res.Layout, copts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", copts.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// cachedLayout resolves {hash} plus query options to a cached layout,
// writing the error response itself when it cannot.
func (s *Server) cachedLayout(w http.ResponseWriter, r *http.Request) (*pipeline.Result, bool) {
	hash := chi.URLParam(r, "hash")
	opts, err := s.queryOptions(r)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	res, ok, err := s.runner.Cached(r.Context(), hash, opts)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	if !ok {
		s.writeError(w, errors.New(errors.ErrCodeNotFound, "no cached layout for %s", hash))
		return nil, false
	}
	return res, true
}

func (s *Server) queryOptions(r *http.Request) (pipeline.Options, error) {
	opts := s.defaults.Fresh()
	q := r.URL.Query()
	if v := q.Get("columns"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "columns")
		}
		opts.Columns = n
	}
	for name, dst := range map[string]*float64{"spacing": &opts.Spacing, "cross_extent": &opts.CrossExtent} {
		if v := q.Get(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "%s", name)
			}
			*dst = f
		}
	}
	if v := q.Get("axis"); v != "" {
		opts.Axis = v
	}
	return opts, nil
}

// =============================================================================
// Responses
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps err to a status. Server-side failures are logged and
// reported without detail.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		writeJSONError(w, http.StatusRequestEntityTooLarge, tooLarge.Error())
		return
	}
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		writeJSONError(w, status, http.StatusText(status))
		return
	}
	writeJSONError(w, status, errors.UserMessage(err))
}
