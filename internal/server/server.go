// Package server exposes the clustering engine over HTTP.
//
// Routes:
//
//	POST /api/cluster      upload a sheet, receive the cluster table
//	GET  /api/runs         recent runs (when a store is configured)
//	GET  /api/runs/{id}    one run with its table
//	GET  /health           liveness
//	GET  /metrics          Prometheus scrape
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/cognicore/keyclust/internal/metrics"
	"github.com/cognicore/keyclust/pkg/keyclust"
	"github.com/cognicore/keyclust/pkg/keyclust/internalerr"
	"github.com/cognicore/keyclust/pkg/keyclust/sheet"
	"github.com/cognicore/keyclust/pkg/keyclust/store"
)

// Config holds service limits.
type Config struct {
	MaxJobs        int64
	JobTimeout     time.Duration
	MaxUploadBytes int64
}

// DefaultConfig returns the limits used when none are given.
func DefaultConfig() Config {
	return Config{
		MaxJobs:        4,
		JobTimeout:     2 * time.Minute,
		MaxUploadBytes: 32 << 20,
	}
}

// Server handles clustering requests.
type Server struct {
	engine  *keyclust.Engine
	metrics *metrics.Metrics
	store   store.Store
	jobs    *semaphore.Weighted
	cfg     Config
	logger  *slog.Logger
}

// New creates a Server. st may be nil, in which case runs are not kept.
func New(engine *keyclust.Engine, m *metrics.Metrics, st store.Store, cfg Config) *Server {
	def := DefaultConfig()
	if cfg.MaxJobs <= 0 {
		cfg.MaxJobs = def.MaxJobs
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = def.MaxUploadBytes
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Server{
		engine:  engine,
		metrics: m,
		store:   st,
		jobs:    semaphore.NewWeighted(cfg.MaxJobs),
		cfg:     cfg,
		logger:  slog.Default().With("component", "cluster-server"),
	}
}

// Handler builds the routed handler wrapped in request metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/cluster", s.Cluster)
	mux.HandleFunc("GET /api/runs", s.ListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.GetRun)
	mux.HandleFunc("GET /health", s.Health)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return withMetrics(s.metrics, mux)
}

// Cluster reads an uploaded sheet, runs the engine and streams the table
// back in the requested format.
func (s *Server) Cluster(w http.ResponseWriter, r *http.Request) {
	if !s.jobs.TryAcquire(1) {
		s.metrics.JobsTotal.WithLabelValues("busy").Inc()
		s.writeError(w, http.StatusServiceUnavailable, "too many clustering jobs in progress, retry later")
		return
	}
	defer s.jobs.Release(1)

	outFormat := sheet.XLSX
	if v := r.URL.Query().Get("format"); v != "" {
		f, err := sheet.ParseFormat(v)
		if err != nil {
			s.fail(w, err)
			return
		}
		outFormat = f
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	data, name, inFormat, err := readUpload(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	cols := s.engine.Rules().Columns
	raw, err := sheet.Read(bytes.NewReader(data), inFormat, sheet.ReadOptions{
		PhraseColumn: cols.Phrase,
		VolumeColumn: cols.Volume,
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.JobTimeout)
	defer cancel()

	res, err := s.engine.RunRaw(ctx, name, raw)
	if err != nil {
		s.fail(w, err)
		return
	}
	rep := res.Report
	s.metrics.ObserveReport(rep)

	if s.store != nil {
		if err := s.store.SaveRun(ctx, rep); err != nil {
			s.logger.Error("failed to save run", "run", rep.ID, "error", err)
		}
	}

	var buf bytes.Buffer
	if err := sheet.Write(&buf, outFormat, rep); err != nil {
		s.logger.Error("failed to render report", "run", rep.ID, "format", outFormat, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to render report")
		return
	}

	h := w.Header()
	h.Set("Content-Type", outFormat.ContentType())
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": "keyclust-" + rep.ID + "." + string(outFormat),
	}))
	h.Set("X-Keyclust-Run", rep.ID)
	h.Set("X-Keyclust-Merged", strconv.Itoa(rep.Metrics.Merged))
	h.Set("X-Keyclust-Categories", strconv.Itoa(rep.Metrics.Categories))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Warn("failed to write response", "run", rep.ID, "error", err)
	}
}

// readUpload accepts a multipart "file" field or a raw request body. The
// input format comes from the "input" query parameter, the file name, or
// the content type, in that order, and defaults to xlsx.
func readUpload(r *http.Request) ([]byte, string, sheet.Format, error) {
	var (
		data []byte
		name string
		err  error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, hdr, ferr := r.FormFile("file")
		if ferr != nil {
			var tooBig *http.MaxBytesError
			if errors.As(ferr, &tooBig) {
				return nil, "", "", fmt.Errorf("read upload: %w", ferr)
			}
			return nil, "", "", fmt.Errorf("%w: multipart field \"file\": %v", internalerr.ErrInvalidInput, ferr)
		}
		defer file.Close()
		name = filepath.Base(hdr.Filename)
		data, err = io.ReadAll(file)
	} else {
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		return nil, "", "", err
	}

	format, err := inputFormat(r, name, mediaType)
	if err != nil {
		return nil, "", "", err
	}
	if !format.Readable() {
		return nil, "", "", fmt.Errorf("%w: cannot read %s input", internalerr.ErrUnsupportedFormat, format)
	}
	return data, name, format, nil
}

func inputFormat(r *http.Request, name, mediaType string) (sheet.Format, error) {
	if v := r.URL.Query().Get("input"); v != "" {
		return sheet.ParseFormat(v)
	}
	if name != "" {
		return sheet.FormatFromPath(name)
	}
	if mediaType == "text/csv" {
		return sheet.CSV, nil
	}
	return sheet.XLSX, nil
}

// fail maps pipeline errors to status codes.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var (
		status int
		result string
		tooBig *http.MaxBytesError
	)
	switch {
	case errors.Is(err, internalerr.ErrEmptyInput):
		status, result = http.StatusUnprocessableEntity, "empty"
	case errors.Is(err, internalerr.ErrTooManyRows), errors.As(err, &tooBig):
		status, result = http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, internalerr.ErrMissingColumn),
		errors.Is(err, internalerr.ErrUnsupportedFormat),
		errors.Is(err, internalerr.ErrInvalidInput):
		status, result = http.StatusBadRequest, "bad_input"
	case errors.Is(err, context.DeadlineExceeded):
		status, result = http.StatusGatewayTimeout, "timeout"
	default:
		status, result = http.StatusInternalServerError, "error"
		s.logger.Error("clustering failed", "error", err)
	}
	s.metrics.JobsTotal.WithLabelValues(result).Inc()
	s.writeError(w, status, err.Error())
}

// ListRuns returns recent run headers.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusNotFound, "run history is not enabled")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list runs", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

// GetRun returns a run header and its table.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusNotFound, "run history is not enabled")
		return
	}
	id := r.PathValue("id")
	run, ok, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to fetch run", "run", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to fetch run")
		return
	}
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	rows, err := s.store.GetRows(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to fetch rows", "run", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to fetch run")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"run": run, "rows": rows})
}

// Health returns the service status.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "keyclust"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": strings.TrimSpace(message)})
}
