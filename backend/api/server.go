/*
 * backend/api/server.go
 *
 * HTTP surface for batch comparison jobs.
 * - Submit, list, inspect and cancel jobs.
 * - Render finished job results in any report format.
 * - Stream job state changes over a websocket.
 */

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/luxury-yacht/driftcheck/backend/batch"
	"github.com/luxury-yacht/driftcheck/backend/compare/ignore"
	"github.com/luxury-yacht/driftcheck/backend/logging"
	"github.com/luxury-yacht/driftcheck/backend/report"
)

const (
	// CorrelationIDHeader is the HTTP header used for request correlation.
	CorrelationIDHeader = "X-Correlation-ID"

	serverLogSource = "API"

	comparisonsPath = "/api/v1/comparisons"
	jobsPath        = "/api/v1/jobs/"
	ignorePath      = "/api/v1/ignore"
	logsPath        = "/api/v1/logs"
)

var (
	errJobIDNotSpecified = errors.New("job id not specified")
	errJobNotFinished    = errors.New("job has not finished")
	errNoPairs           = errors.New("request contains no pairs")
)

// JobQueue is the part of batch.Queue the API depends on.
type JobQueue interface {
	Enqueue(ctx context.Context, pairs []batch.Pair) (*batch.Job, error)
	Status(jobID string) (*batch.Job, bool)
	List() []*batch.Job
	Cancel(jobID string) (*batch.Job, bool)
}

// LogHistory exposes recent log entries.
type LogHistory interface {
	GetEntries() []logging.LogEntry
}

// Dependencies wires a Server.
type Dependencies struct {
	Queue  JobQueue
	Ignore *ignore.Store
	Logger logging.Interface
	// Logs is optional; without it the logs endpoint returns an empty list.
	Logs LogHistory
}

// Server exposes HTTP endpoints for batch comparisons.
type Server struct {
	deps Dependencies
	hub  *watchHandler
}

// NewServer constructs an API server instance.
func NewServer(deps Dependencies) (*Server, error) {
	if deps.Queue == nil {
		return nil, errors.New("job queue is required")
	}
	deps.Logger = logging.OrNoop(deps.Logger)
	return &Server{deps: deps, hub: newWatchHandler(deps.Queue, deps.Logger)}, nil
}

// Register attaches the API routes to the provided mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc(comparisonsPath, s.handleComparisons)
	mux.HandleFunc(jobsPath, s.handleJob)
	mux.HandleFunc(ignorePath, s.handleIgnore)
	mux.HandleFunc(logsPath, s.handleLogs)
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

type comparisonRequest struct {
	Pairs []batch.Pair `json:"pairs"`
}

func (s *Server) handleComparisons(w http.ResponseWriter, r *http.Request) {
	if !applyCORS(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	correlationID := getCorrelationID(r)

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.deps.Queue.List(), correlationID)
	case http.MethodPost:
		var body comparisonRequest
		if r.Body != nil {
			defer r.Body.Close()
			data, err := io.ReadAll(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, err, correlationID)
				return
			}
			if len(data) > 0 {
				if err := json.Unmarshal(data, &body); err != nil {
					writeError(w, http.StatusBadRequest, err, correlationID)
					return
				}
			}
		}
		if len(body.Pairs) == 0 {
			writeError(w, http.StatusBadRequest, errNoPairs, correlationID)
			return
		}

		job, err := s.deps.Queue.Enqueue(r.Context(), body.Pairs)
		if err != nil {
			writeError(w, http.StatusBadRequest, err, correlationID)
			return
		}
		s.deps.Logger.Info(fmt.Sprintf("Queued job %s with %d pairs (correlation %s)", job.ID, len(job.Pairs), correlationID), serverLogSource)
		writeJSON(w, http.StatusAccepted, job, correlationID)
	default:
		setCorrelationID(w, correlationID)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleJob serves /api/v1/jobs/{id}, /api/v1/jobs/{id}/report and /api/v1/jobs/{id}/watch.
func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	jobID, sub, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, jobsPath), "/")
	switch sub {
	case "":
		s.handleJobStatus(w, r, jobID)
	case "report":
		s.handleJobReport(w, r, jobID)
	case "watch":
		s.hub.serve(w, r, jobID)
	default:
		setCorrelationID(w, getCorrelationID(r))
		http.NotFound(w, r)
	}
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	if !applyCORS(w, r, http.MethodGet, http.MethodDelete) {
		return
	}

	correlationID := getCorrelationID(r)

	if jobID == "" {
		writeError(w, http.StatusBadRequest, errJobIDNotSpecified, correlationID)
		return
	}

	var (
		job *batch.Job
		ok  bool
	)
	switch r.Method {
	case http.MethodGet:
		job, ok = s.deps.Queue.Status(jobID)
	case http.MethodDelete:
		job, ok = s.deps.Queue.Cancel(jobID)
	default:
		setCorrelationID(w, correlationID)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !ok {
		setCorrelationID(w, correlationID)
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, job, correlationID)
}

func (s *Server) handleJobReport(w http.ResponseWriter, r *http.Request, jobID string) {
	if !applyCORS(w, r, http.MethodGet) {
		return
	}

	correlationID := getCorrelationID(r)

	if jobID == "" {
		writeError(w, http.StatusBadRequest, errJobIDNotSpecified, correlationID)
		return
	}
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err, correlationID)
		return
	}

	job, ok := s.deps.Queue.Status(jobID)
	if !ok {
		setCorrelationID(w, correlationID)
		http.NotFound(w, r)
		return
	}
	if job.Result == nil {
		writeError(w, http.StatusConflict, errJobNotFinished, correlationID)
		return
	}

	setCorrelationID(w, correlationID)
	w.Header().Set("Content-Type", contentType(format))
	opts := report.Options{ShowMatches: r.URL.Query().Get("matches") == "true"}
	if err := report.Write(w, format, job.Result, opts); err != nil {
		s.deps.Logger.Error(fmt.Sprintf("Failed to render report for job %s: %v", jobID, err), serverLogSource)
	}
}

func (s *Server) handleIgnore(w http.ResponseWriter, r *http.Request) {
	if !applyCORS(w, r, http.MethodGet) {
		return
	}

	correlationID := getCorrelationID(r)

	if r.Method != http.MethodGet {
		setCorrelationID(w, correlationID)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	patterns := s.deps.Ignore.Load().Patterns()
	if patterns == nil {
		patterns = []string{}
	}
	writeJSON(w, http.StatusOK, ignore.FileConfig{IgnoreFields: patterns}, correlationID)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if !applyCORS(w, r, http.MethodGet) {
		return
	}

	correlationID := getCorrelationID(r)

	if r.Method != http.MethodGet {
		setCorrelationID(w, correlationID)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	entries := []logging.LogEntry{}
	if s.deps.Logs != nil {
		entries = append(entries, s.deps.Logs.GetEntries()...)
	}
	writeJSON(w, http.StatusOK, entries, correlationID)
}

func contentType(format report.Format) string {
	switch format {
	case report.FormatYAML:
		return "application/yaml"
	case report.FormatTable:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// getCorrelationID extracts the correlation ID from the request header or generates a new one.
func getCorrelationID(r *http.Request) string {
	if id := r.Header.Get(CorrelationIDHeader); id != "" {
		return id
	}
	return uuid.NewString()[:8]
}

// setCorrelationID sets the correlation ID on the response header.
func setCorrelationID(w http.ResponseWriter, correlationID string) {
	if correlationID != "" {
		w.Header().Set(CorrelationIDHeader, correlationID)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any, correlationID string) {
	setCorrelationID(w, correlationID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error, correlationID string) {
	w.Header().Set("Content-Type", "application/json")
	setCorrelationID(w, correlationID)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Code          string `json:"code"`
		Message       string `json:"message"`
		CorrelationID string `json:"correlationId,omitempty"`
	}{
		Code:          http.StatusText(status),
		Message:       err.Error(),
		CorrelationID: correlationID,
	})
}

func applyCORS(w http.ResponseWriter, r *http.Request, allowedMethods ...string) bool {
	origin := r.Header.Get("Origin")
	if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
	}

	if r.Method == http.MethodOptions {
		allowMethods := strings.Join(append(allowedMethods, http.MethodOptions), ", ")
		w.Header().Set("Access-Control-Allow-Methods", allowMethods)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+CorrelationIDHeader)
		w.WriteHeader(http.StatusNoContent)
		return false
	}
	return true
}
