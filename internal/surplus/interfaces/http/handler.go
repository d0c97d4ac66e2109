package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"energy-surplus/internal/auth"
	"energy-surplus/internal/observability/metrics"
	surplusapp "energy-surplus/internal/surplus/application"
	surplus "energy-surplus/internal/surplus/domain"
	"energy-surplus/internal/surplus/interfaces/export"
	timeseries "energy-surplus/internal/timeseries/domain"
)

const timeLayout = time.RFC3339

// RunTrigger starts a corpus run.
type RunTrigger interface {
	Run(ctx context.Context, trigger string) (*surplus.Run, error)
}

// Handler provides surplus query, export and run endpoints.
type Handler struct {
	repo   surplus.Repository
	runner RunTrigger
	logger *log.Logger
	now    func() time.Time
}

// NewHandler constructs a handler. runner may be nil, which disables
// POST /api/v1/runs.
func NewHandler(repo surplus.Repository, runner RunTrigger, logger *log.Logger) (*Handler, error) {
	if repo == nil {
		return nil, errors.New("surplus handler: nil repository")
	}
	return &Handler{repo: repo, runner: runner, logger: logger, now: time.Now}, nil
}

// Register mounts the handler routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("/api/v1/surplus", h)
	mux.Handle("/api/v1/exports/", h)
	mux.Handle("/api/v1/runs", h)
	mux.Handle("/api/v1/runs/", h)
}

// ServeHTTP handles /api/v1/surplus, /api/v1/exports/* and /api/v1/runs*.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/surplus":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleSurplus(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/exports/"):
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleExport(w, r)
	case r.URL.Path == "/api/v1/runs":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleTrigger(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/runs/"):
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleRun(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type surplusResponse struct {
	RunID string               `json:"run_id"`
	Rows  []surplus.SurplusRow `json:"rows"`
}

func (h *Handler) handleSurplus(w http.ResponseWriter, r *http.Request) {
	run, query, ok := h.resolveQuery(w, r)
	if !ok {
		return
	}
	rows, err := h.repo.QueryRows(r.Context(), query)
	if err != nil {
		http.Error(w, "query surplus error", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []surplus.SurplusRow{}
	}
	writeJSON(w, http.StatusOK, surplusResponse{RunID: run.ID, Rows: rows})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/v1/exports/")
	format, ok := exportFormat(name)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	run, query, ok := h.resolveQuery(w, r)
	if !ok {
		return
	}
	rows, err := h.repo.QueryRows(r.Context(), query)
	if err != nil {
		http.Error(w, "query surplus error", http.StatusInternalServerError)
		return
	}

	started := time.Now()
	data, contentType, err := h.render(r.Context(), format, run, rows)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveExport(format, result, time.Since(started))
	if err != nil {
		h.logf("event=surplus_export_failed format=%s run_id=%s error=%v", format, run.ID, err)
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "surplus_"+run.ID+"."+format))
	_, _ = w.Write(data)
}

func (h *Handler) render(ctx context.Context, format string, run *surplus.Run, rows []surplus.SurplusRow) ([]byte, string, error) {
	switch format {
	case "csv":
		var buf bytes.Buffer
		if err := export.WriteSurplusCSV(&buf, rows); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv", nil
	case "xlsx":
		diagnostics, err := h.repo.Diagnostics(ctx, run.ID)
		if err != nil {
			return nil, "", err
		}
		summary := export.BuildSummary(run, surplus.GroupRows(rows), diagnostics, h.now())
		data, err := export.BuildSurplusXLSX(summary, rows, diagnostics)
		return data, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", err
	case "parquet":
		data, err := export.BuildSurplusParquet(rows)
		return data, "application/vnd.apache.parquet", err
	default:
		return nil, "", fmt.Errorf("unsupported format %q", format)
	}
}

func exportFormat(name string) (string, bool) {
	switch name {
	case "surplus.csv":
		return "csv", true
	case "surplus.xlsx":
		return "xlsx", true
	case "surplus.parquet":
		return "parquet", true
	default:
		return "", false
	}
}

type runResponse struct {
	Run         *surplus.Run         `json:"run"`
	Diagnostics []surplus.Diagnostic `json:"diagnostics"`
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/runs/")
	if id == "" || strings.Contains(id, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var (
		run *surplus.Run
		err error
	)
	if id == "latest" {
		run, err = h.repo.LatestRun(r.Context(), surplus.RunStatus(r.URL.Query().Get("status")))
	} else {
		run, err = h.repo.GetRun(r.Context(), id)
	}
	if err != nil {
		respondRunError(w, err)
		return
	}
	diagnostics, err := h.repo.Diagnostics(r.Context(), run.ID)
	if err != nil {
		http.Error(w, "query diagnostics error", http.StatusInternalServerError)
		return
	}
	if diagnostics == nil {
		diagnostics = []surplus.Diagnostic{}
	}
	writeJSON(w, http.StatusOK, runResponse{Run: run, Diagnostics: diagnostics})
}

func (h *Handler) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		http.Error(w, "runner not configured", http.StatusServiceUnavailable)
		return
	}
	run, err := h.runner.Run(r.Context(), surplusapp.TriggerManual)
	if err != nil {
		if errors.Is(err, surplus.ErrRunInProgress) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		h.logf("event=surplus_run_trigger_failed error=%v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if caller, ok := auth.IdentityFromContext(r.Context()); ok {
		h.logf("event=surplus_run_triggered run_id=%s subject=%s role=%s", run.ID, caller.Subject, caller.Role)
	}
	writeJSON(w, http.StatusCreated, run)
}

// resolveQuery picks the run to read (run_id or the latest succeeded run) and
// parses the optional country and time window.
func (h *Handler) resolveQuery(w http.ResponseWriter, r *http.Request) (*surplus.Run, surplus.RowQuery, bool) {
	values := r.URL.Query()
	from, err := parseOptionalTime(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, surplus.RowQuery{}, false
	}
	to, err := parseOptionalTime(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, surplus.RowQuery{}, false
	}
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return nil, surplus.RowQuery{}, false
	}

	var run *surplus.Run
	if runID := values.Get("run_id"); runID != "" {
		run, err = h.repo.GetRun(r.Context(), runID)
	} else {
		run, err = h.repo.LatestRun(r.Context(), surplus.RunSucceeded)
	}
	if err != nil {
		respondRunError(w, err)
		return nil, surplus.RowQuery{}, false
	}

	query := surplus.RowQuery{
		RunID:   run.ID,
		Country: timeseries.CountryCode(strings.ToUpper(values.Get("country"))),
		From:    from,
		To:      to,
	}
	return run, query, true
}

func respondRunError(w http.ResponseWriter, err error) {
	if errors.Is(err, surplus.ErrRunNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	http.Error(w, "query run error", http.StatusInternalServerError)
}

func parseOptionalTime(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *Handler) logf(format string, args ...any) {
	if h.logger == nil {
		return
	}
	h.logger.Printf(format, args...)
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
