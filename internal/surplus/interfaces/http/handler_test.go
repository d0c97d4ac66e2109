package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	surplus "energy-surplus/internal/surplus/domain"
	"energy-surplus/internal/surplus/infrastructure/memory"
	timeseries "energy-surplus/internal/timeseries/domain"
)

var base = time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)

type stubRunner struct {
	mu    sync.Mutex
	calls []string
	run   *surplus.Run
	err   error
}

func (s *stubRunner) Run(ctx context.Context, trigger string) (*surplus.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, trigger)
	return s.run, s.err
}

func seededRepo(t *testing.T) *memory.Repository {
	t.Helper()
	repo := memory.NewRepository()
	ctx := context.Background()
	run := &surplus.Run{ID: "run-1", Trigger: "manual", Status: surplus.RunSucceeded, CreatedAt: base}
	if err := repo.CreateRun(ctx, run); err != nil {
		t.Fatalf("create run: %v", err)
	}
	rows := map[timeseries.CountryCode][]surplus.SurplusRow{}
	for h := 0; h < 4; h++ {
		hour := base.Add(time.Duration(h) * time.Hour)
		rows["DE"] = append(rows["DE"], surplus.SurplusRow{Hour: hour, Generation: 100, Load: 60, Surplus: 40})
		rows["HU"] = append(rows["HU"], surplus.SurplusRow{Hour: hour, Generation: 10, Load: 30, Surplus: -20})
	}
	corpus := surplus.AssembleCorpus([]timeseries.CountryCode{"DE", "HU"}, rows)
	diags := []surplus.Diagnostic{{Country: "IT", Stage: surplus.StageCadence, Reason: "cadence undetectable"}}
	if err := repo.SaveResult(ctx, run.ID, corpus, diags); err != nil {
		t.Fatalf("save result: %v", err)
	}
	failed := &surplus.Run{ID: "run-2", Trigger: "schedule", Status: surplus.RunFailed, Error: "boom", CreatedAt: base.Add(time.Hour)}
	if err := repo.CreateRun(ctx, failed); err != nil {
		t.Fatalf("create failed run: %v", err)
	}
	return repo
}

func newTestHandler(t *testing.T, runner RunTrigger) *Handler {
	t.Helper()
	handler, err := NewHandler(seededRepo(t), runner, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler
}

func do(handler http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestSurplusQuery_LatestSucceededRun(t *testing.T) {
	handler := newTestHandler(t, nil)
	resp := do(handler, http.MethodGet, "/api/v1/surplus?country=de&from=2023-03-01T01:00:00Z&to=2023-03-01T03:00:00Z")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body surplusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.RunID != "run-1" {
		t.Fatalf("expected run-1, got %s", body.RunID)
	}
	if len(body.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(body.Rows))
	}
	for _, row := range body.Rows {
		if row.Country != "DE" || row.Surplus != 40 {
			t.Fatalf("unexpected row: %+v", row)
		}
	}
}

func TestSurplusQuery_BadParams(t *testing.T) {
	handler := newTestHandler(t, nil)
	if resp := do(handler, http.MethodGet, "/api/v1/surplus?from=yesterday"); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if resp := do(handler, http.MethodGet, "/api/v1/surplus?from=2023-03-02T00:00:00Z&to=2023-03-01T00:00:00Z"); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if resp := do(handler, http.MethodGet, "/api/v1/surplus?run_id=missing"); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if resp := do(handler, http.MethodPost, "/api/v1/surplus"); resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}

func TestSurplusQuery_NoSucceededRun(t *testing.T) {
	handler, err := NewHandler(memory.NewRepository(), nil, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	if resp := do(handler, http.MethodGet, "/api/v1/surplus"); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestExports(t *testing.T) {
	handler := newTestHandler(t, nil)

	resp := do(handler, http.MethodGet, "/api/v1/exports/surplus.csv?country=HU")
	if resp.Code != http.StatusOK {
		t.Fatalf("csv: expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("csv: unexpected content type %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(resp.Body.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("csv: expected header + 4 rows, got %d lines", len(lines))
	}
	if !strings.Contains(resp.Header().Get("Content-Disposition"), "surplus_run-1.csv") {
		t.Fatalf("csv: unexpected disposition %q", resp.Header().Get("Content-Disposition"))
	}

	for _, name := range []string{"surplus.xlsx", "surplus.parquet"} {
		resp := do(handler, http.MethodGet, "/api/v1/exports/"+name)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", name, resp.Code, resp.Body.String())
		}
		if resp.Body.Len() == 0 {
			t.Fatalf("%s: empty body", name)
		}
	}

	if resp := do(handler, http.MethodGet, "/api/v1/exports/surplus.json"); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown format, got %d", resp.Code)
	}
}

func TestRuns_LatestAndByID(t *testing.T) {
	handler := newTestHandler(t, nil)

	resp := do(handler, http.MethodGet, "/api/v1/runs/latest")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var latest runResponse
	if err := json.NewDecoder(resp.Body).Decode(&latest); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if latest.Run.ID != "run-2" || latest.Run.Status != surplus.RunFailed {
		t.Fatalf("unexpected latest run: %+v", latest.Run)
	}

	resp = do(handler, http.MethodGet, "/api/v1/runs/latest?status=succeeded")
	var succeeded runResponse
	if err := json.NewDecoder(resp.Body).Decode(&succeeded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if succeeded.Run.ID != "run-1" || len(succeeded.Diagnostics) != 1 {
		t.Fatalf("unexpected succeeded run: %+v", succeeded)
	}
	if succeeded.Diagnostics[0].Stage != surplus.StageCadence {
		t.Fatalf("unexpected diagnostic: %+v", succeeded.Diagnostics[0])
	}

	if resp := do(handler, http.MethodGet, "/api/v1/runs/run-1"); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp := do(handler, http.MethodGet, "/api/v1/runs/nope"); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestRuns_Trigger(t *testing.T) {
	runner := &stubRunner{run: &surplus.Run{ID: "run-3", Status: surplus.RunSucceeded}}
	handler := newTestHandler(t, runner)

	resp := do(handler, http.MethodPost, "/api/v1/runs")
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	if len(runner.calls) != 1 || runner.calls[0] != "manual" {
		t.Fatalf("unexpected runner calls: %v", runner.calls)
	}

	runner.err = surplus.ErrRunInProgress
	runner.run = nil
	if resp := do(handler, http.MethodPost, "/api/v1/runs"); resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}

	if resp := do(handler, http.MethodGet, "/api/v1/runs"); resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}

func TestRuns_TriggerWithoutRunner(t *testing.T) {
	handler := newTestHandler(t, nil)
	if resp := do(handler, http.MethodPost, "/api/v1/runs"); resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestNewHandler_NilRepository(t *testing.T) {
	if _, err := NewHandler(nil, nil, nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRegisterAndHealthz(t *testing.T) {
	mux := http.NewServeMux()
	newTestHandler(t, nil).Register(mux)
	mux.HandleFunc("/healthz", Healthz)

	if resp := do(mux, http.MethodGet, "/healthz"); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp := do(mux, http.MethodGet, "/api/v1/runs/run-1"); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 via mux, got %d", resp.Code)
	}
}
