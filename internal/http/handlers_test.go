package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"mizan/internal/core"
	"mizan/internal/export/memory"
	"mizan/internal/report"
	"mizan/internal/sources"
)

func readyEngine(t *testing.T, incomes int) *report.Engine {
	t.Helper()
	batch := sources.Batch{}
	for i := 1; i <= incomes; i++ {
		batch.Incomes = append(batch.Incomes, sources.IncomeRecord{
			ID:          sources.FlexInt(i),
			Amount:      sources.FlexAmount{Decimal: decimal.NewFromInt(int64(i * 10))},
			Source:      "فروش",
			RecordDates: sources.RecordDates{Date: "2024-05-10"},
		})
	}
	e := report.NewEngine(&sources.Fixture{Batch: batch})

	w := core.NewWindow(
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC),
	)
	if _, _, err := e.Run(context.Background(), w); err != nil {
		t.Fatalf("seed run: %v", err)
	}
	return e
}

func newTestServer(t *testing.T, engine *report.Engine, opts ...func(*Server)) *Server {
	t.Helper()
	s := NewServer(":0", engine, nil, nil, nil, 30, nil)
	for _, opt := range opts {
		opt(s)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})
	return s
}

func doRequest(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleReport(t *testing.T) {
	s := newTestServer(t, readyEngine(t, 2))

	rec := doRequest(s, http.MethodGet, "/api/report")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got struct {
		State   string `json:"state"`
		Summary struct {
			TotalRevenue decimal.Decimal `json:"totalRevenue"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.State != "ready" {
		t.Errorf("state = %q, want ready", got.State)
	}
	if !got.Summary.TotalRevenue.Equal(decimal.NewFromInt(30)) {
		t.Errorf("revenue = %s, want 30", got.Summary.TotalRevenue)
	}
}

func TestHandleTransactionsPaging(t *testing.T) {
	s := newTestServer(t, readyEngine(t, 25))

	rec := doRequest(s, http.MethodGet, "/api/report/transactions?page=3")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var page core.Page
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if page.TotalItems != 25 || page.TotalPages != 3 || page.CurrentPage != 3 {
		t.Errorf("page = %+v, want 25 items over 3 pages at page 3", page)
	}
	if len(page.Items) != 5 {
		t.Errorf("items = %d, want 5 on the last page", len(page.Items))
	}
}

func TestHandleTransactionsBadType(t *testing.T) {
	s := newTestServer(t, readyEngine(t, 1))

	rec := doRequest(s, http.MethodGet, "/api/report/transactions?type=transfer")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleCategories(t *testing.T) {
	s := newTestServer(t, readyEngine(t, 1))

	rec := doRequest(s, http.MethodGet, "/api/report/categories")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got struct {
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Categories) != 1 || got.Categories[0] != "فروش" {
		t.Errorf("categories = %v, want [فروش]", got.Categories)
	}
}

func TestHandleRunsUnconfigured(t *testing.T) {
	s := newTestServer(t, readyEngine(t, 1))

	rec := doRequest(s, http.MethodGet, "/api/report/runs")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 without an archive", rec.Code)
	}
}

type stubPublisher struct {
	calls int
	err   error
}

func (p *stubPublisher) PublishRefresh(context.Context, int, string) error {
	p.calls++
	return p.err
}

func TestHandleRefreshQueued(t *testing.T) {
	pub := &stubPublisher{}
	s := newTestServer(t, readyEngine(t, 1), func(s *Server) { s.publisher = pub })

	rec := doRequest(s, http.MethodPost, "/api/report/refresh")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if pub.calls != 1 {
		t.Errorf("publisher calls = %d, want 1", pub.calls)
	}
}

func TestHandleRefreshInProcess(t *testing.T) {
	s := newTestServer(t, readyEngine(t, 1))

	body := strings.NewReader(`{"start": "2024-05-01", "end": "2024-05-31"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/report/refresh", body)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var got struct {
		State string `json:"state"`
		Stale bool   `json:"stale"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.State != "ready" || got.Stale {
		t.Errorf("refresh = %+v, want ready and not stale", got)
	}
}

func TestHandleRefreshBadWindow(t *testing.T) {
	s := newTestServer(t, readyEngine(t, 1))

	body := strings.NewReader(`{"start": "2024-05-31", "end": "2024-05-01"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/report/refresh", body)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for an inverted window", rec.Code)
	}
}

func TestHandleRefreshPublisherDown(t *testing.T) {
	pub := &stubPublisher{err: errors.New("broker gone")}
	s := newTestServer(t, readyEngine(t, 1), func(s *Server) { s.publisher = pub })

	rec := doRequest(s, http.MethodPost, "/api/report/refresh")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestHandleExport(t *testing.T) {
	exporter := memory.New()
	s := newTestServer(t, readyEngine(t, 3), func(s *Server) { s.exporter = exporter })

	rec := doRequest(s, http.MethodPost, "/api/report/export")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["ref"] != "mem:1" {
		t.Errorf("ref = %q, want mem:1", got["ref"])
	}
	if len(exporter.Snapshots()) != 1 {
		t.Errorf("exported %d snapshots, want 1", len(exporter.Snapshots()))
	}
}

func TestHandleExportUnconfigured(t *testing.T) {
	s := newTestServer(t, readyEngine(t, 1))

	rec := doRequest(s, http.MethodPost, "/api/report/export")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandleExportNotReady(t *testing.T) {
	// Engine never ran: state is idle, export must refuse.
	e := report.NewEngine(&sources.Fixture{})
	s := newTestServer(t, e, func(s *Server) { s.exporter = memory.New() })

	rec := doRequest(s, http.MethodPost, "/api/report/export")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, readyEngine(t, 1))

	rec := doRequest(s, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["status"] != "ok" || got["state"] != "ready" {
		t.Errorf("health = %v, want status ok and state ready", got)
	}
}

func TestTransactionPageCaching(t *testing.T) {
	s := newTestServer(t, readyEngine(t, 25))

	for i := 0; i < 2; i++ {
		rec := doRequest(s, http.MethodGet, "/api/report/transactions?page=1")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	if size := s.pageCache.Size(); size != 1 {
		t.Errorf("cache size = %d, want 1 entry reused", size)
	}
}
