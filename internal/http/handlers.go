package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mizan/internal/core"
	"mizan/internal/log"
	"mizan/internal/report"
)

// handleHealth performs a basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state, snap := s.engine.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"state":     state,
		"fetchedAt": snap.FetchedAt,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

type reportResponse struct {
	State string `json:"state"`
	core.LedgerSnapshot
}

// handleReport returns the last committed snapshot with the engine
// state. The ledger itself is paged through the transactions endpoint.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	state, snap := s.engine.Snapshot()
	writeJSON(w, http.StatusOK, reportResponse{
		State:          string(state),
		LedgerSnapshot: snap,
	})
}

// handleTransactions returns one filtered page of the ledger.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := core.Filters{
		Search:   strings.TrimSpace(q.Get("search")),
		Category: strings.TrimSpace(q.Get("category")),
		Type:     core.TxType(strings.TrimSpace(q.Get("type"))),
	}
	if filters.Type != "" && filters.Type != core.Income && filters.Type != core.Expense {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown transaction type %q", filters.Type))
		return
	}
	page := parsePage(r)

	_, snap := s.engine.Snapshot()

	cacheKey := fmt.Sprintf("%d|%s|%s|%s|%d",
		snap.FetchedAt.UnixNano(), filters.Search, filters.Category, filters.Type, page)
	if cached, ok := s.pageCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	result := report.ApplyFilters(snap.Ledger, filters, page)
	s.pageCache.Set(cacheKey, result)
	writeJSON(w, http.StatusOK, result)
}

// handleCategories lists the distinct categories of the current ledger
// for filter dropdowns.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	_, snap := s.engine.Snapshot()
	categories := report.Categories(snap.Ledger)
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

// handleRuns lists archived report runs.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "run archive not configured")
		return
	}
	runs, err := s.repo.ListRuns(r.Context(), 20)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "List runs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// refreshRequest is the optional body of a refresh call. Absent dates
// fall back to the configured default window.
type refreshRequest struct {
	Start string `json:"start"` // "2006-01-02"
	End   string `json:"end"`
}

func (s *Server) refreshWindow(r *http.Request) (core.Window, error) {
	var req refreshRequest
	if r.Body != nil {
		// An empty body is a plain "refresh the default window".
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			return core.Window{}, fmt.Errorf("invalid refresh body: %w", err)
		}
	}
	if req.Start == "" && req.End == "" {
		now := time.Now().UTC()
		return core.NewWindow(now.AddDate(0, 0, -s.windowDays+1), now), nil
	}
	start, err := time.Parse("2006-01-02", req.Start)
	if err != nil {
		return core.Window{}, fmt.Errorf("invalid start date %q", req.Start)
	}
	end, err := time.Parse("2006-01-02", req.End)
	if err != nil {
		return core.Window{}, fmt.Errorf("invalid end date %q", req.End)
	}
	if end.Before(start) {
		return core.Window{}, fmt.Errorf("end %q before start %q", req.End, req.Start)
	}
	return core.NewWindow(start, end), nil
}

// handleRefresh requests a report rebuild for the requested window. With
// a publisher configured the rebuild happens asynchronously on the
// worker; otherwise the engine runs in-process and the resulting state
// is returned.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	window, err := s.refreshWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.publisher != nil {
		days := int(window.End.Sub(window.Start).Hours()/24) + 1
		if err := s.publisher.PublishRefresh(r.Context(), days, "api"); err != nil {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Publish refresh failed", "error", err)
			writeError(w, http.StatusBadGateway, "refresh request failed")
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
		return
	}

	snap, state, err := s.engine.Run(r.Context(), window)
	if errors.Is(err, report.ErrStaleRun) {
		writeJSON(w, http.StatusOK, map[string]any{"state": string(state), "stale": true})
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Refresh run failed", "error", err)
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":     string(state),
		"stale":     false,
		"fetchedAt": snap.FetchedAt,
		"errors":    snap.Errors,
	})
}

// handleExport writes the current ledger to the configured spreadsheet.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "export not configured")
		return
	}

	state, snap := s.engine.Snapshot()
	if state != report.StateReady {
		writeError(w, http.StatusConflict, fmt.Sprintf("report not ready (state %s)", state))
		return
	}

	ref, err := s.exporter.WriteLedger(r.Context(), snap)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Export failed", "error", err)
		writeError(w, http.StatusBadGateway, "export failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ref": ref})
}
