package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"vendas/internal/core"
	applog "vendas/internal/log"
)

// handleFilters returns the distinct dimension values and the filter
// bounds for the sidebar controls.
func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	dims, err := s.warehouse.Dimensions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, FiltersPayload{
		States:   dims.States,
		Branches: dims.Branches,
		YearMin:  core.MinYear,
		YearMax:  time.Now().Year(),
		Months:   core.AllMonths(),
	})
}

// handleDashboard returns the KPI cards, the revenue×cost series, the
// top-10 profitability bars and the per-product table in one payload.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.loadFacts(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, buildDashboard(rows))
}

// handleFunnel returns the three stage counts and the conversion KPI.
func (s *Server) handleFunnel(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.loadFacts(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, buildFunnel(rows))
}

// handleForecast returns the probability-weighted KPIs and the
// per-customer scatter points.
func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	filter, ok := s.effectiveFilter(w, r)
	if !ok {
		return
	}
	preds, err := s.warehouse.PredictionRows(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, buildForecast(preds))
}

// handleCacheReset drops every cached query result, forcing the next
// render to hit the warehouse.
func (s *Server) handleCacheReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	s.warehouse.ResetCache()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cache reset"})
}

// loadFacts resolves the effective filter and loads the fact table.
// On failure the error response has already been written.
func (s *Server) loadFacts(w http.ResponseWriter, r *http.Request) ([]core.FactRow, bool) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return nil, false
	}

	filter, ok := s.effectiveFilter(w, r)
	if !ok {
		return nil, false
	}
	rows, err := s.warehouse.FactRows(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return rows, true
}

// effectiveFilter parses the request filter and expands empty state and
// branch selections to the full distinct lists from the warehouse.
func (s *Server) effectiveFilter(w http.ResponseWriter, r *http.Request) (core.Filter, bool) {
	dims, err := s.warehouse.Dimensions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return core.Filter{}, false
	}
	filter := parseFilter(r.URL.Query()).Normalize(time.Now()).WithDimensions(dims)
	return filter, true
}

// writeError reports a failed render cycle: the error text and nothing
// else, no partial payload.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "Render cycle failed", applog.FieldError, err, applog.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusInternalServerError, errorPayload{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encoding failed", applog.FieldError, err)
	}
}
