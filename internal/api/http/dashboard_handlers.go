package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fisedigitale/backend/internal/worksheet"
)

// GET /api/dashboard/{worksheetID} — per-worksheet ranking: best
// completed score per student, earlier completion wins ties.
func WorksheetDashboardHandler(svc *worksheet.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "worksheetID")
		if id == "" {
			writeError(w, http.StatusBadRequest, "bad_request", "worksheetID required")
			return
		}
		entries, err := svc.WorksheetRanking(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "ranking": entries})
	}
}

// GET /api/dashboard — overall ranking across all worksheets.
func OverallDashboardHandler(svc *worksheet.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.OverallRanking(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "ranking": entries})
	}
}
