package http

import (
	"encoding/json"
	"net/http"

	"github.com/fisedigitale/backend/internal/auth"
	"github.com/fisedigitale/backend/internal/worksheet"
)

// POST /api/submit-step
// { "worksheet_id": "...", "step_number": 3, "answer": 1|"text", "attempt_number": 1 }
func SubmitStepHandler(svc *worksheet.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.ClaimsFromContext(r.Context())
		var req struct {
			WorksheetID   string          `json:"worksheet_id"`
			StepNumber    int             `json:"step_number"`
			Answer        json.RawMessage `json:"answer"`
			AttemptNumber int             `json:"attempt_number"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "bad json")
			return
		}
		if req.WorksheetID == "" || len(req.Answer) == 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "worksheet_id and answer required")
			return
		}
		// Sessions are bound to one worksheet at authenticate time.
		if claims.WorksheetID != "" && claims.WorksheetID != req.WorksheetID {
			writeError(w, http.StatusForbidden, "access_denied", "session is for a different worksheet")
			return
		}

		res, err := svc.SubmitStep(r.Context(), worksheet.SubmitInput{
			StudentID:     claims.Sub,
			WorksheetID:   req.WorksheetID,
			StepPosition:  req.StepNumber,
			AttemptNumber: req.AttemptNumber,
			Answer:        req.Answer,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"score":      res.Score,
			"max_points": res.MaxPoints,
			"feedback":   res.Feedback,
			"is_correct": res.IsCorrect,
		})
	}
}

// POST /api/mark-attempt-completed
// { "worksheet_id": "...", "attempt_number": 1, "global_feedback": "..." }
func MarkAttemptCompletedHandler(svc *worksheet.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.ClaimsFromContext(r.Context())
		var req struct {
			WorksheetID    string `json:"worksheet_id"`
			AttemptNumber  int    `json:"attempt_number"`
			GlobalFeedback string `json:"global_feedback"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "bad json")
			return
		}
		if req.WorksheetID == "" || req.AttemptNumber < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", "worksheet_id and attempt_number required")
			return
		}
		if claims.WorksheetID != "" && claims.WorksheetID != req.WorksheetID {
			writeError(w, http.StatusForbidden, "access_denied", "session is for a different worksheet")
			return
		}

		res, err := svc.Finalize(r.Context(), claims.Sub, req.WorksheetID, req.AttemptNumber, req.GlobalFeedback)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":           true,
			"final_score":       res.FinalScore,
			"completed_at":      res.CompletedAt,
			"global_feedback":   res.GlobalFeedback,
			"already_completed": res.AlreadyCompleted,
		})
	}
}
