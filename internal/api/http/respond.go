package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fisedigitale/backend/internal/grading"
	"github.com/fisedigitale/backend/internal/worksheet"
)

type errorBody struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

// writeServiceError maps core errors onto the wire taxonomy. Oracle
// failures carry retryable:true so the client can offer a user retry.
func writeServiceError(w http.ResponseWriter, err error) {
	// Misconfigured worksheet topic: deterministic, never retryable.
	var noBuilder *grading.ErrPromptBuilderNotFound
	if errors.As(err, &noBuilder) {
		writeError(w, http.StatusInternalServerError, "internal", "worksheet topic is not supported for grading")
		return
	}

	var oerr *worksheet.OracleError
	if errors.As(err, &oerr) {
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error:     "oracle_failed",
			Message:   "grading failed, please try again",
			Retryable: true,
		})
		return
	}

	switch {
	case errors.Is(err, worksheet.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "unknown access code or wrong worksheet password")
	case errors.Is(err, worksheet.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "access_denied", "this worksheet is not available")
	case errors.Is(err, worksheet.ErrWorksheetInactive):
		writeError(w, http.StatusForbidden, "worksheet_inactive", "worksheet is closed for submissions")
	case errors.Is(err, worksheet.ErrAttemptsExhausted):
		writeError(w, http.StatusForbidden, "attempts_exhausted", "no attempts left for this worksheet")
	case errors.Is(err, worksheet.ErrInvalidStep):
		writeError(w, http.StatusBadRequest, "invalid_step", err.Error())
	case errors.Is(err, worksheet.ErrInvalidAnswer):
		writeError(w, http.StatusBadRequest, "invalid_answer", err.Error())
	case errors.Is(err, worksheet.ErrIncompleteAttempt):
		writeError(w, http.StatusBadRequest, "incomplete_attempt", err.Error())
	case errors.Is(err, worksheet.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "record not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
