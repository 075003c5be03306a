package http

import (
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/fisedigitale/backend/internal/auth"
	"github.com/fisedigitale/backend/internal/worksheet"
)

// POST /api/authenticate  { "student_code": "...", "worksheet_password": "..." }
func AuthenticateHandler(svc *worksheet.Service, authSvc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			StudentCode       string `json:"student_code"`
			WorksheetPassword string `json:"worksheet_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "bad json")
			return
		}
		if req.StudentCode == "" || req.WorksheetPassword == "" {
			writeError(w, http.StatusBadRequest, "bad_request", "student_code and worksheet_password required")
			return
		}

		sess, err := svc.Authenticate(r.Context(), req.StudentCode, req.WorksheetPassword)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		token, err := authSvc.IssueStudent(sess.Student.ID, sess.Worksheet.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal", "issue token")
			return
		}

		// Access codes never travel back out.
		sess.Student.AccessCode = ""

		writeJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"student":      sess.Student,
			"worksheet":    sess.Worksheet,
			"max_score":    sess.Worksheet.MaxScore(),
			"access_token": token,
			"session": map[string]any{
				"current_attempt":         sess.CurrentAttempt,
				"has_attempts_left":       sess.HasAttemptsLeft,
				"can_submit":              sess.CanSubmit,
				"should_restore_progress": sess.ShouldRestoreProgress,
				"last_attempt_completed":  sess.LastAttemptCompleted,
				"progress":                sess.Progress,
			},
		})
	}
}

// POST /api/auth/teacher  { "username": "...", "password": "..." }
func TeacherLoginHandler(authSvc *auth.Service, adminUser, adminPassHash string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "bad json")
			return
		}
		if req.Username != adminUser ||
			bcrypt.CompareHashAndPassword([]byte(adminPassHash), []byte(req.Password)) != nil {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
			return
		}
		token, err := authSvc.IssueTeacher(req.Username)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal", "issue token")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "access_token": token})
	}
}
