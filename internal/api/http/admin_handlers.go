package http

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fisedigitale/backend/internal/grading"
	"github.com/fisedigitale/backend/internal/worksheet"
)

type studentRow struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	ClassLabel string `json:"class_label"`
}

// POST /api/students/bulk — JSON array of students. New rows get a
// generated ID and access code; existing rows keep their code.
func BulkUpsertStudentsHandler(store worksheet.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []studentRow
		if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "expected JSON array")
			return
		}
		students := make([]worksheet.Student, 0, len(rows))
		for _, row := range rows {
			if row.Name == "" {
				writeError(w, http.StatusBadRequest, "bad_request", "student name required")
				return
			}
			id := row.ID
			if id == "" {
				id = uuid.NewString()
			}
			code, err := uniqueAccessCode(r.Context(), store, newAccessCode)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal", err.Error())
				return
			}
			students = append(students, worksheet.Student{
				ID:         id,
				Name:       row.Name,
				ClassLabel: row.ClassLabel,
				AccessCode: code,
			})
		}
		ins, upd, err := store.BulkUpsertStudents(r.Context(), students)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "inserted": ins, "updated": upd})
	}
}

// GET /api/students?class=7A
func ListStudentsHandler(store worksheet.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		students, err := store.ListStudents(r.Context(), r.URL.Query().Get("class"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, students)
	}
}

type worksheetUpload struct {
	worksheet.Worksheet
	Password string   `json:"password"`
	MaxScore *float64 `json:"max_score,omitempty"`
}

// POST /api/worksheets — upsert a worksheet definition. The shared
// password arrives in plaintext and is stored as a bcrypt hash. A
// topic without a registered prompt builder is rejected here, before
// any student can hit it at grading time.
func PutWorksheetHandler(store worksheet.Store, prompts *grading.PromptRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req worksheetUpload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "bad json")
			return
		}
		if req.Password == "" {
			writeError(w, http.StatusBadRequest, "bad_request", "password required")
			return
		}
		if err := req.Worksheet.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		if _, err := prompts.Resolve(req.Worksheet.Topic); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		// Declared max score must match the step point sum used for
		// percentage displays.
		if req.MaxScore != nil && *req.MaxScore != req.Worksheet.MaxScore() {
			writeError(w, http.StatusBadRequest, "bad_request", "max_score does not match sum of step points")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal", "hash password")
			return
		}
		ws := req.Worksheet
		ws.PasswordHash = string(hash)
		if err := store.PutWorksheet(r.Context(), ws); err != nil {
			writeError(w, http.StatusInternalServerError, "internal", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": ws.ID})
	}
}

// GET /api/worksheets — definitions with answers stripped.
func ListWorksheetsHandler(store worksheet.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sheets, err := store.ListWorksheets(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal", err.Error())
			return
		}
		out := make([]worksheet.Worksheet, 0, len(sheets))
		for _, ws := range sheets {
			out = append(out, ws.StudentView())
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// Unambiguous alphabet: no 0/O, 1/I/L.
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// newAccessCode draws eight alphabet characters by rejection sampling,
// so every character is equally likely. 31 does not divide 256; a plain
// modulo would skew toward the low end of the alphabet.
func newAccessCode() string {
	const limit = byte(256 - 256%len(codeAlphabet)) // 248
	out := make([]byte, 0, 8)
	buf := make([]byte, 16)
	for len(out) < 8 {
		if _, err := rand.Read(buf); err != nil {
			panic(err) // crypto/rand does not fail on supported platforms
		}
		for _, b := range buf {
			if b < limit && len(out) < 8 {
				out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			}
		}
	}
	return string(out[:4]) + "-" + string(out[4:])
}

// uniqueAccessCode retries gen until the code is unused. Collisions are
// vanishingly rare at classroom scale, so a short retry budget is
// plenty; running out means something is wrong with the generator.
func uniqueAccessCode(ctx context.Context, store worksheet.Store, gen func() string) (string, error) {
	for i := 0; i < 5; i++ {
		code := gen()
		_, err := store.GetStudentByCode(ctx, code)
		if errors.Is(err, worksheet.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("could not generate a unique access code")
}
