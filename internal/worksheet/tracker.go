package worksheet

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Session is the state handed to the client at authenticate time. It
// replaces free-standing client globals: everything the progression
// controller needs is constructed here.
type Session struct {
	Student   Student   `json:"student"`
	Worksheet Worksheet `json:"worksheet"` // student view, answers stripped

	CurrentAttempt        int        `json:"current_attempt"`
	HasAttemptsLeft       bool       `json:"has_attempts_left"`
	CanSubmit             bool       `json:"can_submit"`
	ShouldRestoreProgress bool       `json:"should_restore_progress"`
	LastAttemptCompleted  bool       `json:"last_attempt_completed"`
	Progress              []Progress `json:"progress"`
}

// Authenticate resolves a student access code plus worksheet password
// into a Session. Unknown code and wrong password both return
// ErrInvalidCredentials; a hidden worksheet returns ErrAccessDenied,
// a distinct failure from bad credentials.
func (s *Service) Authenticate(ctx context.Context, studentCode, worksheetPassword string) (Session, error) {
	student, err := s.store.GetStudentByCode(ctx, studentCode)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	ws, err := s.findWorksheetByPassword(ctx, worksheetPassword)
	if err != nil {
		return Session{}, err
	}
	if !ws.IsVisible {
		return Session{}, ErrAccessDenied
	}

	return s.Track(ctx, student, ws)
}

// findWorksheetByPassword locates the worksheet whose shared password
// matches. Worksheets are few (classroom scale), so comparing against
// every hash is fine.
func (s *Service) findWorksheetByPassword(ctx context.Context, password string) (Worksheet, error) {
	sheets, err := s.store.ListWorksheets(ctx)
	if err != nil {
		return Worksheet{}, err
	}
	for _, w := range sheets {
		if bcrypt.CompareHashAndPassword([]byte(w.PasswordHash), []byte(password)) == nil {
			return w, nil
		}
	}
	return Worksheet{}, ErrInvalidCredentials
}

// Track computes the attempt state for a student + worksheet pair: the
// current attempt number, whether more attempts may start, and whether
// a previous unfinished attempt should be resumed.
func (s *Service) Track(ctx context.Context, student Student, ws Worksheet) (Session, error) {
	attempts, err := s.store.ListAttempts(ctx, student.ID, ws.ID)
	if err != nil {
		return Session{}, err
	}

	// Highest attempt number; zero when the student never submitted.
	var last *Attempt
	for i := range attempts {
		if last == nil || attempts[i].Number > last.Number {
			last = &attempts[i]
		}
	}

	sess := Session{
		Student:   student,
		Worksheet: ws.StudentView(),
	}

	highest := 0
	if last != nil {
		highest = last.Number
		sess.LastAttemptCompleted = last.Completed
	}
	sess.HasAttemptsLeft = highest < ws.MaxAttempts
	sess.CanSubmit = ws.IsActive && sess.HasAttemptsLeft

	if last != nil && !last.Completed {
		// Resume the unfinished attempt and restore its progress.
		sess.CurrentAttempt = highest
		sess.ShouldRestoreProgress = true
		progress, err := s.store.ListProgress(ctx, student.ID, ws.ID, highest)
		if err != nil {
			return Session{}, err
		}
		sess.Progress = progress
		return sess, nil
	}

	// Completed (or no attempt yet): clean slate at highest+1.
	sess.CurrentAttempt = highest + 1
	return sess, nil
}
