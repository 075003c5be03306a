package worksheet

import "encoding/json"

// Step types.
const (
	StepGrila = "grila" // single-choice multiple choice
	StepShort = "short" // free text, graded by the oracle
)

// Step is one graded question inside a worksheet. Position is 1-based
// and order-significant.
type Step struct {
	Position int     `json:"position"`
	Type     string  `json:"type"`
	Question string  `json:"question"`
	Points   float64 `json:"points"`

	Options       []string `json:"options,omitempty"`        // grila only
	CorrectOption *int     `json:"correct_option,omitempty"` // grila only, zero-based
	Rubric        string   `json:"rubric,omitempty"`         // short only, consumed by the oracle
}

type Worksheet struct {
	ID           string `json:"id"`
	Subject      string `json:"subject"`
	Grade        string `json:"grade"`
	Topic        string `json:"topic"`
	Title        string `json:"title"`
	PasswordHash string `json:"-"`
	Steps        []Step `json:"steps"`
	MaxAttempts  int    `json:"max_attempts"`
	IsActive     bool   `json:"is_active"`
	IsVisible    bool   `json:"is_visible"`
	CreatedAt    int64  `json:"created_at,omitempty"`
}

// MaxScore is the sum of per-step point values, used for percentage
// displays on the client.
func (w Worksheet) MaxScore() float64 {
	var sum float64
	for _, s := range w.Steps {
		sum += s.Points
	}
	return sum
}

// StudentView strips correct answers and rubrics before serving the
// worksheet to a student.
func (w Worksheet) StudentView() Worksheet {
	out := w
	out.Steps = make([]Step, len(w.Steps))
	for i, s := range w.Steps {
		s.CorrectOption = nil
		s.Rubric = ""
		out.Steps[i] = s
	}
	return out
}

// Step returns the step at the given 1-based position, or false when
// the position is out of range.
func (w Worksheet) Step(position int) (Step, bool) {
	if position < 1 || position > len(w.Steps) {
		return Step{}, false
	}
	return w.Steps[position-1], true
}

type Student struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ClassLabel string `json:"class_label"`
	AccessCode string `json:"access_code,omitempty"`
	CreatedAt  int64  `json:"created_at,omitempty"`
}

// Attempt is one pass by a student through a worksheet, identified by
// (student, worksheet, number). Numbers are 1-based and contiguous.
type Attempt struct {
	StudentID      string  `json:"student_id"`
	WorksheetID    string  `json:"worksheet_id"`
	Number         int     `json:"attempt_number"`
	Completed      bool    `json:"completed"`
	TotalScore     float64 `json:"total_score"`
	CompletedAt    *int64  `json:"completed_at,omitempty"`
	GlobalFeedback string  `json:"global_feedback,omitempty"`
	CreatedAt      int64   `json:"created_at,omitempty"`
}

// Progress is the persisted outcome of one step within one attempt.
// Answer holds the raw submitted answer: a JSON number (grila option
// index) or a JSON string (short answer text).
type Progress struct {
	StudentID     string          `json:"student_id"`
	WorksheetID   string          `json:"worksheet_id"`
	AttemptNumber int             `json:"attempt_number"`
	StepPosition  int             `json:"step_position"`
	Answer        json.RawMessage `json:"answer"`
	Feedback      string          `json:"feedback"`
	Score         float64         `json:"score"`
	CompletedAt   int64           `json:"completed_at"`
}
