package worksheet

import "context"

// Store is the persistence surface for the worksheet core. Attempt and
// progress rows are addressed by their composite keys; there are no
// cross-record transactions.
type Store interface {
	// Students
	GetStudent(ctx context.Context, id string) (Student, error)
	GetStudentByCode(ctx context.Context, accessCode string) (Student, error)
	BulkUpsertStudents(ctx context.Context, rows []Student) (inserted, updated int, err error)
	ListStudents(ctx context.Context, classLabel string) ([]Student, error)

	// Worksheets
	PutWorksheet(ctx context.Context, w Worksheet) error
	GetWorksheet(ctx context.Context, id string) (Worksheet, error)
	ListWorksheets(ctx context.Context) ([]Worksheet, error)

	// Attempts
	GetAttempt(ctx context.Context, studentID, worksheetID string, number int) (Attempt, error)
	ListAttempts(ctx context.Context, studentID, worksheetID string) ([]Attempt, error)
	// EnsureAttempt creates the attempt row with score 0, not completed,
	// when it does not exist yet. Existing rows are left untouched.
	EnsureAttempt(ctx context.Context, studentID, worksheetID string, number int) error
	SetAttemptTotal(ctx context.Context, studentID, worksheetID string, number int, total float64) error
	CompleteAttempt(ctx context.Context, studentID, worksheetID string, number int, total float64, feedback string, completedAt int64) error

	// Progress
	UpsertProgress(ctx context.Context, p Progress) error
	ListProgress(ctx context.Context, studentID, worksheetID string, attemptNumber int) ([]Progress, error)

	// Dashboard. worksheetID == "" lists completed attempts across all
	// worksheets.
	ListCompletedAttempts(ctx context.Context, worksheetID string) ([]Attempt, error)
}
