package worksheet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/fisedigitale/backend/internal/audit"
	"github.com/fisedigitale/backend/internal/grading"
)

// MinShortAnswerLen is the minimum trimmed length accepted for a
// free-text answer.
const MinShortAnswerLen = 5

// Service implements the attempt lifecycle: step submission, score
// aggregation and finalization. Handlers are stateless; all durable
// state lives behind Store.
type Service struct {
	store  Store
	grader *grading.Grader
	oracle grading.Oracle
	events audit.Logger
	logger *log.Logger
}

func NewService(store Store, grader *grading.Grader, oracle grading.Oracle, events audit.Logger, logger *log.Logger) *Service {
	if events == nil {
		events = audit.Nop{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{store: store, grader: grader, oracle: oracle, events: events, logger: logger}
}

func (s *Service) Store() Store { return s.store }

type SubmitInput struct {
	StudentID     string
	WorksheetID   string
	StepPosition  int // 1-based
	AttemptNumber int
	Answer        json.RawMessage // number for grila, string for short
}

type SubmitResult struct {
	Score     float64
	MaxPoints float64
	Feedback  string
	IsCorrect bool
}

// SubmitStep validates one answer, grades it and persists the result
// idempotently. The oracle is consulted before any write: a failed
// grading call leaves no trace of the step.
func (s *Service) SubmitStep(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	ws, err := s.store.GetWorksheet(ctx, in.WorksheetID)
	if err != nil {
		return SubmitResult{}, err
	}
	if !ws.IsActive {
		return SubmitResult{}, ErrWorksheetInactive
	}
	if in.AttemptNumber < 1 || in.AttemptNumber > ws.MaxAttempts {
		return SubmitResult{}, ErrAttemptsExhausted
	}
	step, ok := ws.Step(in.StepPosition)
	if !ok {
		return SubmitResult{}, ErrInvalidStep
	}

	answer, err := decodeAnswer(step, in.Answer)
	if err != nil {
		return SubmitResult{}, err
	}

	student, err := s.store.GetStudent(ctx, in.StudentID)
	if err != nil {
		return SubmitResult{}, err
	}

	meta := grading.Meta{
		WorksheetID: ws.ID,
		Subject:     ws.Subject,
		Grade:       ws.Grade,
		Topic:       ws.Topic,
		StudentName: student.Name,
	}
	res, err := s.grader.Grade(ctx, meta, gradingStep(step), answer)
	if err != nil {
		// A topic without a registered prompt builder is a configuration
		// problem, not an oracle outage; surfacing it as retryable would
		// invite futile resubmissions.
		var noBuilder *grading.ErrPromptBuilderNotFound
		if errors.As(err, &noBuilder) {
			return SubmitResult{}, err
		}
		key := attemptEventKey(in.StudentID, in.WorksheetID, in.AttemptNumber)
		if aerr := s.events.Append(ctx, audit.EventOracleFailed, key, map[string]any{
			"step": in.StepPosition, "error": err.Error(),
		}); aerr != nil {
			s.logger.Printf("event log append failed: %v", aerr)
		}
		return SubmitResult{}, &OracleError{Err: err}
	}

	// Lazy attempt creation: the row appears on the first submitted step.
	if err := s.store.EnsureAttempt(ctx, in.StudentID, in.WorksheetID, in.AttemptNumber); err != nil {
		return SubmitResult{}, err
	}
	p := Progress{
		StudentID:     in.StudentID,
		WorksheetID:   in.WorksheetID,
		AttemptNumber: in.AttemptNumber,
		StepPosition:  in.StepPosition,
		Answer:        in.Answer,
		Feedback:      res.Feedback,
		Score:         res.Score,
		CompletedAt:   time.Now().Unix(),
	}
	if err := s.store.UpsertProgress(ctx, p); err != nil {
		return SubmitResult{}, err
	}

	// Total recomputation is non-critical: a hiccup here never fails an
	// otherwise-successful submission.
	if _, err := s.RecomputeTotal(ctx, in.StudentID, in.WorksheetID, in.AttemptNumber); err != nil {
		s.logger.Printf("recompute total failed for %s/%s attempt %d: %v",
			in.StudentID, in.WorksheetID, in.AttemptNumber, err)
	}

	key := attemptEventKey(in.StudentID, in.WorksheetID, in.AttemptNumber)
	if err := s.events.Append(ctx, audit.EventStepSubmitted, key, map[string]any{
		"step": in.StepPosition, "score": res.Score,
	}); err != nil {
		s.logger.Printf("event log append failed: %v", err)
	}

	return SubmitResult{
		Score:     res.Score,
		MaxPoints: step.Points,
		Feedback:  res.Feedback,
		IsCorrect: res.IsCorrect,
	}, nil
}

// decodeAnswer enforces the per-type answer rules and returns the typed
// answer passed to the grader.
func decodeAnswer(step Step, raw json.RawMessage) (any, error) {
	switch step.Type {
	case StepGrila:
		var idx int
		if err := json.Unmarshal(raw, &idx); err != nil {
			return nil, fmt.Errorf("%w: grila answer must be an integer option index", ErrInvalidAnswer)
		}
		if idx < 0 || idx >= len(step.Options) {
			return nil, fmt.Errorf("%w: option index %d out of range", ErrInvalidAnswer, idx)
		}
		return idx, nil
	case StepShort:
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, fmt.Errorf("%w: short answer must be text", ErrInvalidAnswer)
		}
		text = strings.TrimSpace(text)
		if len([]rune(text)) < MinShortAnswerLen {
			return nil, fmt.Errorf("%w: answer too short (minimum %d characters)", ErrInvalidAnswer, MinShortAnswerLen)
		}
		return text, nil
	default:
		return nil, fmt.Errorf("%w: unknown step type %q", ErrInvalidStep, step.Type)
	}
}

// RecomputeTotal sums all progress scores for the attempt and writes
// the sum into the attempt row. Idempotent; zero rows yield total 0.
func (s *Service) RecomputeTotal(ctx context.Context, studentID, worksheetID string, attemptNumber int) (float64, error) {
	progress, err := s.store.ListProgress(ctx, studentID, worksheetID, attemptNumber)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, p := range progress {
		total += p.Score
	}
	if err := s.store.SetAttemptTotal(ctx, studentID, worksheetID, attemptNumber, total); err != nil {
		return 0, err
	}
	return total, nil
}

type FinalizeResult struct {
	FinalScore       float64
	CompletedAt      int64
	GlobalFeedback   string
	AlreadyCompleted bool
}

// Finalize freezes an attempt: verifies every step has a graded
// progress row, recomputes the authoritative total, obtains a final
// report when no explicit feedback is supplied, and marks the attempt
// completed. Finalizing a completed attempt is a no-op reported via
// AlreadyCompleted.
func (s *Service) Finalize(ctx context.Context, studentID, worksheetID string, attemptNumber int, globalFeedback string) (FinalizeResult, error) {
	a, err := s.store.GetAttempt(ctx, studentID, worksheetID, attemptNumber)
	if err != nil {
		return FinalizeResult{}, err
	}
	if a.Completed {
		var at int64
		if a.CompletedAt != nil {
			at = *a.CompletedAt
		}
		return FinalizeResult{
			FinalScore:       a.TotalScore,
			CompletedAt:      at,
			GlobalFeedback:   a.GlobalFeedback,
			AlreadyCompleted: true,
		}, nil
	}

	ws, err := s.store.GetWorksheet(ctx, worksheetID)
	if err != nil {
		return FinalizeResult{}, err
	}
	progress, err := s.store.ListProgress(ctx, studentID, worksheetID, attemptNumber)
	if err != nil {
		return FinalizeResult{}, err
	}

	graded := make(map[int]Progress, len(progress))
	var total float64
	for _, p := range progress {
		graded[p.StepPosition] = p
		total += p.Score
	}
	for _, step := range ws.Steps {
		if _, ok := graded[step.Position]; !ok {
			return FinalizeResult{}, fmt.Errorf("%w: step %d not graded", ErrIncompleteAttempt, step.Position)
		}
	}

	feedback := globalFeedback
	if feedback == "" {
		// Best-effort: a failed report never blocks finalization.
		report, err := s.finalReport(ctx, studentID, ws, graded)
		if err != nil {
			s.logger.Printf("final report failed for %s/%s attempt %d: %v",
				studentID, worksheetID, attemptNumber, err)
		} else {
			feedback = report
		}
	}

	now := time.Now().Unix()
	if err := s.store.CompleteAttempt(ctx, studentID, worksheetID, attemptNumber, total, feedback, now); err != nil {
		return FinalizeResult{}, err
	}

	key := attemptEventKey(studentID, worksheetID, attemptNumber)
	if err := s.events.Append(ctx, audit.EventAttemptCompleted, key, map[string]any{
		"total": total,
	}); err != nil {
		s.logger.Printf("event log append failed: %v", err)
	}

	return FinalizeResult{FinalScore: total, CompletedAt: now, GlobalFeedback: feedback}, nil
}

func (s *Service) finalReport(ctx context.Context, studentID string, ws Worksheet, graded map[int]Progress) (string, error) {
	student, err := s.store.GetStudent(ctx, studentID)
	if err != nil {
		return "", err
	}
	meta := grading.Meta{
		WorksheetID: ws.ID,
		Subject:     ws.Subject,
		Grade:       ws.Grade,
		Topic:       ws.Topic,
		StudentName: student.Name,
	}
	outcomes := make([]grading.StepOutcome, 0, len(ws.Steps))
	for _, step := range ws.Steps {
		p := graded[step.Position]
		outcomes = append(outcomes, grading.StepOutcome{
			Position:  step.Position,
			Question:  step.Question,
			Answer:    answerText(step, p.Answer),
			Score:     p.Score,
			MaxPoints: step.Points,
			Feedback:  p.Feedback,
		})
	}
	return s.oracle.FinalReport(ctx, meta, outcomes)
}

// answerText renders a stored answer for prompts: the chosen option
// text for grila, the submitted text for short.
func answerText(step Step, raw json.RawMessage) string {
	switch step.Type {
	case StepGrila:
		var idx int
		if err := json.Unmarshal(raw, &idx); err == nil && idx >= 0 && idx < len(step.Options) {
			return step.Options[idx]
		}
	case StepShort:
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			return text
		}
	}
	return string(raw)
}

func gradingStep(s Step) grading.Step {
	correct := -1
	if s.CorrectOption != nil {
		correct = *s.CorrectOption
	}
	return grading.Step{
		Position:      s.Position,
		Type:          s.Type,
		Question:      s.Question,
		Points:        s.Points,
		Options:       s.Options,
		CorrectOption: correct,
		Rubric:        s.Rubric,
	}
}

func attemptEventKey(studentID, worksheetID string, attemptNumber int) string {
	return fmt.Sprintf("%s|%s|%d", studentID, worksheetID, attemptNumber)
}
