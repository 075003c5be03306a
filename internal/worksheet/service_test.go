package worksheet

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/fisedigitale/backend/internal/grading"
	"github.com/fisedigitale/backend/internal/llm"
)

/* ---------------- Fixtures ---------------- */

type fakeOracle struct {
	gradeRes  grading.Result
	gradeErr  error
	report    string
	reportErr error

	gradeCalls  int
	reportCalls int
}

func (f *fakeOracle) GradeStep(_ context.Context, _ grading.Meta, step grading.Step, _ string) (grading.Result, error) {
	f.gradeCalls++
	if f.gradeErr != nil {
		return grading.Result{}, f.gradeErr
	}
	res := f.gradeRes
	res.MaxPoints = step.Points
	return res, nil
}

func (f *fakeOracle) FinalReport(_ context.Context, _ grading.Meta, _ []grading.StepOutcome) (string, error) {
	f.reportCalls++
	if f.reportErr != nil {
		return "", f.reportErr
	}
	return f.report, nil
}

func intPtr(i int) *int { return &i }

func mustHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(h)
}

func testWorksheet(t *testing.T) Worksheet {
	return Worksheet{
		ID:           "fisa-mate-7-fractii",
		Subject:      "Matematică",
		Grade:        "7",
		Title:        "Fracții ordinare",
		PasswordHash: mustHash(t, "parola7"),
		MaxAttempts:  2,
		IsActive:     true,
		IsVisible:    true,
		Steps: []Step{
			{Position: 1, Type: StepGrila, Question: "2/4 = ?", Points: 3,
				Options: []string{"1/3", "1/2", "2/3"}, CorrectOption: intPtr(1)},
			{Position: 2, Type: StepShort, Question: "Explică amplificarea.", Points: 7,
				Rubric: "Menționează înmulțirea numărătorului și numitorului."},
		},
	}
}

func newTestService(t *testing.T, oracle grading.Oracle) (*Service, Store) {
	t.Helper()
	store := NewInMemoryStore()
	svc := NewService(store, grading.NewGrader(oracle), oracle, nil, log.New(testWriter{t}, "", 0))

	ws := testWorksheet(t)
	if err := store.PutWorksheet(context.Background(), ws); err != nil {
		t.Fatal(err)
	}
	_, _, err := store.BulkUpsertStudents(context.Background(), []Student{
		{ID: "st-1", Name: "Ana Pop", ClassLabel: "7A", AccessCode: "COD-ANA"},
		{ID: "st-2", Name: "Ion Radu", ClassLabel: "7A", AccessCode: "COD-ION"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return svc, store
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func submit(t *testing.T, svc *Service, step int, answer string, attempt int) (SubmitResult, error) {
	t.Helper()
	return svc.SubmitStep(context.Background(), SubmitInput{
		StudentID:     "st-1",
		WorksheetID:   "fisa-mate-7-fractii",
		StepPosition:  step,
		AttemptNumber: attempt,
		Answer:        json.RawMessage(answer),
	})
}

/* ---------------- SubmitStep ---------------- */

func TestSubmitGrilaCorrect(t *testing.T) {
	svc, store := newTestService(t, &fakeOracle{})

	res, err := submit(t, svc, 1, `1`, 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.IsCorrect || res.Score != 3 || res.MaxPoints != 3 {
		t.Fatalf("got %+v, want correct with 3/3", res)
	}

	// Lazy attempt creation happened, and the aggregate ran.
	a, err := store.GetAttempt(context.Background(), "st-1", "fisa-mate-7-fractii", 1)
	if err != nil {
		t.Fatalf("attempt row missing: %v", err)
	}
	if a.Completed || a.TotalScore != 3 {
		t.Fatalf("attempt = %+v, want in-progress total 3", a)
	}
}

func TestSubmitGrilaWrongScoresZero(t *testing.T) {
	svc, _ := newTestService(t, &fakeOracle{})

	res, err := submit(t, svc, 1, `0`, 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.IsCorrect || res.Score != 0 {
		t.Fatalf("got %+v, want incorrect with score 0", res)
	}
	if res.Feedback == "" {
		t.Fatal("expected feedback naming the correct option")
	}
}

func TestSubmitGrilaIndexBoundaries(t *testing.T) {
	svc, _ := newTestService(t, &fakeOracle{})

	// len(options) is out of range, len(options)-1 is in range.
	if _, err := submit(t, svc, 1, `3`, 1); !errors.Is(err, ErrInvalidAnswer) {
		t.Fatalf("index == len(options): got %v, want ErrInvalidAnswer", err)
	}
	if _, err := submit(t, svc, 1, `2`, 1); err != nil {
		t.Fatalf("index == len(options)-1: %v", err)
	}
	if _, err := submit(t, svc, 1, `-1`, 1); !errors.Is(err, ErrInvalidAnswer) {
		t.Fatalf("negative index: got %v, want ErrInvalidAnswer", err)
	}
}

func TestSubmitShortLengthBoundaries(t *testing.T) {
	oracle := &fakeOracle{gradeRes: grading.Result{Score: 5, Feedback: "Bine."}}
	svc, _ := newTestService(t, oracle)

	// Exactly five trimmed characters pass, four do not.
	if _, err := submit(t, svc, 2, `"  abcd  "`, 1); !errors.Is(err, ErrInvalidAnswer) {
		t.Fatalf("4 chars: got %v, want ErrInvalidAnswer", err)
	}
	if oracle.gradeCalls != 0 {
		t.Fatal("oracle must not be called for an invalid answer")
	}
	if _, err := submit(t, svc, 2, `"abcde"`, 1); err != nil {
		t.Fatalf("5 chars: %v", err)
	}
	if oracle.gradeCalls != 1 {
		t.Fatalf("oracle calls = %d, want 1", oracle.gradeCalls)
	}
}

func TestSubmitValidationOrder(t *testing.T) {
	svc, store := newTestService(t, &fakeOracle{})

	// Inactive worksheet rejected before anything else.
	ws := testWorksheet(t)
	ws.IsActive = false
	if err := store.PutWorksheet(context.Background(), ws); err != nil {
		t.Fatal(err)
	}
	if _, err := submit(t, svc, 99, `1`, 99); !errors.Is(err, ErrWorksheetInactive) {
		t.Fatalf("got %v, want ErrWorksheetInactive", err)
	}

	ws.IsActive = true
	if err := store.PutWorksheet(context.Background(), ws); err != nil {
		t.Fatal(err)
	}
	if _, err := submit(t, svc, 99, `1`, 3); !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("attempt > max: got %v, want ErrAttemptsExhausted", err)
	}
	if _, err := submit(t, svc, 3, `1`, 1); !errors.Is(err, ErrInvalidStep) {
		t.Fatalf("position > steps: got %v, want ErrInvalidStep", err)
	}
	if _, err := submit(t, svc, 0, `1`, 1); !errors.Is(err, ErrInvalidStep) {
		t.Fatalf("position 0: got %v, want ErrInvalidStep", err)
	}
}

func TestResubmitOverwritesNotDuplicates(t *testing.T) {
	svc, store := newTestService(t, &fakeOracle{})

	if _, err := submit(t, svc, 1, `0`, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := submit(t, svc, 1, `1`, 1); err != nil {
		t.Fatal(err)
	}

	rows, err := store.ListProgress(context.Background(), "st-1", "fisa-mate-7-fractii", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("progress rows = %d, want 1 (upsert, not insert)", len(rows))
	}
	if rows[0].Score != 3 {
		t.Fatalf("score = %g, want 3 (last write wins)", rows[0].Score)
	}

	a, _ := store.GetAttempt(context.Background(), "st-1", "fisa-mate-7-fractii", 1)
	if a.TotalScore != 3 {
		t.Fatalf("total = %g, want 3 (re-summed, not accumulated)", a.TotalScore)
	}
}

func TestOracleFailureLeavesNoTrace(t *testing.T) {
	oracle := &fakeOracle{gradeErr: errors.New("upstream 500")}
	svc, store := newTestService(t, oracle)

	_, err := submit(t, svc, 2, `"un răspuns complet"`, 1)
	var oerr *OracleError
	if !errors.As(err, &oerr) {
		t.Fatalf("got %v, want OracleError", err)
	}

	// At-most-once grading charge: no attempt row, no progress row.
	if _, err := store.GetAttempt(context.Background(), "st-1", "fisa-mate-7-fractii", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("attempt row exists after oracle failure: %v", err)
	}
	rows, _ := store.ListProgress(context.Background(), "st-1", "fisa-mate-7-fractii", 1)
	if len(rows) != 0 {
		t.Fatalf("progress rows = %d, want 0", len(rows))
	}
}

func TestSubmitUnregisteredTopicIsNotRetryable(t *testing.T) {
	// A real oracle over a canned provider, so the prompt-builder lookup
	// actually runs.
	provider := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"score": 5, "feedback": "ok"}`),
	})
	prompts := grading.NewPromptRegistry()
	grading.RegisterBuiltins(prompts)
	oracle := grading.NewLLMOracle(provider, prompts, 256)

	store := NewInMemoryStore()
	svc := NewService(store, grading.NewGrader(oracle), oracle, nil, log.New(testWriter{t}, "", 0))

	ws := testWorksheet(t)
	ws.Topic = "chimie" // not registered
	if err := store.PutWorksheet(context.Background(), ws); err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.BulkUpsertStudents(context.Background(), []Student{
		{ID: "st-1", Name: "Ana Pop", AccessCode: "COD-ANA"},
	}); err != nil {
		t.Fatal(err)
	}

	_, err := svc.SubmitStep(context.Background(), SubmitInput{
		StudentID:     "st-1",
		WorksheetID:   ws.ID,
		StepPosition:  2,
		AttemptNumber: 1,
		Answer:        json.RawMessage(`"un răspuns complet"`),
	})

	var noBuilder *grading.ErrPromptBuilderNotFound
	if !errors.As(err, &noBuilder) {
		t.Fatalf("got %v, want ErrPromptBuilderNotFound", err)
	}
	var oerr *OracleError
	if errors.As(err, &oerr) {
		t.Fatal("a missing prompt builder must not be reported as a retryable oracle failure")
	}
	if len(provider.Calls) != 0 {
		t.Fatal("unregistered topic must fail before reaching the provider")
	}
}

func TestOracleScorePersisted(t *testing.T) {
	oracle := &fakeOracle{gradeRes: grading.Result{Score: 5.5, Feedback: "Aproape complet.", IsCorrect: false}}
	svc, store := newTestService(t, oracle)

	res, err := submit(t, svc, 2, `"fracțiile se amplifică"`, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Score != 5.5 || res.MaxPoints != 7 || res.Feedback != "Aproape complet." {
		t.Fatalf("got %+v", res)
	}

	a, _ := store.GetAttempt(context.Background(), "st-1", "fisa-mate-7-fractii", 1)
	if a.TotalScore != 5.5 {
		t.Fatalf("total = %g, want 5.5", a.TotalScore)
	}
}

/* ---------------- RecomputeTotal ---------------- */

func TestRecomputeTotalZeroRows(t *testing.T) {
	svc, store := newTestService(t, &fakeOracle{})

	if err := store.EnsureAttempt(context.Background(), "st-1", "fisa-mate-7-fractii", 1); err != nil {
		t.Fatal(err)
	}
	total, err := svc.RecomputeTotal(context.Background(), "st-1", "fisa-mate-7-fractii", 1)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Fatalf("total = %g, want 0 for zero rows", total)
	}
}

/* ---------------- Finalize ---------------- */

func completeAttempt(t *testing.T, svc *Service, oracle *fakeOracle) {
	t.Helper()
	oracle.gradeRes = grading.Result{Score: 4, Feedback: "Ok.", IsCorrect: false}
	if _, err := submit(t, svc, 1, `1`, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := submit(t, svc, 2, `"fracțiile se amplifică"`, 1); err != nil {
		t.Fatal(err)
	}
}

func TestFinalizeHappyPath(t *testing.T) {
	oracle := &fakeOracle{report: "Bravo, stăpânești amplificarea."}
	svc, store := newTestService(t, oracle)
	completeAttempt(t, svc, oracle)

	res, err := svc.Finalize(context.Background(), "st-1", "fisa-mate-7-fractii", 1, "")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if res.AlreadyCompleted {
		t.Fatal("first finalize must not report already_completed")
	}
	if res.FinalScore != 7 {
		t.Fatalf("final score = %g, want 7", res.FinalScore)
	}
	if res.GlobalFeedback != "Bravo, stăpânești amplificarea." {
		t.Fatalf("feedback = %q", res.GlobalFeedback)
	}
	if oracle.reportCalls != 1 {
		t.Fatalf("report calls = %d, want 1", oracle.reportCalls)
	}

	a, _ := store.GetAttempt(context.Background(), "st-1", "fisa-mate-7-fractii", 1)
	if !a.Completed || a.CompletedAt == nil {
		t.Fatalf("attempt not frozen: %+v", a)
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	oracle := &fakeOracle{report: "raport"}
	svc, store := newTestService(t, oracle)
	completeAttempt(t, svc, oracle)

	first, err := svc.Finalize(context.Background(), "st-1", "fisa-mate-7-fractii", 1, "feedback manual")
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Finalize(context.Background(), "st-1", "fisa-mate-7-fractii", 1, "alt feedback")
	if err != nil {
		t.Fatal(err)
	}
	if !second.AlreadyCompleted {
		t.Fatal("second finalize must report already_completed")
	}
	if second.FinalScore != first.FinalScore || second.CompletedAt != first.CompletedAt {
		t.Fatalf("second finalize mutated the attempt: %+v vs %+v", second, first)
	}

	a, _ := store.GetAttempt(context.Background(), "st-1", "fisa-mate-7-fractii", 1)
	if a.GlobalFeedback != "feedback manual" {
		t.Fatalf("feedback overwritten on repeat finalize: %q", a.GlobalFeedback)
	}
}

func TestFinalizeRequiresAllSteps(t *testing.T) {
	oracle := &fakeOracle{}
	svc, _ := newTestService(t, oracle)

	if _, err := submit(t, svc, 1, `1`, 1); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Finalize(context.Background(), "st-1", "fisa-mate-7-fractii", 1, "")
	if !errors.Is(err, ErrIncompleteAttempt) {
		t.Fatalf("got %v, want ErrIncompleteAttempt", err)
	}
}

func TestFinalizeMissingAttempt(t *testing.T) {
	svc, _ := newTestService(t, &fakeOracle{})

	_, err := svc.Finalize(context.Background(), "st-1", "fisa-mate-7-fractii", 1, "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestFinalizeSurvivesReportFailure(t *testing.T) {
	oracle := &fakeOracle{reportErr: errors.New("oracle down")}
	svc, store := newTestService(t, oracle)
	completeAttempt(t, svc, oracle)

	res, err := svc.Finalize(context.Background(), "st-1", "fisa-mate-7-fractii", 1, "")
	if err != nil {
		t.Fatalf("finalize must not fail on report error: %v", err)
	}
	if res.GlobalFeedback != "" {
		t.Fatalf("feedback = %q, want empty when report failed", res.GlobalFeedback)
	}
	a, _ := store.GetAttempt(context.Background(), "st-1", "fisa-mate-7-fractii", 1)
	if !a.Completed {
		t.Fatal("attempt must still be completed")
	}
}
