package grading

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubOracle struct {
	res   Result
	err   error
	calls int
}

func (s *stubOracle) GradeStep(context.Context, Meta, Step, string) (Result, error) {
	s.calls++
	return s.res, s.err
}

func (s *stubOracle) FinalReport(context.Context, Meta, []StepOutcome) (string, error) {
	return "", nil
}

func grilaStep() Step {
	return Step{
		Position:      1,
		Type:          "grila",
		Question:      "2/4 = ?",
		Points:        3,
		Options:       []string{"1/3", "1/2", "2/3"},
		CorrectOption: 1,
	}
}

func TestGrilaCorrectOption(t *testing.T) {
	g := NewGrader(&stubOracle{})

	res, err := g.Grade(context.Background(), Meta{}, grilaStep(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsCorrect || res.Score != 3 {
		t.Fatalf("got %+v, want full points", res)
	}
}

func TestGrilaWrongOptionNamesCorrectAnswer(t *testing.T) {
	g := NewGrader(&stubOracle{})

	res, err := g.Grade(context.Background(), Meta{}, grilaStep(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if res.IsCorrect || res.Score != 0 {
		t.Fatalf("got %+v, want zero", res)
	}
	if !strings.Contains(res.Feedback, "1/2") {
		t.Fatalf("feedback %q should include the correct option", res.Feedback)
	}
}

func TestGrilaNeverCallsOracle(t *testing.T) {
	oracle := &stubOracle{}
	g := NewGrader(oracle)

	if _, err := g.Grade(context.Background(), Meta{}, grilaStep(), 0); err != nil {
		t.Fatal(err)
	}
	if oracle.calls != 0 {
		t.Fatalf("oracle calls = %d, want 0 for grila", oracle.calls)
	}
}

func TestGrilaRejectsNonIndexAnswer(t *testing.T) {
	g := NewGrader(&stubOracle{})

	if _, err := g.Grade(context.Background(), Meta{}, grilaStep(), "1/2"); err == nil {
		t.Fatal("text answer to a grila step must fail")
	}
}

func TestShortDelegatesToOracle(t *testing.T) {
	oracle := &stubOracle{res: Result{Score: 4, MaxPoints: 7, Feedback: "Parțial."}}
	g := NewGrader(oracle)

	step := Step{Position: 2, Type: "short", Points: 7, Rubric: "barem"}
	res, err := g.Grade(context.Background(), Meta{}, step, "un răspuns")
	if err != nil {
		t.Fatal(err)
	}
	if oracle.calls != 1 {
		t.Fatalf("oracle calls = %d, want 1", oracle.calls)
	}
	if res.Score != 4 || res.Feedback != "Parțial." {
		t.Fatalf("got %+v", res)
	}
}

func TestShortOracleErrorPropagates(t *testing.T) {
	boom := errors.New("oracle down")
	g := NewGrader(&stubOracle{err: boom})

	step := Step{Position: 2, Type: "short", Points: 7}
	if _, err := g.Grade(context.Background(), Meta{}, step, "un răspuns"); !errors.Is(err, boom) {
		t.Fatalf("got %v, want the oracle error", err)
	}
}

func TestUnknownStepType(t *testing.T) {
	g := NewGrader(&stubOracle{})

	if _, err := g.Grade(context.Background(), Meta{}, Step{Type: "essay"}, "x"); err == nil {
		t.Fatal("unknown step type must fail")
	}
}
