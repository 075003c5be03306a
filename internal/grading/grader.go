// Package grading scores worksheet step answers. Grila steps are graded
// locally against the correct-option index; short steps are delegated
// to the LLM oracle.
package grading

import (
	"context"
	"fmt"
)

// Step is the minimal view of a worksheet step needed for grading.
// Callers convert from their own step type; nothing here touches the
// store.
type Step struct {
	Position      int
	Type          string // "grila" | "short"
	Question      string
	Points        float64
	Options       []string // grila
	CorrectOption int      // grila, zero-based
	Rubric        string   // short, sent to the oracle
}

// Meta carries worksheet and student context into prompts.
type Meta struct {
	WorksheetID string
	Subject     string
	Grade       string
	Topic       string
	StudentName string
}

// Result is the outcome of grading a single step answer.
type Result struct {
	Score     float64
	MaxPoints float64
	Feedback  string
	IsCorrect bool
}

// Strategy grades a single step.
type Strategy interface {
	Grade(ctx context.Context, meta Meta, step Step, answer any) (Result, error)
}

// Grader routes by step type to the correct Strategy.
type Grader struct {
	strategies map[string]Strategy
}

// NewGrader installs the built-in strategies.
func NewGrader(oracle Oracle) *Grader {
	return &Grader{
		strategies: map[string]Strategy{
			"grila": grilaStrategy{},
			"short": shortStrategy{oracle: oracle},
		},
	}
}

func (g *Grader) Grade(ctx context.Context, meta Meta, step Step, answer any) (Result, error) {
	s, ok := g.strategies[step.Type]
	if !ok {
		return Result{}, fmt.Errorf("no grading strategy for step type %q", step.Type)
	}
	return s.Grade(ctx, meta, step, answer)
}

// grilaStrategy checks the chosen option index against the correct one.
// The oracle is never involved.
type grilaStrategy struct{}

func (grilaStrategy) Grade(_ context.Context, _ Meta, step Step, answer any) (Result, error) {
	res := Result{MaxPoints: step.Points}
	idx, ok := answer.(int)
	if !ok {
		return res, fmt.Errorf("grila answer must be an option index")
	}
	if idx == step.CorrectOption {
		res.Score = step.Points
		res.IsCorrect = true
		res.Feedback = "Răspuns corect!"
		return res, nil
	}
	correct := ""
	if step.CorrectOption >= 0 && step.CorrectOption < len(step.Options) {
		correct = step.Options[step.CorrectOption]
	}
	res.Feedback = fmt.Sprintf("Răspuns greșit. Varianta corectă era: %s", correct)
	return res, nil
}

// shortStrategy delegates scoring and feedback entirely to the oracle.
type shortStrategy struct {
	oracle Oracle
}

func (s shortStrategy) Grade(ctx context.Context, meta Meta, step Step, answer any) (Result, error) {
	text, ok := answer.(string)
	if !ok {
		return Result{}, fmt.Errorf("short answer must be text")
	}
	return s.oracle.GradeStep(ctx, meta, step, text)
}
