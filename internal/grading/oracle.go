package grading

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fisedigitale/backend/internal/llm"
)

// StepOutcome is one graded step, as fed into the final report prompt.
type StepOutcome struct {
	Position  int
	Question  string
	Answer    string
	Score     float64
	MaxPoints float64
	Feedback  string
}

// Oracle scores free-text answers and produces natural-language
// feedback. It is an opaque, possibly-failing collaborator: callers
// must treat any error as retryable and persist nothing for the step.
type Oracle interface {
	GradeStep(ctx context.Context, meta Meta, step Step, answer string) (Result, error)
	FinalReport(ctx context.Context, meta Meta, outcomes []StepOutcome) (string, error)
}

// LLMOracle implements Oracle on top of an llm.Provider.
type LLMOracle struct {
	provider  llm.Provider
	prompts   *PromptRegistry
	maxTokens int
}

func NewLLMOracle(provider llm.Provider, prompts *PromptRegistry, maxTokens int) *LLMOracle {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &LLMOracle{provider: provider, prompts: prompts, maxTokens: maxTokens}
}

var stepGradeSchema = &llm.Schema{
	Name: "step-grade",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score":    map[string]any{"type": "number"},
			"feedback": map[string]any{"type": "string"},
		},
		"required":             []any{"score", "feedback"},
		"additionalProperties": false,
	},
}

func (o *LLMOracle) GradeStep(ctx context.Context, meta Meta, step Step, answer string) (Result, error) {
	builder, err := o.prompts.Resolve(meta.Topic)
	if err != nil {
		return Result{}, err
	}
	system, user := builder.StepPrompt(meta, step, answer)

	resp, err := o.provider.Generate(ctx, llm.Request{
		System:    system,
		User:      user,
		Schema:    stepGradeSchema,
		MaxTokens: o.maxTokens,
	})
	if err != nil {
		return Result{}, err
	}

	var out struct {
		Score    *float64 `json:"score"`
		Feedback *string  `json:"feedback"`
	}
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return Result{}, fmt.Errorf("parse oracle grade: %w", err)
	}
	// A grade without a score or without feedback is malformed; the
	// submission must fail rather than award placeholder credit.
	if out.Score == nil || out.Feedback == nil || strings.TrimSpace(*out.Feedback) == "" {
		return Result{}, fmt.Errorf("oracle grade missing score or feedback")
	}

	score := *out.Score
	if score < 0 {
		score = 0
	}
	if score > step.Points {
		score = step.Points
	}
	return Result{
		Score:     score,
		MaxPoints: step.Points,
		Feedback:  *out.Feedback,
		IsCorrect: score >= step.Points,
	}, nil
}

func (o *LLMOracle) FinalReport(ctx context.Context, meta Meta, outcomes []StepOutcome) (string, error) {
	builder, err := o.prompts.Resolve(meta.Topic)
	if err != nil {
		return "", err
	}
	system, user := builder.ReportPrompt(meta, outcomes)

	resp, err := o.provider.Generate(ctx, llm.Request{
		System:    system,
		User:      user,
		MaxTokens: o.maxTokens,
	})
	if err != nil {
		return "", err
	}
	report := strings.TrimSpace(string(resp.Content))
	if report == "" {
		return "", fmt.Errorf("oracle returned empty report")
	}
	return report, nil
}
