package grading

import (
	"fmt"
	"strings"
)

// PromptBuilder produces oracle prompts for one worksheet topic.
type PromptBuilder interface {
	StepPrompt(meta Meta, step Step, answer string) (system, user string)
	ReportPrompt(meta Meta, outcomes []StepOutcome) (system, user string)
}

// ErrPromptBuilderNotFound is returned when a worksheet declares a
// topic key with no registered builder. Lookup is explicit; there is no
// dynamic name construction.
type ErrPromptBuilderNotFound struct {
	Topic string
}

func (e *ErrPromptBuilderNotFound) Error() string {
	return fmt.Sprintf("no prompt builder registered for topic %q", e.Topic)
}

// PromptRegistry maps worksheet topic keys to prompt builders. A
// worksheet that declares no topic gets the generic builder.
type PromptRegistry struct {
	builders map[string]PromptBuilder
	generic  PromptBuilder
}

func NewPromptRegistry() *PromptRegistry {
	return &PromptRegistry{
		builders: map[string]PromptBuilder{},
		generic:  GenericBuilder{},
	}
}

func (r *PromptRegistry) Register(topic string, b PromptBuilder) {
	r.builders[topic] = b
}

func (r *PromptRegistry) Resolve(topic string) (PromptBuilder, error) {
	if topic == "" {
		return r.generic, nil
	}
	b, ok := r.builders[topic]
	if !ok {
		return nil, &ErrPromptBuilderNotFound{Topic: topic}
	}
	return b, nil
}

// GenericBuilder grades against the step rubric with no
// subject-specific framing.
type GenericBuilder struct {
	// SubjectHint, when set, is woven into the system prompt
	// ("profesor de matematică" etc).
	SubjectHint string
}

func (b GenericBuilder) StepPrompt(meta Meta, step Step, answer string) (string, string) {
	role := "profesor"
	if b.SubjectHint != "" {
		role = "profesor de " + b.SubjectHint
	}
	system := fmt.Sprintf(
		"Ești un %s care corectează fișe de lucru pentru clasa %s. "+
			"Evaluează răspunsul elevului strict după barem și acordă un punctaj între 0 și %g. "+
			"Răspunde doar cu JSON: {\"score\": <număr>, \"feedback\": <text în limba română, adresat elevului>}.",
		role, meta.Grade, step.Points)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Întrebare: %s\n", step.Question)
	if step.Rubric != "" {
		fmt.Fprintf(&sb, "Barem: %s\n", step.Rubric)
	}
	fmt.Fprintf(&sb, "Punctaj maxim: %g\n", step.Points)
	if meta.StudentName != "" {
		fmt.Fprintf(&sb, "Elev: %s\n", meta.StudentName)
	}
	fmt.Fprintf(&sb, "Răspunsul elevului: %s", answer)
	return system, sb.String()
}

func (b GenericBuilder) ReportPrompt(meta Meta, outcomes []StepOutcome) (string, string) {
	system := fmt.Sprintf(
		"Ești un profesor care a corectat fișa de lucru „%s” (%s, clasa %s). "+
			"Scrie un raport final scurt (3-5 fraze) pentru elev: ce a mers bine, ce mai are de exersat. "+
			"Ton încurajator, limba română, fără formatare specială.",
		meta.WorksheetID, meta.Subject, meta.Grade)

	var sb strings.Builder
	if meta.StudentName != "" {
		fmt.Fprintf(&sb, "Elev: %s\n", meta.StudentName)
	}
	var total, max float64
	for _, o := range outcomes {
		total += o.Score
		max += o.MaxPoints
		fmt.Fprintf(&sb, "Pasul %d: %s\nRăspuns: %s\nPunctaj: %g/%g\n\n",
			o.Position, o.Question, o.Answer, o.Score, o.MaxPoints)
	}
	fmt.Fprintf(&sb, "Total: %g/%g", total, max)
	return system, sb.String()
}

// RegisterBuiltins installs the builders for the topics shipped with
// the platform. New topics must be registered here before worksheets
// using them can be graded.
func RegisterBuiltins(r *PromptRegistry) {
	r.Register("matematica", GenericBuilder{SubjectHint: "matematică"})
	r.Register("romana", GenericBuilder{SubjectHint: "limba și literatura română"})
	r.Register("fizica", GenericBuilder{SubjectHint: "fizică"})
	r.Register("istorie", GenericBuilder{SubjectHint: "istorie"})
}
