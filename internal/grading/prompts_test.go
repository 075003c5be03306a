package grading

import (
	"errors"
	"strings"
	"testing"
)

func TestResolveEmptyTopicUsesGeneric(t *testing.T) {
	reg := NewPromptRegistry()

	b, err := reg.Resolve("")
	if err != nil {
		t.Fatal(err)
	}
	if b == nil {
		t.Fatal("empty topic must resolve to the generic builder")
	}
}

func TestResolveUnknownTopic(t *testing.T) {
	reg := NewPromptRegistry()
	RegisterBuiltins(reg)

	_, err := reg.Resolve("geografie")
	var notFound *ErrPromptBuilderNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("got %v, want ErrPromptBuilderNotFound", err)
	}
	if notFound.Topic != "geografie" {
		t.Fatalf("error names topic %q", notFound.Topic)
	}
}

func TestResolveBuiltins(t *testing.T) {
	reg := NewPromptRegistry()
	RegisterBuiltins(reg)

	for _, topic := range []string{"matematica", "romana", "fizica", "istorie"} {
		if _, err := reg.Resolve(topic); err != nil {
			t.Errorf("Resolve(%q): %v", topic, err)
		}
	}
}

func TestStepPromptCarriesRubricAndAnswer(t *testing.T) {
	b := GenericBuilder{SubjectHint: "matematică"}
	meta := Meta{Grade: "7", StudentName: "Ana Pop"}
	step := Step{Question: "2/4 = ?", Points: 3, Rubric: "Simplificare prin 2."}

	system, user := b.StepPrompt(meta, step, "1/2")
	if !strings.Contains(system, "matematică") || !strings.Contains(system, "clasa 7") {
		t.Fatalf("system prompt:\n%s", system)
	}
	for _, want := range []string{"2/4 = ?", "Simplificare prin 2.", "1/2", "Ana Pop"} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q:\n%s", want, user)
		}
	}
}

func TestReportPromptTotalsOutcomes(t *testing.T) {
	b := GenericBuilder{}
	outcomes := []StepOutcome{
		{Position: 1, Question: "a", Answer: "x", Score: 2, MaxPoints: 3},
		{Position: 2, Question: "b", Answer: "y", Score: 7, MaxPoints: 7},
	}

	_, user := b.ReportPrompt(Meta{WorksheetID: "fisa-1"}, outcomes)
	if !strings.Contains(user, "Total: 9/10") {
		t.Fatalf("report prompt must total scores:\n%s", user)
	}
}
