package worksheet

import "testing"

func TestProgressionAdvanceRequiresCompletion(t *testing.T) {
	p := NewProgression(3)

	if p.Current() != 1 {
		t.Fatalf("start at %d, want 1", p.Current())
	}
	if p.Advance() {
		t.Fatal("advance must fail while the current step is ungraded")
	}

	p.MarkCompleted(1)
	if !p.Advance() {
		t.Fatal("advance must succeed once the step is graded")
	}
	if p.Current() != 2 {
		t.Fatalf("current = %d, want 2", p.Current())
	}
}

func TestProgressionRetreat(t *testing.T) {
	p := NewProgression(3)

	if p.Retreat() {
		t.Fatal("retreat from the first step must fail")
	}
	p.MarkCompleted(1)
	p.Advance()
	if !p.Retreat() {
		t.Fatal("retreat must succeed past the first step")
	}
	if p.Current() != 1 {
		t.Fatalf("current = %d, want 1", p.Current())
	}
	// Revisiting never clears completion.
	if !p.CurrentCompleted() {
		t.Fatal("step 1 must stay completed after retreat")
	}
}

func TestProgressionNoSkippingAhead(t *testing.T) {
	p := NewProgression(3)
	p.MarkCompleted(1)
	p.Advance()

	// Step 2 ungraded: stuck.
	if p.Advance() {
		t.Fatal("must not skip over an ungraded step")
	}
}

func TestProgressionFinishOnlyAtLastStepAllDone(t *testing.T) {
	p := NewProgression(2)
	p.MarkCompleted(1)
	p.MarkCompleted(2)

	if p.CanFinish() {
		t.Fatal("finish must not surface before the last step is in view")
	}
	p.Advance()
	if !p.CanFinish() {
		t.Fatal("finish must surface at the last step with all steps graded")
	}
}

func TestProgressionFinishBlockedByGap(t *testing.T) {
	p := NewProgression(2)
	p.MarkCompleted(1)
	p.Advance()
	if p.CanFinish() {
		t.Fatal("finish must not surface with step 2 ungraded")
	}
}

func TestProgressionRestore(t *testing.T) {
	p := NewProgression(3)
	p.Restore([]Progress{
		{StepPosition: 1},
		{StepPosition: 2},
	})

	if !p.Advance() || !p.Advance() {
		t.Fatal("restored steps must be navigable")
	}
	if p.Advance() {
		t.Fatal("step 3 is ungraded")
	}
	if p.AllCompleted() {
		t.Fatal("one step still ungraded")
	}
}

func TestProgressionLastStepAdvanceStops(t *testing.T) {
	p := NewProgression(1)
	p.MarkCompleted(1)
	if p.Advance() {
		t.Fatal("no step after the last one")
	}
	if !p.CanFinish() {
		t.Fatal("single graded step is finishable")
	}
}
