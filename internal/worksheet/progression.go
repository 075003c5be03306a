package worksheet

// Progression is the client-side navigation state machine over a
// worksheet's steps. The next step becomes reachable only once the
// current one is completed; finishing is reachable only from the last
// step with every step completed. Completion is sticky: revisiting a
// graded step never clears it.
type Progression struct {
	index     int
	completed []bool
}

// NewProgression builds a fresh controller over total steps, positioned
// at the first step.
func NewProgression(total int) *Progression {
	return &Progression{completed: make([]bool, total)}
}

// Restore marks the steps present in saved progress as completed, as
// done when an unfinished attempt is resumed.
func (p *Progression) Restore(progress []Progress) {
	for _, pr := range progress {
		p.MarkCompleted(pr.StepPosition)
	}
}

// MarkCompleted records a graded step by its 1-based position.
func (p *Progression) MarkCompleted(position int) {
	if position >= 1 && position <= len(p.completed) {
		p.completed[position-1] = true
	}
}

// Current returns the 1-based position of the step in view.
func (p *Progression) Current() int { return p.index + 1 }

// CurrentCompleted reports whether the step in view is graded.
func (p *Progression) CurrentCompleted() bool {
	return len(p.completed) > 0 && p.completed[p.index]
}

// Advance moves to the next step. It refuses when the current step is
// not completed or the last step is already in view.
func (p *Progression) Advance() bool {
	if p.index >= len(p.completed)-1 || !p.completed[p.index] {
		return false
	}
	p.index++
	return true
}

// Retreat moves to the previous step when there is one.
func (p *Progression) Retreat() bool {
	if p.index == 0 {
		return false
	}
	p.index--
	return true
}

// AllCompleted reports whether every step is graded.
func (p *Progression) AllCompleted() bool {
	for _, c := range p.completed {
		if !c {
			return false
		}
	}
	return len(p.completed) > 0
}

// CanFinish reports whether the finish action may be surfaced: last
// step in view and nothing left ungraded.
func (p *Progression) CanFinish() bool {
	return p.index == len(p.completed)-1 && p.AllCompleted()
}
