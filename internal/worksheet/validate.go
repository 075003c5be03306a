package worksheet

import "fmt"

// Validate checks an externally-authored worksheet definition before
// it is stored.
func (w Worksheet) Validate() error {
	if w.ID == "" {
		return fmt.Errorf("worksheet id required")
	}
	if w.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1")
	}
	if len(w.Steps) == 0 {
		return fmt.Errorf("worksheet needs at least one step")
	}
	for i, s := range w.Steps {
		want := i + 1
		if s.Position != want {
			return fmt.Errorf("step %d: position %d, want %d (positions are 1-based and contiguous)", i, s.Position, want)
		}
		if s.Question == "" {
			return fmt.Errorf("step %d: question required", want)
		}
		if s.Points <= 0 {
			return fmt.Errorf("step %d: points must be positive", want)
		}
		switch s.Type {
		case StepGrila:
			if len(s.Options) < 2 {
				return fmt.Errorf("step %d: grila needs at least two options", want)
			}
			if s.CorrectOption == nil {
				return fmt.Errorf("step %d: grila needs a correct option", want)
			}
			if c := *s.CorrectOption; c < 0 || c >= len(s.Options) {
				return fmt.Errorf("step %d: correct option %d out of range", want, c)
			}
		case StepShort:
			if s.Rubric == "" {
				return fmt.Errorf("step %d: short step needs a grading rubric", want)
			}
		default:
			return fmt.Errorf("step %d: unknown type %q", want, s.Type)
		}
	}
	return nil
}
