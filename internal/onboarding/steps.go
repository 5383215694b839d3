package onboarding

import "fmt"

// Step is a stage of the brand-guide wizard.
type Step string

const (
	StepBrandBasics    Step = "brand_basics"
	StepVisualIdentity Step = "visual_identity"
	StepVoiceTone      Step = "voice_tone"
	StepCompliance     Step = "compliance"
	StepReview         Step = "review"
	StepComplete       Step = "complete"
)

var stepOrder = []Step{
	StepBrandBasics,
	StepVisualIdentity,
	StepVoiceTone,
	StepCompliance,
	StepReview,
	StepComplete,
}

// Steps returns the wizard stages in order.
func Steps() []Step {
	out := make([]Step, len(stepOrder))
	copy(out, stepOrder)
	return out
}

func (s Step) IsValid() bool {
	for _, candidate := range stepOrder {
		if candidate == s {
			return true
		}
	}
	return false
}

// editable reports whether a review can send the wizard back to s.
func (s Step) editable() bool {
	switch s {
	case StepBrandBasics, StepVisualIdentity, StepVoiceTone, StepCompliance:
		return true
	}
	return false
}

func ParseStep(value string) (Step, error) {
	s := Step(value)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid onboarding step %q", value)
	}
	return s, nil
}
