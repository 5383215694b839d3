package onboarding

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/dispensary-crm/pkg/errors"
)

// BrandGuide accumulates the outputs of every completed step.
type BrandGuide struct {
	Basics     *BrandBasics    `json:"basics,omitempty"`
	Visual     *VisualIdentity `json:"visual,omitempty"`
	Voice      *VoiceTone      `json:"voice,omitempty"`
	Compliance *Compliance     `json:"compliance,omitempty"`
	Notes      string          `json:"notes,omitempty"`
}

// State is the wizard position plus everything collected so far.
type State struct {
	Step  Step       `json:"step"`
	Guide BrandGuide `json:"guide"`
	// Revising is set when a review sent the wizard back; the next
	// submission returns straight to review.
	Revising bool `json:"revising,omitempty"`
}

// Start is the initial wizard state.
func Start() State {
	return State{Step: StepBrandBasics}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Advance validates output for the current step and returns the next state.
// The input state is not modified.
func Advance(state State, output StepOutput) (State, error) {
	if output == nil {
		return state, pkgerrors.New(pkgerrors.CodeValidation, "step output is required")
	}
	if err := validateOutput(output); err != nil {
		return state, err
	}

	next := state
	next.Guide = state.Guide.clone()

	switch state.Step {
	case StepBrandBasics:
		out, ok := output.(BrandBasics)
		if !ok {
			return state, wrongOutput(state.Step, output)
		}
		next.Guide.Basics = &out
		next.Step = next.after(StepVisualIdentity)
	case StepVisualIdentity:
		out, ok := output.(VisualIdentity)
		if !ok {
			return state, wrongOutput(state.Step, output)
		}
		next.Guide.Visual = &out
		next.Step = next.after(StepVoiceTone)
	case StepVoiceTone:
		out, ok := output.(VoiceTone)
		if !ok {
			return state, wrongOutput(state.Step, output)
		}
		next.Guide.Voice = &out
		next.Step = next.after(StepCompliance)
	case StepCompliance:
		out, ok := output.(Compliance)
		if !ok {
			return state, wrongOutput(state.Step, output)
		}
		next.Guide.Compliance = &out
		next.Step = StepReview
	case StepReview:
		out, ok := output.(Review)
		if !ok {
			return state, wrongOutput(state.Step, output)
		}
		next.Guide.Notes = strings.TrimSpace(out.Notes)
		if out.Approved {
			if missing := next.Guide.missing(); len(missing) > 0 {
				return state, pkgerrors.New(pkgerrors.CodeStateConflict, "brand guide is incomplete").
					WithDetails(map[string]any{"missing": missing})
			}
			next.Step = StepComplete
			next.Revising = false
			break
		}
		if !out.ReviseStep.editable() {
			return state, pkgerrors.New(pkgerrors.CodeValidation, "reviseStep must name an earlier step when not approved")
		}
		next.Step = out.ReviseStep
		next.Revising = true
	case StepComplete:
		return state, pkgerrors.New(pkgerrors.CodeStateConflict, "onboarding already complete")
	default:
		return state, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown step %q", state.Step))
	}
	return next, nil
}

// after routes a revision back to review instead of the natural next step.
func (s *State) after(natural Step) Step {
	if s.Revising {
		s.Revising = false
		return StepReview
	}
	return natural
}

func (g BrandGuide) clone() BrandGuide {
	out := g
	if g.Basics != nil {
		b := *g.Basics
		out.Basics = &b
	}
	if g.Visual != nil {
		v := *g.Visual
		out.Visual = &v
	}
	if g.Voice != nil {
		v := *g.Voice
		out.Voice = &v
	}
	if g.Compliance != nil {
		c := *g.Compliance
		out.Compliance = &c
	}
	return out
}

func (g BrandGuide) missing() []Step {
	var out []Step
	if g.Basics == nil {
		out = append(out, StepBrandBasics)
	}
	if g.Visual == nil {
		out = append(out, StepVisualIdentity)
	}
	if g.Voice == nil {
		out = append(out, StepVoiceTone)
	}
	if g.Compliance == nil {
		out = append(out, StepCompliance)
	}
	return out
}

func validateOutput(output StepOutput) error {
	if err := validate.Struct(output); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			details := map[string]string{}
			for _, fe := range fieldErrs {
				details[fe.Field()] = fe.Tag()
			}
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid step output").WithDetails(details)
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid step output")
	}
	return nil
}

func wrongOutput(step Step, output StepOutput) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "output does not match the current step").
		WithDetails(map[string]any{"step": step, "outputFor": output.Step()})
}
