package onboarding

import (
	"encoding/json"
	"fmt"

	pkgerrors "github.com/angelmondragon/dispensary-crm/pkg/errors"
)

// StepOutput is what the user submits for one step. Only the types in this
// file implement it.
type StepOutput interface {
	Step() Step
	sealed()
}

type BrandBasics struct {
	BrandName string   `json:"brandName" validate:"required,max=120"`
	Tagline   string   `json:"tagline" validate:"max=200"`
	Website   string   `json:"website" validate:"omitempty,url"`
	Locations []string `json:"locations" validate:"required,min=1,max=100,dive,required,max=120"`
	Audience  []string `json:"targetAudience" validate:"max=10,dive,max=80"`
}

type VisualIdentity struct {
	PrimaryColor    string   `json:"primaryColor" validate:"required,hexcolor"`
	SecondaryColors []string `json:"secondaryColors" validate:"max=6,dive,hexcolor"`
	LogoURL         string   `json:"logoUrl" validate:"omitempty,url"`
	Fonts           []string `json:"fonts" validate:"max=4,dive,max=80"`
}

type VoiceTone struct {
	Adjectives []string `json:"adjectives" validate:"required,min=1,max=8,dive,required,max=40"`
	Formality  int      `json:"formality" validate:"required,min=1,max=5"`
	Avoid      []string `json:"avoid" validate:"max=20,dive,max=80"`
	SampleCopy string   `json:"sampleCopy" validate:"max=2000"`
}

type Compliance struct {
	States           []string `json:"states" validate:"required,min=1,dive,len=2,alpha,uppercase"`
	AgeGate          int      `json:"ageGate" validate:"required,oneof=18 21"`
	Disclaimers      []string `json:"disclaimers" validate:"max=10,dive,max=500"`
	ProhibitedClaims []string `json:"prohibitedClaims" validate:"max=50,dive,max=120"`
}

// Review confirms the guide or sends the wizard back to an earlier step.
type Review struct {
	Approved   bool   `json:"approved"`
	ReviseStep Step   `json:"reviseStep,omitempty"`
	Notes      string `json:"notes" validate:"max=2000"`
}

func (BrandBasics) Step() Step    { return StepBrandBasics }
func (VisualIdentity) Step() Step { return StepVisualIdentity }
func (VoiceTone) Step() Step      { return StepVoiceTone }
func (Compliance) Step() Step     { return StepCompliance }
func (Review) Step() Step         { return StepReview }

func (BrandBasics) sealed()    {}
func (VisualIdentity) sealed() {}
func (VoiceTone) sealed()      {}
func (Compliance) sealed()     {}
func (Review) sealed()         {}

// WireOutput is the JSON form of a step output: the step it answers and its data.
type WireOutput struct {
	Step Step            `json:"step" validate:"required"`
	Data json.RawMessage `json:"data" validate:"required"`
}

// Decode returns the concrete output named by Step.
func (w WireOutput) Decode() (StepOutput, error) {
	var out StepOutput
	var err error
	switch w.Step {
	case StepBrandBasics:
		out, err = decodeOutput[BrandBasics](w.Data)
	case StepVisualIdentity:
		out, err = decodeOutput[VisualIdentity](w.Data)
	case StepVoiceTone:
		out, err = decodeOutput[VoiceTone](w.Data)
	case StepCompliance:
		out, err = decodeOutput[Compliance](w.Data)
	case StepReview:
		out, err = decodeOutput[Review](w.Data)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("step %q takes no output", w.Step))
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid step output")
	}
	return out, nil
}

func decodeOutput[T StepOutput](raw json.RawMessage) (StepOutput, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
