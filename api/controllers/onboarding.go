package controllers

import (
	"net/http"

	"github.com/angelmondragon/dispensary-crm/api/responses"
	"github.com/angelmondragon/dispensary-crm/api/validators"
	"github.com/angelmondragon/dispensary-crm/internal/onboarding"
	pkgerrors "github.com/angelmondragon/dispensary-crm/pkg/errors"
	"github.com/angelmondragon/dispensary-crm/pkg/logger"
)

type advanceRequest struct {
	State  *onboarding.State     `json:"state"`
	Output onboarding.WireOutput `json:"output"`
}

// OnboardingAdvance moves a client-held brand-guide wizard one step forward.
// A missing state starts a new wizard.
func OnboardingAdvance(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req advanceRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state := onboarding.Start()
		if req.State != nil {
			state = *req.State
			if !state.Step.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown wizard step"))
				return
			}
		}

		output, err := req.Output.Decode()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		next, err := onboarding.Advance(state, output)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, next)
	}
}
