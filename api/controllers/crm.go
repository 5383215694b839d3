package controllers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/dispensary-crm/api/middleware"
	"github.com/angelmondragon/dispensary-crm/api/responses"
	"github.com/angelmondragon/dispensary-crm/api/validators"
	"github.com/angelmondragon/dispensary-crm/internal/crm"
	"github.com/angelmondragon/dispensary-crm/pkg/enums"
	pkgerrors "github.com/angelmondragon/dispensary-crm/pkg/errors"
	"github.com/angelmondragon/dispensary-crm/pkg/logger"
	"github.com/angelmondragon/dispensary-crm/pkg/outbox"
	"github.com/angelmondragon/dispensary-crm/pkg/pagination"
)

const maxSearchLength = 200

type customersResponse struct {
	Customers  []crm.CustomerProfile `json:"customers"`
	Stats      crm.Stats             `json:"stats"`
	NextCursor string                `json:"nextCursor,omitempty"`
}

// CRMCustomers computes every customer profile for the org, optionally
// filtered by segment or search text, together with org-wide stats.
func CRMCustomers(svc crm.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := requireOrg(w, r, svc != nil, logg)
		if !ok {
			return
		}

		enrich, err := validators.ParseQueryBool(r, "enrich", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		opts := crm.ComputeOptions{
			Enrich: enrich,
			Query:  validators.SanitizeString(r.URL.Query().Get("q"), maxSearchLength),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("segment")); raw != "" {
			segment, err := enums.ParseCustomerSegment(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid segment"))
				return
			}
			opts.Segment = segment
		}

		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor, err := pagination.ParseCursor(page.Cursor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor"))
			return
		}

		result, err := svc.ComputeCustomers(r.Context(), orgID, opts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := customersResponse{Customers: result.Customers, Stats: result.Stats}
		if page.Enabled() {
			out.Customers, out.NextCursor = pagination.Slice(result.Customers, cursor, page.Limit, lastOrderAt, customerKey)
		}
		if out.Customers == nil {
			out.Customers = []crm.CustomerProfile{}
		}
		responses.WriteSuccess(w, out)
	}
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")}, nil
}

func lastOrderAt(p crm.CustomerProfile) time.Time {
	if p.LastOrderDate == nil {
		return time.Unix(0, 0).UTC()
	}
	return *p.LastOrderDate
}

func customerKey(p crm.CustomerProfile) string {
	return p.Email
}

func CRMStats(svc crm.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := requireOrg(w, r, svc != nil, logg)
		if !ok {
			return
		}
		stats, err := svc.Stats(r.Context(), orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func CRMSuggestedSegments(svc crm.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := requireOrg(w, r, svc != nil, logg)
		if !ok {
			return
		}
		suggestions, err := svc.SuggestedSegments(r.Context(), orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, suggestions)
	}
}

func CRMCustomer(svc crm.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := requireOrg(w, r, svc != nil, logg)
		if !ok {
			return
		}
		email, err := url.PathUnescape(chi.URLParam(r, "email"))
		if err != nil || strings.TrimSpace(email) == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid email"))
			return
		}
		customer, err := svc.GetCustomer(r.Context(), orgID, email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

// CRMUpsertCustomer creates or edits the CRM record behind a customer. A
// newly created record answers 201.
func CRMUpsertCustomer(svc crm.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := requireOrg(w, r, svc != nil, logg)
		if !ok {
			return
		}

		var input crm.UpsertInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.UpsertCustomer(r.Context(), orgID, input, actorFromContext(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

func CRMSegmentRules(svc crm.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "crm service unavailable"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"rules": svc.Rules()})
	}
}

func requireOrg(w http.ResponseWriter, r *http.Request, available bool, logg *logger.Logger) (string, bool) {
	if !available {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "service unavailable"))
		return "", false
	}
	orgID := middleware.OrgIDFromContext(r.Context())
	if orgID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "org context missing"))
		return "", false
	}
	return orgID, true
}

func actorFromContext(r *http.Request) *outbox.ActorRef {
	ctx := r.Context()
	actor := &outbox.ActorRef{
		OrgID: middleware.OrgIDFromContext(ctx),
		Role:  middleware.RoleFromContext(ctx),
	}
	if id, err := uuid.Parse(middleware.UserIDFromContext(ctx)); err == nil {
		actor.UserID = id
	}
	return actor
}
