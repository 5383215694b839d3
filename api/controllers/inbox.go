package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/dispensary-crm/api/responses"
	"github.com/angelmondragon/dispensary-crm/api/validators"
	"github.com/angelmondragon/dispensary-crm/internal/inbox"
	"github.com/angelmondragon/dispensary-crm/pkg/enums"
	pkgerrors "github.com/angelmondragon/dispensary-crm/pkg/errors"
	"github.com/angelmondragon/dispensary-crm/pkg/logger"
)

type threadsResponse struct {
	Version int64          `json:"version"`
	Threads []inbox.Thread `json:"threads"`
}

// InboxThreads lists the org's threads filtered by ?status, ?agent and ?q.
func InboxThreads(svc inbox.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := requireOrg(w, r, svc != nil, logg)
		if !ok {
			return
		}

		q := r.URL.Query()
		filter := inbox.ThreadFilter{
			Agent: validators.SanitizeString(q.Get("agent"), 120),
			Query: validators.SanitizeString(q.Get("q"), maxSearchLength),
		}
		if raw := strings.TrimSpace(q.Get("status")); raw != "" {
			status, err := enums.ParseThreadStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filter.Status = status
		}

		threads, version, err := svc.Threads(r.Context(), orgID, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if threads == nil {
			threads = []inbox.Thread{}
		}
		responses.WriteSuccess(w, threadsResponse{Version: version, Threads: threads})
	}
}

// InboxCommand applies one command envelope and returns the new snapshot.
func InboxCommand(svc inbox.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := requireOrg(w, r, svc != nil, logg)
		if !ok {
			return
		}

		var envelope inbox.Envelope
		if err := validators.DecodeJSONBody(r, &envelope); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cmd, err := envelope.Decode()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snap, err := svc.Execute(r.Context(), orgID, cmd, envelope.ExpectedVersion)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snap)
	}
}
