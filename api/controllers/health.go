package controllers

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/dispensary-crm/api/responses"
	"github.com/angelmondragon/dispensary-crm/pkg/config"
	pkgerrors "github.com/angelmondragon/dispensary-crm/pkg/errors"
	"github.com/angelmondragon/dispensary-crm/pkg/logger"
)

const readinessTimeout = 3 * time.Second

// Pinger is anything readiness can probe.
type Pinger interface {
	Ping(context.Context) error
}

// Dependency names a readiness probe. A nil Pinger is reported as skipped.
type Dependency struct {
	Name   string
	Pinger Pinger
}

const envHeader = "X-DCRM-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency concurrently and fails when any is down.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps ...Dependency) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		results := make([]string, len(deps))
		var g errgroup.Group
		for i, dep := range deps {
			i, dep := i, dep
			if dep.Pinger == nil {
				results[i] = "skipped"
				continue
			}
			g.Go(func() error {
				if err := dep.Pinger.Ping(ctx); err != nil {
					results[i] = "down"
					if logg != nil {
						logg.Error(logg.WithField(ctx, "dependency", dep.Name), "readiness check failed", err)
					}
					return err
				}
				results[i] = "ok"
				return nil
			})
		}
		err := g.Wait()

		checks := make(map[string]string, len(deps))
		for i, dep := range deps {
			checks[dep.Name] = results[i]
		}
		if err != nil {
			responses.WriteError(r.Context(), nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dependency unavailable").
				WithDetails(map[string]any{"checks": checks}))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
