package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/dispensary-crm/api/controllers"
	"github.com/angelmondragon/dispensary-crm/api/middleware"
	"github.com/angelmondragon/dispensary-crm/internal/crm"
	"github.com/angelmondragon/dispensary-crm/internal/inbox"
	"github.com/angelmondragon/dispensary-crm/pkg/auth/session"
	"github.com/angelmondragon/dispensary-crm/pkg/config"
	"github.com/angelmondragon/dispensary-crm/pkg/enums"
	"github.com/angelmondragon/dispensary-crm/pkg/logger"
	pkgredis "github.com/angelmondragon/dispensary-crm/pkg/redis"
)

// redisStore covers idempotency records and rate limit counters.
type redisStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Params wires the HTTP surface. Nil pingers are reported as skipped by
// readiness; a nil Gatherer disables /metrics.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	Sessions session.AccessSessionChecker
	Redis    redisStore
	CRM      crm.Service
	Inbox    inbox.Service
	Gatherer prometheus.Gatherer
	Ready    []controllers.Dependency
}

var (
	editorRoles = []enums.MemberRole{
		enums.MemberRoleOwner,
		enums.MemberRoleManager,
		enums.MemberRoleMarketer,
		enums.MemberRoleBudtender,
	}
	marketingRoles = []enums.MemberRole{
		enums.MemberRoleOwner,
		enums.MemberRoleManager,
		enums.MemberRoleMarketer,
	}
	adminRoles = []enums.MemberRole{
		enums.MemberRoleOwner,
		enums.MemberRoleManager,
	}
)

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Ready...))
	})
	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	computePolicy := middleware.NewRateLimitPolicy(
		"compute",
		cfg.RateLimit.ComputeWindow,
		cfg.RateLimit.ComputeIPLimit,
		cfg.RateLimit.ComputeOrgLimit,
	)
	var limiter func(http.Handler) http.Handler = middleware.RateLimit(computePolicy, nil, logg)
	var idempotent func(http.Handler) http.Handler = middleware.Idempotency(nil, logg)
	if p.Redis != nil {
		limiter = middleware.RateLimit(computePolicy, p.Redis, logg)
		idempotent = middleware.Idempotency(p.Redis, logg)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
		r.Use(idempotent)

		r.Route("/crm", func(r chi.Router) {
			r.With(limiter).Get("/customers", controllers.CRMCustomers(p.CRM, logg))
			r.With(middleware.RequireRoles(logg, editorRoles...)).Put("/customers", controllers.CRMUpsertCustomer(p.CRM, logg))
			r.Get("/customers/{email}", controllers.CRMCustomer(p.CRM, logg))
			r.Get("/stats", controllers.CRMStats(p.CRM, logg))
			r.With(limiter).Get("/segments/suggested", controllers.CRMSuggestedSegments(p.CRM, logg))
			r.Get("/segments/rules", controllers.CRMSegmentRules(p.CRM, logg))
		})

		r.Route("/inbox", func(r chi.Router) {
			r.Get("/threads", controllers.InboxThreads(p.Inbox, logg))
			r.With(middleware.RequireRoles(logg, marketingRoles...)).Post("/commands", controllers.InboxCommand(p.Inbox, logg))
		})

		r.With(middleware.RequireRoles(logg, adminRoles...)).
			Post("/onboarding/brand-guide/advance", controllers.OnboardingAdvance(logg))
	})

	return r
}
