package crm

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/angelmondragon/dispensary-crm/pkg/db/models"
	"github.com/angelmondragon/dispensary-crm/pkg/enums"
	pkgerrors "github.com/angelmondragon/dispensary-crm/pkg/errors"
	"github.com/angelmondragon/dispensary-crm/pkg/logger"
	"github.com/angelmondragon/dispensary-crm/pkg/metrics"
	"github.com/angelmondragon/dispensary-crm/pkg/outbox"
	"github.com/angelmondragon/dispensary-crm/pkg/outbox/payloads"
)

// Service exposes the CRM customer pipeline to controllers and jobs.
type Service interface {
	ComputeCustomers(ctx context.Context, orgID string, opts ComputeOptions) (*Result, error)
	Stats(ctx context.Context, orgID string) (*Stats, error)
	SuggestedSegments(ctx context.Context, orgID string) ([]SegmentSuggestion, error)
	GetCustomer(ctx context.Context, orgID, email string) (*CustomerProfile, error)
	UpsertCustomer(ctx context.Context, orgID string, input UpsertInput, actor *outbox.ActorRef) (*UpsertResult, error)
	RefreshOrg(ctx context.Context, orgID string) (*Result, error)
	ListOrgIDs(ctx context.Context, limit int) ([]string, error)
	Rules() []Rule
}

// ComputeOptions tunes one customer computation. Filters are applied after
// stats are computed, so stats always cover the whole org.
type ComputeOptions struct {
	Enrich  bool
	Segment enums.CustomerSegment
	Query   string
}

// UpsertInput is a manually entered or edited CRM record.
type UpsertInput struct {
	Email               string            `json:"email" validate:"required,email,max=254"`
	FirstName           string            `json:"firstName" validate:"max=100"`
	LastName            string            `json:"lastName" validate:"max=100"`
	DisplayName         string            `json:"displayName" validate:"max=200"`
	Phone               string            `json:"phone" validate:"max=32"`
	PreferredCategories []string          `json:"preferredCategories" validate:"max=50,dive,max=64"`
	PreferredProducts   []string          `json:"preferredProducts" validate:"max=50,dive,max=128"`
	PriceRange          enums.PriceRange  `json:"priceRange" validate:"omitempty,oneof=low mid high"`
	CustomTags          []string          `json:"customTags" validate:"max=50,dive,max=64"`
	BirthDate           *time.Time        `json:"birthDate"`
	Preferences         map[string]string `json:"preferences" validate:"max=50"`
	Source              string            `json:"source" validate:"max=64"`
	Notes               string            `json:"notes" validate:"max=4000"`
	Points              *int64            `json:"points" validate:"omitempty,min=0"`
}

// UpsertResult is the stored profile and whether it was newly created.
type UpsertResult struct {
	Customer CustomerProfile `json:"customer"`
	Created  bool            `json:"created"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the CRM service. Spending and Cache are optional.
type ServiceParams struct {
	Repo       Repository
	Orders     OrderSource
	Spending   SpendingSource
	Cache      StatsCache
	Outbox     outbox.Emitter
	Tx         txRunner
	Classifier *Classifier
	Metrics    *metrics.CRMMetrics
	Logger     *logger.Logger
	Clock      func() time.Time
	// EnrichOnRefresh applies spending summaries during scheduled refreshes.
	EnrichOnRefresh bool
}

type service struct {
	repo            Repository
	orders          OrderSource
	spending        SpendingSource
	cache           StatsCache
	outbox          outbox.Emitter
	tx              txRunner
	classifier      *Classifier
	metrics         *metrics.CRMMetrics
	logg            *logger.Logger
	clock           func() time.Time
	enrichOnRefresh bool
}

// NewService validates dependencies and builds the CRM service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "crm repository required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order source required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	classifier := params.Classifier
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:            params.Repo,
		orders:          params.Orders,
		spending:        params.Spending,
		cache:           params.Cache,
		outbox:          params.Outbox,
		tx:              params.Tx,
		classifier:      classifier,
		metrics:         params.Metrics,
		logg:            params.Logger,
		clock:           clock,
		enrichOnRefresh: params.EnrichOnRefresh,
	}, nil
}

func (s *service) ComputeCustomers(ctx context.Context, orgID string, opts ComputeOptions) (*Result, error) {
	orgID, err := requireOrg(orgID)
	if err != nil {
		return nil, err
	}
	if opts.Segment != "" && !opts.Segment.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown segment").WithDetails(map[string]any{"segment": opts.Segment})
	}
	res, err := s.compute(ctx, orgID, opts.Enrich, "customers")
	if err != nil {
		return nil, err
	}
	res.Customers = Filter(res.Customers, opts.Segment, opts.Query)
	return res, nil
}

func (s *service) Stats(ctx context.Context, orgID string) (*Stats, error) {
	orgID, err := requireOrg(orgID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, orgID)
		if err != nil {
			s.warn(ctx, orgID, "stats cache read failed", err)
		}
		if ok {
			s.metrics.CacheHit()
			return cached, nil
		}
		s.metrics.CacheMiss()
	}
	res, err := s.compute(ctx, orgID, s.enrichOnRefresh, "stats")
	if err != nil {
		return nil, err
	}
	return &res.Stats, nil
}

func (s *service) SuggestedSegments(ctx context.Context, orgID string) ([]SegmentSuggestion, error) {
	stats, err := s.Stats(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return Suggest(*stats), nil
}

func (s *service) GetCustomer(ctx context.Context, orgID, email string) (*CustomerProfile, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	res, err := s.ComputeCustomers(ctx, orgID, ComputeOptions{})
	if err != nil {
		return nil, err
	}
	for i := range res.Customers {
		if res.Customers[i].Email == email {
			return &res.Customers[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
}

func (s *service) UpsertCustomer(ctx context.Context, orgID string, input UpsertInput, actor *outbox.ActorRef) (*UpsertResult, error) {
	orgID, err := requireOrg(orgID)
	if err != nil {
		return nil, err
	}
	email := NormalizeEmail(input.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if input.PriceRange != "" && !input.PriceRange.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid price range")
	}

	orders, err := s.orders.ListCustomerOrders(ctx, orgID, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer orders")
	}

	now := s.clock()
	var result UpsertResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByEmail(ctx, orgID, email)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load crm record")
		}

		row := rowFromInput(orgID, email, input, existing, now)
		record := recordFromModel(row)
		profiles := MergeProfiles(orgID, orders, []CustomerRecord{record}, now)
		profile := s.classifier.Apply(profiles[0], now)
		applyDerived(&row, profile)

		if err := repo.Upsert(ctx, &row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert crm record")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCustomerUpserted,
			AggregateType: enums.AggregateCustomer,
			AggregateID:   row.ID.String(),
			Actor:         actor,
			OccurredAt:    now,
			Data: payloads.CustomerUpsertedEvent{
				CustomerID: row.ID.String(),
				OrgID:      orgID,
				Email:      email,
				Segment:    profile.Segment,
				Tier:       profile.Tier,
				Created:    existing == nil,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit customer event")
		}

		result = UpsertResult{Customer: profile, Created: existing == nil}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, orgID); err != nil {
			s.warn(ctx, orgID, "stats cache invalidation failed", err)
		}
	}
	return &result, nil
}

// RefreshOrg recomputes an org, warms its stats cache and records a
// segments_refreshed event.
func (s *service) RefreshOrg(ctx context.Context, orgID string) (*Result, error) {
	orgID, err := requireOrg(orgID)
	if err != nil {
		return nil, err
	}
	res, err := s.compute(ctx, orgID, s.enrichOnRefresh, "refresh")
	if err != nil {
		return nil, err
	}

	breakdown := make(map[string]int, len(res.Stats.SegmentBreakdown))
	for segment, count := range res.Stats.SegmentBreakdown {
		breakdown[string(segment)] = count
	}
	s.metrics.SetSegmentSizes(orgID, breakdown)

	now := s.clock()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSegmentsRefreshed,
			AggregateType: enums.AggregateOrganization,
			AggregateID:   orgID,
			OccurredAt:    now,
			Data: payloads.SegmentsRefreshedEvent{
				OrgID:            orgID,
				TotalCustomers:   res.Stats.TotalCustomers,
				SegmentBreakdown: res.Stats.SegmentBreakdown,
				RefreshedAt:      now,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit refresh event")
	}
	return res, nil
}

// ListOrgIDs merges orgs known from CRM records and from orders.
func (s *service) ListOrgIDs(ctx context.Context, limit int) ([]string, error) {
	var fromRecords, fromOrders []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := s.repo.ListOrgIDs(gctx, limit)
		fromRecords = ids
		return err
	})
	g.Go(func() error {
		ids, err := s.orders.OrgIDs(gctx, limit)
		fromOrders = ids
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list org ids")
	}

	seen := make(map[string]struct{}, len(fromRecords)+len(fromOrders))
	ids := make([]string, 0, len(fromRecords)+len(fromOrders))
	for _, id := range append(fromRecords, fromOrders...) {
		if _, ok := seen[id]; ok || strings.TrimSpace(id) == "" {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *service) Rules() []Rule {
	return s.classifier.Rules()
}

// compute fetches the org's orders, records and optionally spending
// summaries concurrently, then runs the pipeline.
func (s *service) compute(ctx context.Context, orgID string, enrich bool, operation string) (*Result, error) {
	started := time.Now()
	var in Input
	in.OrgID = orgID

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		orders, err := s.orders.ListOrders(gctx, orgID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
		}
		in.Orders = orders
		return nil
	})
	g.Go(func() error {
		records, err := s.repo.ListRecords(gctx, orgID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list crm records")
		}
		in.Records = records
		return nil
	})
	if enrich && s.spending != nil {
		g.Go(func() error {
			summaries, err := s.spending.SpendingSummaries(gctx, orgID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load spending summaries")
			}
			in.Spending = summaries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	in.Now = s.clock()
	res := Compute(in, s.classifier)
	s.metrics.ObserveCompute(operation, time.Since(started), len(res.Customers))

	// The cache only holds stats computed the way the refresh job computes them.
	if s.cache != nil && enrich == s.enrichOnRefresh {
		if err := s.cache.Set(ctx, orgID, res.Stats); err != nil {
			s.warn(ctx, orgID, "stats cache write failed", err)
		}
	}
	return &res, nil
}

func (s *service) warn(ctx context.Context, orgID, msg string, err error) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithOrgID(ctx, orgID)
	logCtx = s.logg.WithField(logCtx, "error", err.Error())
	s.logg.Warn(logCtx, msg)
}

func requireOrg(orgID string) (string, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "org id required")
	}
	return orgID, nil
}

// rowFromInput leaves CreatedAt zero for new records so the merge can date
// them from their first order.
func rowFromInput(orgID, email string, input UpsertInput, existing *models.CRMCustomer, now time.Time) models.CRMCustomer {
	row := models.CRMCustomer{
		ID:                  uuid.New(),
		OrgID:               orgID,
		Email:               email,
		FirstName:           strings.TrimSpace(input.FirstName),
		LastName:            strings.TrimSpace(input.LastName),
		DisplayName:         strings.TrimSpace(input.DisplayName),
		Phone:               strings.TrimSpace(input.Phone),
		PreferredCategories: pq.StringArray(cleanStrings(input.PreferredCategories)),
		PreferredProducts:   pq.StringArray(cleanStrings(input.PreferredProducts)),
		PriceRange:          input.PriceRange,
		CustomTags:          pq.StringArray(cleanStrings(input.CustomTags)),
		BirthDate:           input.BirthDate,
		Source:              strings.TrimSpace(input.Source),
		Notes:               input.Notes,
		Points:              input.Points,
		UpdatedAt:           now,
	}
	if row.PriceRange == "" {
		row.PriceRange = enums.PriceRangeMid
	}
	if len(input.Preferences) > 0 {
		if raw, err := json.Marshal(input.Preferences); err == nil {
			row.Preferences = raw
		}
	}
	if existing != nil {
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
	}
	return row
}

func applyDerived(row *models.CRMCustomer, p CustomerProfile) {
	row.Segment = p.Segment
	row.Tier = p.Tier
	row.OrderCount = p.OrderCount
	row.TotalSpent = decimal.NewFromFloat(p.TotalSpent).Round(2)
	row.LastOrderAt = p.LastOrderDate
	if row.CreatedAt.IsZero() {
		row.CreatedAt = p.CreatedAt
	}
	if row.Points == nil {
		points := p.Points
		row.Points = &points
	}
}
