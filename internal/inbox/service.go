package inbox

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/dispensary-crm/pkg/errors"
	"github.com/angelmondragon/dispensary-crm/pkg/logger"
)

// Service reads and mutates org inboxes.
type Service interface {
	Snapshot(ctx context.Context, orgID string) (Snapshot, error)
	Threads(ctx context.Context, orgID string, filter ThreadFilter) ([]Thread, int64, error)
	Execute(ctx context.Context, orgID string, cmd Command, expectedVersion *int64) (Snapshot, error)
}

type ServiceParams struct {
	Store  Store
	Logger *logger.Logger
	Clock  func() time.Time
	NewID  func() string
}

type service struct {
	store Store
	logg  *logger.Logger
	clock func() time.Time
	newID func() string
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inbox store required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	newID := params.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &service{store: params.Store, logg: params.Logger, clock: clock, newID: newID}, nil
}

func (s *service) Snapshot(ctx context.Context, orgID string) (Snapshot, error) {
	orgID, err := requireOrg(orgID)
	if err != nil {
		return Snapshot{}, err
	}
	return s.store.Load(ctx, orgID)
}

func (s *service) Threads(ctx context.Context, orgID string, filter ThreadFilter) ([]Thread, int64, error) {
	snap, err := s.Snapshot(ctx, orgID)
	if err != nil {
		return nil, 0, err
	}
	return Filter(snap, filter), snap.Version, nil
}

// Execute applies one command against the stored snapshot. When
// expectedVersion is set the command is rejected unless it matches.
func (s *service) Execute(ctx context.Context, orgID string, cmd Command, expectedVersion *int64) (Snapshot, error) {
	snap, err := s.Snapshot(ctx, orgID)
	if err != nil {
		return Snapshot{}, err
	}
	if cmd == nil {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "command is required")
	}
	if expectedVersion != nil && *expectedVersion != snap.Version {
		return Snapshot{}, versionConflict(*expectedVersion, snap.Version)
	}

	next, err := Apply(snap, cmd.stamp(s.clock(), s.newID))
	if err != nil {
		return Snapshot{}, err
	}
	if err := s.store.Save(ctx, next, snap.Version); err != nil {
		return Snapshot{}, err
	}

	logCtx := s.logg.WithOrgID(ctx, snap.OrgID)
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"command": cmd.Name(),
		"version": next.Version,
	})
	s.logg.Info(logCtx, "inbox command applied")
	return next, nil
}

func requireOrg(orgID string) (string, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}
	return orgID, nil
}
