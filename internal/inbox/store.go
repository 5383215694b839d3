package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/dispensary-crm/pkg/errors"
)

const writeLockTTL = 5 * time.Second

// Store persists one snapshot per org.
type Store interface {
	Load(ctx context.Context, orgID string) (Snapshot, error)
	// Save writes next only if the stored version still equals expected.
	Save(ctx context.Context, next Snapshot, expected int64) error
}

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key, value string) (bool, error)
	InboxKey(orgID string) string
	LockKey(parts ...string) string
}

type snapshotStore struct {
	client redisStore
}

// NewRedisStore keeps snapshots as JSON documents. Writes take a short
// per-org lock so the version compare and the write are atomic.
func NewRedisStore(client redisStore) Store {
	return &snapshotStore{client: client}
}

func (s *snapshotStore) Load(ctx context.Context, orgID string) (Snapshot, error) {
	raw, err := s.client.Get(ctx, s.client.InboxKey(orgID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Empty(orgID), nil
		}
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inbox")
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode inbox")
	}
	if snap.Threads == nil {
		snap.Threads = []Thread{}
	}
	snap.OrgID = orgID
	return snap, nil
}

func (s *snapshotStore) Save(ctx context.Context, next Snapshot, expected int64) error {
	lockKey := s.client.LockKey("inbox", next.OrgID)
	owner := uuid.NewString()
	ok, err := s.client.SetNX(ctx, lockKey, owner, writeLockTTL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock inbox")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "inbox is being updated; retry")
	}
	defer s.unlock(context.WithoutCancel(ctx), lockKey, owner)

	current, err := s.Load(ctx, next.OrgID)
	if err != nil {
		return err
	}
	if current.Version != expected {
		return versionConflict(expected, current.Version)
	}
	body, err := json.Marshal(next)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode inbox")
	}
	if err := s.client.Set(ctx, s.client.InboxKey(next.OrgID), body, 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save inbox")
	}
	return nil
}

func (s *snapshotStore) unlock(ctx context.Context, key, owner string) {
	_, _ = s.client.DelIfValue(ctx, key, owner)
}

func versionConflict(expected, actual int64) error {
	return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("inbox version is %d, expected %d", actual, expected)).
		WithDetails(map[string]any{"expectedVersion": expected, "currentVersion": actual})
}
