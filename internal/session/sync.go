package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	pkgerrors "github.com/codewithpritom/lms-storefront/pkg/errors"
	"github.com/codewithpritom/lms-storefront/pkg/logger"
	"github.com/codewithpritom/lms-storefront/pkg/webhook"
)

// syncDoneTTL keeps the per-day idempotency marker long enough to cover the
// whole day plus clock skew between worker replicas.
const syncDoneTTL = 48 * time.Hour

type syncStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SyncUsersKey() string
	SyncDoneKey(email, date string) string
}

type authAuthority interface {
	Authenticate(ctx context.Context, req webhook.AuthRequest) (*webhook.AuthResult, error)
}

// Syncer refreshes every known user's course access against the automation
// backend, at most once per user per day.
type Syncer struct {
	store     syncStore
	authority authAuthority
	profiles  *Manager
	logg      *logger.Logger
	now       func() time.Time
}

// NewSyncer builds the daily access syncer.
func NewSyncer(store syncStore, authority authAuthority, profiles *Manager, logg *logger.Logger) (*Syncer, error) {
	if store == nil {
		return nil, fmt.Errorf("sync store required")
	}
	if authority == nil {
		return nil, fmt.Errorf("auth authority required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile manager required")
	}
	return &Syncer{store: store, authority: authority, profiles: profiles, logg: logg, now: time.Now}, nil
}

// Run performs one sync sweep. Users already synced today are skipped via a
// per-user per-day marker; a failed sync releases its marker so a later sweep
// retries. Per-user failures are aggregated, not fatal.
func (s *Syncer) Run(ctx context.Context) error {
	emails, err := s.store.SMembers(ctx, s.store.SyncUsersKey())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sync users")
	}

	date := s.now().UTC().Format("2006-01-02")
	var sweepErr error
	synced := 0
	for _, email := range emails {
		if ctx.Err() != nil {
			return multierr.Append(sweepErr, ctx.Err())
		}
		done, err := s.syncUser(ctx, email, date)
		if err != nil {
			sweepErr = multierr.Append(sweepErr, fmt.Errorf("sync %s: %w", email, err))
			continue
		}
		if done {
			synced++
		}
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"users":  len(emails),
			"synced": synced,
		}), "daily access sync sweep finished")
	}
	return sweepErr
}

func (s *Syncer) syncUser(ctx context.Context, email, date string) (bool, error) {
	marker := s.store.SyncDoneKey(email, date)
	acquired, err := s.store.SetNX(ctx, marker, s.now().UTC().Format(time.RFC3339), syncDoneTTL)
	if err != nil {
		return false, fmt.Errorf("mark sync: %w", err)
	}
	if !acquired {
		return false, nil
	}

	result, err := s.authority.Authenticate(ctx, webhook.AuthRequest{Action: "sync", Email: email})
	if err != nil {
		s.releaseMarker(ctx, marker)
		return false, err
	}
	if !result.Success || result.User == nil {
		// The backend no longer knows the user; nothing to refresh.
		return true, nil
	}

	profile, err := s.profiles.Profile(ctx, email)
	if err != nil {
		s.releaseMarker(ctx, marker)
		return false, err
	}
	if profile != nil && profile.Access == result.User.Access && profile.Name == result.User.Name {
		return true, nil
	}

	if err := s.profiles.SaveProfile(ctx, User{
		Email:  email,
		Name:   result.User.Name,
		Access: result.User.Access,
	}); err != nil {
		s.releaseMarker(ctx, marker)
		return false, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithOwner(ctx, email), "refreshed course access")
	}
	return true, nil
}

func (s *Syncer) releaseMarker(ctx context.Context, marker string) {
	if err := s.store.Del(context.WithoutCancel(ctx), marker); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "release sync marker: "+err.Error())
	}
}
