package session

import (
	"context"
	"errors"
	"testing"

	"github.com/codewithpritom/lms-storefront/pkg/webhook"
)

type authorityStub struct {
	results map[string]*webhook.AuthResult
	err     error
	calls   []string
}

func (a *authorityStub) Authenticate(ctx context.Context, req webhook.AuthRequest) (*webhook.AuthResult, error) {
	a.calls = append(a.calls, req.Email)
	if a.err != nil {
		return nil, a.err
	}
	if result, ok := a.results[req.Email]; ok {
		return result, nil
	}
	return &webhook.AuthResult{Success: false}, nil
}

func newTestSyncer(t *testing.T, authority *authorityStub) (*Syncer, *Manager, *memoryStore) {
	t.Helper()
	manager, store := newTestManager(t)
	syncer, err := NewSyncer(store, authority, manager, nil)
	if err != nil {
		t.Fatalf("new syncer: %v", err)
	}
	return syncer, manager, store
}

func TestRunSyncsEachUserOncePerDay(t *testing.T) {
	t.Parallel()

	authority := &authorityStub{results: map[string]*webhook.AuthResult{
		"buyer@example.com": {
			Success: true,
			User:    &webhook.AuthUser{Email: "buyer@example.com", Name: "Buyer", Access: "c1"},
		},
	}}
	syncer, manager, _ := newTestSyncer(t, authority)
	ctx := context.Background()

	if _, err := manager.Create(ctx, User{Email: "buyer@example.com", Name: "Buyer"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := syncer.Run(ctx); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if err := syncer.Run(ctx); err != nil {
		t.Fatalf("second sweep: %v", err)
	}

	if len(authority.calls) != 1 {
		t.Fatalf("expected one upstream call per day, got %d", len(authority.calls))
	}
}

func TestRunRefreshesChangedAccess(t *testing.T) {
	t.Parallel()

	authority := &authorityStub{results: map[string]*webhook.AuthResult{
		"buyer@example.com": {
			Success: true,
			User:    &webhook.AuthUser{Email: "buyer@example.com", Name: "Buyer", Access: "c1,c2"},
		},
	}}
	syncer, manager, _ := newTestSyncer(t, authority)
	ctx := context.Background()

	if _, err := manager.Create(ctx, User{Email: "buyer@example.com", Name: "Buyer", Access: "c1"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := syncer.Run(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	profile, err := manager.Profile(ctx, "buyer@example.com")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Access != "c1,c2" {
		t.Fatalf("access not refreshed: %q", profile.Access)
	}
}

func TestRunRetriesFailedUserNextSweep(t *testing.T) {
	t.Parallel()

	authority := &authorityStub{err: errors.New("upstream down")}
	syncer, manager, _ := newTestSyncer(t, authority)
	ctx := context.Background()

	if _, err := manager.Create(ctx, User{Email: "buyer@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := syncer.Run(ctx); err == nil {
		t.Fatal("expected sweep error while upstream is down")
	}

	// The failed user's marker must be released so the next sweep retries.
	authority.err = nil
	authority.results = map[string]*webhook.AuthResult{
		"buyer@example.com": {
			Success: true,
			User:    &webhook.AuthUser{Email: "buyer@example.com", Access: "c1"},
		},
	}
	if err := syncer.Run(ctx); err != nil {
		t.Fatalf("retry sweep: %v", err)
	}
	if len(authority.calls) != 2 {
		t.Fatalf("expected a retry call, got %d calls", len(authority.calls))
	}

	profile, err := manager.Profile(ctx, "buyer@example.com")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Access != "c1" {
		t.Fatalf("access not applied on retry: %q", profile.Access)
	}
}

func TestRunIgnoresUsersUnknownUpstream(t *testing.T) {
	t.Parallel()

	authority := &authorityStub{}
	syncer, manager, _ := newTestSyncer(t, authority)
	ctx := context.Background()

	if _, err := manager.Create(ctx, User{Email: "gone@example.com", Access: "c1"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := syncer.Run(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	profile, err := manager.Profile(ctx, "gone@example.com")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Access != "c1" {
		t.Fatalf("profile must stay untouched, got %q", profile.Access)
	}
}
