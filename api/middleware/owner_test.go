package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codewithpritom/lms-storefront/internal/session"
	pkgerrors "github.com/codewithpritom/lms-storefront/pkg/errors"
)

type resolverStub struct {
	user *session.User
}

func (r *resolverStub) UserFromToken(ctx context.Context, token string) (*session.User, error) {
	if r.user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired")
	}
	return r.user, nil
}

func ownerProbe(owners *[]string, users *[]*session.User) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*owners = append(*owners, OwnerFromContext(r.Context()))
		*users = append(*users, UserFromContext(r.Context()))
	})
}

func TestResolveOwnerPrefersSessionEmail(t *testing.T) {
	var owners []string
	var users []*session.User
	handler := ResolveOwner(&resolverStub{user: &session.User{Email: "buyer@example.com"}}, nil)(ownerProbe(&owners, &users))

	r := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	r.Header.Set("Authorization", "Bearer some-token")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if len(owners) != 1 || owners[0] != "buyer@example.com" {
		t.Fatalf("unexpected owners %v", owners)
	}
	if users[0] == nil || users[0].Email != "buyer@example.com" {
		t.Fatalf("user not attached to context")
	}
}

func TestResolveOwnerUsesCartToken(t *testing.T) {
	var owners []string
	var users []*session.User
	handler := ResolveOwner(&resolverStub{}, nil)(ownerProbe(&owners, &users))

	r := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	r.Header.Set("X-Cart-Token", "anon-1234")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if owners[0] != "anon-1234" {
		t.Fatalf("unexpected owner %q", owners[0])
	}
	if users[0] != nil {
		t.Fatal("anonymous request must not carry a user")
	}
	if w.Header().Get("X-Cart-Token") != "anon-1234" {
		t.Fatal("cart token must be echoed back")
	}
}

func TestResolveOwnerMintsTokenWhenAbsent(t *testing.T) {
	var owners []string
	var users []*session.User
	handler := ResolveOwner(&resolverStub{}, nil)(ownerProbe(&owners, &users))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	minted := w.Header().Get("X-Cart-Token")
	if minted == "" {
		t.Fatal("expected a minted cart token")
	}
	if owners[0] != minted {
		t.Fatalf("owner %q does not match minted token %q", owners[0], minted)
	}
}

func TestResolveOwnerDegradesInvalidSessionToAnonymous(t *testing.T) {
	var owners []string
	var users []*session.User
	handler := ResolveOwner(&resolverStub{}, nil)(ownerProbe(&owners, &users))

	r := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	r.Header.Set("Authorization", "Bearer expired-token")
	r.Header.Set("X-Cart-Token", "anon-1234")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if owners[0] != "anon-1234" {
		t.Fatalf("expected fallback to cart token, got %q", owners[0])
	}
}
