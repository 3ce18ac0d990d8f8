package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/codewithpritom/lms-storefront/internal/session"
	"github.com/codewithpritom/lms-storefront/pkg/logger"
)

const cartTokenHeader = "X-Cart-Token"

type contextKey string

const (
	ctxOwner contextKey = "owner"
	ctxUser  contextKey = "user"
)

type sessionResolver interface {
	UserFromToken(ctx context.Context, token string) (*session.User, error)
}

// ResolveOwner attaches the cart owner key to the request context. A valid
// session bearer token makes the user's email the owner; otherwise the
// anonymous X-Cart-Token identifies the cart. A request carrying neither gets
// a fresh token, echoed back so the client can persist it.
func ResolveOwner(sessions sessionResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if token := bearerToken(r); token != "" && sessions != nil {
				user, err := sessions.UserFromToken(ctx, token)
				if err == nil && user != nil {
					ctx = context.WithValue(ctx, ctxUser, user)
					ctx = withOwner(ctx, user.Email, logg)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				// An unusable token degrades to an anonymous cart rather
				// than failing cart reads.
				if logg != nil {
					logg.Warn(ctx, "ignoring invalid session token")
				}
			}

			cartToken := strings.TrimSpace(r.Header.Get(cartTokenHeader))
			if cartToken == "" {
				cartToken = uuid.NewString()
			}
			w.Header().Set(cartTokenHeader, cartToken)

			next.ServeHTTP(w, r.WithContext(withOwner(ctx, cartToken, logg)))
		})
	}
}

func withOwner(ctx context.Context, owner string, logg *logger.Logger) context.Context {
	ctx = context.WithValue(ctx, ctxOwner, owner)
	if logg != nil {
		ctx = logg.WithOwner(ctx, owner)
	}
	return ctx
}

// OwnerFromContext returns the resolved cart owner key.
func OwnerFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxOwner).(string); ok {
		return v
	}
	return ""
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) *session.User {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxUser).(*session.User); ok {
		return v
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
