package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/codewithpritom/lms-storefront/pkg/config"
	pkgerrors "github.com/codewithpritom/lms-storefront/pkg/errors"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// User is the stored profile of an authenticated buyer. Access is the
// comma-separated course list as reported by the automation backend.
type User struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Access string `json:"access"`
}

// Claims is the JWT payload of a storefront session token.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

type sessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SAdd(ctx context.Context, key string, members ...any) error
	SessionKey(sessionID string) string
	UserKey(email string) string
	SyncUsersKey() string
}

type missingChecker func(error) bool

// Manager mints and resolves storefront sessions. A session is a signed JWT
// whose jti points at a revocable Redis record; the user profile lives in its
// own record so the daily sync can refresh it without touching tokens.
type Manager struct {
	cfg       config.SessionConfig
	store     sessionStore
	isMissing missingChecker
	now       func() time.Time
}

// NewManager builds a session manager.
func NewManager(cfg config.SessionConfig, store sessionStore, isMissing missingChecker) (*Manager, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if strings.TrimSpace(cfg.JWTIssuer) == "" {
		return nil, fmt.Errorf("jwt issuer is required")
	}
	if store == nil {
		return nil, fmt.Errorf("session store required")
	}
	if isMissing == nil {
		return nil, fmt.Errorf("missing-key checker required")
	}
	return &Manager{cfg: cfg, store: store, isMissing: isMissing, now: time.Now}, nil
}

// Create opens a session for the user and returns the signed token. The user
// is also enrolled into the daily sync set.
func (m *Manager) Create(ctx context.Context, user User) (string, error) {
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	user.Email = email

	now := m.now().UTC()
	jti := uuid.NewString()
	claims := Claims{
		Email: email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.JWTIssuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.TTL())),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(m.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}

	record, err := json.Marshal(map[string]string{
		"email":      email,
		"created_at": now.Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("encode session record: %w", err)
	}
	if err := m.store.Set(ctx, m.store.SessionKey(jti), string(record), m.cfg.TTL()); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist session")
	}

	if err := m.SaveProfile(ctx, user); err != nil {
		return "", err
	}
	if err := m.store.SAdd(ctx, m.store.SyncUsersKey(), email); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enroll user for sync")
	}
	return signed, nil
}

// UserFromToken validates a session token and loads the stored profile. A
// destroyed session fails even when the token itself is still within its
// validity window.
func (m *Manager) UserFromToken(ctx context.Context, tokenString string) (*User, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(m.cfg.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(m.cfg.JWTIssuer),
	)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid session token")
	}

	if _, err := m.store.Get(ctx, m.store.SessionKey(claims.ID)); err != nil {
		if m.isMissing(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}

	user, err := m.Profile(ctx, claims.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Session record without a profile: fall back to token claims.
		return &User{Email: claims.Email, Name: claims.Name}, nil
	}
	return user, nil
}

// Destroy revokes the session behind the token. Tokens that no longer parse
// are treated as already destroyed.
func (m *Manager) Destroy(ctx context.Context, tokenString string) error {
	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(m.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwtSigningMethod.Alg()})); err != nil {
		return nil
	}
	if err := m.store.Del(ctx, m.store.SessionKey(claims.ID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "destroy session")
	}
	return nil
}

// Profile loads the stored profile for an email. A missing profile returns
// nil without error.
func (m *Manager) Profile(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	raw, err := m.store.Get(ctx, m.store.UserKey(email))
	if err != nil {
		if m.isMissing(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user profile")
	}
	user := &User{}
	if err := json.Unmarshal([]byte(raw), user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode user profile")
	}
	return user, nil
}

// SaveProfile writes the profile record. Profiles do not expire: they back
// the daily access sync.
func (m *Manager) SaveProfile(ctx context.Context, user User) error {
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	user.Email = email
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user profile: %w", err)
	}
	if err := m.store.Set(ctx, m.store.UserKey(email), string(payload), 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist user profile")
	}
	return nil
}

// Email implements the checkout session accessor: a signed-in owner key is
// the user's email and has a stored profile; anonymous cart tokens do not.
func (m *Manager) Email(ctx context.Context, owner string) (string, error) {
	user, err := m.Profile(ctx, owner)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", nil
	}
	return user.Email, nil
}
