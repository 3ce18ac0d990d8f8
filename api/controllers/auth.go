package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/codewithpritom/lms-storefront/api/middleware"
	"github.com/codewithpritom/lms-storefront/api/responses"
	"github.com/codewithpritom/lms-storefront/api/validators"
	"github.com/codewithpritom/lms-storefront/internal/session"
	pkgerrors "github.com/codewithpritom/lms-storefront/pkg/errors"
	"github.com/codewithpritom/lms-storefront/pkg/logger"
	"github.com/codewithpritom/lms-storefront/pkg/webhook"
)

type authAuthority interface {
	Authenticate(ctx context.Context, req webhook.AuthRequest) (*webhook.AuthResult, error)
}

type sessionManager interface {
	Create(ctx context.Context, user session.User) (string, error)
	Destroy(ctx context.Context, token string) error
}

type authRequest struct {
	Action   string `json:"action" validate:"required,oneof=login register sync"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Auth proxies login/register/sync actions to the automation backend and
// opens a storefront session when the backend accepts the credentials.
func Auth(authority authAuthority, sessions sessionManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload authRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := authority.Authenticate(r.Context(), webhook.AuthRequest{
			Action:   payload.Action,
			Email:    payload.Email,
			Password: payload.Password,
			Name:     payload.Name,
		})
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeDependency {
				err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "automation server is unreachable")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if !result.Success {
			message := strings.TrimSpace(result.Message)
			if message == "" {
				message = "Authentication failed"
			}
			code := pkgerrors.CodeUnauthorized
			if payload.Action == "register" {
				code = pkgerrors.CodeValidation
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(code, message))
			return
		}

		body := map[string]any{"success": true}
		if result.Message != "" {
			body["message"] = result.Message
		}
		if result.User != nil {
			body["user"] = result.User
			if payload.Action != "sync" {
				token, err := sessions.Create(r.Context(), session.User{
					Email:  result.User.Email,
					Name:   result.User.Name,
					Access: result.User.Access,
				})
				if err != nil {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
				body["token"] = token
			}
		}
		responses.WriteSuccess(w, body)
	}
}

// Logout revokes the bearer session.
func Logout(sessions sessionManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session token required"))
			return
		}
		if err := sessions.Destroy(r.Context(), strings.TrimSpace(parts[1])); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"success": true})
	}
}

// Me returns the authenticated user's stored profile.
func Me(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		responses.WriteSuccess(w, user)
	}
}
