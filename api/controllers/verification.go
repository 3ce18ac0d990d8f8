package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/codewithpritom/lms-storefront/api/responses"
	"github.com/codewithpritom/lms-storefront/api/validators"
	pkgerrors "github.com/codewithpritom/lms-storefront/pkg/errors"
	"github.com/codewithpritom/lms-storefront/pkg/logger"
	"github.com/codewithpritom/lms-storefront/pkg/webhook"
)

type paymentVerifier interface {
	VerifyPayment(ctx context.Context, req webhook.VerificationRequest) (*webhook.VerificationResult, error)
}

type verificationRequest struct {
	TransactionID string `json:"transaction_id" validate:"required"`
	Email         string `json:"email" validate:"omitempty,email"`
	CourseID      string `json:"course_id"`
	Approved      bool   `json:"approved"`
	Note          string `json:"note"`
}

// VerifyPayment proxies an admin payment verdict to the automation backend.
// Enrollment for approved transactions happens upstream; this endpoint only
// relays the decision and the backend's acknowledgement.
func VerifyPayment(authority paymentVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload verificationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := authority.VerifyPayment(r.Context(), webhook.VerificationRequest{
			TransactionID: payload.TransactionID,
			Email:         payload.Email,
			CourseID:      payload.CourseID,
			Approved:      payload.Approved,
			Note:          payload.Note,
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
				message = "Payment verification failed"
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, message))
			return
		}

		body := map[string]any{"success": true}
		if result.Message != "" {
			body["message"] = result.Message
		}
		responses.WriteSuccess(w, body)
	}
}
