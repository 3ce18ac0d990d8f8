package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/codewithpritom/lms-storefront/pkg/types"
	"github.com/codewithpritom/lms-storefront/pkg/webhook"
)

type verifierStub struct {
	result *webhook.VerificationResult
	err    error
	last   *webhook.VerificationRequest
}

func (v *verifierStub) VerifyPayment(ctx context.Context, req webhook.VerificationRequest) (*webhook.VerificationResult, error) {
	v.last = &req
	if v.err != nil {
		return nil, v.err
	}
	return v.result, nil
}

func doVerify(t *testing.T, stub *verifierStub, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/verify-payment", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	VerifyPayment(stub, nil).ServeHTTP(w, r)
	return w
}

func TestVerifyPaymentForwardsVerdict(t *testing.T) {
	t.Parallel()

	stub := &verifierStub{result: &webhook.VerificationResult{Success: true, Message: "access granted"}}
	w := doVerify(t, stub, `{"transaction_id":"TX123","email":"buyer@example.com","approved":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	if stub.last == nil || stub.last.TransactionID != "TX123" || !stub.last.Approved {
		t.Fatalf("verdict not forwarded: %+v", stub.last)
	}

	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	payload, ok := envelope.Data.(map[string]any)
	if !ok || payload["message"] != "access granted" {
		t.Fatalf("upstream acknowledgement lost: %v", envelope.Data)
	}
}

func TestVerifyPaymentRequiresTransactionReference(t *testing.T) {
	t.Parallel()

	stub := &verifierStub{result: &webhook.VerificationResult{Success: true}}
	w := doVerify(t, stub, `{"approved":true}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if stub.last != nil {
		t.Fatal("invalid verdict must not reach the authority")
	}
}

func TestVerifyPaymentSurfacesUpstreamRejection(t *testing.T) {
	t.Parallel()

	stub := &verifierStub{result: &webhook.VerificationResult{Success: false, Message: "unknown transaction"}}
	w := doVerify(t, stub, `{"transaction_id":"TXNOPE","approved":true}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "unknown transaction") {
		t.Fatalf("upstream message lost: %s", w.Body.String())
	}
}
