package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/codewithpritom/lms-storefront/pkg/errors"
)

const (
	defaultTimeout             = 20 * time.Second
	responseBodyReadLimit int64 = 4096

	verifyCouponPath    = "/verify-coupon"
	grantFreeAccessPath = "/grant-free-access"
	submitPaymentPath   = "/submit-payment"

	verifyPaymentAction = "verify-payment"
)

var errBaseURLRequired = errors.New("webhook base url is required")

// Client talks to the workflow-automation webhook service that owns coupons,
// user records, enrollment grants, and manual payment verification.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	authURL         string
	checkoutURL     string
	verificationURL string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAuthURL overrides the endpoint used for authentication actions.
func WithAuthURL(authURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(authURL)
		if trimmed != "" {
			c.authURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// WithCheckoutURL overrides the endpoint used for checkout submissions.
func WithCheckoutURL(checkoutURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(checkoutURL)
		if trimmed != "" {
			c.checkoutURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// WithVerificationURL overrides the endpoint used for admin payment
// verification verdicts.
func WithVerificationURL(verificationURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(verificationURL)
		if trimmed != "" {
			c.verificationURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// NewClient builds the webhook client given the base webhook URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if client.authURL == "" {
		client.authURL = client.baseURL
	}
	if client.checkoutURL == "" {
		client.checkoutURL = client.baseURL
	}
	if client.verificationURL == "" {
		client.verificationURL = client.baseURL
	}

	return client, nil
}

// CouponResult is the coupon authority's verdict for a code/course pair.
type CouponResult struct {
	Valid           bool     `json:"valid"`
	DiscountPercent *Percent `json:"discount_percent,omitempty"`
	Message         string   `json:"message,omitempty"`
}

// Percent tolerates the authority returning the discount as a number or a
// quoted string.
type Percent float64

func (p *Percent) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			// A non-numeric discount means the authority rejected the
			// coupon; zero takes the invalid-code path at the caller.
			*p = 0
			return nil
		}
		*p = Percent(value)
		return nil
	}
	var value float64
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return err
	}
	*p = Percent(value)
	return nil
}

// VerifyCoupon asks the authority whether code applies to the given course.
// The authority sometimes wraps its answer in a single-element array; the
// response is unwrapped before the fields are read.
func (c *Client) VerifyCoupon(ctx context.Context, code, courseID string) (*CouponResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "webhook client not configured")
	}
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if strings.TrimSpace(courseID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "course id is required")
	}

	query := url.Values{}
	query.Set("coupon_name", code)
	query.Set("course_code", courseID)
	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, verifyCouponPath, query.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build coupon verify request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(err, "execute coupon verify request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "coupon verify request failed")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read coupon verify response")
	}

	result, err := decodeCouponResult(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode coupon verify response")
	}
	return result, nil
}

func decodeCouponResult(body []byte) (*CouponResult, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty response body")
	}
	if trimmed[0] == '[' {
		var list []CouponResult
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, errors.New("empty result list")
		}
		return &list[0], nil
	}
	var single CouponResult
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, err
	}
	return &single, nil
}

// GrantFreeAccess enrolls the email into the course at no charge.
func (c *Client) GrantFreeAccess(ctx context.Context, email, courseID string) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "webhook client not configured")
	}
	if strings.TrimSpace(email) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(courseID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "course id is required")
	}

	payload := map[string]string{
		"email":       email,
		"course_code": courseID,
	}
	resp, err := c.postJSON(ctx, c.baseURL+grantFreeAccessPath, payload)
	if err != nil {
		return transportError(err, "execute free access request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp, "free access request failed")
	}
	return nil
}

// PaymentSubmission is the manual-verification record posted for paid orders.
type PaymentSubmission struct {
	Email         string        `json:"email"`
	Name          string        `json:"name"`
	CourseID      string        `json:"course_id"`
	TransactionID string        `json:"transaction_id"`
	Amount        string        `json:"amount"`
	PromoCode     string        `json:"promo_code"`
	Items         []PaymentItem `json:"items"`
}

// PaymentItem mirrors a cart line as sent to the verification queue.
type PaymentItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Price string `json:"price"`
}

// SubmitPayment records a pending paid transaction for manual admin
// verification. A 2xx status only confirms the request was received, not that
// the payment is correct.
func (c *Client) SubmitPayment(ctx context.Context, submission PaymentSubmission) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "webhook client not configured")
	}
	if strings.TrimSpace(submission.TransactionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}

	resp, err := c.postJSON(ctx, c.checkoutURL+submitPaymentPath, submission)
	if err != nil {
		return transportError(err, "execute payment submission")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp, "payment submission failed")
	}
	return nil
}

// AuthRequest is the passthrough payload for authentication actions.
type AuthRequest struct {
	Action   string `json:"action"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	Name     string `json:"name,omitempty"`
}

// AuthUser is the user record returned by the authority.
type AuthUser struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Access string `json:"access"`
}

// AuthResult is the authority's answer to an authentication action.
type AuthResult struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	User    *AuthUser `json:"user,omitempty"`
}

// Authenticate forwards a login/register/sync action to the authority.
func (c *Client) Authenticate(ctx context.Context, req AuthRequest) (*AuthResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "webhook client not configured")
	}
	if strings.TrimSpace(req.Action) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action is required")
	}

	resp, err := c.postJSON(ctx, c.authURL, req)
	if err != nil {
		return nil, transportError(err, "execute auth request")
	}
	defer func() { _ = resp.Body.Close() }()

	var result AuthResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyReadLimit)).Decode(&result); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, statusError(resp, "auth request failed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode auth response")
	}
	if !result.Success && result.Message == "" && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return nil, statusError(resp, "auth request failed")
	}
	return &result, nil
}

// VerificationRequest is the admin's verdict on a pending manual payment.
type VerificationRequest struct {
	Action        string `json:"action"`
	TransactionID string `json:"transaction_id"`
	Email         string `json:"email,omitempty"`
	CourseID      string `json:"course_id,omitempty"`
	Approved      bool   `json:"approved"`
	Note          string `json:"note,omitempty"`
}

// VerificationResult is the authority's acknowledgement of a verdict.
type VerificationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// VerifyPayment forwards an admin verification verdict to the authority,
// which owns the enrollment grant for approved transactions.
func (c *Client) VerifyPayment(ctx context.Context, req VerificationRequest) (*VerificationResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "webhook client not configured")
	}
	if strings.TrimSpace(req.TransactionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	req.Action = verifyPaymentAction

	resp, err := c.postJSON(ctx, c.verificationURL, req)
	if err != nil {
		return nil, transportError(err, "execute payment verification")
	}
	defer func() { _ = resp.Body.Close() }()

	var result VerificationResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyReadLimit)).Decode(&result); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, statusError(resp, "payment verification failed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode verification response")
	}
	if !result.Success && result.Message == "" && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return nil, statusError(resp, "payment verification failed")
	}
	return &result, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(httpReq)
}

func transportError(err error, message string) error {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return pkgerrors.Wrap(pkgerrors.CodeUpstreamTimeout, err, message)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeUpstreamTimeout, err, message)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

func statusError(resp *http.Response, message string) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	return pkgerrors.Wrap(
		pkgerrors.CodeDependency,
		fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
		message,
	)
}
