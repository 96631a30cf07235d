package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mentoji/platform/pkg/logging"
)

var stripeTracer = otel.Tracer("mentoji.internal.payments.stripe")

// ErrProcessorUnavailable is returned when the processor cannot be reached or
// answers with a server-side failure.
var ErrProcessorUnavailable = errors.New("payment processor unavailable")

// Intent is the subset of a processor payment intent the booking flow needs.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	AmountCents  int64  `json:"amount"`
	Currency     string `json:"currency"`
	Metadata     map[string]string
}

// CreateIntentParams carries the inputs for a new charge intent.
type CreateIntentParams struct {
	BookingID     uuid.UUID
	AmountCents   int64
	Currency      string
	CustomerEmail string
	CustomerName  string
	Description   string
}

// StripeClient talks to the Stripe Payment Intents API directly over HTTP.
type StripeClient struct {
	secretKey  string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *logging.Logger
	dryRun     bool
}

// NewStripeClient creates a Stripe API client.
func NewStripeClient(secretKey string, logger *logging.Logger) *StripeClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeClient{
		secretKey:  secretKey,
		baseURL:    "https://api.stripe.com",
		apiVersion: "2024-12-18.acacia",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// WithBaseURL overrides the Stripe API base URL (for testing).
func (c *StripeClient) WithBaseURL(baseURL string) *StripeClient {
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// WithDryRun enables dry-run mode (returns fake intents without calling Stripe).
func (c *StripeClient) WithDryRun(enabled bool) *StripeClient {
	c.dryRun = enabled
	return c
}

// CreateIntent creates a payment intent for the booking amount.
func (c *StripeClient) CreateIntent(ctx context.Context, params CreateIntentParams) (*Intent, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.create_payment_intent")
	defer span.End()
	span.SetAttributes(
		attribute.String("mentoji.booking_id", params.BookingID.String()),
		attribute.Int64("mentoji.amount_cents", params.AmountCents),
	)

	if c.dryRun {
		fakeID := "pi_dryrun_" + uuid.New().String()[:8]
		c.logger.Info("stripe dry run: skipping intent creation",
			"booking_id", params.BookingID, "amount_cents", params.AmountCents)
		return &Intent{
			ID:           fakeID,
			ClientSecret: fakeID + "_secret",
			Status:       "requires_payment_method",
			AmountCents:  params.AmountCents,
			Currency:     params.Currency,
		}, nil
	}

	currency := params.Currency
	if currency == "" {
		currency = "usd"
	}
	description := strings.TrimSpace(params.Description)
	if description == "" {
		description = "MentoJi consultation"
	}

	form := url.Values{}
	form.Set("amount", fmt.Sprintf("%d", params.AmountCents))
	form.Set("currency", currency)
	form.Set("description", description)
	form.Set("receipt_email", params.CustomerEmail)
	form.Set("metadata[booking_id]", params.BookingID.String())
	form.Set("metadata[customer_name]", params.CustomerName)
	form.Set("automatic_payment_methods[enabled]", "true")

	var parsed stripeIntentPayload
	if err := c.do(ctx, http.MethodPost, "/v1/payment_intents", form, &parsed); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if parsed.ID == "" {
		return nil, fmt.Errorf("payments: stripe response missing intent id")
	}
	return parsed.toIntent(), nil
}

// RetrieveIntent fetches the current state of a payment intent.
func (c *StripeClient) RetrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.retrieve_payment_intent")
	defer span.End()
	span.SetAttributes(attribute.String("mentoji.intent_id", intentID))

	if intentID == "" {
		return nil, fmt.Errorf("payments: intent id required")
	}
	if c.dryRun {
		return &Intent{ID: intentID, Status: "succeeded"}, nil
	}

	var parsed stripeIntentPayload
	if err := c.do(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(intentID), nil, &parsed); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return parsed.toIntent(), nil
}

// CreateRefund refunds a captured intent, fully when amountCents is zero.
func (c *StripeClient) CreateRefund(ctx context.Context, intentID string, amountCents int64) (string, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.create_refund")
	defer span.End()
	span.SetAttributes(attribute.String("mentoji.intent_id", intentID))

	if c.dryRun {
		return "re_dryrun_" + uuid.New().String()[:8], nil
	}

	form := url.Values{}
	form.Set("payment_intent", intentID)
	if amountCents > 0 {
		form.Set("amount", fmt.Sprintf("%d", amountCents))
	}

	var parsed struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/refunds", form, &parsed); err != nil {
		span.RecordError(err)
		return "", err
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("payments: stripe response missing refund id")
	}
	return parsed.ID, nil
}

func (c *StripeClient) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("payments: stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Stripe-Version", c.apiVersion)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("payments: stripe http: %v: %w", err, ErrProcessorUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("payments: stripe api status %d: %w", resp.StatusCode, ErrProcessorUnavailable)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("payments: stripe api status %d: %s", resp.StatusCode, string(data))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("payments: stripe decode: %w", err)
	}
	return nil
}

// stripeIntentPayload is the wire shape Stripe returns for an intent.
type stripeIntentPayload struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Status       string            `json:"status"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Metadata     map[string]string `json:"metadata"`
}

func (p stripeIntentPayload) toIntent() *Intent {
	return &Intent{
		ID:           p.ID,
		ClientSecret: p.ClientSecret,
		Status:       p.Status,
		AmountCents:  p.Amount,
		Currency:     p.Currency,
		Metadata:     p.Metadata,
	}
}
