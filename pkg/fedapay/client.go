// Package fedapay is a lightweight FedaPay API client.
// Uses raw HTTP calls (no SDK) to keep the dependency surface small.
package fedapay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	SandboxBaseURL = "https://sandbox-api.fedapay.com/v1"
	LiveBaseURL    = "https://api.fedapay.com/v1"

	// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
	SignatureHeader = "X-FedaPay-Signature"

	// FallbackEmail is sent when the customer only gave a phone number;
	// the gateway refuses customers without an email.
	FallbackEmail = "fidele@amissa.bj"

	defaultCountry = "bj"
	defaultMode    = "mtn"
)

// ErrNotConfigured is returned when no API key or webhook secret is set.
var ErrNotConfigured = errors.New("fedapay: not configured")

// ErrInvalidSignature is returned when a webhook signature does not match.
var ErrInvalidSignature = errors.New("fedapay: signature verification failed")

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fedapay: http %d: %s", e.StatusCode, e.Message)
}

// EntityID accepts both JSON numbers and strings.
type EntityID string

func (id *EntityID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = EntityID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("fedapay: invalid id %s", b)
	}
	*id = EntityID(n.String())
	return nil
}

// Customer identifies the payer of a transaction.
type Customer struct {
	Name  string
	Email string
	Phone string
}

// TransactionParams describes a hosted-payment transaction.
type TransactionParams struct {
	APIKey      string // optional per-diocese override
	Amount      int64
	Currency    string
	Description string
	CallbackURL string
	Customer    Customer
	Metadata    map[string]any
}

// Transaction is a created transaction with its hosted payment URL.
type Transaction struct {
	ID         string
	PaymentURL string
	Token      string
}

// TransactionStatus is a status snapshot of an existing transaction.
type TransactionStatus struct {
	ID     string
	Status string
	Amount int64
}

// PayoutParams describes a mobile-money transfer.
type PayoutParams struct {
	APIKey   string // optional per-diocese override
	Amount   int64
	Currency string
	Phone    string
	Mode     string // defaults to "mtn"
	Metadata map[string]any
}

// Payout is a created payout.
type Payout struct {
	ID        string
	Reference string
	Status    string
}

// WebhookEntity is the object the webhook event is about.
type WebhookEntity struct {
	ID       EntityID       `json:"id"`
	Status   string         `json:"status"`
	Metadata map[string]any `json:"metadata"`
}

// WebhookEvent is an inbound gateway notification.
type WebhookEvent struct {
	Name   string        `json:"name"`
	Entity WebhookEntity `json:"entity"`
}

// Client is the FedaPay API surface used by the backend.
type Client interface {
	// CreateTransaction creates a transaction and its hosted payment URL.
	CreateTransaction(ctx context.Context, params TransactionParams) (Transaction, error)
	// CreatePayout creates a payout; it is not sent until StartPayout.
	CreatePayout(ctx context.Context, params PayoutParams) (Payout, error)
	// StartPayout activates a created payout.
	StartPayout(ctx context.Context, payoutID, apiKey string) error
	// GetTransaction fetches the current status of a transaction.
	GetTransaction(ctx context.Context, transactionID string) (TransactionStatus, error)
	// VerifyWebhookSignature checks the signature header against the raw payload.
	VerifyWebhookSignature(payload []byte, signature string) error
	// ParseWebhookEvent decodes a webhook payload.
	ParseWebhookEvent(payload []byte) (WebhookEvent, error)
}

// RealClient talks to the FedaPay REST API over HTTP.
type RealClient struct {
	SecretKey     string
	WebhookSecret string
	BaseURL       string
	httpClient    *http.Client
}

// NewClient returns a RealClient for environment "live" or sandbox otherwise.
// When webhookSecret is empty, webhooks are verified with the secret key.
func NewClient(secretKey, webhookSecret, environment string) *RealClient {
	base := SandboxBaseURL
	if environment == "live" {
		base = LiveBaseURL
	}
	if webhookSecret == "" {
		webhookSecret = secretKey
	}
	return &RealClient{
		SecretKey:     secretKey,
		WebhookSecret: webhookSecret,
		BaseURL:       base,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
	}
}

// NormalizePhone keeps digits only and strips the Benin country prefix.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	return strings.TrimPrefix(digits, "229")
}

func (c *RealClient) key(override string) string {
	if override != "" {
		return override
	}
	return c.SecretKey
}

// do sends body as JSON and decodes a 2xx answer into out.
func (c *RealClient) do(ctx context.Context, method, path, apiKey string, body, out any) error {
	if apiKey == "" {
		return ErrNotConfigured
	}
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Message == "" {
			errResp.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Message}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func buildCustomer(cu Customer) map[string]any {
	customer := map[string]any{"firstname": cu.Name}
	if cu.Email != "" {
		customer["email"] = cu.Email
	} else {
		customer["email"] = FallbackEmail
	}
	if cu.Phone != "" {
		customer["phone_number"] = map[string]any{
			"number":  NormalizePhone(cu.Phone),
			"country": defaultCountry,
		}
	}
	return customer
}

type transactionObject struct {
	ID     EntityID `json:"id"`
	Status string   `json:"status"`
	Amount int64    `json:"amount"`
}

func (c *RealClient) CreateTransaction(ctx context.Context, params TransactionParams) (Transaction, error) {
	apiKey := c.key(params.APIKey)
	body := map[string]any{
		"description":  params.Description,
		"amount":       params.Amount,
		"currency":     map[string]any{"iso": params.Currency},
		"callback_url": params.CallbackURL,
		"customer":     buildCustomer(params.Customer),
		"metadata":     params.Metadata,
	}

	var created struct {
		Transaction transactionObject `json:"v1/transaction"`
	}
	if err := c.do(ctx, http.MethodPost, "/transactions", apiKey, body, &created); err != nil {
		return Transaction{}, err
	}
	if created.Transaction.ID == "" {
		return Transaction{}, errors.New("fedapay create transaction: empty id in response")
	}
	id := string(created.Transaction.ID)

	var token struct {
		Token string `json:"token"`
		URL   string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/transactions/"+id+"/token", apiKey, nil, &token); err != nil {
		return Transaction{}, fmt.Errorf("fedapay transaction token: %w", err)
	}
	if token.URL == "" {
		return Transaction{}, errors.New("fedapay transaction token: empty url in response")
	}
	return Transaction{ID: id, PaymentURL: token.URL, Token: token.Token}, nil
}

func (c *RealClient) CreatePayout(ctx context.Context, params PayoutParams) (Payout, error) {
	if params.Phone == "" {
		return Payout{}, errors.New("fedapay create payout: destination phone required")
	}
	mode := params.Mode
	if mode == "" {
		mode = defaultMode
	}
	body := map[string]any{
		"amount":   params.Amount,
		"currency": map[string]any{"iso": params.Currency},
		"mode":     mode,
		"customer": map[string]any{
			"phone_number": map[string]any{
				"number":  NormalizePhone(params.Phone),
				"country": defaultCountry,
			},
		},
		"metadata": params.Metadata,
	}

	var created struct {
		Payout struct {
			ID        EntityID `json:"id"`
			Reference string   `json:"reference"`
			Status    string   `json:"status"`
		} `json:"v1/payout"`
	}
	if err := c.do(ctx, http.MethodPost, "/payouts", c.key(params.APIKey), body, &created); err != nil {
		return Payout{}, err
	}
	if created.Payout.ID == "" {
		return Payout{}, errors.New("fedapay create payout: empty id in response")
	}
	return Payout{
		ID:        string(created.Payout.ID),
		Reference: created.Payout.Reference,
		Status:    created.Payout.Status,
	}, nil
}

func (c *RealClient) StartPayout(ctx context.Context, payoutID, apiKey string) error {
	return c.do(ctx, http.MethodPut, "/payouts/"+payoutID+"/start", c.key(apiKey), nil, nil)
}

func (c *RealClient) GetTransaction(ctx context.Context, transactionID string) (TransactionStatus, error) {
	var got struct {
		Transaction transactionObject `json:"v1/transaction"`
	}
	if err := c.do(ctx, http.MethodGet, "/transactions/"+transactionID, c.SecretKey, nil, &got); err != nil {
		return TransactionStatus{}, err
	}
	return TransactionStatus{
		ID:     string(got.Transaction.ID),
		Status: got.Transaction.Status,
		Amount: got.Transaction.Amount,
	}, nil
}

// VerifyWebhookSignature compares the header with the hex HMAC-SHA256 of payload.
func (c *RealClient) VerifyWebhookSignature(payload []byte, signature string) error {
	if c.WebhookSecret == "" {
		return ErrNotConfigured
	}
	if signature == "" {
		return ErrInvalidSignature
	}
	if i := strings.LastIndex(signature, "="); i >= 0 {
		// tolerate "sha256=<hex>" style headers
		signature = signature[i+1:]
	}
	mac := hmac.New(sha256.New, []byte(c.WebhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}

// ParseWebhookEvent decodes the payload into a WebhookEvent.
func (c *RealClient) ParseWebhookEvent(payload []byte) (WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return WebhookEvent{}, err
	}
	return event, nil
}

// MetadataString reads a metadata value as a string.
func MetadataString(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
