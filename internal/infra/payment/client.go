package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"skirent/internal/app/policies"
	"skirent/internal/domain/shared/money"
)

// Config defines the payment gateway REST client settings.
type Config struct {
	BaseURL     string
	SecretKey   string
	SuccessURL  string
	CancelURL   string
	CallTimeout time.Duration
}

// Client talks to the payment processor's REST API: checkout sessions,
// payment intents and refunds.
type Client struct {
	http       *http.Client
	baseURL    string
	secretKey  string
	successURL string
	cancelURL  string
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("payment: base url required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("payment: secret key required")
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:       &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:  cfg.SecretKey,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		logger:     logger,
	}, nil
}

type sessionResponse struct {
	ID            string `json:"id"`
	PaymentIntent string `json:"payment_intent"`
	URL           string `json:"url"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
}

type intentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type refundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type gatewayError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *Client) CreateCheckoutSession(ctx context.Context, bookingID, reference string, amount money.Money) (policies.CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("client_reference_id", bookingID)
	form.Set("success_url", c.successURL)
	form.Set("cancel_url", c.cancelURL)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(amount.Currency))
	form.Set("line_items[0][price_data][unit_amount]", fmt.Sprintf("%d", amount.Amount))
	form.Set("line_items[0][price_data][product_data][name]", "Rental "+reference)

	var resp sessionResponse
	if err := c.call(ctx, http.MethodPost, "/v1/checkout/sessions", form, &resp); err != nil {
		return policies.CheckoutSession{}, err
	}
	return mapSession(resp), nil
}

func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (policies.CheckoutSession, error) {
	var resp sessionResponse
	if err := c.call(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(sessionID), nil, &resp); err != nil {
		return policies.CheckoutSession{}, err
	}
	return mapSession(resp), nil
}

func (c *Client) GetPaymentIntent(ctx context.Context, intentID string) (policies.PaymentIntent, error) {
	var resp intentResponse
	if err := c.call(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(intentID), nil, &resp); err != nil {
		return policies.PaymentIntent{}, err
	}
	return policies.PaymentIntent{ID: resp.ID, Status: resp.Status}, nil
}

func (c *Client) CreateRefund(ctx context.Context, intentID string, amount money.Money) (policies.GatewayRefund, error) {
	form := url.Values{}
	form.Set("payment_intent", intentID)
	form.Set("amount", fmt.Sprintf("%d", amount.Amount))

	var resp refundResponse
	if err := c.call(ctx, http.MethodPost, "/v1/refunds", form, &resp); err != nil {
		return policies.GatewayRefund{}, err
	}
	return policies.GatewayRefund{ID: resp.ID, Status: resp.Status}, nil
}

func (c *Client) call(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = bytes.NewBufferString(form.Encode())
	}
	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	request.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(request)
	if err != nil {
		c.logError("gateway request failed", method, path, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		var ge gatewayError
		if json.Unmarshal(raw, &ge) == nil && ge.Error.Message != "" {
			err = fmt.Errorf("payment: gateway status %d: %s", resp.StatusCode, ge.Error.Message)
		} else {
			err = fmt.Errorf("payment: gateway status %d: %s", resp.StatusCode, string(raw))
		}
		c.logError("gateway returned error", method, path, err)
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) logError(msg, method, path string, err error) {
	if c.logger != nil {
		c.logger.Error(msg, "method", method, "path", path, "error", err)
	}
}

func mapSession(resp sessionResponse) policies.CheckoutSession {
	// Sessions report payment_status (paid/unpaid) while the attached
	// intent carries the succeeded/processing/canceled vocabulary; the
	// reconciler wants the latter, so map the terminal paid state.
	status := resp.Status
	if resp.PaymentStatus == "paid" {
		status = "succeeded"
	}
	return policies.CheckoutSession{
		ID:              resp.ID,
		PaymentIntentID: resp.PaymentIntent,
		URL:             resp.URL,
		Status:          status,
	}
}

var _ policies.PaymentsPort = (*Client)(nil)
