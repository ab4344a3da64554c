// Package gateway provides payment gateway adapters.
package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// TossConfig holds Toss Payments configuration.
type TossConfig struct {
	ClientKey string
	SecretKey string
	BaseURL   string // defaults to the production payments API
}

// TossGateway implements ports.PaymentGateway for Toss Payments.
type TossGateway struct {
	config     TossConfig
	httpClient *http.Client
	baseURL    string
	authHeader string
}

// NewTossGateway creates a new Toss payment gateway.
func NewTossGateway(config TossConfig) *TossGateway {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.tosspayments.com/v1/payments"
	}

	// Toss uses HTTP basic auth with the secret key and an empty password.
	auth := base64.StdEncoding.EncodeToString([]byte(config.SecretKey + ":"))

	return &TossGateway{
		config:     config,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		authHeader: "Basic " + auth,
	}
}

// ClientKey returns the client-facing key embedded in checkout pages.
func (g *TossGateway) ClientKey() string {
	return g.config.ClientKey
}

// GatewayError represents a rejected gateway call.
type GatewayError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

func (g *TossGateway) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", g.authHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var doc struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err := json.Unmarshal(raw, &doc); err != nil {
			doc.Message = string(raw)
		}
		return &GatewayError{StatusCode: resp.StatusCode, Code: doc.Code, Message: doc.Message}
	}
	return nil
}

// Confirm captures a prepared payment.
func (g *TossGateway) Confirm(ctx context.Context, paymentKey, orderID string, amount int64) error {
	payload := map[string]interface{}{
		"paymentKey": paymentKey,
		"orderId":    orderID,
		"amount":     amount,
	}
	if err := g.post(ctx, "/confirm", payload); err != nil {
		return fmt.Errorf("confirm payment %s: %w", orderID, err)
	}
	return nil
}

// Cancel initiates a refund for a captured payment.
func (g *TossGateway) Cancel(ctx context.Context, paymentKey, reason string) error {
	payload := map[string]interface{}{
		"cancelReason": reason,
	}
	if err := g.post(ctx, "/"+url.PathEscape(paymentKey)+"/cancel", payload); err != nil {
		return fmt.Errorf("cancel payment: %w", err)
	}
	return nil
}
