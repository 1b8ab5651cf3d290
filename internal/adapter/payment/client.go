package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/mkravets/bookpress/internal/domain/model"
)

// Client exposes the payment-provider capabilities the pipeline
// consumes. Injected at construction time so tests can substitute a
// deterministic provider.
type Client interface {
	CreateRefund(ctx context.Context, paymentIntentID string, amount *int64, reason string) (*model.Refund, error)
}

// HTTPClient implements Client against the provider's REST API.
type HTTPClient struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// refundResponse mirrors the provider's refund object.
type refundResponse struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
}

// NewHTTPClient creates a provider API client with default timeout.
func NewHTTPClient(baseURL, apiKey string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse provider url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("provider url must be absolute")
	}
	return &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// CreateRefund asks the provider to refund a payment intent, fully when
// amount is nil.
func (c *HTTPClient) CreateRefund(ctx context.Context, paymentIntentID string, amount *int64, reason string) (*model.Refund, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/v1/refunds")

	form := url.Values{}
	form.Set("payment_intent", paymentIntentID)
	if amount != nil {
		form.Set("amount", strconv.FormatInt(*amount, 10))
	}
	if reason != "" {
		form.Set("reason", reason)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("refund request failed", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return nil, fmt.Errorf("provider refund error: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var data refundResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, err
	}
	return &model.Refund{ID: data.ID, Amount: data.Amount, Status: data.Status}, nil
}
