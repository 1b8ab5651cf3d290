package printing

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
	"path"
	"time"
)

// ErrDuplicateSubmission indicates the provider already holds a job
// with the same external reference. Callers treat it as success with
// the existing job.
var ErrDuplicateSubmission = errors.New("duplicate print submission")

// SubmitItem is one printable line item in a submission.
type SubmitItem struct {
	BookID   string `json:"book_id"`
	Title    string `json:"title"`
	Format   string `json:"format"`
	Quantity int    `json:"quantity"`
}

// SubmitRequest is a print-and-ship order for the POD provider.
// ExternalID carries the bookpress order number so retried submissions
// are idempotent on the provider side too.
type SubmitRequest struct {
	ExternalID     string       `json:"external_id"`
	ContactEmail   string       `json:"contact_email"`
	Items          []SubmitItem `json:"items"`
	ShippingName   string       `json:"shipping_name"`
	ShippingLine1  string       `json:"shipping_line1"`
	ShippingLine2  string       `json:"shipping_line2,omitempty"`
	ShippingCity   string       `json:"shipping_city"`
	PostalCode     string       `json:"postal_code"`
	Country        string       `json:"country"`
	ShippingMethod string       `json:"shipping_method"`
}

// SubmitResponse is the provider's created job.
type SubmitResponse struct {
	JobID          string `json:"job_id"`
	Status         string `json:"status"`
	ShippingMethod string `json:"shipping_method"`
	ShippingCost   int64  `json:"shipping_cost"`
}

// Client exposes the print-provider capability consumed by the
// physical fulfillment handler.
type Client interface {
	SubmitJob(ctx context.Context, req SubmitRequest) (*SubmitResponse, error)
}

// HTTPClient implements Client against the POD provider's API.
type HTTPClient struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates a POD API client with default timeout.
func NewHTTPClient(baseURL, apiKey string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse pod url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("pod url must be absolute")
	}
	return &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// SubmitJob sends a print submission and returns the created job.
func (c *HTTPClient) SubmitJob(ctx context.Context, submitReq SubmitRequest) (*SubmitResponse, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/print-jobs")

	payload, err := json.Marshal(submitReq)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		var data SubmitResponse
		if err := json.Unmarshal(body, &data); err != nil {
			return nil, err
		}
		return &data, nil
	case http.StatusConflict:
		return nil, ErrDuplicateSubmission
	default:
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("print submission failed", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return nil, fmt.Errorf("pod error: %s", resp.Status)
	}
}
