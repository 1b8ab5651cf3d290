package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"
)

// Message is one outbound notification. Template rendering happens in
// the relay; the pipeline only supplies the template name and facts.
type Message struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data,omitempty"`
}

// Mailer is the notification capability consumed by the pipeline.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// HTTPClient delivers messages through an internal mail relay.
type HTTPClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates a mail relay client with default timeout.
func NewHTTPClient(baseURL string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse mail relay url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("mail relay url must be absolute")
	}
	return &HTTPClient{
		baseURL: parsed,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// Send posts the message to the relay.
func (c *HTTPClient) Send(ctx context.Context, msg Message) error {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/send")

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("mail relay rejected message", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return fmt.Errorf("mail relay error: %s", resp.Status)
	}
	return nil
}
