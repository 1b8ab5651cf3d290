package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	domainErrors "github.com/mkravets/bookpress/internal/domain/errors"
)

// PriceOracle is the read-only catalog lookup consulted before order
// creation. Totals are always computed from oracle prices, never from
// client-supplied amounts.
type PriceOracle interface {
	Price(ctx context.Context, bookID, format string) (int64, error)
}

// HTTPClient implements PriceOracle against the catalog service.
type HTTPClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

type priceResponse struct {
	BookID     string `json:"book_id"`
	Format     string `json:"format"`
	UnitAmount int64  `json:"unit_amount"`
}

// NewHTTPClient creates a catalog client with default timeout.
func NewHTTPClient(baseURL string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse catalog url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("catalog url must be absolute")
	}
	return &HTTPClient{
		baseURL: parsed,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}, nil
}

// Price returns the unit amount in minor units for a book/format pair.
func (c *HTTPClient) Price(ctx context.Context, bookID, format string) (int64, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/books", bookID, "prices", format)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return 0, err
		}
		var data priceResponse
		if err := json.Unmarshal(body, &data); err != nil {
			return 0, err
		}
		return data.UnitAmount, nil
	case http.StatusNotFound:
		return 0, domainErrors.ErrUnknownPriceEntry
	default:
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("catalog request failed", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return 0, fmt.Errorf("catalog error: %s", resp.Status)
	}
}
