package catalog

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/mkravets/bookpress/internal/config"
)

// Module wires the catalog price oracle for dependency injection.
var Module = fx.Provide(
	func(cfg *config.Config, logger *slog.Logger) (*HTTPClient, error) {
		return NewHTTPClient(cfg.CatalogAddress, logger)
	},
	func(client *HTTPClient) PriceOracle { return client },
)
