package payment

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/mkravets/bookpress/internal/config"
)

// Module wires the provider API client for dependency injection.
var Module = fx.Provide(
	func(cfg *config.Config, logger *slog.Logger) (*HTTPClient, error) {
		return NewHTTPClient(cfg.ProviderAPIAddress, cfg.ProviderAPIKey, logger)
	},
	func(client *HTTPClient) Client { return client },
)
