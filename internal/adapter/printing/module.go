package printing

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/mkravets/bookpress/internal/config"
)

// Module wires the POD client for dependency injection.
var Module = fx.Provide(
	func(cfg *config.Config, logger *slog.Logger) (*HTTPClient, error) {
		return NewHTTPClient(cfg.PodAPIAddress, cfg.PodAPIKey, logger)
	},
	func(client *HTTPClient) Client { return client },
)
