package mailer

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/mkravets/bookpress/internal/config"
)

// Module wires the mail relay client for dependency injection.
var Module = fx.Provide(
	func(cfg *config.Config, logger *slog.Logger) (*HTTPClient, error) {
		return NewHTTPClient(cfg.MailRelayAddress, logger)
	},
	func(client *HTTPClient) Mailer { return client },
)
