package signature

import (
	"go.uber.org/fx"

	"github.com/mkravets/bookpress/internal/config"
)

// Module wires webhook signature verifiers. A verifier is nil when its
// secret is unset; handlers treat that as a deployment error.
var Module = fx.Provide(
	func(cfg *config.Config) *ProviderVerifier {
		if cfg.ProviderWebhookSecret == "" {
			return nil
		}
		return NewProviderVerifier(cfg.ProviderWebhookSecret, Options{})
	},
	func(cfg *config.Config) *SharedSecretVerifier {
		if cfg.PodWebhookSecret == "" {
			return nil
		}
		return NewSharedSecretVerifier(cfg.PodWebhookSecret)
	},
)
