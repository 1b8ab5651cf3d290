package logger

import "go.uber.org/fx"

// Module provides the slog logger.
var Module = fx.Provide(New)
