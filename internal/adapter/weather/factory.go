package weather

import (
	"os"

	"go.uber.org/zap"
)

const (
	// EnvMode selects the gateway implementation.
	EnvMode = "ASSISTANT_MODE"
	// ModeMock serves canned weather without network access.
	ModeMock = "MOCK"
)

// NewGateway returns a MockClient when ASSISTANT_MODE=MOCK, otherwise a
// Client for the configured provider.
func NewGateway(cfg Config, logger *zap.Logger) Gateway {
	if os.Getenv(EnvMode) == ModeMock {
		if logger != nil {
			logger.Info("ASSISTANT_MODE=MOCK detected, using mock weather client")
		}
		return NewMockClient()
	}
	return NewClient(cfg, logger)
}
