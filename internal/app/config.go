package app

import (
	"github.com/wisefood/wisefood-data-api/internal/platform/envutil"
	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
)

type Config struct {
	Environment string
	Version     string

	// VectorProvider selects the similarity-index backend:
	// "memory" (default) or "qdrant".
	VectorProvider string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Environment:    envutil.String("APP_ENV", "development"),
		Version:        envutil.String("APP_VERSION", "dev"),
		VectorProvider: envutil.String("VECTOR_PROVIDER", "memory"),
	}
	log.Info("config loaded",
		"environment", cfg.Environment,
		"version", cfg.Version,
		"vector_provider", cfg.VectorProvider,
	)
	return cfg
}
