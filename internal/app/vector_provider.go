package app

import (
	"fmt"
	"strings"

	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
	"github.com/wisefood/wisefood-data-api/internal/platform/qdrant"
	"github.com/wisefood/wisefood-data-api/internal/platform/vector"
)

var newQdrantVectorStore = qdrant.NewVectorStore

// resolveVectorStore builds the similarity-index backend. The memory
// store serves local runs and tests; qdrant serves deployments.
func resolveVectorStore(log *logger.Logger, cfg Config) (vector.VectorStore, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.VectorProvider))
	switch provider {
	case "", "memory":
		log.Info("vector store: in-memory")
		return vector.NewMemoryStore(), nil
	case "qdrant":
		qcfg, err := qdrant.ResolveConfigFromEnv()
		if err != nil {
			return nil, fmt.Errorf("qdrant config: %w", err)
		}
		store, err := newQdrantVectorStore(log, qcfg)
		if err != nil {
			return nil, fmt.Errorf("qdrant init: %w", err)
		}
		log.Info("vector store: qdrant", "collection", qcfg.Collection)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown VECTOR_PROVIDER %q (want memory or qdrant)", cfg.VectorProvider)
	}
}
