package app

import (
	"gorm.io/gorm"

	"github.com/wisefood/wisefood-data-api/internal/clients/redis"
	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
	"github.com/wisefood/wisefood-data-api/internal/platform/neo4jdb"
	"github.com/wisefood/wisefood-data-api/internal/platform/openai"
	"github.com/wisefood/wisefood-data-api/internal/services"
)

type Services struct {
	Embedding services.EmbeddingService
	Store     services.RecordStore
	Graph     services.ConceptGraph
}

func wireServices(db *gorm.DB, log *logger.Logger, repos Repos, neo *neo4jdb.Client) (Services, error) {
	oaiClient, err := openai.NewClient(log)
	if err != nil {
		return Services{}, err
	}

	cache, err := redis.NewEmbedCache(log)
	if err != nil {
		return Services{}, err
	}
	if cache == nil {
		log.Info("embedding cache disabled (REDIS_ADDR unset)")
	}

	embedding, err := services.NewEmbeddingService(log, oaiClient, cache)
	if err != nil {
		return Services{}, err
	}

	store, err := services.NewRecordStore(db, repos.Records, log)
	if err != nil {
		return Services{}, err
	}

	graph, err := services.NewConceptGraph(neo, log)
	if err != nil {
		return Services{}, err
	}
	if neo == nil {
		log.Info("concept graph projection disabled (NEO4J_URI unset)")
	}

	return Services{
		Embedding: embedding,
		Store:     store,
		Graph:     graph,
	}, nil
}
