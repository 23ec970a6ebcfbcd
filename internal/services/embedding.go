package services

import (
	"context"
	"fmt"
	"time"

	"github.com/wisefood/wisefood-data-api/internal/clients/redis"
	"github.com/wisefood/wisefood-data-api/internal/platform/envutil"
	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
	"github.com/wisefood/wisefood-data-api/internal/platform/openai"
)

// EmbeddingService produces name embeddings through the pinned provider
// model, with an optional redis read-through cache in front. The model
// version is part of every vector ID downstream, so a model bump never
// mixes incomparable vectors.
type EmbeddingService interface {
	EmbedNames(ctx context.Context, texts []string) ([][]float32, error)
	ModelVersion() string
	Close() error
}

type embeddingService struct {
	log     *logger.Logger
	client  openai.Client
	cache   redis.EmbedCache
	timeout time.Duration
}

func NewEmbeddingService(log *logger.Logger, client openai.Client, cache redis.EmbedCache) (EmbeddingService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if client == nil {
		return nil, fmt.Errorf("embedding client required")
	}
	return &embeddingService{
		log:     log.With("service", "EmbeddingService"),
		client:  client,
		cache:   cache,
		timeout: envutil.Duration("EMBED_TIMEOUT", 30*time.Second),
	}, nil
}

func (s *embeddingService) ModelVersion() string { return s.client.EmbedModel() }

func (s *embeddingService) EmbedNames(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	model := s.client.EmbedModel()
	out := make([][]float32, len(texts))

	// Cache hits first, then one provider call for the misses.
	var missTexts []string
	var missIdx []int
	for i, t := range texts {
		if s.cache != nil {
			if vec, ok := s.cache.Get(ctx, model, t); ok {
				out[i] = vec
				continue
			}
		}
		missTexts = append(missTexts, t)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) > 0 {
		vecs, err := s.client.Embed(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(missTexts) {
			return nil, fmt.Errorf("embedding count mismatch: want=%d got=%d", len(missTexts), len(vecs))
		}
		for j, vec := range vecs {
			out[missIdx[j]] = vec
			if s.cache != nil {
				s.cache.Put(ctx, model, missTexts[j], vec)
			}
		}
	}

	return out, nil
}

func (s *embeddingService) Close() error {
	if s.cache != nil {
		return s.cache.Close()
	}
	return nil
}
