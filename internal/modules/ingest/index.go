package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
	"github.com/wisefood/wisefood-data-api/internal/platform/vector"
)

// SimilarityIndex is the concept-name embedding index. The namespace
// carries the embed model version, so vectors from different models
// never mix in one query.
type SimilarityIndex struct {
	store     vector.VectorStore
	namespace string
	log       *logger.Logger
}

// ConceptMatch is one similarity hit mapped back to a concept.
type ConceptMatch struct {
	ConceptID uuid.UUID
	Cosine    float64
}

func NewSimilarityIndex(store vector.VectorStore, baseNamespace, modelVersion string, baseLog *logger.Logger) (*SimilarityIndex, error) {
	if store == nil {
		return nil, fmt.Errorf("similarity index: vector store required")
	}
	if baseLog == nil {
		return nil, fmt.Errorf("similarity index: logger required")
	}
	return &SimilarityIndex{
		store:     store,
		namespace: baseNamespace + ":" + modelVersion,
		log:       baseLog.With("component", "SimilarityIndex"),
	}, nil
}

// Namespace returns the fully-qualified (model-versioned) namespace,
// also stored on FoodConcept.VectorID alongside the concept id.
func (ix *SimilarityIndex) Namespace() string { return ix.namespace }

func (ix *SimilarityIndex) InsertConcept(ctx context.Context, conceptID uuid.UUID, name, groupCode string, vec []float32) error {
	if conceptID == uuid.Nil || len(vec) == 0 {
		return nil
	}
	return ix.store.Upsert(ctx, ix.namespace, []vector.Vector{{
		ID:     conceptID.String(),
		Values: vec,
		Metadata: map[string]any{
			"name":       name,
			"group_code": groupCode,
		},
	}})
}

func (ix *SimilarityIndex) Query(ctx context.Context, vec []float32, topK int) ([]ConceptMatch, error) {
	if len(vec) == 0 || topK <= 0 {
		return nil, nil
	}
	raw, err := ix.store.QueryMatches(ctx, ix.namespace, vec, topK, nil)
	if err != nil {
		return nil, err
	}
	out := make([]ConceptMatch, 0, len(raw))
	for _, m := range raw {
		id, err := uuid.Parse(m.ID)
		if err != nil {
			ix.log.Warn("similarity index returned non-uuid id", "id", m.ID)
			continue
		}
		out = append(out, ConceptMatch{ConceptID: id, Cosine: m.Score})
	}
	return out, nil
}

func (ix *SimilarityIndex) DeleteConcept(ctx context.Context, conceptID uuid.UUID) error {
	if conceptID == uuid.Nil {
		return nil
	}
	return ix.store.DeleteIDs(ctx, ix.namespace, []string{conceptID.String()})
}
