package app

import (
	"gorm.io/gorm"

	"github.com/wisefood/wisefood-data-api/internal/modules/ingest"
	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
	"github.com/wisefood/wisefood-data-api/internal/platform/vector"
)

func wirePipeline(db *gorm.DB, log *logger.Logger, cfg ingest.Config, store vector.VectorStore, repos Repos, svcs Services) (*ingest.Pipeline, error) {
	ref, err := ingest.LoadReference()
	if err != nil {
		return nil, err
	}

	index, err := ingest.NewSimilarityIndex(store, cfg.IndexNamespace, svcs.Embedding.ModelVersion(), log)
	if err != nil {
		return nil, err
	}

	resolver, err := ingest.NewResolver(repos.Identifiers, repos.Concepts, log)
	if err != nil {
		return nil, err
	}

	matcher, err := ingest.NewMatcher(cfg, svcs.Embedding, index, repos.Concepts, repos.Names, log)
	if err != nil {
		return nil, err
	}

	canonicalizer, err := ingest.NewCanonicalizer(cfg, repos.Concepts, repos.Identifiers, repos.Names, index, log)
	if err != nil {
		return nil, err
	}

	normalizer, err := ingest.NewNormalizer(ref, log)
	if err != nil {
		return nil, err
	}

	return ingest.NewPipeline(cfg, ingest.PipelineDeps{
		DB:            db,
		Resolver:      resolver,
		Matcher:       matcher,
		Canonicalizer: canonicalizer,
		Normalizer:    normalizer,
		Quality:       ingest.NewQuality(ref),
		Concepts:      repos.Concepts,
		Sources:       repos.Sources,
		NutrientRefs:  repos.NutrientRefs,
		Store:         svcs.Store,
		Graph:         svcs.Graph,
		Reference:     ref,
		Log:           log,
	})
}
