package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wisefood/wisefood-data-api/internal/data/repos/foods"
	"github.com/wisefood/wisefood-data-api/internal/data/repos/records"
	"github.com/wisefood/wisefood-data-api/internal/data/repos/testutil"
	types "github.com/wisefood/wisefood-data-api/internal/domain"
	"github.com/wisefood/wisefood-data-api/internal/normalization"
	"github.com/wisefood/wisefood-data-api/internal/platform/dbctx"
	"github.com/wisefood/wisefood-data-api/internal/platform/vector"
	"github.com/wisefood/wisefood-data-api/internal/services"
)

func newTestPipeline(t *testing.T, db *gorm.DB, embedder *fakeEmbedder) (*Pipeline, records.RecordRepo, records.SourceInfoRepo) {
	t.Helper()
	log := testutil.Logger(t)
	cfg := LoadConfig()

	concepts := foods.NewFoodConceptRepo(db, log)
	identifiers := foods.NewFoodIdentifierRepo(db, log)
	names := foods.NewFoodNameRepo(db, log)
	sources := records.NewSourceInfoRepo(db, log)
	nutrientRefs := records.NewNutrientRefRepo(db, log)
	recordRepo := records.NewRecordRepo(db, log)

	ref, err := LoadReference()
	if err != nil {
		t.Fatalf("load reference: %v", err)
	}
	index, err := NewSimilarityIndex(vector.NewMemoryStore(), cfg.IndexNamespace, embedder.ModelVersion(), log)
	if err != nil {
		t.Fatalf("init index: %v", err)
	}
	resolver, err := NewResolver(identifiers, concepts, log)
	if err != nil {
		t.Fatalf("init resolver: %v", err)
	}
	matcher, err := NewMatcher(cfg, embedder, index, concepts, names, log)
	if err != nil {
		t.Fatalf("init matcher: %v", err)
	}
	canonicalizer, err := NewCanonicalizer(cfg, concepts, identifiers, names, index, log)
	if err != nil {
		t.Fatalf("init canonicalizer: %v", err)
	}
	normalizer, err := NewNormalizer(ref, log)
	if err != nil {
		t.Fatalf("init normalizer: %v", err)
	}
	store, err := services.NewRecordStore(db, recordRepo, log)
	if err != nil {
		t.Fatalf("init record store: %v", err)
	}

	p, err := NewPipeline(cfg, PipelineDeps{
		DB:            db,
		Resolver:      resolver,
		Matcher:       matcher,
		Canonicalizer: canonicalizer,
		Normalizer:    normalizer,
		Quality:       NewQuality(ref),
		Concepts:      concepts,
		Sources:       sources,
		NutrientRefs:  nutrientRefs,
		Store:         store,
		Reference:     ref,
		Log:           log,
	})
	if err != nil {
		t.Fatalf("init pipeline: %v", err)
	}
	return p, recordRepo, sources
}

func cleanupSourceRows(t *testing.T, db *gorm.DB, sourceID uuid.UUID, names []string) {
	t.Helper()
	t.Cleanup(func() {
		var recordIDs []uuid.UUID
		db.Model(&types.FoodCompositionRecord{}).Where("source_id = ?", sourceID).Pluck("id", &recordIDs)
		if len(recordIDs) > 0 {
			db.Where("record_id IN ?", recordIDs).Delete(&types.NutrientAmount{})
			db.Where("record_id IN ?", recordIDs).Delete(&types.PortionMeasure{})
			db.Where("record_id IN ?", recordIDs).Delete(&types.MappingCandidate{})
			db.Where("id IN ?", recordIDs).Delete(&types.FoodCompositionRecord{})
		}
		var conceptIDs []uuid.UUID
		db.Model(&types.FoodName{}).Where("name IN ?", names).Pluck("food_concept_id", &conceptIDs)
		db.Where("name IN ?", names).Delete(&types.FoodName{})
		if len(conceptIDs) > 0 {
			db.Where("id IN ?", conceptIDs).Delete(&types.FoodConcept{})
		}
		db.Where("id = ?", sourceID).Delete(&types.SourceInfo{})
	})
}

func rawRowFor(sourceID uuid.UUID, rowID, name string) *types.RawRow {
	return &types.RawRow{
		SourceID:    sourceID,
		SourceRowID: rowID,
		Names:       []types.RawName{{Name: name, Lang: "en", IsPrimary: true}},
		Group:       types.RawGroup{Code: "pu"},
		Basis:       types.BasisPer100g,
		Nutrients: []types.RawNutrient{{
			NutrientID:       "PROCNT",
			Value:            floatPtr(12.5),
			Unit:             types.UnitGram,
			OriginalValueRaw: "12.5",
		}},
	}
}

func TestPipelineRowFailuresDoNotFailBatch(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	goodName := "Split peas " + suffix
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		normalization.NormalizeName(goodName): unitVec(1.0),
	}}
	p, recordRepo, sources := newTestPipeline(t, db, embedder)

	source, err := sources.Create(dbctx.Context{Ctx: ctx}, &types.SourceInfo{
		ID:            uuid.New(),
		Name:          "it-source-" + suffix,
		TrustPriority: 1,
	})
	if err != nil {
		t.Fatalf("register source: %v", err)
	}
	cleanupSourceRows(t, db, source.ID, []string{goodName})

	rows := []*types.RawRow{
		rawRowFor(source.ID, "r1", goodName),
		rawRowFor(uuid.Nil, "r2", "no source "+suffix),
		rawRowFor(uuid.New(), "r3", "unregistered "+suffix),
	}

	res, err := p.Run(ctx, rows)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Total != 3 || res.Succeeded != 1 || res.Failed != 2 {
		t.Fatalf("batch counts: total=%d succeeded=%d failed=%d", res.Total, res.Succeeded, res.Failed)
	}
	if res.RecordsCreated != 1 || res.ConceptsCreated != 1 {
		t.Fatalf("creation counts: records=%d concepts=%d", res.RecordsCreated, res.ConceptsCreated)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("row errors: want=2 got=%d", len(res.Errors))
	}
	for _, re := range res.Errors {
		if !errors.Is(re.Err, ErrMissingSource) {
			t.Fatalf("row %d: want ErrMissingSource got %v", re.Index, re.Err)
		}
	}

	n, err := recordRepo.CountBySource(dbctx.Context{Ctx: ctx}, source.ID)
	if err != nil {
		t.Fatalf("count records: %v", err)
	}
	if n != 1 {
		t.Fatalf("sibling failures must not roll back the good row: records=%d", n)
	}
}

func TestPipelineCancelLeavesCommittedRows(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	firstName := "Black beans " + suffix
	secondName := "Navy beans " + suffix
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		normalization.NormalizeName(firstName):  unitVec(1.0),
		normalization.NormalizeName(secondName): unitVec(0.0),
	}}
	p, recordRepo, sources := newTestPipeline(t, db, embedder)

	source, err := sources.Create(dbctx.Context{Ctx: ctx}, &types.SourceInfo{
		ID:            uuid.New(),
		Name:          "it-source-" + suffix,
		TrustPriority: 1,
	})
	if err != nil {
		t.Fatalf("register source: %v", err)
	}
	cleanupSourceRows(t, db, source.ID, []string{firstName, secondName})

	res, err := p.Run(ctx, []*types.RawRow{rawRowFor(source.ID, "r1", firstName)})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if res.Succeeded != 1 {
		t.Fatalf("first run must commit its row, got %+v", res)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := p.Run(cancelled, []*types.RawRow{rawRowFor(source.ID, "r2", secondName)}); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled run: want context.Canceled got %v", err)
	}

	n, err := recordRepo.CountBySource(dbctx.Context{Ctx: ctx}, source.ID)
	if err != nil {
		t.Fatalf("count records: %v", err)
	}
	if n != 1 {
		t.Fatalf("cancel must leave committed rows and add nothing: records=%d", n)
	}
}
