package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wisefood/wisefood-data-api/internal/data/repos/foods"
	types "github.com/wisefood/wisefood-data-api/internal/domain"
	"github.com/wisefood/wisefood-data-api/internal/platform/dbctx"
	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
	"github.com/wisefood/wisefood-data-api/internal/platform/vector"
)

// In-memory repo fakes. Only the methods the matcher and resolver
// exercise carry behavior.

type fakeConceptRepo struct {
	concepts map[uuid.UUID]*types.FoodConcept
}

func newFakeConceptRepo() *fakeConceptRepo {
	return &fakeConceptRepo{concepts: map[uuid.UUID]*types.FoodConcept{}}
}

func (r *fakeConceptRepo) add(c *types.FoodConcept) { r.concepts[c.ID] = c }

func (r *fakeConceptRepo) CreateIgnoreConflict(dbc dbctx.Context, row *types.FoodConcept) (bool, error) {
	for _, c := range r.concepts {
		if c.CandidateKey == row.CandidateKey {
			return false, nil
		}
	}
	r.concepts[row.ID] = row
	return true, nil
}

func (r *fakeConceptRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.FoodConcept, error) {
	return r.concepts[id], nil
}

func (r *fakeConceptRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.FoodConcept, error) {
	var out []*types.FoodConcept
	for _, id := range ids {
		if c, ok := r.concepts[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeConceptRepo) GetByCandidateKey(dbc dbctx.Context, key string) (*types.FoodConcept, error) {
	for _, c := range r.concepts {
		if c.CandidateKey == key {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeConceptRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return nil
}

func (r *fakeConceptRepo) Touch(dbc dbctx.Context, id uuid.UUID) error { return nil }

type fakeNameRepo struct {
	byLowerName map[string][]uuid.UUID
}

func newFakeNameRepo() *fakeNameRepo {
	return &fakeNameRepo{byLowerName: map[string][]uuid.UUID{}}
}

func (r *fakeNameRepo) GetByConceptIDs(dbc dbctx.Context, conceptIDs []uuid.UUID) ([]*types.FoodName, error) {
	return nil, nil
}

func (r *fakeNameRepo) GetConceptIDsByLowerName(dbc dbctx.Context, loweredName string) ([]uuid.UUID, error) {
	return r.byLowerName[loweredName], nil
}

func (r *fakeNameRepo) CreateIgnoreConflicts(dbc dbctx.Context, rows []*types.FoodName) error {
	return nil
}

func (r *fakeNameRepo) DemotePrimary(dbc dbctx.Context, conceptID uuid.UUID, lang string) error {
	return nil
}

type fakeIdentifierRepo struct {
	rows []*types.FoodIdentifier
}

func (r *fakeIdentifierRepo) GetByKeys(dbc dbctx.Context, keys []foods.IdentifierKey) ([]*types.FoodIdentifier, error) {
	var out []*types.FoodIdentifier
	for _, row := range r.rows {
		for _, k := range keys {
			if row.System == k.System && row.Code == k.Code {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

func (r *fakeIdentifierRepo) CreateIgnoreConflicts(dbc dbctx.Context, rows []*types.FoodIdentifier) error {
	r.rows = append(r.rows, rows...)
	return nil
}

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) EmbedNames(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, ok := f.vectors[t]
		if !ok {
			return nil, fmt.Errorf("no fixture vector for %q", t)
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) ModelVersion() string { return "test-embed-1" }
func (f *fakeEmbedder) Close() error         { return nil }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func unitVec(cos float64) []float32 {
	return []float32{float32(cos), float32(math.Sqrt(1 - cos*cos))}
}

func seedConcept(t *testing.T, repo *fakeConceptRepo, index *SimilarityIndex, name, groupCode string, vec []float32, createdAt time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	repo.add(&types.FoodConcept{
		ID:           id,
		CandidateKey: name + "|" + groupCode,
		GroupCode:    groupCode,
		Names:        []types.FoodName{{FoodConceptID: id, Name: name, IsPrimary: true}},
		CreatedAt:    createdAt,
	})
	if err := index.InsertConcept(context.Background(), id, name, groupCode, vec); err != nil {
		t.Fatalf("seed index: %v", err)
	}
	return id
}

func newTestMatcher(t *testing.T, cfg Config, embedder *fakeEmbedder, concepts *fakeConceptRepo, names *fakeNameRepo) (*Matcher, *SimilarityIndex) {
	t.Helper()
	log := testLogger(t)
	index, err := NewSimilarityIndex(vector.NewMemoryStore(), "food-concept", embedder.ModelVersion(), log)
	if err != nil {
		t.Fatalf("init index: %v", err)
	}
	m, err := NewMatcher(cfg, embedder, index, concepts, names, log)
	if err != nil {
		t.Fatalf("init matcher: %v", err)
	}
	return m, index
}

func TestMatchExactNameShortCircuits(t *testing.T) {
	cfg := LoadConfig()
	concepts := newFakeConceptRepo()
	names := newFakeNameRepo()
	existing := uuid.New()
	names.byLowerName["quinoa, raw"] = []uuid.UUID{existing}

	// The embedder would fail; exact matching must not reach it.
	m, _ := newTestMatcher(t, cfg, &fakeEmbedder{err: errors.New("unreachable")}, concepts, names)

	out, err := m.Match(dbctx.Context{Ctx: context.Background()}, &types.RawRow{
		SourceID: uuid.New(),
		Names:    []types.RawName{{Name: "  Quinoa,  RAW ", IsPrimary: true}},
	})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if out.Resolution.ConceptID != existing {
		t.Fatalf("concept: want=%s got=%s", existing, out.Resolution.ConceptID)
	}
	if out.Resolution.Confidence != 1.0 {
		t.Fatalf("exact match confidence: want=1.0 got=%v", out.Resolution.Confidence)
	}
	if out.Resolution.Ambiguous || out.Resolution.NewConcept {
		t.Fatalf("exact match must be a plain accept")
	}
}

func TestMatchAcceptsStrongCandidate(t *testing.T) {
	cfg := LoadConfig()
	concepts := newFakeConceptRepo()
	names := newFakeNameRepo()
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"quinoa raw": unitVec(1.0),
	}}
	m, index := newTestMatcher(t, cfg, embedder, concepts, names)

	want := seedConcept(t, concepts, index, "quinoa, raw", "ce", unitVec(1.0), time.Now())

	out, err := m.Match(dbctx.Context{Ctx: context.Background()}, &types.RawRow{
		SourceID: uuid.New(),
		Names:    []types.RawName{{Name: "Quinoa raw", IsPrimary: true}},
		Group:    types.RawGroup{Code: "CE"},
	})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if out.Resolution.NewConcept {
		t.Fatalf("strong candidate must not fall through to creation")
	}
	if out.Resolution.ConceptID != want {
		t.Fatalf("concept: want=%s got=%s", want, out.Resolution.ConceptID)
	}
	if out.Resolution.Ambiguous {
		t.Fatalf("single strong candidate must be an unambiguous accept")
	}
	if out.Resolution.Confidence < cfg.AcceptThreshold {
		t.Fatalf("confidence %v below accept threshold", out.Resolution.Confidence)
	}
	if len(out.Embedding) == 0 {
		t.Fatalf("matcher must hand the embedding back for reuse")
	}
}

func TestMatchCloseScoresAreAmbiguous(t *testing.T) {
	// Cosine-only weights so the test controls composites exactly.
	cfg := LoadConfig()
	cfg.WeightCosine = 1.0
	cfg.WeightLexical = 0.0
	cfg.WeightGroupBonus = 0.0

	concepts := newFakeConceptRepo()
	names := newFakeNameRepo()
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"mystery grain": unitVec(1.0),
	}}
	m, index := newTestMatcher(t, cfg, embedder, concepts, names)

	older := time.Now().Add(-time.Hour)
	first := seedConcept(t, concepts, index, "aaaa", "", unitVec(0.60), older)
	second := seedConcept(t, concepts, index, "bbbb", "", unitVec(0.55), time.Now())

	out, err := m.Match(dbctx.Context{Ctx: context.Background()}, &types.RawRow{
		SourceID: uuid.New(),
		Names:    []types.RawName{{Name: "mystery grain", IsPrimary: true}},
	})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !out.Resolution.Ambiguous {
		t.Fatalf("0.60 vs 0.55 must be ambiguous")
	}
	if out.Resolution.ConceptID != first {
		t.Fatalf("primary: want=%s got=%s", first, out.Resolution.ConceptID)
	}
	if len(out.Resolution.Alternatives) != 2 {
		t.Fatalf("alternatives: want=2 got=%d", len(out.Resolution.Alternatives))
	}
	alt := out.Resolution.Alternatives
	if alt[0].FoodConceptID != first || alt[1].FoodConceptID != second {
		t.Fatalf("alternatives must be confidence-descending")
	}
	if alt[0].Rank != 0 || alt[1].Rank != 1 {
		t.Fatalf("ranks: want 0,1 got %d,%d", alt[0].Rank, alt[1].Rank)
	}
	if alt[0].Confidence <= alt[1].Confidence {
		t.Fatalf("confidence order: %v <= %v", alt[0].Confidence, alt[1].Confidence)
	}
}

func TestMatchThinMarginAboveAcceptIsAmbiguous(t *testing.T) {
	cfg := LoadConfig()
	cfg.WeightCosine = 1.0
	cfg.WeightLexical = 0.0
	cfg.WeightGroupBonus = 0.0

	concepts := newFakeConceptRepo()
	names := newFakeNameRepo()
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"mystery grain": unitVec(1.0),
	}}
	m, index := newTestMatcher(t, cfg, embedder, concepts, names)

	seedConcept(t, concepts, index, "aaaa", "", unitVec(0.90), time.Now())
	seedConcept(t, concepts, index, "bbbb", "", unitVec(0.85), time.Now())

	out, err := m.Match(dbctx.Context{Ctx: context.Background()}, &types.RawRow{
		SourceID: uuid.New(),
		Names:    []types.RawName{{Name: "mystery grain", IsPrimary: true}},
	})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !out.Resolution.Ambiguous {
		t.Fatalf("margin 0.05 under required 0.10 must be ambiguous even above the accept threshold")
	}
}

func TestMatchBelowLowThresholdCreates(t *testing.T) {
	cfg := LoadConfig()
	cfg.WeightCosine = 1.0
	cfg.WeightLexical = 0.0
	cfg.WeightGroupBonus = 0.0

	concepts := newFakeConceptRepo()
	names := newFakeNameRepo()
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"mystery grain": unitVec(1.0),
	}}
	m, index := newTestMatcher(t, cfg, embedder, concepts, names)

	seedConcept(t, concepts, index, "aaaa", "", unitVec(0.20), time.Now())

	out, err := m.Match(dbctx.Context{Ctx: context.Background()}, &types.RawRow{
		SourceID: uuid.New(),
		Names:    []types.RawName{{Name: "mystery grain", IsPrimary: true}},
	})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !out.Resolution.NewConcept {
		t.Fatalf("sub-threshold best should create a concept")
	}
}

func TestMatchEmbeddingFailureFallsBack(t *testing.T) {
	cfg := LoadConfig()
	concepts := newFakeConceptRepo()
	names := newFakeNameRepo()
	m, _ := newTestMatcher(t, cfg, &fakeEmbedder{err: errors.New("provider down")}, concepts, names)

	out, err := m.Match(dbctx.Context{Ctx: context.Background()}, &types.RawRow{
		SourceID: uuid.New(),
		Names:    []types.RawName{{Name: "quinoa, raw", IsPrimary: true}},
	})
	if err != nil {
		t.Fatalf("provider failure must not fail the row: %v", err)
	}
	if !out.Resolution.NewConcept {
		t.Fatalf("fallback must create a new concept")
	}
	if out.Resolution.Confidence != cfg.LowThreshold {
		t.Fatalf("fallback confidence: want=%v got=%v", cfg.LowThreshold, out.Resolution.Confidence)
	}
	if len(out.Issues) != 1 {
		t.Fatalf("fallback should report one issue, got %d", len(out.Issues))
	}
	var perr *EmbeddingProviderError
	if !errors.As(out.Issues[0], &perr) {
		t.Fatalf("want EmbeddingProviderError, got %T", out.Issues[0])
	}
}
