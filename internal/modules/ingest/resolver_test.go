package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/wisefood/wisefood-data-api/internal/domain"
	"github.com/wisefood/wisefood-data-api/internal/platform/dbctx"
)

func newTestResolver(t *testing.T, identifiers *fakeIdentifierRepo, concepts *fakeConceptRepo) *Resolver {
	t.Helper()
	r, err := NewResolver(identifiers, concepts, testLogger(t))
	if err != nil {
		t.Fatalf("init resolver: %v", err)
	}
	return r
}

func TestResolveNoIdentifiersFallsThrough(t *testing.T) {
	r := newTestResolver(t, &fakeIdentifierRepo{}, newFakeConceptRepo())

	res, err := r.Resolve(dbctx.Context{Ctx: context.Background()}, &types.RawRow{
		SourceID: uuid.New(),
		Identifiers: []types.RawIdentifier{
			{System: "  ", Code: "01.234"},
			{System: "fdc", Code: ""},
		},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res != nil {
		t.Fatalf("blank identifiers must fall through to the matcher, got %+v", res)
	}
}

func TestResolveUnknownCodesFallThrough(t *testing.T) {
	r := newTestResolver(t, &fakeIdentifierRepo{}, newFakeConceptRepo())

	res, err := r.Resolve(dbctx.Context{Ctx: context.Background()}, &types.RawRow{
		SourceID:    uuid.New(),
		Identifiers: []types.RawIdentifier{{System: "langual", Code: "B1312"}},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res != nil {
		t.Fatalf("unregistered codes must fall through, got %+v", res)
	}
}

func TestResolveAgreeingIdentifiers(t *testing.T) {
	conceptID := uuid.New()
	identifiers := &fakeIdentifierRepo{rows: []*types.FoodIdentifier{
		{FoodConceptID: conceptID, System: "fdc", Code: "168917"},
		{FoodConceptID: conceptID, System: "langual", Code: "B1312"},
	}}
	r := newTestResolver(t, identifiers, newFakeConceptRepo())

	res, err := r.Resolve(dbctx.Context{Ctx: context.Background()}, &types.RawRow{
		SourceID: uuid.New(),
		Identifiers: []types.RawIdentifier{
			{System: "fdc", Code: "168917"},
			{System: "langual", Code: "B1312"},
		},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res == nil {
		t.Fatalf("known identifiers must resolve")
	}
	if res.ConceptID != conceptID {
		t.Fatalf("concept: want=%s got=%s", conceptID, res.ConceptID)
	}
	if res.Confidence != 1.0 {
		t.Fatalf("identifier match confidence: want=1.0 got=%v", res.Confidence)
	}
	if res.Ambiguous || len(res.Alternatives) != 0 {
		t.Fatalf("agreeing identifiers must not be ambiguous")
	}
}

func TestResolveConflictingIdentifiers(t *testing.T) {
	concepts := newFakeConceptRepo()
	majority := uuid.New()
	minority := uuid.New()
	concepts.add(&types.FoodConcept{ID: majority, CreatedAt: time.Now().Add(-time.Hour)})
	concepts.add(&types.FoodConcept{ID: minority, CreatedAt: time.Now()})

	identifiers := &fakeIdentifierRepo{rows: []*types.FoodIdentifier{
		{FoodConceptID: majority, System: "fdc", Code: "168917"},
		{FoodConceptID: majority, System: "infoods", Code: "QUINOA"},
		{FoodConceptID: minority, System: "langual", Code: "B1312"},
	}}
	r := newTestResolver(t, identifiers, concepts)

	res, err := r.Resolve(dbctx.Context{Ctx: context.Background()}, &types.RawRow{
		SourceID: uuid.New(),
		Identifiers: []types.RawIdentifier{
			{System: "fdc", Code: "168917"},
			{System: "infoods", Code: "QUINOA"},
			{System: "langual", Code: "B1312"},
		},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res == nil {
		t.Fatalf("conflicting identifiers must still resolve a primary")
	}
	if !res.Ambiguous {
		t.Fatalf("conflict must be ambiguous")
	}
	if res.ConceptID != majority {
		t.Fatalf("primary should be the concept with most identifier hits")
	}
	if want := 2.0 / 3.0; res.Confidence != want {
		t.Fatalf("primary confidence: want=%v got=%v", want, res.Confidence)
	}
	if len(res.Alternatives) != 2 {
		t.Fatalf("alternatives: want=2 got=%d", len(res.Alternatives))
	}
	if res.Alternatives[0].FoodConceptID != majority || res.Alternatives[1].FoodConceptID != minority {
		t.Fatalf("alternatives must rank the majority concept first")
	}
	if want := 1.0 / 3.0; res.Alternatives[1].Confidence != want {
		t.Fatalf("minority confidence: want=%v got=%v", want, res.Alternatives[1].Confidence)
	}
}

func TestResolveConflictTieBreaksByAge(t *testing.T) {
	concepts := newFakeConceptRepo()
	older := uuid.New()
	newer := uuid.New()
	concepts.add(&types.FoodConcept{ID: older, CreatedAt: time.Now().Add(-24 * time.Hour)})
	concepts.add(&types.FoodConcept{ID: newer, CreatedAt: time.Now()})

	identifiers := &fakeIdentifierRepo{rows: []*types.FoodIdentifier{
		{FoodConceptID: older, System: "fdc", Code: "168917"},
		{FoodConceptID: newer, System: "langual", Code: "B1312"},
	}}
	r := newTestResolver(t, identifiers, concepts)

	res, err := r.Resolve(dbctx.Context{Ctx: context.Background()}, &types.RawRow{
		SourceID: uuid.New(),
		Identifiers: []types.RawIdentifier{
			{System: "fdc", Code: "168917"},
			{System: "langual", Code: "B1312"},
		},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.ConceptID != older {
		t.Fatalf("equal hit counts must prefer the older concept")
	}
}
