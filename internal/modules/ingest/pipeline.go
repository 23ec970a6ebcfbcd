package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/wisefood/wisefood-data-api/internal/data/repos/foods"
	"github.com/wisefood/wisefood-data-api/internal/data/repos/records"
	types "github.com/wisefood/wisefood-data-api/internal/domain"
	"github.com/wisefood/wisefood-data-api/internal/platform/dbctx"
	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
	"github.com/wisefood/wisefood-data-api/internal/services"
)

// Pipeline drives a batch of raw rows through resolve, canonicalize,
// normalize, fingerprint, score, and upsert. Each row commits in its
// own transaction; a failing or cancelled batch never rolls back rows
// already committed.
type Pipeline struct {
	cfg Config
	db  *gorm.DB

	resolver      *Resolver
	matcher       *Matcher
	canonicalizer *Canonicalizer
	normalizer    *Normalizer
	quality       *Quality

	concepts    foods.FoodConceptRepo
	sources     records.SourceInfoRepo
	nutrientRef records.NutrientRefRepo
	store       services.RecordStore
	graph       services.ConceptGraph

	ref    *Reference
	log    *logger.Logger
	tracer oteltrace.Tracer

	seedOnce sync.Once
	seedErr  error
}

// RowError ties a failed row back to its batch position.
type RowError struct {
	Index       int
	SourceRowID string
	Err         error
}

// BatchResult summarizes one Run.
type BatchResult struct {
	Total            int
	Succeeded        int
	Failed           int
	RecordsCreated   int
	RecordsRefreshed int
	ConceptsCreated  int
	Ambiguous        int
	Errors           []RowError
}

type PipelineDeps struct {
	DB            *gorm.DB
	Resolver      *Resolver
	Matcher       *Matcher
	Canonicalizer *Canonicalizer
	Normalizer    *Normalizer
	Quality       *Quality
	Concepts      foods.FoodConceptRepo
	Sources       records.SourceInfoRepo
	NutrientRefs  records.NutrientRefRepo
	Store         services.RecordStore
	Graph         services.ConceptGraph
	Reference     *Reference
	Log           *logger.Logger
}

func NewPipeline(cfg Config, deps PipelineDeps) (*Pipeline, error) {
	if deps.DB == nil || deps.Resolver == nil || deps.Matcher == nil ||
		deps.Canonicalizer == nil || deps.Normalizer == nil || deps.Quality == nil ||
		deps.Concepts == nil || deps.Sources == nil || deps.NutrientRefs == nil ||
		deps.Store == nil || deps.Reference == nil || deps.Log == nil {
		return nil, fmt.Errorf("pipeline: missing dependency")
	}
	return &Pipeline{
		cfg:           cfg,
		db:            deps.DB,
		resolver:      deps.Resolver,
		matcher:       deps.Matcher,
		canonicalizer: deps.Canonicalizer,
		normalizer:    deps.Normalizer,
		quality:       deps.Quality,
		concepts:      deps.Concepts,
		sources:       deps.Sources,
		nutrientRef:   deps.NutrientRefs,
		store:         deps.Store,
		graph:         deps.Graph,
		ref:           deps.Reference,
		log:           deps.Log.With("component", "Pipeline"),
		tracer:        otel.Tracer("wisefood-data-api/ingest"),
	}, nil
}

// Run processes rows concurrently up to the configured worker limit.
// Row failures are collected, not propagated; the returned error is
// non-nil only when the batch as a whole could not run.
func (p *Pipeline) Run(ctx context.Context, rows []*types.RawRow) (*BatchResult, error) {
	res := &BatchResult{Total: len(rows)}
	if len(rows) == 0 {
		return res, nil
	}

	if err := p.seedReference(ctx); err != nil {
		return nil, fmt.Errorf("pipeline: seed nutrient reference: %w", err)
	}

	ctx, span := p.tracer.Start(ctx, "ingest.batch",
		oteltrace.WithAttributes(attribute.Int("rows", len(rows))))
	defer span.End()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			outcome, err := p.ingestRow(gctx, row)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed++
				res.Errors = append(res.Errors, RowError{
					Index:       i,
					SourceRowID: rowID(row),
					Err:         err,
				})
				p.log.Warn("row failed",
					"index", i,
					"source_row_id", rowID(row),
					"error", err.Error(),
				)
				return nil
			}
			res.Succeeded++
			if outcome.recordCreated {
				res.RecordsCreated++
			} else {
				res.RecordsRefreshed++
			}
			if outcome.conceptCreated {
				res.ConceptsCreated++
			}
			if outcome.ambiguous {
				res.Ambiguous++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}

	p.log.Info("batch done",
		"total", res.Total,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"records_created", res.RecordsCreated,
		"records_refreshed", res.RecordsRefreshed,
		"concepts_created", res.ConceptsCreated,
		"ambiguous", res.Ambiguous,
	)
	return res, nil
}

type rowOutcome struct {
	recordCreated  bool
	conceptCreated bool
	ambiguous      bool
	record         *types.FoodCompositionRecord
	concept        *types.FoodConcept
	source         *types.SourceInfo
}

func (p *Pipeline) ingestRow(ctx context.Context, row *types.RawRow) (*rowOutcome, error) {
	ctx, span := p.tracer.Start(ctx, "ingest.row")
	defer span.End()

	if row == nil || row.SourceID == uuid.Nil {
		return nil, ErrMissingSource
	}

	read := dbctx.Context{Ctx: ctx}

	source, err := p.sources.GetByID(read, row.SourceID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("source %s is not registered: %w", row.SourceID, ErrMissingSource)
	}

	// Resolution and matching read outside the write transaction; the
	// embedding call must not hold a row lock.
	resolution, err := p.resolver.Resolve(read, row)
	if err != nil {
		return nil, err
	}

	var embedding []float32
	var issues []error
	if resolution != nil && resolution.Ambiguous {
		ids := make([]string, 0, len(resolution.Alternatives))
		for _, alt := range resolution.Alternatives {
			ids = append(ids, alt.FoodConceptID.String())
		}
		issues = append(issues, &IdentifierConflictError{ConceptIDs: ids})
	}
	if resolution == nil {
		outcome, err := p.matcher.Match(read, row)
		if err != nil {
			return nil, err
		}
		resolution = &outcome.Resolution
		embedding = outcome.Embedding
		issues = append(issues, outcome.Issues...)
	}

	span.SetAttributes(
		attribute.String("rationale", resolution.Rationale),
		attribute.Float64("confidence", resolution.Confidence),
	)

	normalized := p.normalizer.Normalize(row)
	issues = append(issues, normalized.Issues...)

	out := &rowOutcome{ambiguous: resolution.Ambiguous, source: source}

	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		var concept *types.FoodConcept
		switch {
		case resolution.NewConcept:
			created := false
			concept, created, err = p.canonicalizer.EnsureConcept(dbc, row, embedding, source.TrustPriority)
			if err != nil {
				return err
			}
			out.conceptCreated = created
		default:
			concept, err = p.concepts.GetByID(dbc, resolution.ConceptID)
			if err != nil {
				return err
			}
			if concept == nil {
				return fmt.Errorf("resolved concept %s vanished", resolution.ConceptID)
			}
			// Ambiguous matches only attach the record; merging names
			// and identifiers into a guess would poison the concept.
			if resolution.Ambiguous {
				if err := p.concepts.Touch(dbc, concept.ID); err != nil {
					return err
				}
			} else {
				if err := p.canonicalizer.MergeInto(dbc, concept, row, source.TrustPriority); err != nil {
					return err
				}
			}
		}
		out.concept = concept

		if err := p.ensureNutrientRefs(dbc, normalized.Amounts); err != nil {
			return err
		}

		record, err := p.buildRecord(row, concept.ID, source, normalized, resolution, issues)
		if err != nil {
			return err
		}

		stored, created, err := p.store.UpsertTx(dbc, record)
		if err != nil {
			return err
		}
		out.record = stored
		out.recordCreated = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	if p.graph != nil {
		p.graph.ProjectConcept(ctx, out.concept)
		p.graph.ProjectRecord(ctx, out.record, source)
	}
	return out, nil
}

func (p *Pipeline) buildRecord(row *types.RawRow, conceptID uuid.UUID, source *types.SourceInfo, normalized NormalizeResult, resolution *Resolution, issues []error) (*types.FoodCompositionRecord, error) {
	fp := Fingerprint(row.SourceID, row.SourceRowID, conceptID, normalized.Basis, normalized.Amounts, p.cfg.FingerprintPrecision)

	completeness := p.quality.Completeness(normalized.Amounts)
	priority := source.TrustPriority

	var extra []string
	if resolution.Ambiguous {
		extra = append(extra, "ambiguous mapping: "+resolution.Rationale)
	}
	notes := p.quality.Notes(issues, extra...)

	record := &types.FoodCompositionRecord{
		ID:                uuid.New(),
		SourceID:          row.SourceID,
		SourceRowID:       strings.TrimSpace(row.SourceRowID),
		FoodConceptID:     conceptID,
		Basis:             normalized.Basis,
		Fingerprint:       fp,
		Nutrients:         normalized.Amounts,
		CompletenessScore: &completeness,
		SourcePriority:    &priority,
		QualityNotes:      notes,
	}

	if row.Preparation != nil {
		raw, err := json.Marshal(row.Preparation)
		if err != nil {
			return nil, fmt.Errorf("marshal preparation: %w", err)
		}
		record.Preparation = raw
	}

	for _, portion := range row.Portions {
		label := strings.TrimSpace(portion.Label)
		if label == "" {
			continue
		}
		record.Portions = append(record.Portions, types.PortionMeasure{
			ID:          uuid.New(),
			Label:       label,
			MassG:       copyFloat(portion.MassG),
			VolumeML:    copyFloat(portion.VolumeML),
			Description: strings.TrimSpace(portion.Description),
		})
	}

	if resolution.Ambiguous {
		for _, alt := range resolution.Alternatives {
			alt.ID = uuid.New()
			record.Mappings = append(record.Mappings, alt)
		}
	}

	for i := range record.Nutrients {
		record.Nutrients[i].ID = uuid.New()
	}
	return record, nil
}

// ensureNutrientRefs inserts placeholder ontology rows for tagnames the
// reference does not know, so the nutrient_amount foreign key holds.
func (p *Pipeline) ensureNutrientRefs(dbc dbctx.Context, amounts []types.NutrientAmount) error {
	var unknown []*types.NutrientRef
	for _, a := range amounts {
		if a.NutrientRefID == "" {
			continue
		}
		if p.ref.CanonicalUnit(a.NutrientRefID) == types.UnitUnknown && !p.ref.IsCore(a.NutrientRefID) {
			unknown = append(unknown, &types.NutrientRef{
				ID:   a.NutrientRefID,
				Unit: a.Unit,
			})
		}
	}
	return p.nutrientRef.UpsertMany(dbc, unknown)
}

func (p *Pipeline) seedReference(ctx context.Context) error {
	p.seedOnce.Do(func() {
		refs := make([]*types.NutrientRef, 0, len(p.ref.Refs))
		for i := range p.ref.Refs {
			r := p.ref.Refs[i]
			refs = append(refs, &r)
		}
		p.seedErr = p.nutrientRef.UpsertMany(dbctx.Context{Ctx: ctx}, refs)
	})
	return p.seedErr
}

func rowID(row *types.RawRow) string {
	if row == nil {
		return ""
	}
	return row.SourceRowID
}
