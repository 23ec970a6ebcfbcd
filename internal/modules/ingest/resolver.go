package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/wisefood/wisefood-data-api/internal/data/repos/foods"
	types "github.com/wisefood/wisefood-data-api/internal/domain"
	"github.com/wisefood/wisefood-data-api/internal/platform/dbctx"
	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
)

// Resolution is the outcome of identifier or name matching for one raw
// row. A nil Resolution from the resolver means no identifier hit and
// the matcher decides.
type Resolution struct {
	ConceptID  uuid.UUID
	Confidence float64
	Rationale  string

	// Alternatives are persisted as MappingCandidate rows when the
	// match was ambiguous or conflicting, descending by confidence.
	Alternatives []types.MappingCandidate

	// Ambiguous marks resolutions that must carry their alternatives.
	Ambiguous bool

	// NewConcept marks rows for which a concept must be created.
	NewConcept bool
}

// Resolver matches raw identifiers against the global (system, code)
// registry. Identifier hits outrank any fuzzy match.
type Resolver struct {
	identifiers foods.FoodIdentifierRepo
	concepts    foods.FoodConceptRepo
	log         *logger.Logger
}

func NewResolver(identifierRepo foods.FoodIdentifierRepo, conceptRepo foods.FoodConceptRepo, baseLog *logger.Logger) (*Resolver, error) {
	if identifierRepo == nil || conceptRepo == nil || baseLog == nil {
		return nil, fmt.Errorf("resolver: missing dependency")
	}
	return &Resolver{
		identifiers: identifierRepo,
		concepts:    conceptRepo,
		log:         baseLog.With("component", "Resolver"),
	}, nil
}

// Resolve returns nil when no raw identifier is known yet; the caller
// falls through to the name matcher.
func (r *Resolver) Resolve(dbc dbctx.Context, row *types.RawRow) (*Resolution, error) {
	keys := make([]foods.IdentifierKey, 0, len(row.Identifiers))
	for _, id := range row.Identifiers {
		system := strings.TrimSpace(id.System)
		code := strings.TrimSpace(id.Code)
		if system == "" || code == "" {
			continue
		}
		keys = append(keys, foods.IdentifierKey{System: system, Code: code})
	}
	if len(keys) == 0 {
		return nil, nil
	}

	hits, err := r.identifiers.GetByKeys(dbc, keys)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	matches := make(map[uuid.UUID]int)
	for _, h := range hits {
		matches[h.FoodConceptID]++
	}

	if len(matches) == 1 {
		for conceptID := range matches {
			return &Resolution{
				ConceptID:  conceptID,
				Confidence: 1.0,
				Rationale:  "identifier match",
			}, nil
		}
	}

	// Identifiers disagree. Primary is the concept matched by the most
	// identifiers; ties go to the oldest concept.
	conceptIDs := make([]uuid.UUID, 0, len(matches))
	for id := range matches {
		conceptIDs = append(conceptIDs, id)
	}
	concepts, err := r.concepts.GetByIDs(dbc, conceptIDs)
	if err != nil {
		return nil, err
	}
	createdAt := make(map[uuid.UUID]int64, len(concepts))
	for _, c := range concepts {
		createdAt[c.ID] = c.CreatedAt.UnixNano()
	}

	sort.Slice(conceptIDs, func(i, j int) bool {
		a, b := conceptIDs[i], conceptIDs[j]
		if matches[a] != matches[b] {
			return matches[a] > matches[b]
		}
		if createdAt[a] != createdAt[b] {
			return createdAt[a] < createdAt[b]
		}
		return a.String() < b.String()
	})

	conflictIDs := make([]string, 0, len(conceptIDs))
	for _, id := range conceptIDs {
		conflictIDs = append(conflictIDs, id.String())
	}
	r.log.Warn("identifier conflict",
		"concepts", strings.Join(conflictIDs, ","),
		"source_row_id", row.SourceRowID,
	)

	total := len(hits)
	alternatives := make([]types.MappingCandidate, 0, len(conceptIDs))
	for rank, id := range conceptIDs {
		alternatives = append(alternatives, types.MappingCandidate{
			FoodConceptID: id,
			Confidence:    float64(matches[id]) / float64(total),
			Rationale:     "conflicting identifier systems",
			Rank:          rank,
		})
	}

	return &Resolution{
		ConceptID:    conceptIDs[0],
		Confidence:   float64(matches[conceptIDs[0]]) / float64(total),
		Rationale:    "conflicting identifier systems",
		Alternatives: alternatives,
		Ambiguous:    true,
	}, nil
}
