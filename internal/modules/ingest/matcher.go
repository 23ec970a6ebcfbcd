package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/wisefood/wisefood-data-api/internal/data/repos/foods"
	types "github.com/wisefood/wisefood-data-api/internal/domain"
	"github.com/wisefood/wisefood-data-api/internal/normalization"
	"github.com/wisefood/wisefood-data-api/internal/platform/dbctx"
	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
	"github.com/wisefood/wisefood-data-api/internal/services"
)

// Matcher scores a raw row's primary name against existing concepts
// when no identifier resolved. Composite confidence blends embedding
// cosine, lexical similarity, and a group-agreement bonus.
type Matcher struct {
	cfg      Config
	embedder services.EmbeddingService
	index    *SimilarityIndex
	concepts foods.FoodConceptRepo
	names    foods.FoodNameRepo
	log      *logger.Logger
}

// MatchOutcome carries the resolution plus the name embedding, which
// the canonicalizer reuses to index a freshly created concept without a
// second provider call.
type MatchOutcome struct {
	Resolution Resolution
	Embedding  []float32
	Issues     []error
}

func NewMatcher(cfg Config, embedder services.EmbeddingService, index *SimilarityIndex, conceptRepo foods.FoodConceptRepo, nameRepo foods.FoodNameRepo, baseLog *logger.Logger) (*Matcher, error) {
	if embedder == nil || index == nil || conceptRepo == nil || nameRepo == nil || baseLog == nil {
		return nil, fmt.Errorf("matcher: missing dependency")
	}
	return &Matcher{
		cfg:      cfg,
		embedder: embedder,
		index:    index,
		concepts: conceptRepo,
		names:    nameRepo,
		log:      baseLog.With("component", "Matcher"),
	}, nil
}

type scoredCandidate struct {
	conceptID uuid.UUID
	composite float64
	lexical   float64
	createdAt int64
}

func (m *Matcher) Match(dbc dbctx.Context, row *types.RawRow) (*MatchOutcome, error) {
	name := row.PrimaryName()
	normalized := normalization.NormalizeName(name)
	if normalized == "" {
		return &MatchOutcome{Resolution: Resolution{
			NewConcept: true,
			Rationale:  "no usable name",
		}}, nil
	}

	// An existing concept already carrying this exact normalized name
	// is the same food. No scoring.
	exactIDs, err := m.names.GetConceptIDsByLowerName(dbc, normalized)
	if err != nil {
		return nil, err
	}
	if len(exactIDs) > 0 {
		return &MatchOutcome{Resolution: Resolution{
			ConceptID:  exactIDs[0],
			Confidence: 1.0,
			Rationale:  "exact name match",
		}}, nil
	}

	vecs, err := m.embedder.EmbedNames(dbc.Ctx, []string{normalized})
	if err != nil || len(vecs) != 1 {
		if err == nil {
			err = fmt.Errorf("embedding count mismatch: want=1 got=%d", len(vecs))
		}
		perr := &EmbeddingProviderError{Err: err}
		m.log.Warn("embedding unavailable, falling back to new concept",
			"name", normalized,
			"error", err.Error(),
		)
		return &MatchOutcome{
			Resolution: Resolution{
				NewConcept: true,
				Confidence: m.cfg.LowThreshold,
				Rationale:  "embedding fallback",
			},
			Issues: []error{perr},
		}, nil
	}
	embedding := vecs[0]

	hits, err := m.index.Query(dbc.Ctx, embedding, m.cfg.TopK)
	if err != nil {
		perr := &EmbeddingProviderError{Err: err}
		m.log.Warn("similarity query failed, falling back to new concept",
			"name", normalized,
			"error", err.Error(),
		)
		return &MatchOutcome{
			Resolution: Resolution{
				NewConcept: true,
				Confidence: m.cfg.LowThreshold,
				Rationale:  "embedding fallback",
			},
			Embedding: embedding,
			Issues:    []error{perr},
		}, nil
	}
	if len(hits) == 0 {
		return &MatchOutcome{
			Resolution: Resolution{NewConcept: true, Rationale: "no similar concepts"},
			Embedding:  embedding,
		}, nil
	}

	conceptIDs := make([]uuid.UUID, 0, len(hits))
	cosine := make(map[uuid.UUID]float64, len(hits))
	for _, h := range hits {
		conceptIDs = append(conceptIDs, h.ConceptID)
		cosine[h.ConceptID] = h.Cosine
	}
	concepts, err := m.concepts.GetByIDs(dbc, conceptIDs)
	if err != nil {
		return nil, err
	}

	groupCode := strings.ToLower(strings.TrimSpace(row.Group.Code))
	scored := make([]scoredCandidate, 0, len(concepts))
	for _, c := range concepts {
		lex := LexicalSimilarity(name, c.PrimaryName(""))
		bonus := 0.0
		if groupCode != "" && groupCode == strings.ToLower(strings.TrimSpace(c.GroupCode)) {
			bonus = 1.0
		}
		scored = append(scored, scoredCandidate{
			conceptID: c.ID,
			composite: m.cfg.WeightCosine*cosine[c.ID] + m.cfg.WeightLexical*lex + m.cfg.WeightGroupBonus*bonus,
			lexical:   lex,
			createdAt: c.CreatedAt.UnixNano(),
		})
	}
	if len(scored) == 0 {
		return &MatchOutcome{
			Resolution: Resolution{NewConcept: true, Rationale: "no similar concepts"},
			Embedding:  embedding,
		}, nil
	}

	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.composite != b.composite {
			return a.composite > b.composite
		}
		if a.lexical != b.lexical {
			return a.lexical > b.lexical
		}
		if a.createdAt != b.createdAt {
			return a.createdAt < b.createdAt
		}
		return a.conceptID.String() < b.conceptID.String()
	})

	top := scored[0]
	margin := top.composite
	if len(scored) > 1 {
		margin = top.composite - scored[1].composite
	}

	if top.composite >= m.cfg.AcceptThreshold && (len(scored) == 1 || margin >= m.cfg.AcceptMargin) {
		return &MatchOutcome{
			Resolution: Resolution{
				ConceptID:  top.conceptID,
				Confidence: clamp01(top.composite),
				Rationale:  "name similarity",
			},
			Embedding: embedding,
		}, nil
	}

	if top.composite >= m.cfg.LowThreshold {
		alternatives := make([]types.MappingCandidate, 0, len(scored))
		for rank, s := range scored {
			if s.composite < m.cfg.LowThreshold {
				break
			}
			if rank >= m.cfg.TopK {
				break
			}
			alternatives = append(alternatives, types.MappingCandidate{
				FoodConceptID: s.conceptID,
				Confidence:    clamp01(s.composite),
				Rationale:     "ambiguous name similarity",
				Rank:          rank,
			})
		}
		return &MatchOutcome{
			Resolution: Resolution{
				ConceptID:    top.conceptID,
				Confidence:   clamp01(top.composite),
				Rationale:    "ambiguous name similarity",
				Alternatives: alternatives,
				Ambiguous:    true,
			},
			Embedding: embedding,
		}, nil
	}

	return &MatchOutcome{
		Resolution: Resolution{
			NewConcept: true,
			Confidence: clamp01(top.composite),
			Rationale:  "below match threshold",
		},
		Embedding: embedding,
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
