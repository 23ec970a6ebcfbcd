package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wisefood/wisefood-data-api/internal/data/repos/foods"
	types "github.com/wisefood/wisefood-data-api/internal/domain"
	"github.com/wisefood/wisefood-data-api/internal/normalization"
	"github.com/wisefood/wisefood-data-api/internal/platform/dbctx"
	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
)

// Canonicalizer owns concept creation and merging. Creation is
// race-safe through the candidate_key unique index: losers of the
// insert race read the winner back instead of erroring.
type Canonicalizer struct {
	cfg         Config
	concepts    foods.FoodConceptRepo
	identifiers foods.FoodIdentifierRepo
	names       foods.FoodNameRepo
	index       *SimilarityIndex
	log         *logger.Logger
}

func NewCanonicalizer(cfg Config, conceptRepo foods.FoodConceptRepo, identifierRepo foods.FoodIdentifierRepo, nameRepo foods.FoodNameRepo, index *SimilarityIndex, baseLog *logger.Logger) (*Canonicalizer, error) {
	if conceptRepo == nil || identifierRepo == nil || nameRepo == nil || index == nil || baseLog == nil {
		return nil, fmt.Errorf("canonicalizer: missing dependency")
	}
	return &Canonicalizer{
		cfg:         cfg,
		concepts:    conceptRepo,
		identifiers: identifierRepo,
		names:       nameRepo,
		index:       index,
		log:         baseLog.With("component", "Canonicalizer"),
	}, nil
}

// EnsureConcept creates the concept for a row that matched nothing, or
// adopts the concurrent winner when another worker created it first.
// embedding may be nil (provider fallback); the concept is then left
// out of the similarity index until a later ingest re-embeds it.
func (c *Canonicalizer) EnsureConcept(dbc dbctx.Context, row *types.RawRow, embedding []float32, trust int) (*types.FoodConcept, bool, error) {
	name := row.PrimaryName()
	key := normalization.CandidateKey(name, row.Group.Code)
	if strings.TrimSpace(key) == "" {
		return nil, false, fmt.Errorf("canonicalizer: row has no usable name")
	}

	concept := &types.FoodConcept{
		ID:                  uuid.New(),
		CandidateKey:        key,
		ScientificName:      strings.TrimSpace(row.ScientificName),
		GroupSystem:         strings.TrimSpace(row.Group.System),
		GroupCode:           strings.TrimSpace(row.Group.Code),
		GroupLabel:          strings.TrimSpace(row.Group.Label),
		ScalarSourceID:      &row.SourceID,
		ScalarTrustPriority: trust,
	}

	inserted, err := c.concepts.CreateIgnoreConflict(dbc, concept)
	if err != nil && !isUniqueViolation(err) {
		return nil, false, err
	}

	if err == nil && inserted {
		if err := c.attachIdentifiers(dbc, concept.ID, row); err != nil {
			return nil, false, err
		}
		if err := c.attachNames(dbc, concept.ID, row, true); err != nil {
			return nil, false, err
		}
		c.indexConcept(dbc, concept, name, embedding)
		return concept, true, nil
	}

	// Lost the race. The winner's row may not be visible to this
	// transaction immediately; read back with bounded backoff.
	backoff := c.cfg.CreateBackoff
	for attempt := 0; attempt <= c.cfg.CreateMaxRetries; attempt++ {
		winner, err := c.concepts.GetByCandidateKey(dbc, key)
		if err != nil {
			return nil, false, err
		}
		if winner != nil {
			if err := c.MergeInto(dbc, winner, row, trust); err != nil {
				return nil, false, err
			}
			return winner, false, nil
		}
		if attempt < c.cfg.CreateMaxRetries {
			time.Sleep(backoff)
			backoff *= 2
		}
	}

	return nil, false, &ConceptCreationConflict{
		CandidateKey: key,
		Attempts:     c.cfg.CreateMaxRetries + 1,
	}
}

// MergeInto folds a raw row into an existing concept: identifiers and
// names are attached with conflict-ignoring inserts, scalars follow
// first-writer-wins unless the incoming source's trust priority is
// strictly higher.
func (c *Canonicalizer) MergeInto(dbc dbctx.Context, concept *types.FoodConcept, row *types.RawRow, trust int) error {
	if concept == nil {
		return fmt.Errorf("canonicalizer: merge into nil concept")
	}

	if err := c.attachIdentifiers(dbc, concept.ID, row); err != nil {
		return err
	}

	overrule := trust > concept.ScalarTrustPriority

	// A strictly more trusted source also takes over the primary name,
	// unless the concept already carries the incoming name.
	setPrimary := false
	if overrule {
		incoming := strings.TrimSpace(row.PrimaryName())
		if incoming != "" && !conceptHasName(concept, incoming) {
			if err := c.names.DemotePrimary(dbc, concept.ID, primaryLang(row)); err != nil {
				return err
			}
			setPrimary = true
		}
	}
	if err := c.attachNames(dbc, concept.ID, row, setPrimary); err != nil {
		return err
	}

	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	setScalar := func(column, current, incoming string) {
		incoming = strings.TrimSpace(incoming)
		if incoming == "" {
			return
		}
		if current == "" || overrule {
			updates[column] = incoming
		}
	}
	setScalar("scientific_name", concept.ScientificName, row.ScientificName)
	setScalar("group_system", concept.GroupSystem, row.Group.System)
	setScalar("group_code", concept.GroupCode, row.Group.Code)
	setScalar("group_label", concept.GroupLabel, row.Group.Label)

	if overrule && len(updates) > 1 {
		updates["scalar_source_id"] = row.SourceID
		updates["scalar_trust_priority"] = trust
	}

	return c.concepts.UpdateFields(dbc, concept.ID, updates)
}

func (c *Canonicalizer) attachIdentifiers(dbc dbctx.Context, conceptID uuid.UUID, row *types.RawRow) error {
	rows := make([]*types.FoodIdentifier, 0, len(row.Identifiers))
	for _, id := range row.Identifiers {
		system := strings.TrimSpace(id.System)
		code := strings.TrimSpace(id.Code)
		if system == "" || code == "" {
			continue
		}
		rows = append(rows, &types.FoodIdentifier{
			ID:            uuid.New(),
			FoodConceptID: conceptID,
			System:        system,
			Code:          code,
			URI:           strings.TrimSpace(id.URI),
		})
	}
	return c.identifiers.CreateIgnoreConflicts(dbc, rows)
}

// attachNames inserts the row's names. setPrimary carries the row's
// primary flag onto the inserted rows, defaulting to the first name
// when none is flagged; plain merges pass false so incoming names never
// steal primary.
func (c *Canonicalizer) attachNames(dbc dbctx.Context, conceptID uuid.UUID, row *types.RawRow, setPrimary bool) error {
	rows := make([]*types.FoodName, 0, len(row.Names))
	sawPrimary := false
	for _, n := range row.Names {
		name := strings.TrimSpace(n.Name)
		if name == "" {
			continue
		}
		primary := setPrimary && n.IsPrimary && !sawPrimary
		if primary {
			sawPrimary = true
		}
		rows = append(rows, &types.FoodName{
			ID:            uuid.New(),
			FoodConceptID: conceptID,
			Name:          name,
			Lang:          strings.TrimSpace(n.Lang),
			NameType:      n.NameType,
			IsPrimary:     primary,
		})
	}
	if setPrimary && !sawPrimary && len(rows) > 0 {
		rows[0].IsPrimary = true
	}
	return c.names.CreateIgnoreConflicts(dbc, rows)
}

func conceptHasName(concept *types.FoodConcept, name string) bool {
	for i := range concept.Names {
		if strings.EqualFold(concept.Names[i].Name, name) {
			return true
		}
	}
	return false
}

// primaryLang is the lang of the name the row treats as primary.
func primaryLang(row *types.RawRow) string {
	for _, n := range row.Names {
		if n.IsPrimary {
			return strings.TrimSpace(n.Lang)
		}
	}
	if len(row.Names) > 0 {
		return strings.TrimSpace(row.Names[0].Lang)
	}
	return ""
}

func (c *Canonicalizer) indexConcept(dbc dbctx.Context, concept *types.FoodConcept, name string, embedding []float32) {
	if len(embedding) == 0 {
		return
	}
	normalized := normalization.NormalizeName(name)
	if err := c.index.InsertConcept(dbc.Ctx, concept.ID, normalized, concept.GroupCode, embedding); err != nil {
		c.log.Warn("similarity index insert failed",
			"concept_id", concept.ID.String(),
			"error", err.Error(),
		)
		return
	}
	vectorID := c.index.Namespace() + "/" + concept.ID.String()
	if err := c.concepts.UpdateFields(dbc, concept.ID, map[string]interface{}{"vector_id": vectorID}); err != nil {
		c.log.Warn("vector id update failed", "concept_id", concept.ID.String(), "error", err.Error())
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
