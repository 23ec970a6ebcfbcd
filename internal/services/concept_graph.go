package services

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/wisefood/wisefood-data-api/internal/domain"
	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
	"github.com/wisefood/wisefood-data-api/internal/platform/neo4jdb"
)

// ConceptGraph mirrors canonical concepts and their source records into
// neo4j for cross-source lineage queries. The projection is optional
// and strictly additive: ingestion never depends on it succeeding,
// failures are logged and dropped.
type ConceptGraph interface {
	ProjectConcept(ctx context.Context, concept *types.FoodConcept)
	ProjectRecord(ctx context.Context, record *types.FoodCompositionRecord, source *types.SourceInfo)
}

type conceptGraph struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

// NewConceptGraph accepts a nil client and then degrades to a no-op.
func NewConceptGraph(client *neo4jdb.Client, baseLog *logger.Logger) (ConceptGraph, error) {
	if baseLog == nil {
		return nil, fmt.Errorf("concept graph: logger required")
	}
	return &conceptGraph{
		client: client,
		log:    baseLog.With("service", "ConceptGraph"),
	}, nil
}

func (s *conceptGraph) run(ctx context.Context, cypher string, params map[string]any) {
	if s.client == nil || s.client.Driver == nil {
		return
	}
	session := s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.client.Database,
	})
	defer func() { _ = session.Close(ctx) }()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, cypher, params)
	})
	if err != nil {
		s.log.Warn("graph projection failed", "error", err)
	}
}

func (s *conceptGraph) ProjectConcept(ctx context.Context, concept *types.FoodConcept) {
	if s.client == nil || concept == nil {
		return
	}

	s.run(ctx, `
		MERGE (c:FoodConcept {id: $id})
		SET c.candidate_key = $candidate_key,
		    c.primary_name = $primary_name,
		    c.group_code = $group_code,
		    c.group_label = $group_label
	`, map[string]any{
		"id":            concept.ID.String(),
		"candidate_key": concept.CandidateKey,
		"primary_name":  concept.PrimaryName(""),
		"group_code":    concept.GroupCode,
		"group_label":   concept.GroupLabel,
	})

	for i := range concept.Identifiers {
		ident := &concept.Identifiers[i]
		s.run(ctx, `
			MERGE (ext:ExternalCode {system: $system, code: $code})
			WITH ext
			MATCH (c:FoodConcept {id: $concept_id})
			MERGE (c)-[:IDENTIFIED_BY]->(ext)
		`, map[string]any{
			"system":     ident.System,
			"code":       ident.Code,
			"concept_id": concept.ID.String(),
		})
	}
}

func (s *conceptGraph) ProjectRecord(ctx context.Context, record *types.FoodCompositionRecord, source *types.SourceInfo) {
	if s.client == nil || record == nil {
		return
	}

	s.run(ctx, `
		MERGE (r:CompositionRecord {id: $id})
		SET r.fingerprint = $fingerprint,
		    r.basis = $basis,
		    r.source_row_id = $source_row_id
		WITH r
		MATCH (c:FoodConcept {id: $concept_id})
		MERGE (r)-[:MAPS_TO]->(c)
	`, map[string]any{
		"id":            record.ID.String(),
		"fingerprint":   record.Fingerprint,
		"basis":         string(record.Basis),
		"source_row_id": record.SourceRowID,
		"concept_id":    record.FoodConceptID.String(),
	})

	if source != nil {
		s.run(ctx, `
			MERGE (s:Source {id: $source_id})
			SET s.name = $name
			WITH s
			MATCH (r:CompositionRecord {id: $record_id})
			MERGE (r)-[:FROM_SOURCE]->(s)
		`, map[string]any{
			"source_id": source.ID.String(),
			"name":      source.Name,
			"record_id": record.ID.String(),
		})
	}
}
