package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wisefood/wisefood-data-api/internal/data/repos/records"
	types "github.com/wisefood/wisefood-data-api/internal/domain"
	"github.com/wisefood/wisefood-data-api/internal/platform/dbctx"
	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
)

// RecordStore is the single write path for composition records. The
// fingerprint is the idempotency key: re-ingesting content that hashes
// to an existing fingerprint refreshes that record instead of inserting
// a duplicate.
type RecordStore interface {
	// Upsert inserts row or refreshes the record already holding its
	// fingerprint. Runs in its own transaction. Returns the stored
	// record and whether a new row was created.
	Upsert(ctx context.Context, row *types.FoodCompositionRecord) (*types.FoodCompositionRecord, bool, error)

	// UpsertTx is Upsert inside the caller's transaction.
	UpsertTx(dbc dbctx.Context, row *types.FoodCompositionRecord) (*types.FoodCompositionRecord, bool, error)
}

type recordStore struct {
	db      *gorm.DB
	records records.RecordRepo
	log     *logger.Logger
}

func NewRecordStore(db *gorm.DB, recordRepo records.RecordRepo, baseLog *logger.Logger) (RecordStore, error) {
	if db == nil || recordRepo == nil || baseLog == nil {
		return nil, fmt.Errorf("record store: missing dependency")
	}
	return &recordStore{
		db:      db,
		records: recordRepo,
		log:     baseLog.With("service", "RecordStore"),
	}, nil
}

func (s *recordStore) Upsert(ctx context.Context, row *types.FoodCompositionRecord) (*types.FoodCompositionRecord, bool, error) {
	var out *types.FoodCompositionRecord
	var created bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		out, created, txErr = s.UpsertTx(dbctx.Context{Ctx: ctx, Tx: tx}, row)
		return txErr
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

func (s *recordStore) UpsertTx(dbc dbctx.Context, row *types.FoodCompositionRecord) (*types.FoodCompositionRecord, bool, error) {
	if row == nil {
		return nil, false, fmt.Errorf("record store: nil record")
	}
	if row.Fingerprint == "" {
		return nil, false, fmt.Errorf("record store: record has no fingerprint")
	}

	existing, err := s.records.GetByFingerprint(dbc, row.Fingerprint)
	if err != nil {
		return nil, false, err
	}

	if existing == nil {
		stored, err := s.records.Create(dbc, row)
		if err != nil {
			return nil, false, err
		}
		return stored, true, nil
	}

	// Same content hashed from a different row only happens with the
	// empty-row-id sentinel. Keep the first record, surface the dupe.
	if existing.SourceRowID != row.SourceRowID {
		s.log.Warn("duplicate record content under different source rows",
			"fingerprint", row.Fingerprint,
			"existing_source_row_id", existing.SourceRowID,
			"incoming_source_row_id", row.SourceRowID,
		)
		return existing, false, nil
	}

	updates := map[string]interface{}{
		"updated_at":  time.Now().UTC(),
		"preparation": row.Preparation,
		"basis":       row.Basis,
	}
	if row.CompletenessScore != nil {
		updates["completeness_score"] = *row.CompletenessScore
	}
	if row.SourcePriority != nil {
		updates["source_priority"] = *row.SourcePriority
	}
	if row.QualityNotes != "" {
		updates["quality_notes"] = row.QualityNotes
	}
	if err := s.records.UpdateFields(dbc, existing.ID, updates); err != nil {
		return nil, false, err
	}

	// The fingerprint pins the nutrient tuples, but portions, mappings
	// and quality can legitimately differ between ingests of the same
	// content. Replace them wholesale.
	if err := s.records.ReplaceChildren(dbc, existing.ID, row.Nutrients, row.Portions, row.Mappings); err != nil {
		return nil, false, err
	}

	refreshed, err := s.records.GetByFingerprint(dbc, row.Fingerprint)
	if err != nil {
		return nil, false, err
	}
	if refreshed == nil {
		return nil, false, fmt.Errorf("record store: record vanished during refresh")
	}
	return refreshed, false, nil
}
