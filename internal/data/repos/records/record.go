package records

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/wisefood/wisefood-data-api/internal/domain"
	"github.com/wisefood/wisefood-data-api/internal/platform/dbctx"
	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
)

type RecordRepo interface {
	GetByFingerprint(dbc dbctx.Context, fingerprint string) (*types.FoodCompositionRecord, error)
	Create(dbc dbctx.Context, row *types.FoodCompositionRecord) (*types.FoodCompositionRecord, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// ReplaceChildren swaps out the re-normalizable child rows of an
	// existing record. Must run inside the caller's transaction.
	ReplaceChildren(dbc dbctx.Context, recordID uuid.UUID, nutrients []types.NutrientAmount, portions []types.PortionMeasure, mappings []types.MappingCandidate) error
	CountBySource(dbc dbctx.Context, sourceID uuid.UUID) (int64, error)
}

type recordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecordRepo(db *gorm.DB, baseLog *logger.Logger) RecordRepo {
	return &recordRepo{db: db, log: baseLog.With("repo", "RecordRepo")}
}

func (r *recordRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *recordRepo) GetByFingerprint(dbc dbctx.Context, fingerprint string) (*types.FoodCompositionRecord, error) {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return nil, nil
	}
	var out []*types.FoodCompositionRecord
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Preload("Nutrients").
		Preload("Portions").
		Preload("Mappings").
		Where("fingerprint = ?", fingerprint).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *recordRepo) Create(dbc dbctx.Context, row *types.FoodCompositionRecord) (*types.FoodCompositionRecord, error) {
	if row == nil {
		return nil, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *recordRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.FoodCompositionRecord{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *recordRepo) ReplaceChildren(dbc dbctx.Context, recordID uuid.UUID, nutrients []types.NutrientAmount, portions []types.PortionMeasure, mappings []types.MappingCandidate) error {
	if recordID == uuid.Nil {
		return nil
	}
	t := r.tx(dbc).WithContext(dbc.Ctx)

	if err := t.Where("record_id = ?", recordID).Delete(&types.NutrientAmount{}).Error; err != nil {
		return err
	}
	if err := t.Where("record_id = ?", recordID).Delete(&types.PortionMeasure{}).Error; err != nil {
		return err
	}
	if err := t.Where("record_id = ?", recordID).Delete(&types.MappingCandidate{}).Error; err != nil {
		return err
	}

	for i := range nutrients {
		nutrients[i].RecordID = recordID
	}
	for i := range portions {
		portions[i].RecordID = recordID
	}
	for i := range mappings {
		mappings[i].RecordID = recordID
	}

	if len(nutrients) > 0 {
		if err := t.Create(&nutrients).Error; err != nil {
			return err
		}
	}
	if len(portions) > 0 {
		if err := t.Create(&portions).Error; err != nil {
			return err
		}
	}
	if len(mappings) > 0 {
		if err := t.Create(&mappings).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *recordRepo) CountBySource(dbc dbctx.Context, sourceID uuid.UUID) (int64, error) {
	var n int64
	if sourceID == uuid.Nil {
		return 0, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.FoodCompositionRecord{}).
		Where("source_id = ?", sourceID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
