package foods

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/wisefood/wisefood-data-api/internal/domain"
	"github.com/wisefood/wisefood-data-api/internal/platform/dbctx"
	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
)

type FoodNameRepo interface {
	GetByConceptIDs(dbc dbctx.Context, conceptIDs []uuid.UUID) ([]*types.FoodName, error)
	// GetConceptIDsByLowerName returns the concepts owning a name whose
	// lowercased form equals loweredName, oldest name first.
	GetConceptIDsByLowerName(dbc dbctx.Context, loweredName string) ([]uuid.UUID, error)
	// CreateIgnoreConflicts inserts rows, skipping duplicates of
	// (concept, name, lang, name_type).
	CreateIgnoreConflicts(dbc dbctx.Context, rows []*types.FoodName) error
	// DemotePrimary clears is_primary for a (concept, lang) pair so a
	// new primary can be set without violating the one-primary rule.
	DemotePrimary(dbc dbctx.Context, conceptID uuid.UUID, lang string) error
}

type foodNameRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFoodNameRepo(db *gorm.DB, baseLog *logger.Logger) FoodNameRepo {
	return &foodNameRepo{db: db, log: baseLog.With("repo", "FoodNameRepo")}
}

func (r *foodNameRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *foodNameRepo) GetByConceptIDs(dbc dbctx.Context, conceptIDs []uuid.UUID) ([]*types.FoodName, error) {
	var out []*types.FoodName
	if len(conceptIDs) == 0 {
		return out, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("food_concept_id IN ?", conceptIDs).
		Order("food_concept_id, created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *foodNameRepo) CreateIgnoreConflicts(dbc dbctx.Context, rows []*types.FoodName) error {
	if len(rows) == 0 {
		return nil
	}
	return r.tx(dbc).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "food_concept_id"},
				{Name: "name"},
				{Name: "lang"},
				{Name: "name_type"},
			},
			DoNothing: true,
		}).
		Create(&rows).Error
}

func (r *foodNameRepo) GetConceptIDsByLowerName(dbc dbctx.Context, loweredName string) ([]uuid.UUID, error) {
	if loweredName == "" {
		return nil, nil
	}
	var rows []*types.FoodName
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("lower(name) = ?", loweredName).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(rows))
	seen := make(map[uuid.UUID]struct{}, len(rows))
	for _, row := range rows {
		if _, dup := seen[row.FoodConceptID]; dup {
			continue
		}
		seen[row.FoodConceptID] = struct{}{}
		out = append(out, row.FoodConceptID)
	}
	return out, nil
}

func (r *foodNameRepo) DemotePrimary(dbc dbctx.Context, conceptID uuid.UUID, lang string) error {
	if conceptID == uuid.Nil {
		return nil
	}
	return r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.FoodName{}).
		Where("food_concept_id = ? AND lang = ? AND is_primary", conceptID, lang).
		Update("is_primary", false).Error
}
