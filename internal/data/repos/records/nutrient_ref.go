package records

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/wisefood/wisefood-data-api/internal/domain"
	"github.com/wisefood/wisefood-data-api/internal/platform/dbctx"
	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
)

type NutrientRefRepo interface {
	// UpsertMany seeds ontology entries; existing rows win so a
	// re-seed never rewrites curated entries.
	UpsertMany(dbc dbctx.Context, rows []*types.NutrientRef) error
	GetByIDs(dbc dbctx.Context, ids []string) ([]*types.NutrientRef, error)
	List(dbc dbctx.Context) ([]*types.NutrientRef, error)
}

type nutrientRefRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNutrientRefRepo(db *gorm.DB, baseLog *logger.Logger) NutrientRefRepo {
	return &nutrientRefRepo{db: db, log: baseLog.With("repo", "NutrientRefRepo")}
}

func (r *nutrientRefRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *nutrientRefRepo) UpsertMany(dbc dbctx.Context, rows []*types.NutrientRef) error {
	if len(rows) == 0 {
		return nil
	}
	return r.tx(dbc).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

func (r *nutrientRefRepo) GetByIDs(dbc dbctx.Context, ids []string) ([]*types.NutrientRef, error) {
	var out []*types.NutrientRef
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *nutrientRefRepo) List(dbc dbctx.Context) ([]*types.NutrientRef, error) {
	var out []*types.NutrientRef
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
