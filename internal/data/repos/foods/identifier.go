package foods

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/wisefood/wisefood-data-api/internal/domain"
	"github.com/wisefood/wisefood-data-api/internal/platform/dbctx"
	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
)

// IdentifierKey is one (system, code) lookup key.
type IdentifierKey struct {
	System string
	Code   string
}

type FoodIdentifierRepo interface {
	GetByKeys(dbc dbctx.Context, keys []IdentifierKey) ([]*types.FoodIdentifier, error)
	// CreateIgnoreConflicts inserts rows, silently skipping (system,
	// code) pairs already owned by some concept.
	CreateIgnoreConflicts(dbc dbctx.Context, rows []*types.FoodIdentifier) error
}

type foodIdentifierRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFoodIdentifierRepo(db *gorm.DB, baseLog *logger.Logger) FoodIdentifierRepo {
	return &foodIdentifierRepo{db: db, log: baseLog.With("repo", "FoodIdentifierRepo")}
}

func (r *foodIdentifierRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *foodIdentifierRepo) GetByKeys(dbc dbctx.Context, keys []IdentifierKey) ([]*types.FoodIdentifier, error) {
	var out []*types.FoodIdentifier
	if len(keys) == 0 {
		return out, nil
	}
	q := r.tx(dbc).WithContext(dbc.Ctx)
	var conds *gorm.DB
	for _, k := range keys {
		system := strings.TrimSpace(k.System)
		code := strings.TrimSpace(k.Code)
		if system == "" || code == "" {
			continue
		}
		cond := r.db.Where("system = ? AND code = ?", system, code)
		if conds == nil {
			conds = cond
		} else {
			conds = conds.Or(cond)
		}
	}
	if conds == nil {
		return out, nil
	}
	if err := q.Where(conds).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *foodIdentifierRepo) CreateIgnoreConflicts(dbc dbctx.Context, rows []*types.FoodIdentifier) error {
	if len(rows) == 0 {
		return nil
	}
	return r.tx(dbc).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "system"}, {Name: "code"}},
			DoNothing: true,
		}).
		Create(&rows).Error
}
