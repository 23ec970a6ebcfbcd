package foods

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/wisefood/wisefood-data-api/internal/domain"
	"github.com/wisefood/wisefood-data-api/internal/platform/dbctx"
	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
)

type FoodConceptRepo interface {
	// CreateIgnoreConflict inserts with ON CONFLICT DO NOTHING on the
	// candidate_key unique index. Returns true when the row was
	// actually inserted.
	CreateIgnoreConflict(dbc dbctx.Context, row *types.FoodConcept) (bool, error)

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.FoodConcept, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.FoodConcept, error)
	GetByCandidateKey(dbc dbctx.Context, key string) (*types.FoodConcept, error)

	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Touch(dbc dbctx.Context, id uuid.UUID) error
}

type foodConceptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFoodConceptRepo(db *gorm.DB, baseLog *logger.Logger) FoodConceptRepo {
	return &foodConceptRepo{db: db, log: baseLog.With("repo", "FoodConceptRepo")}
}

func (r *foodConceptRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *foodConceptRepo) CreateIgnoreConflict(dbc dbctx.Context, row *types.FoodConcept) (bool, error) {
	if row == nil {
		return false, nil
	}
	res := r.tx(dbc).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "candidate_key"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *foodConceptRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.FoodConcept, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *foodConceptRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.FoodConcept, error) {
	var out []*types.FoodConcept
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Preload("Identifiers").
		Preload("Names").
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *foodConceptRepo) GetByCandidateKey(dbc dbctx.Context, key string) (*types.FoodConcept, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var out []*types.FoodConcept
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Preload("Identifiers").
		Preload("Names").
		Where("candidate_key = ?", key).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *foodConceptRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.FoodConcept{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *foodConceptRepo) Touch(dbc dbctx.Context, id uuid.UUID) error {
	return r.UpdateFields(dbc, id, map[string]interface{}{"updated_at": time.Now().UTC()})
}
