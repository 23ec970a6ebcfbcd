package records

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/wisefood/wisefood-data-api/internal/domain"
	"github.com/wisefood/wisefood-data-api/internal/platform/dbctx"
	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
)

type SourceInfoRepo interface {
	Create(dbc dbctx.Context, row *types.SourceInfo) (*types.SourceInfo, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SourceInfo, error)
	List(dbc dbctx.Context) ([]*types.SourceInfo, error)
}

type sourceInfoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSourceInfoRepo(db *gorm.DB, baseLog *logger.Logger) SourceInfoRepo {
	return &sourceInfoRepo{db: db, log: baseLog.With("repo", "SourceInfoRepo")}
}

func (r *sourceInfoRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *sourceInfoRepo) Create(dbc dbctx.Context, row *types.SourceInfo) (*types.SourceInfo, error) {
	if row == nil {
		return nil, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *sourceInfoRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SourceInfo, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.SourceInfo
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *sourceInfoRepo) List(dbc dbctx.Context) ([]*types.SourceInfo, error) {
	var out []*types.SourceInfo
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
