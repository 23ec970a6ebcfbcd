package app

import (
	"gorm.io/gorm"

	"github.com/wisefood/wisefood-data-api/internal/data/repos/foods"
	"github.com/wisefood/wisefood-data-api/internal/data/repos/records"
	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
)

type Repos struct {
	Concepts    foods.FoodConceptRepo
	Identifiers foods.FoodIdentifierRepo
	Names       foods.FoodNameRepo

	Sources      records.SourceInfoRepo
	NutrientRefs records.NutrientRefRepo
	Records      records.RecordRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Concepts:    foods.NewFoodConceptRepo(db, log),
		Identifiers: foods.NewFoodIdentifierRepo(db, log),
		Names:       foods.NewFoodNameRepo(db, log),

		Sources:      records.NewSourceInfoRepo(db, log),
		NutrientRefs: records.NewNutrientRefRepo(db, log),
		Records:      records.NewRecordRepo(db, log),
	}
}
