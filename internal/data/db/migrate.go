package db

import (
	types "github.com/wisefood/wisefood-data-api/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// Provenance
		&types.SourceInfo{},

		// Canonical food identity
		&types.FoodConcept{},
		&types.FoodIdentifier{},
		&types.FoodName{},

		// Nutrient ontology
		&types.NutrientRef{},

		// Composition records
		&types.FoodCompositionRecord{},
		&types.NutrientAmount{},
		&types.PortionMeasure{},
		&types.MappingCandidate{},
	)
}
