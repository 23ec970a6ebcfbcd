package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// FoodCompositionRecord is the canonical form of one ingested FCT row.
// Fingerprint is the deterministic content hash used as the idempotent
// upsert key: created_at is set once, updated_at refreshes on every
// successful re-ingest of content mapping to the same fingerprint.
type FoodCompositionRecord struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	SourceID    uuid.UUID   `gorm:"type:uuid;not null;index" json:"source_id"`
	Source      *SourceInfo `gorm:"foreignKey:SourceID;references:ID" json:"source,omitempty"`
	SourceRowID string      `gorm:"column:source_row_id;index" json:"source_row_id,omitempty"`

	FoodConceptID uuid.UUID    `gorm:"type:uuid;not null;index" json:"food_concept_id"`
	FoodConcept   *FoodConcept `gorm:"foreignKey:FoodConceptID;references:ID" json:"food_concept,omitempty"`

	// PreparationContext: country_iso3, edible_portion_desc,
	// cooking_method, processing, moisture_adjusted, remarks.
	Preparation datatypes.JSON `gorm:"column:preparation;type:jsonb" json:"preparation,omitempty"`

	Basis       ValueBasis `gorm:"column:basis;not null;default:'per_100g'" json:"basis"`
	Fingerprint string     `gorm:"column:fingerprint;not null;index:idx_record_fingerprint,unique" json:"fingerprint"`

	Nutrients []NutrientAmount `gorm:"constraint:OnDelete:CASCADE;foreignKey:RecordID;references:ID" json:"nutrients,omitempty"`
	Portions  []PortionMeasure `gorm:"constraint:OnDelete:CASCADE;foreignKey:RecordID;references:ID" json:"portions,omitempty"`

	// RecordQuality, flattened.
	CompletenessScore *float64 `gorm:"column:completeness_score" json:"completeness_score,omitempty"`
	SourcePriority    *int     `gorm:"column:source_priority" json:"source_priority,omitempty"`
	QualityNotes      string   `gorm:"column:quality_notes;type:text" json:"quality_notes,omitempty"`

	// Alternative mappings, confidence-descending; present only when the
	// match was ambiguous.
	Mappings []MappingCandidate `gorm:"constraint:OnDelete:CASCADE;foreignKey:RecordID;references:ID" json:"alternative_mappings,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (FoodCompositionRecord) TableName() string { return "food_composition_record" }

// MappingCandidate is one alternative concept mapping for an ambiguous
// record. Rank is the 0-based position in descending-confidence order;
// rank 0 mirrors the primary mapping.
type MappingCandidate struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RecordID      uuid.UUID `gorm:"type:uuid;not null;index" json:"record_id"`
	FoodConceptID uuid.UUID `gorm:"type:uuid;not null;index" json:"food_concept_id"`
	Confidence    float64   `gorm:"column:confidence;not null" json:"confidence"`
	Rationale     string    `gorm:"column:rationale" json:"rationale,omitempty"`
	Rank          int       `gorm:"column:rank;not null;default:0" json:"rank"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (MappingCandidate) TableName() string { return "mapping_candidate" }

// PreparationContext is the cooking/processing/measurement context
// serialized into FoodCompositionRecord.Preparation.
type PreparationContext struct {
	CountryISO3       string `json:"country_iso3,omitempty"`
	EdiblePortionDesc string `json:"edible_portion_desc,omitempty"`
	CookingMethod     string `json:"cooking_method,omitempty"`
	Processing        string `json:"processing,omitempty"`
	MoistureAdjusted  *bool  `json:"moisture_adjusted,omitempty"`
	Remarks           string `json:"remarks,omitempty"`
}
