package domain

import (
	"time"

	"github.com/google/uuid"
)

// NutrientRef is one ontology entry. The ID is the canonical nutrient
// code (INFOODS tagname style, e.g. "ENERC_KCAL", "PROCNT"); Unit is the
// canonical unit every ingested value is converted toward.
type NutrientRef struct {
	ID          string       `gorm:"primaryKey;column:id" json:"id"`
	Name        string       `gorm:"column:name" json:"name,omitempty"`
	Unit        QuantityUnit `gorm:"column:unit;not null;default:'unknown'" json:"unit"`
	SourceCode  string       `gorm:"column:source_code" json:"source_code,omitempty"`
	SourceName  string       `gorm:"column:source_name" json:"source_name,omitempty"`
	OntologyURI string       `gorm:"column:ontology_uri" json:"ontology_uri,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:now()" json:"created_at"`
}

func (NutrientRef) TableName() string { return "nutrient_ref" }

// NutrientAmount is one nutrient value on a record, after unit/basis
// normalization. OriginalValueRaw keeps the source text verbatim and is
// never rewritten on re-ingest.
type NutrientAmount struct {
	ID            uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RecordID      uuid.UUID    `gorm:"type:uuid;not null;index" json:"record_id"`
	NutrientRefID string       `gorm:"column:nutrient_ref_id;not null;index" json:"nutrient_ref_id"`
	NutrientRef   *NutrientRef `gorm:"foreignKey:NutrientRefID;references:ID" json:"nutrient_ref,omitempty"`

	Value      *float64     `gorm:"column:value" json:"value,omitempty"`
	Unit       QuantityUnit `gorm:"column:unit;not null" json:"unit"`
	Basis      ValueBasis   `gorm:"column:basis;not null;default:'per_100g'" json:"basis"`
	AmountType AmountType   `gorm:"column:amount_type;not null;default:'analytical'" json:"amount_type"`

	OriginalValueRaw string `gorm:"column:original_value_raw" json:"original_value_raw,omitempty"`

	StdError       *float64 `gorm:"column:std_error" json:"std_error,omitempty"`
	NSamples       *int     `gorm:"column:n_samples" json:"n_samples,omitempty"`
	DetectionLimit *float64 `gorm:"column:detection_limit" json:"detection_limit,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (NutrientAmount) TableName() string { return "nutrient_amount" }

// PortionMeasure is a named household portion with its mass/volume
// equivalent.
type PortionMeasure struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RecordID    uuid.UUID `gorm:"type:uuid;not null;index" json:"record_id"`
	Label       string    `gorm:"column:label;not null" json:"label"`
	MassG       *float64  `gorm:"column:mass_g" json:"mass_g,omitempty"`
	VolumeML    *float64  `gorm:"column:volume_ml" json:"volume_ml,omitempty"`
	Description string    `gorm:"column:description" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (PortionMeasure) TableName() string { return "portion_measure" }
