package domain

import (
	"time"

	"github.com/google/uuid"
)

// FoodConcept is the canonical, deduplicated food entity that many
// source rows map onto. CandidateKey (normalized primary name + group
// code) is the arena key for race-safe creation: two workers deciding
// the same name is new collide on the unique index instead of
// producing twins.
type FoodConcept struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CandidateKey   string    `gorm:"column:candidate_key;not null;index:idx_food_concept_candidate_key,unique" json:"candidate_key"`
	ScientificName string    `gorm:"column:scientific_name" json:"scientific_name,omitempty"`
	GroupSystem    string    `gorm:"column:group_system" json:"group_system,omitempty"`
	GroupCode      string    `gorm:"column:group_code;index" json:"group_code,omitempty"`
	GroupLabel     string    `gorm:"column:group_label" json:"group_label,omitempty"`

	// Provenance of the scalar fields above, for first-writer-wins
	// arbitration on merge.
	ScalarSourceID      *uuid.UUID `gorm:"type:uuid;column:scalar_source_id" json:"scalar_source_id,omitempty"`
	ScalarTrustPriority int        `gorm:"column:scalar_trust_priority;not null;default:0" json:"scalar_trust_priority"`

	// Embeddings live in the vector store; keep the reference here.
	VectorID string `gorm:"column:vector_id;index" json:"vector_id,omitempty"`

	Identifiers []FoodIdentifier `gorm:"constraint:OnDelete:CASCADE;foreignKey:FoodConceptID;references:ID" json:"identifiers,omitempty"`
	Names       []FoodName       `gorm:"constraint:OnDelete:CASCADE;foreignKey:FoodConceptID;references:ID" json:"names,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (FoodConcept) TableName() string { return "food_concept" }

// PrimaryName returns the primary name for lang, or the first primary,
// or the first name at all.
func (c *FoodConcept) PrimaryName(lang string) string {
	var first, primary string
	for i := range c.Names {
		n := &c.Names[i]
		if first == "" {
			first = n.Name
		}
		if n.IsPrimary {
			if n.Lang == lang {
				return n.Name
			}
			if primary == "" {
				primary = n.Name
			}
		}
	}
	if primary != "" {
		return primary
	}
	return first
}

// FoodIdentifier is one external code for a concept. (system, code) is
// unique across all concepts.
type FoodIdentifier struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	FoodConceptID uuid.UUID `gorm:"type:uuid;not null;index" json:"food_concept_id"`
	System        string    `gorm:"column:system;not null;index:idx_food_identifier_system_code,unique,priority:1" json:"system"`
	Code          string    `gorm:"column:code;not null;index:idx_food_identifier_system_code,unique,priority:2" json:"code"`
	URI           string    `gorm:"column:uri" json:"uri,omitempty"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (FoodIdentifier) TableName() string { return "food_identifier" }

// FoodName is one name for a concept. At most one is_primary per
// (concept, lang).
type FoodName struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	FoodConceptID uuid.UUID `gorm:"type:uuid;not null;index:idx_food_name_identity,unique,priority:1" json:"food_concept_id"`
	Name          string    `gorm:"column:name;not null;index:idx_food_name_identity,unique,priority:2" json:"name"`
	Lang          string    `gorm:"column:lang;not null;default:'';index:idx_food_name_identity,unique,priority:3" json:"lang,omitempty"`
	NameType      NameType  `gorm:"column:name_type;not null;default:'';index:idx_food_name_identity,unique,priority:4" json:"name_type,omitempty"`
	IsPrimary     bool      `gorm:"column:is_primary;not null;default:false" json:"is_primary"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (FoodName) TableName() string { return "food_name" }
