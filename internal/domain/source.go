package domain

import (
	"time"

	"github.com/google/uuid"
)

// SourceInfo is the provenance row for one FCT dataset. Rows are
// immutable once registered; trust_priority orders sources when merged
// concepts disagree on scalar fields.
type SourceInfo struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name            string     `gorm:"column:name;not null" json:"name"`
	Acronym         string     `gorm:"column:acronym" json:"acronym,omitempty"`
	CountryISO3     string     `gorm:"column:country_iso3" json:"country_iso3,omitempty"`
	Version         string     `gorm:"column:version" json:"version,omitempty"`
	URL             string     `gorm:"column:url" json:"url,omitempty"`
	PublicationDate *time.Time `gorm:"column:publication_date" json:"publication_date,omitempty"`
	TrustPriority   int        `gorm:"column:trust_priority;not null;default:0" json:"trust_priority"`
	CreatedAt       time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (SourceInfo) TableName() string { return "source_info" }
