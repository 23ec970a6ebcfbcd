package domain

import "github.com/google/uuid"

// RawRow is one row of a Food Composition Table as handed over by a
// source adapter, before any reconciliation. SourceID is the only
// mandatory field; a row without it is rejected.
type RawRow struct {
	SourceID    uuid.UUID `json:"source_id"`
	SourceRowID string    `json:"source_row_id,omitempty"`

	Names          []RawName       `json:"names"`
	ScientificName string          `json:"scientific_name,omitempty"`
	Group          RawGroup        `json:"group,omitempty"`
	Identifiers    []RawIdentifier `json:"identifiers,omitempty"`

	Basis     ValueBasis    `json:"basis,omitempty"`
	Nutrients []RawNutrient `json:"nutrients,omitempty"`
	Portions  []RawPortion  `json:"portions,omitempty"`

	Preparation *PreparationContext `json:"preparation,omitempty"`
}

// PrimaryName returns the first name flagged primary, falling back to
// the first name at all.
func (r *RawRow) PrimaryName() string {
	for _, n := range r.Names {
		if n.IsPrimary {
			return n.Name
		}
	}
	if len(r.Names) > 0 {
		return r.Names[0].Name
	}
	return ""
}

type RawName struct {
	Name      string   `json:"name"`
	Lang      string   `json:"lang,omitempty"`
	NameType  NameType `json:"name_type,omitempty"`
	IsPrimary bool     `json:"is_primary,omitempty"`
}

type RawIdentifier struct {
	System string `json:"system"`
	Code   string `json:"code"`
	URI    string `json:"uri,omitempty"`
}

type RawGroup struct {
	System string `json:"system,omitempty"`
	Code   string `json:"code,omitempty"`
	Label  string `json:"label,omitempty"`
}

type RawNutrient struct {
	NutrientID string       `json:"nutrient_id"`
	Value      *float64     `json:"value"`
	Unit       QuantityUnit `json:"unit"`
	Basis      ValueBasis   `json:"basis,omitempty"`
	AmountType AmountType   `json:"amount_type,omitempty"`
	// Verbatim source text, e.g. "tr", "<0.1", "25.3".
	OriginalValueRaw string `json:"original_value_raw,omitempty"`

	StdError       *float64 `json:"std_error,omitempty"`
	NSamples       *int     `json:"n_samples,omitempty"`
	DetectionLimit *float64 `json:"detection_limit,omitempty"`
}

type RawPortion struct {
	Label       string   `json:"label"`
	MassG       *float64 `json:"mass_g,omitempty"`
	VolumeML    *float64 `json:"volume_ml,omitempty"`
	Description string   `json:"description,omitempty"`
}
