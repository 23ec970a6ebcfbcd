package ingest

import (
	"errors"
	"fmt"

	types "github.com/wisefood/wisefood-data-api/internal/domain"
)

// ErrMissingSource rejects a raw row with no source id. It is the only
// per-row input error that fails the row outright.
var ErrMissingSource = errors.New("raw row has no source id")

// UnitConversionError marks a value whose unit could not be converted
// toward the canonical unit. The value is stored raw and the record's
// quality notes carry the failure.
type UnitConversionError struct {
	NutrientID string
	From       types.QuantityUnit
	To         types.QuantityUnit
}

func (e *UnitConversionError) Error() string {
	return fmt.Sprintf("cannot convert %s from %s to %s", e.NutrientID, e.From, e.To)
}

// BasisConversionError marks a value whose basis could not be rebased
// onto per_100g.
type BasisConversionError struct {
	NutrientID string
	From       types.ValueBasis
	Reason     string
}

func (e *BasisConversionError) Error() string {
	return fmt.Sprintf("cannot rebase %s from %s: %s", e.NutrientID, e.From, e.Reason)
}

// IdentifierConflictError reports raw identifiers that resolve to
// different existing concepts. The row is routed to the ambiguous path
// with every conflicting concept as a mapping candidate.
type IdentifierConflictError struct {
	ConceptIDs []string
}

func (e *IdentifierConflictError) Error() string {
	return fmt.Sprintf("identifiers resolve to %d distinct concepts", len(e.ConceptIDs))
}

// EmbeddingProviderError wraps a provider failure or timeout during
// matching. The matcher degrades to the new-concept fallback instead of
// failing the row.
type EmbeddingProviderError struct {
	Err error
}

func (e *EmbeddingProviderError) Error() string {
	return fmt.Sprintf("embedding provider: %v", e.Err)
}

func (e *EmbeddingProviderError) Unwrap() error { return e.Err }

// ConceptCreationConflict is returned when the canonicalizer loses the
// candidate-key race and cannot read the winning row back within its
// retry budget.
type ConceptCreationConflict struct {
	CandidateKey string
	Attempts     int
}

func (e *ConceptCreationConflict) Error() string {
	return fmt.Sprintf("concept creation conflict on %q after %d attempts", e.CandidateKey, e.Attempts)
}
