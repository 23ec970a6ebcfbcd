package ingest

import (
	"errors"
	"fmt"
	"strings"

	types "github.com/wisefood/wisefood-data-api/internal/domain"
	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
)

// kcal to kJ, thermochemical calorie.
const kcalToKJ = 4.184

// Normalizer converts nutrient amounts toward the canonical unit of
// their ontology entry and rebases values onto per_100g where the row
// carries enough information. Failed conversions never drop data: the
// value stays raw, original_value_raw is untouched, and the failure
// lands in the record's quality notes.
type Normalizer struct {
	ref *Reference
	log *logger.Logger
}

func NewNormalizer(ref *Reference, baseLog *logger.Logger) (*Normalizer, error) {
	if ref == nil {
		return nil, fmt.Errorf("normalizer: reference required")
	}
	if baseLog == nil {
		return nil, fmt.Errorf("normalizer: logger required")
	}
	return &Normalizer{ref: ref, log: baseLog.With("component", "Normalizer")}, nil
}

// NormalizeResult is the converted view of one raw row's amounts.
// Issues collects the non-fatal conversion errors for quality notes.
type NormalizeResult struct {
	Amounts []types.NutrientAmount
	Basis   types.ValueBasis
	Issues  []error
}

func (n *Normalizer) Normalize(row *types.RawRow) NormalizeResult {
	res := NormalizeResult{Basis: rowBasis(row)}

	servingMass := servingMassG(row.Portions)
	energyKcal := energyPer100g(row, types.UnitKcal)
	energyKJ := energyPer100g(row, types.UnitKilojoule)

	rebasedAll := len(row.Nutrients) > 0

	for _, raw := range row.Nutrients {
		id := strings.ToUpper(strings.TrimSpace(raw.NutrientID))
		amount := types.NutrientAmount{
			NutrientRefID:    id,
			Value:            copyFloat(raw.Value),
			Unit:             raw.Unit,
			Basis:            nutrientBasis(raw, res.Basis),
			AmountType:       amountType(raw),
			OriginalValueRaw: raw.OriginalValueRaw,
			StdError:         copyFloat(raw.StdError),
			NSamples:         copyInt(raw.NSamples),
			DetectionLimit:   copyFloat(raw.DetectionLimit),
		}

		if amount.Value == nil {
			if amount.Basis != types.BasisPer100g {
				rebasedAll = false
			}
			res.Amounts = append(res.Amounts, amount)
			continue
		}

		// Units first, then basis.
		target := n.ref.CanonicalUnit(id)
		if target != types.UnitUnknown && target != amount.Unit {
			converted, err := ConvertUnit(*amount.Value, amount.Unit, target)
			if err != nil {
				var uerr *UnitConversionError
				if errors.As(err, &uerr) {
					uerr.NutrientID = id
				}
				res.Issues = append(res.Issues, err)
				n.log.Debug("unit conversion failed", "nutrient", id, "from", amount.Unit, "to", target)
			} else {
				amount.Value = &converted
				amount.Unit = target
			}
		}

		switch amount.Basis {
		case types.BasisPer100g:
			// Already canonical.
		case types.BasisPerServing:
			if servingMass > 0 {
				v := *amount.Value * 100.0 / servingMass
				amount.Value = &v
				amount.Basis = types.BasisPer100g
			} else {
				rebasedAll = false
				res.Issues = append(res.Issues, &BasisConversionError{
					NutrientID: id, From: amount.Basis, Reason: "no portion with mass_g",
				})
			}
		case types.BasisPer100kcal:
			if energyKcal > 0 {
				v := *amount.Value * energyKcal / 100.0
				amount.Value = &v
				amount.Basis = types.BasisPer100g
			} else {
				rebasedAll = false
				res.Issues = append(res.Issues, &BasisConversionError{
					NutrientID: id, From: amount.Basis, Reason: "no co-located per-100g energy",
				})
			}
		case types.BasisPer100kJ:
			if energyKJ > 0 {
				v := *amount.Value * energyKJ / 100.0
				amount.Value = &v
				amount.Basis = types.BasisPer100g
			} else {
				rebasedAll = false
				res.Issues = append(res.Issues, &BasisConversionError{
					NutrientID: id, From: amount.Basis, Reason: "no co-located per-100g energy",
				})
			}
		case types.BasisPer100ml:
			// Needs a density the row does not carry.
			rebasedAll = false
			res.Issues = append(res.Issues, &BasisConversionError{
				NutrientID: id, From: amount.Basis, Reason: "no density available",
			})
		default:
			rebasedAll = false
			res.Issues = append(res.Issues, &BasisConversionError{
				NutrientID: id, From: amount.Basis, Reason: "unrecognized basis",
			})
		}

		res.Amounts = append(res.Amounts, amount)
	}

	if rebasedAll {
		res.Basis = types.BasisPer100g
	}
	return res
}

// ConvertUnit applies the fixed factor between two units of the same
// family. Cross-family conversions and IU/unknown conversions return
// UnitConversionError.
func ConvertUnit(value float64, from, to types.QuantityUnit) (float64, error) {
	if from == to {
		return value, nil
	}

	fail := func() (float64, error) {
		return 0, &UnitConversionError{From: from, To: to}
	}

	switch from {
	case types.UnitGram, types.UnitMilligram, types.UnitMicrogram:
		switch to {
		case types.UnitGram, types.UnitMilligram, types.UnitMicrogram:
			return value * massGrams(from) / massGrams(to), nil
		case types.UnitMilliliter, types.UnitLiter, types.UnitKcal, types.UnitKilojoule, types.UnitIU, types.UnitUnknown:
			return fail()
		}
	case types.UnitMilliliter, types.UnitLiter:
		switch to {
		case types.UnitMilliliter, types.UnitLiter:
			return value * volumeLiters(from) / volumeLiters(to), nil
		case types.UnitGram, types.UnitMilligram, types.UnitMicrogram, types.UnitKcal, types.UnitKilojoule, types.UnitIU, types.UnitUnknown:
			return fail()
		}
	case types.UnitKcal:
		switch to {
		case types.UnitKilojoule:
			return value * kcalToKJ, nil
		default:
			return fail()
		}
	case types.UnitKilojoule:
		switch to {
		case types.UnitKcal:
			return value / kcalToKJ, nil
		default:
			return fail()
		}
	case types.UnitIU, types.UnitUnknown:
		// Identity only; IU factors are nutrient-specific and unknown
		// units carry no semantics.
		return fail()
	}
	return fail()
}

func massGrams(u types.QuantityUnit) float64 {
	switch u {
	case types.UnitGram:
		return 1
	case types.UnitMilligram:
		return 1e-3
	case types.UnitMicrogram:
		return 1e-6
	}
	return 0
}

func volumeLiters(u types.QuantityUnit) float64 {
	switch u {
	case types.UnitLiter:
		return 1
	case types.UnitMilliliter:
		return 1e-3
	}
	return 0
}

func rowBasis(row *types.RawRow) types.ValueBasis {
	if row.Basis.Valid() {
		return row.Basis
	}
	return types.BasisPer100g
}

func nutrientBasis(raw types.RawNutrient, fallback types.ValueBasis) types.ValueBasis {
	if raw.Basis.Valid() {
		return raw.Basis
	}
	return fallback
}

func amountType(raw types.RawNutrient) types.AmountType {
	if raw.AmountType != "" {
		return raw.AmountType
	}
	if raw.Value == nil {
		if strings.EqualFold(strings.TrimSpace(raw.OriginalValueRaw), "tr") {
			return types.AmountTrace
		}
		return types.AmountMissing
	}
	return types.AmountAnalytical
}

// servingMassG returns the first usable portion mass.
func servingMassG(portions []types.RawPortion) float64 {
	for _, p := range portions {
		if p.MassG != nil && *p.MassG > 0 {
			return *p.MassG
		}
	}
	return 0
}

// energyPer100g finds a co-located per-100g energy value in the raw
// row, converting between kcal and kJ when only the other is present.
func energyPer100g(row *types.RawRow, unit types.QuantityUnit) float64 {
	base := rowBasis(row)
	direct := map[types.QuantityUnit]string{
		types.UnitKcal:      "ENERC_KCAL",
		types.UnitKilojoule: "ENERC_KJ",
	}

	lookup := func(id string, u types.QuantityUnit) float64 {
		for _, raw := range row.Nutrients {
			if !strings.EqualFold(strings.TrimSpace(raw.NutrientID), id) {
				continue
			}
			if nutrientBasis(raw, base) != types.BasisPer100g {
				continue
			}
			if raw.Value == nil || raw.Unit != u {
				continue
			}
			return *raw.Value
		}
		return 0
	}

	if v := lookup(direct[unit], unit); v > 0 {
		return v
	}

	switch unit {
	case types.UnitKcal:
		if kj := lookup("ENERC_KJ", types.UnitKilojoule); kj > 0 {
			return kj / kcalToKJ
		}
	case types.UnitKilojoule:
		if kcal := lookup("ENERC_KCAL", types.UnitKcal); kcal > 0 {
			return kcal * kcalToKJ
		}
	}
	return 0
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
