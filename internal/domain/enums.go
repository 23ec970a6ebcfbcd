package domain

// Closed enumerations shared across the ingest engine. Conversion sites
// switch exhaustively over these; adding a member means visiting every
// switch.

type ValueBasis string

const (
	BasisPer100g    ValueBasis = "per_100g"
	BasisPer100ml   ValueBasis = "per_100ml"
	BasisPerServing ValueBasis = "per_serving"
	BasisPer100kcal ValueBasis = "per_100kcal"
	BasisPer100kJ   ValueBasis = "per_100kJ"
)

func (b ValueBasis) Valid() bool {
	switch b {
	case BasisPer100g, BasisPer100ml, BasisPerServing, BasisPer100kcal, BasisPer100kJ:
		return true
	}
	return false
}

type QuantityUnit string

const (
	UnitGram       QuantityUnit = "g"
	UnitMilligram  QuantityUnit = "mg"
	UnitMicrogram  QuantityUnit = "µg"
	UnitMilliliter QuantityUnit = "ml"
	UnitLiter      QuantityUnit = "l"
	UnitKcal       QuantityUnit = "kcal"
	UnitKilojoule  QuantityUnit = "kJ"
	UnitIU         QuantityUnit = "IU"
	UnitUnknown    QuantityUnit = "unknown"
)

func (u QuantityUnit) Valid() bool {
	switch u {
	case UnitGram, UnitMilligram, UnitMicrogram, UnitMilliliter, UnitLiter,
		UnitKcal, UnitKilojoule, UnitIU, UnitUnknown:
		return true
	}
	return false
}

type AmountType string

const (
	AmountAnalytical AmountType = "analytical"
	AmountCalculated AmountType = "calculated"
	AmountEstimated  AmountType = "estimated"
	AmountImputed    AmountType = "imputed"
	AmountMissing    AmountType = "missing"
	AmountTrace      AmountType = "trace"
)

type NameType string

const (
	NameScientific NameType = "scientific"
	NameCommon     NameType = "common"
	NameLocal      NameType = "local"
	NameBrand      NameType = "brand"
)

const (
	LangEN = "en"
	LangFR = "fr"
	LangES = "es"
	LangDE = "de"
)
