package ingest

import (
	"time"

	"github.com/wisefood/wisefood-data-api/internal/platform/envutil"
)

// Config holds the tunables of the reconciliation engine. Everything is
// env-overridable; the defaults are the calibrated production values.
type Config struct {
	// Composite confidence weights. Cosine + Lexical + GroupBonus
	// should sum to 1.0 but the engine does not enforce it.
	WeightCosine     float64
	WeightLexical    float64
	WeightGroupBonus float64

	// Decision thresholds.
	AcceptThreshold float64
	AcceptMargin    float64
	LowThreshold    float64

	// TopK bounds both the similarity query and the number of
	// persisted alternative mappings.
	TopK int

	// Significant digits for fingerprint value rounding.
	FingerprintPrecision int

	// Pipeline concurrency and canonicalizer retry budget.
	Workers          int
	CreateMaxRetries int
	CreateBackoff    time.Duration

	// Namespace in the similarity index.
	IndexNamespace string
}

func LoadConfig() Config {
	return Config{
		WeightCosine:     envutil.Float("INGEST_WEIGHT_COSINE", 0.6),
		WeightLexical:    envutil.Float("INGEST_WEIGHT_LEXICAL", 0.3),
		WeightGroupBonus: envutil.Float("INGEST_WEIGHT_GROUP_BONUS", 0.1),

		AcceptThreshold: envutil.Float("INGEST_ACCEPT_THRESHOLD", 0.85),
		AcceptMargin:    envutil.Float("INGEST_ACCEPT_MARGIN", 0.10),
		LowThreshold:    envutil.Float("INGEST_LOW_THRESHOLD", 0.50),

		TopK: envutil.Int("INGEST_TOP_K", 5),

		FingerprintPrecision: envutil.Int("INGEST_FINGERPRINT_PRECISION", 6),

		Workers:          envutil.Int("INGEST_WORKERS", 8),
		CreateMaxRetries: envutil.Int("INGEST_CREATE_MAX_RETRIES", 3),
		CreateBackoff:    envutil.Duration("INGEST_CREATE_BACKOFF", 50*time.Millisecond),

		IndexNamespace: envutil.String("INGEST_INDEX_NAMESPACE", "food-concept"),
	}
}
