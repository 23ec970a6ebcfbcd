package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	types "github.com/wisefood/wisefood-data-api/internal/domain"
)

// rowIDSentinel stands in for an absent source row id so the hash input
// never has an empty field.
const rowIDSentinel = "~"

// Fingerprint hashes the canonical content of a record: source, row,
// resolved concept, basis, and the sorted nutrient tuples. Values are
// rounded to precision significant digits so measurement noise below
// that precision maps to the same fingerprint.
func Fingerprint(sourceID uuid.UUID, sourceRowID string, conceptID uuid.UUID, basis types.ValueBasis, amounts []types.NutrientAmount, precision int) string {
	if precision <= 0 {
		precision = 6
	}

	rowID := strings.TrimSpace(sourceRowID)
	if rowID == "" {
		rowID = rowIDSentinel
	}

	tuples := make([]string, 0, len(amounts))
	for _, a := range amounts {
		value := ""
		if a.Value != nil {
			value = strconv.FormatFloat(*a.Value, 'g', precision, 64)
		}
		tuples = append(tuples, strings.Join([]string{
			a.NutrientRefID,
			value,
			string(a.Unit),
			string(a.Basis),
			string(a.AmountType),
		}, ","))
	}
	sort.Strings(tuples)

	h := sha256.New()
	h.Write([]byte(sourceID.String()))
	h.Write([]byte{'\n'})
	h.Write([]byte(rowID))
	h.Write([]byte{'\n'})
	h.Write([]byte(conceptID.String()))
	h.Write([]byte{'\n'})
	h.Write([]byte(basis))
	for _, t := range tuples {
		h.Write([]byte{'\n'})
		h.Write([]byte(t))
	}
	return hex.EncodeToString(h.Sum(nil))
}
