package ingest

import (
	"strings"

	types "github.com/wisefood/wisefood-data-api/internal/domain"
)

// Quality scores a record against the core nutrient set and folds the
// row's accumulated issues into human-readable notes.
type Quality struct {
	ref *Reference
}

func NewQuality(ref *Reference) *Quality {
	return &Quality{ref: ref}
}

// Completeness is the fraction of core nutrients the record carries a
// non-null value for.
func (q *Quality) Completeness(amounts []types.NutrientAmount) float64 {
	if q.ref.CoreSize() == 0 {
		return 0
	}
	seen := make(map[string]struct{})
	for _, a := range amounts {
		if a.Value == nil {
			continue
		}
		if q.ref.IsCore(a.NutrientRefID) {
			seen[strings.ToUpper(a.NutrientRefID)] = struct{}{}
		}
	}
	return float64(len(seen)) / float64(q.ref.CoreSize())
}

// Notes joins issue messages into the quality_notes field, one per
// line, deduplicated in order.
func (q *Quality) Notes(issues []error, extra ...string) string {
	var lines []string
	seen := make(map[string]struct{})
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		lines = append(lines, s)
	}

	for _, err := range issues {
		if err != nil {
			add(err.Error())
		}
	}
	for _, s := range extra {
		add(s)
	}
	return strings.Join(lines, "\n")
}
