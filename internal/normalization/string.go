package normalization

import (
	"strings"
)

// NormalizeName lowercases, trims, and collapses internal whitespace so
// "  Quinoa,  raw " and "quinoa, raw" compare equal.
func NormalizeName(input string) string {
	normalized := strings.ToLower(strings.TrimSpace(input))
	return strings.Join(strings.Fields(normalized), " ")
}

// CandidateKey is the deterministic arena key for concept creation:
// normalized primary name plus the group code. Two workers racing on
// the same previously-unseen food compute the same key and collide on
// the unique index instead of creating twins.
func CandidateKey(name, groupCode string) string {
	n := NormalizeName(name)
	g := strings.ToLower(strings.TrimSpace(groupCode))
	if g == "" {
		return n
	}
	return n + "|" + g
}
