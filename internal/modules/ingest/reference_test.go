package ingest

import (
	"testing"

	types "github.com/wisefood/wisefood-data-api/internal/domain"
)

func TestLoadReferenceEmbedded(t *testing.T) {
	ref, err := LoadReference()
	if err != nil {
		t.Fatalf("load reference: %v", err)
	}
	if ref.CoreSize() == 0 {
		t.Fatalf("core set must not be empty")
	}
	if !ref.IsCore("PROCNT") {
		t.Fatalf("PROCNT should be core")
	}
	if !ref.IsCore("procnt") {
		t.Fatalf("core lookup should be case-insensitive")
	}
	if ref.IsCore("VITB12") {
		t.Fatalf("VITB12 is referenced but not core")
	}

	if got := ref.CanonicalUnit("CA"); got != types.UnitMilligram {
		t.Fatalf("CA canonical unit: want=%s got=%s", types.UnitMilligram, got)
	}
	if got := ref.CanonicalUnit("VITA_RAE"); got != types.UnitMicrogram {
		t.Fatalf("VITA_RAE canonical unit: want=%s got=%s", types.UnitMicrogram, got)
	}
	if got := ref.CanonicalUnit("NOT_A_TAG"); got != types.UnitUnknown {
		t.Fatalf("unknown tagname: want=%s got=%s", types.UnitUnknown, got)
	}
}
