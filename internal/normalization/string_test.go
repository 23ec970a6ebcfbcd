package normalization

import "testing"

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Quinoa,  raw ", "quinoa, raw"},
		{"quinoa, raw", "quinoa, raw"},
		{"RICE\t\twhite", "rice white"},
		{"", ""},
		{"   ", ""},
	}
	for _, c := range cases {
		if got := NormalizeName(c.in); got != c.want {
			t.Fatalf("NormalizeName(%q): want=%q got=%q", c.in, c.want, got)
		}
	}
}

func TestCandidateKey(t *testing.T) {
	if got := CandidateKey("  Quinoa,  raw ", "CE"); got != "quinoa, raw|ce" {
		t.Fatalf("candidate key: want=%q got=%q", "quinoa, raw|ce", got)
	}
	if got := CandidateKey("Quinoa, raw", ""); got != "quinoa, raw" {
		t.Fatalf("candidate key without group: want=%q got=%q", "quinoa, raw", got)
	}
	a := CandidateKey("  Quinoa,  raw ", "CE")
	b := CandidateKey("quinoa, raw", "ce")
	if a != b {
		t.Fatalf("equivalent inputs should collide: %q vs %q", a, b)
	}
}
