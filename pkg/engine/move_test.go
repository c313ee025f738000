package engine

import (
	"reflect"
	"testing"
)

func TestCanonicalTokensShorthand(t *testing.T) {
	got := CanonicalTokens("8/5(2) 6/3*(2)")
	want := []string{"6/3", "6/3*", "8/5", "8/5"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CanonicalTokens = %v, want %v", got, want)
	}
}

func TestSameMoveOrderInsensitive(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"13/7 8/7", "8/7 13/7", true},
		{"8/5 6/5", "8/5(2)", false},
		{"8/5 8/5", "8/5(2)", true},
		{"bar/19* 24/18", "25/19* 24/18", true},
		{"6/off", "6/0", true},
		{"BAR/19", "bar/19", true},
		{"13/7 8/7", "13/7 8/7*", false},
	}
	for _, c := range cases {
		if got := SameMove(c.a, c.b); got != c.want {
			t.Errorf("SameMove(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestSameMoveReflexive(t *testing.T) {
	for _, m := range []string{"8/5 6/5", "bar/22 13/10*", "6/3*(2) 8/5(2)", ""} {
		if !SameMove(m, m) {
			t.Errorf("SameMove(%q, %q) = false", m, m)
		}
	}
}

func TestParseParts(t *testing.T) {
	got := ParseParts("bar/19* 24/18")
	want := []MovePart{{From: 25, To: 19, Hit: true}, {From: 24, To: 18}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseParts = %v, want %v", got, want)
	}

	// Numeric aliases for bar and off.
	got = ParseParts("25/19* 6/0")
	want = []MovePart{{From: 25, To: 19, Hit: true}, {From: 6, To: 0}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseParts numeric aliases = %v, want %v", got, want)
	}

	// Unknown tokens are dropped.
	got = ParseParts("8/5 garbage 6/5")
	want = []MovePart{{From: 8, To: 5}, {From: 6, To: 5}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseParts with garbage = %v, want %v", got, want)
	}
}

func TestParsePartsShorthandHit(t *testing.T) {
	got := ParseParts("6/3*(2)")
	want := []MovePart{{From: 6, To: 3, Hit: true}, {From: 6, To: 3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseParts shorthand = %v, want %v", got, want)
	}
}

func TestFormatParts(t *testing.T) {
	parts := []MovePart{{From: 25, To: 19, Hit: true}, {From: 24, To: 18}, {From: 6, To: 0}}
	if got, want := FormatParts(parts), "bar/19* 24/18 6/off"; got != want {
		t.Errorf("FormatParts = %q, want %q", got, want)
	}
}
