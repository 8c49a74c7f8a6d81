package highlight

import (
	"testing"

	"github.com/kailas-cloud/leadsearch/internal/domain/search/result"
)

func TestApply_NoMatchesReturnsTextUnchanged(t *testing.T) {
	texts := []string{"", "Ana Martínez", "<b>raw</b>"}
	for _, text := range texts {
		if got := Apply(text, nil, "name"); got != text {
			t.Errorf("Apply(%q, nil) = %q", text, got)
		}
		if got := Apply(text, []result.FieldMatch{}, "name"); got != text {
			t.Errorf("Apply(%q, []) = %q", text, got)
		}
	}
}

func TestApply_KeyNotPresent(t *testing.T) {
	matches := []result.FieldMatch{{Key: "email", Indices: []result.Span{{0, 2}}}}
	if got := Apply("Ana", matches, "name"); got != "Ana" {
		t.Errorf("got %q", got)
	}
}

func TestApply_EmptyIndices(t *testing.T) {
	matches := []result.FieldMatch{{Key: "name"}}
	if got := Apply("Ana", matches, "name"); got != "Ana" {
		t.Errorf("got %q", got)
	}
}

func TestApply_WrapsSortedSpans(t *testing.T) {
	matches := []result.FieldMatch{{
		Key:     "company",
		Indices: []result.Span{{5, 11}, {0, 3}},
	}}
	got := Apply("Acme Capital SL", matches, "company")
	want := OpenTag + "Acme" + CloseTag + " " + OpenTag + "Capital" + CloseTag + " SL"
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestApply_RuneOffsets(t *testing.T) {
	matches := []result.FieldMatch{{Key: "industry", Indices: []result.Span{{0, 9}}}}
	got := Apply("Tecnología avanzada", matches, "industry")
	want := OpenTag + "Tecnología" + CloseTag + " avanzada"
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestApply_ClampsOutOfRange(t *testing.T) {
	matches := []result.FieldMatch{{Key: "name", Indices: []result.Span{{2, 50}, {-1, 0}}}}
	got := Apply("Luis", matches, "name")
	want := "Lu" + OpenTag + "is" + CloseTag
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestApplyHTML_Escapes(t *testing.T) {
	matches := []result.FieldMatch{{Key: "name", Indices: []result.Span{{0, 2}}}}
	got := ApplyHTML("a<b & c", matches, "name")
	want := OpenTag + "a&lt;b" + CloseTag + " &amp; c"
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
	if got := ApplyHTML("<x>", nil, "name"); got != "&lt;x&gt;" {
		t.Errorf("unmatched text not escaped: %q", got)
	}
}
