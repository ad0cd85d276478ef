package names_test

import (
	"testing"

	"github.com/musicnerd/backstage/internal/names"
)

func TestNormalize_Diacritics(t *testing.T) {
	if got := names.Normalize("Björk"); got != "bjork" {
		t.Fatalf("expected 'bjork', got %q", got)
	}
}

func TestNormalize_Whitespace(t *testing.T) {
	if got := names.Normalize("  Four   Tet "); got != "four tet" {
		t.Fatalf("expected 'four tet', got %q", got)
	}
}

func TestEqual_AmpersandFold(t *testing.T) {
	if !names.Equal("Simon & Garfunkel", "Simon and Garfunkel") {
		t.Fatalf("ampersand fold failed")
	}
}

func TestSimilarity_Ordering(t *testing.T) {
	near := names.Similarity("Burial", "Buriel")
	far := names.Similarity("Burial", "Aphex Twin")
	if near <= far {
		t.Fatalf("similarity ordering wrong: near=%f far=%f", near, far)
	}
}
