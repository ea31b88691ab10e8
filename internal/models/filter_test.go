package models

import "testing"

func TestFilterTaxonomyCoversEveryOption(t *testing.T) {
	tax := FilterTaxonomy()
	if len(tax) != 20 {
		t.Fatalf("expected 20 options, got %d", len(tax))
	}
	if tax[0].Category != CategoryFavorites || tax[len(tax)-1].Category != CategoryOther {
		t.Errorf("taxonomy not ordered by category: first=%s last=%s", tax[0].Category, tax[len(tax)-1].Category)
	}
	for _, s := range tax {
		if !s.ID.Valid() {
			t.Errorf("option %q in taxonomy but not valid", s.ID)
		}
	}
}

func TestNormalizeFilters(t *testing.T) {
	got := NormalizeFilters([]FilterOption{"sport", "food", "bogus", "food", "italian"})
	want := []FilterOption{"food", "italian", "sport"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
			break
		}
	}
}

func TestFilterSpec(t *testing.T) {
	s, ok := FilterEastEuropean.Spec()
	if !ok || s.Category != CategoryCuisine || s.Label != "East European" {
		t.Errorf("unexpected spec: %+v %v", s, ok)
	}
	if _, ok := FilterOption("nightlife").Spec(); ok {
		t.Error("unknown option should have no spec")
	}
}
