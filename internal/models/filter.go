package models

import "sort"

// FilterCategory groups filter options in the search filter sheet.
type FilterCategory string

const (
	CategoryFavorites FilterCategory = "favorites"
	CategoryPlace     FilterCategory = "category"
	CategoryCuisine   FilterCategory = "cuisine"
	CategoryOther     FilterCategory = "otherCategory"
)

// FilterOption is a closed set of option ids. Anything not in filterTable is
// rejected on write and dropped on read.
type FilterOption string

const (
	FilterFav1 FilterOption = "fav1"
	FilterFav2 FilterOption = "fav2"
	FilterFav3 FilterOption = "fav3"
	FilterFav4 FilterOption = "fav4"
	FilterFav5 FilterOption = "fav5"
	FilterFav6 FilterOption = "fav6"

	FilterFood          FilterOption = "food"
	FilterDrinks        FilterOption = "drinks"
	FilterEntertainment FilterOption = "entertainment"
	FilterCinemas       FilterOption = "cinemas"
	FilterSport         FilterOption = "sport"
	FilterParking       FilterOption = "parking"

	FilterItalian      FilterOption = "italian"
	FilterGerman       FilterOption = "german"
	FilterAsian        FilterOption = "asian"
	FilterEastEuropean FilterOption = "eastEuropean"
	FilterSpanish      FilterOption = "spanish"

	FilterOther1 FilterOption = "other1"
	FilterOther2 FilterOption = "other2"
	FilterOther3 FilterOption = "other3"
)

// FilterSpec describes one option of the taxonomy.
type FilterSpec struct {
	ID       FilterOption   `json:"id"`
	Label    string         `json:"label"`
	Category FilterCategory `json:"category"`
}

var filterTable = map[FilterOption]FilterSpec{
	FilterFav1: {FilterFav1, "Favorite 1", CategoryFavorites},
	FilterFav2: {FilterFav2, "Favorite 2", CategoryFavorites},
	FilterFav3: {FilterFav3, "Fav 3", CategoryFavorites},
	FilterFav4: {FilterFav4, "Favorite 4", CategoryFavorites},
	FilterFav5: {FilterFav5, "Fav 5", CategoryFavorites},
	FilterFav6: {FilterFav6, "Favorite 6", CategoryFavorites},

	FilterFood:          {FilterFood, "Food", CategoryPlace},
	FilterDrinks:        {FilterDrinks, "Drinks", CategoryPlace},
	FilterEntertainment: {FilterEntertainment, "Entertainment", CategoryPlace},
	FilterCinemas:       {FilterCinemas, "Cinemas", CategoryPlace},
	FilterSport:         {FilterSport, "Sport", CategoryPlace},
	FilterParking:       {FilterParking, "Parking lots", CategoryPlace},

	FilterItalian:      {FilterItalian, "Italian", CategoryCuisine},
	FilterGerman:       {FilterGerman, "German", CategoryCuisine},
	FilterAsian:        {FilterAsian, "Asian", CategoryCuisine},
	FilterEastEuropean: {FilterEastEuropean, "East European", CategoryCuisine},
	FilterSpanish:      {FilterSpanish, "Spanish", CategoryCuisine},

	FilterOther1: {FilterOther1, "Other 1", CategoryOther},
	FilterOther2: {FilterOther2, "Other 2", CategoryOther},
	FilterOther3: {FilterOther3, "Other 3", CategoryOther},
}

var categoryOrder = map[FilterCategory]int{
	CategoryFavorites: 0,
	CategoryPlace:     1,
	CategoryCuisine:   2,
	CategoryOther:     3,
}

// Valid reports whether the option belongs to the taxonomy.
func (o FilterOption) Valid() bool {
	_, ok := filterTable[o]
	return ok
}

// Spec returns the taxonomy entry for o.
func (o FilterOption) Spec() (FilterSpec, bool) {
	s, ok := filterTable[o]
	return s, ok
}

// FilterTaxonomy returns every option, ordered by category then id.
func FilterTaxonomy() []FilterSpec {
	out := make([]FilterSpec, 0, len(filterTable))
	for _, s := range filterTable {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := categoryOrder[out[i].Category], categoryOrder[out[j].Category]
		if ci != cj {
			return ci < cj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// NormalizeFilters deduplicates and sorts options, dropping unknown ones.
func NormalizeFilters(opts []FilterOption) []FilterOption {
	seen := make(map[FilterOption]struct{}, len(opts))
	out := make([]FilterOption, 0, len(opts))
	for _, o := range opts {
		if !o.Valid() {
			continue
		}
		if _, dup := seen[o]; dup {
			continue
		}
		seen[o] = struct{}{}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
