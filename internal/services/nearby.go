package services

import (
	"context"
	"sort"
	"strings"

	"github.com/AnshRaj112/wayfarer-backend/internal/database"
	"github.com/AnshRaj112/wayfarer-backend/internal/models"
)

const (
	// PlaceSearchRadius is the half side of the box searched around a
	// location, in degrees (about 3 km).
	PlaceSearchRadius = 0.03
	DefaultPlaceLimit = 10
)

// NearbyPlaces returns the places around loc, best ranked first.
func (s *UserDataService) NearbyPlaces(ctx context.Context, loc models.Location, limit int) []models.Place {
	return s.placesAround(ctx, "user_data: nearby places", loc, limit, func(models.Place) bool { return true })
}

// FilteredPlaces returns the places around loc whose category is one of
// filters. Unknown filter ids are ignored; no filters gives no places.
func (s *UserDataService) FilteredPlaces(ctx context.Context, loc models.Location, filters []models.FilterOption, limit int) []models.Place {
	wanted := make(map[string]bool)
	for _, f := range models.NormalizeFilters(filters) {
		wanted[string(f)] = true
	}
	if len(wanted) == 0 {
		return []models.Place{}
	}
	return s.placesAround(ctx, "user_data: filtered places", loc, limit, func(p models.Place) bool {
		return wanted[p.Category]
	})
}

// SearchPlaces returns the places around loc whose name, address or
// category contains text, case-insensitively. Empty text matches every place.
func (s *UserDataService) SearchPlaces(ctx context.Context, loc models.Location, text string, limit int) []models.Place {
	needle := strings.ToLower(strings.TrimSpace(text))
	return s.placesAround(ctx, "user_data: search places", loc, limit, func(p models.Place) bool {
		return strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Address), needle) ||
			strings.Contains(strings.ToLower(p.Category), needle)
	})
}

// placesAround range-queries latitude in the store and filters longitude
// and keep in memory, so the store only needs a single-field index.
func (s *UserDataService) placesAround(ctx context.Context, op string, loc models.Location, limit int, keep func(models.Place) bool) []models.Place {
	if !validCoordinates(loc.Latitude, loc.Longitude) {
		return []models.Place{}
	}
	if limit <= 0 {
		limit = DefaultPlaceLimit
	}

	var candidates []models.Place
	err := s.gate.Run(ctx, op, func(ctx context.Context) error {
		return s.store.Range(ctx, database.CollectionPlaces, "latitude",
			loc.Latitude-PlaceSearchRadius, loc.Latitude+PlaceSearchRadius, &candidates)
	})
	if err != nil {
		return []models.Place{}
	}

	out := make([]models.Place, 0, len(candidates))
	for _, p := range candidates {
		if p.Longitude < loc.Longitude-PlaceSearchRadius || p.Longitude > loc.Longitude+PlaceSearchRadius {
			continue
		}
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}

	if len(out) > 0 {
		referred := s.referredPlaces(ctx)
		for i := range out {
			_, out[i].IsReferred = referred[out[i].ID]
		}
	}
	return out
}

func validCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
