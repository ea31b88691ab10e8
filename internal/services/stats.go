package services

import (
	"context"

	"github.com/AnshRaj112/wayfarer-backend/internal/models"
)

// GetUsageStats summarizes what the identity has stored.
func (s *UserDataService) GetUsageStats(ctx context.Context) models.UsageStats {
	places := s.referredPlaces(ctx)
	visited := 0
	for _, p := range places {
		if p.IsVisited {
			visited++
		}
	}

	return models.UsageStats{
		HasFilters:          len(s.GetFilters(ctx)) > 0,
		SearchCount:         len(s.searchHistory(ctx).Keywords),
		HasLocation:         s.GetLastLocation(ctx) != nil,
		ReferredPlacesCount: len(places),
		VisitedPlacesCount:  visited,
	}
}
