package services

import (
	"context"
	"sort"

	"github.com/AnshRaj112/wayfarer-backend/internal/database"
	"github.com/AnshRaj112/wayfarer-backend/internal/models"
	"github.com/AnshRaj112/wayfarer-backend/pkg/utils"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	DefaultSuggestionLimit = 10
	DefaultPopularLimit    = 10
)

// AddSearchKeyword counts one search of keyword for the identity and for
// the global popularity list. Empty keywords are ignored.
func (s *UserDataService) AddSearchKeyword(ctx context.Context, keyword string) bool {
	kw := utils.NormalizeKeyword(keyword)
	if err := utils.ValidateKeyword(kw); err != nil {
		return false
	}
	id := s.ensureIdentity(ctx)
	now := s.now().UTC()
	field := "keywords." + utils.FieldKey(kw)

	err := s.gate.Run(ctx, "user_data: add search keyword", func(ctx context.Context) error {
		if err := s.store.Apply(ctx, database.CollectionSearchHistory, id, database.Mutation{
			Set: bson.M{
				"userId":                id,
				field + ".lastSearched": now,
				"updatedAt":             now,
			},
			Inc: bson.M{field + ".count": int64(1)},
		}); err != nil {
			return err
		}
		return s.store.Apply(ctx, database.CollectionPopularSearch, kw, database.Mutation{
			Set: bson.M{"keyword": kw, "updatedAt": now},
			Inc: bson.M{"count": int64(1)},
		})
	})
	if err != nil {
		return false
	}
	if s.leaderboard.Enabled() {
		var popular models.PopularSearch
		if s.get(ctx, "user_data: read popular search", database.CollectionPopularSearch, kw, &popular) {
			s.leaderboard.Record(ctx, kw, popular.Count)
		}
	}
	return true
}

// GetSuggestions returns the identity's past keywords, most recently
// searched first.
func (s *UserDataService) GetSuggestions(ctx context.Context, limit int) []models.SearchSuggestion {
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	history := s.searchHistory(ctx)

	out := make([]models.SearchSuggestion, 0, len(history.Keywords))
	for key, stat := range history.Keywords {
		out = append(out, models.SearchSuggestion{
			Keyword:      utils.FromFieldKey(key),
			SearchCount:  stat.Count,
			LastSearched: stat.LastSearched,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastSearched.Equal(out[j].LastSearched) {
			return out[i].LastSearched.After(out[j].LastSearched)
		}
		if out[i].SearchCount != out[j].SearchCount {
			return out[i].SearchCount > out[j].SearchCount
		}
		return out[i].Keyword < out[j].Keyword
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// KeywordCount returns how often the identity searched keyword.
func (s *UserDataService) KeywordCount(ctx context.Context, keyword string) int64 {
	kw := utils.NormalizeKeyword(keyword)
	history := s.searchHistory(ctx)
	return history.Keywords[utils.FieldKey(kw)].Count
}

// GetPopularSearches returns the global keyword counts, highest first. The
// Redis leaderboard is tried before the document store.
func (s *UserDataService) GetPopularSearches(ctx context.Context, limit int) []models.PopularSearch {
	if limit <= 0 {
		limit = DefaultPopularLimit
	}
	if list, ok := s.leaderboard.Top(ctx, int64(limit)); ok {
		return list
	}

	read := int64(limit)
	if s.leaderboard.Enabled() && read < leaderboardWarmSize {
		read = leaderboardWarmSize
	}
	var list []models.PopularSearch
	err := s.gate.Run(ctx, "user_data: popular searches", func(ctx context.Context) error {
		return s.store.Top(ctx, database.CollectionPopularSearch, "count", read, &list)
	})
	if err != nil || list == nil {
		return []models.PopularSearch{}
	}
	s.leaderboard.Warm(ctx, list)
	if len(list) > limit {
		list = list[:limit]
	}
	return list
}

func (s *UserDataService) searchHistory(ctx context.Context) models.SearchHistory {
	id := s.ensureIdentity(ctx)
	var history models.SearchHistory
	if !s.get(ctx, "user_data: get search history", database.CollectionSearchHistory, id, &history) {
		return models.SearchHistory{}
	}
	return history
}
