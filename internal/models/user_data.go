package models

import (
	"time"
)

// UserFilters is the user_filters/{identity} document.
type UserFilters struct {
	UserID    string    `bson:"userId" json:"user_id"`
	Filters   []string  `bson:"filters" json:"filters"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}

// KeywordStat is one entry of a user's search history.
type KeywordStat struct {
	Count        int64     `bson:"count" json:"count"`
	LastSearched time.Time `bson:"lastSearched" json:"last_searched"`
}

// SearchHistory is the user_search_history/{identity} document. Keys of
// Keywords are normalized keywords escaped with utils.FieldKey.
type SearchHistory struct {
	UserID    string                 `bson:"userId" json:"user_id"`
	Keywords  map[string]KeywordStat `bson:"keywords" json:"keywords"`
	UpdatedAt time.Time              `bson:"updatedAt" json:"updated_at"`
}

// SearchSuggestion is a keyword the user searched before.
type SearchSuggestion struct {
	Keyword      string    `json:"keyword"`
	SearchCount  int64     `json:"search_count"`
	LastSearched time.Time `json:"last_searched"`
}

// PopularSearch is the global popular_search/{keyword} document.
type PopularSearch struct {
	Keyword   string    `bson:"keyword" json:"keyword"`
	Count     int64     `bson:"count" json:"count"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}

// Location is the user_locations/{identity} document.
type Location struct {
	UserID    string    `bson:"userId" json:"-"`
	Latitude  float64   `bson:"latitude" json:"latitude"`
	Longitude float64   `bson:"longitude" json:"longitude"`
	Accuracy  float64   `bson:"accuracy" json:"accuracy"`
	Address   string    `bson:"address" json:"address"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}

// ReferredPlace is one entry of the referred_places/{identity} map document.
type ReferredPlace struct {
	PlaceID    string    `bson:"placeId" json:"place_id"`
	Name       string    `bson:"name" json:"name"`
	Address    string    `bson:"address" json:"address"`
	Latitude   float64   `bson:"latitude" json:"latitude"`
	Longitude  float64   `bson:"longitude" json:"longitude"`
	Category   string    `bson:"category" json:"category"`
	Rating     float64   `bson:"rating" json:"rating"`
	IsVisited  bool      `bson:"isVisited" json:"is_visited"`
	ReferredAt time.Time `bson:"referredAt" json:"referred_at"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updated_at"`
}

// UsageStats aggregates what the current identity has stored.
type UsageStats struct {
	HasFilters          bool `json:"has_filters"`
	SearchCount         int  `json:"search_count"`
	HasLocation         bool `json:"has_location"`
	ReferredPlacesCount int  `json:"referred_places_count"`
	VisitedPlacesCount  int  `json:"visited_places_count"`
}
