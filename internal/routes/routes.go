package routes

import (
	"github.com/AnshRaj112/wayfarer-backend/internal/handlers"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes(r chi.Router, api *handlers.API) {
	r.Get("/health", handlers.Health)

	// Identity and recovery
	r.Post("/api/identity/init", api.InitIdentity)
	r.Get("/api/identity", api.GetIdentity)
	r.Post("/api/recovery/check", api.CheckRecovery)
	r.Post("/api/recovery/force", api.ForceRecovery)
	r.Delete("/api/data", api.ClearData)

	// Filters
	r.Get("/api/filters", api.GetFilters)
	r.Put("/api/filters", api.SaveFilters)
	r.Get("/api/filters/options", api.GetFilterOptions)

	// Search
	r.Post("/api/search", api.AddSearch)
	r.Get("/api/search/suggestions", api.GetSuggestions)
	r.Get("/api/search/popular", api.GetPopularSearches)

	// Location
	r.Get("/api/location", api.GetLocation)
	r.Put("/api/location", api.SetLocation)

	// Places around a location
	r.Get("/api/places/nearby", api.GetNearbyPlaces)
	r.Get("/api/places/filtered", api.GetFilteredPlaces)
	r.Get("/api/places/search", api.SearchPlaces)

	// Referred places
	r.Get("/api/places/referred", api.GetReferredPlaces)
	r.Post("/api/places/referred", api.AddReferredPlace)
	r.Delete("/api/places/referred/{placeID}", api.RemoveReferredPlace)
	r.Put("/api/places/referred/{placeID}/visited", api.MarkPlaceVisited)

	r.Get("/api/stats", api.GetStats)

	// Recovery status stream
	r.Get("/ws/recovery", api.RecoveryWebSocket)
}
