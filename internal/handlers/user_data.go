package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/AnshRaj112/wayfarer-backend/internal/models"
	"github.com/AnshRaj112/wayfarer-backend/internal/services"
	"github.com/AnshRaj112/wayfarer-backend/pkg/utils"
	"github.com/go-chi/chi/v5"
)

type FiltersRequest struct {
	Filters []models.FilterOption `json:"filters"`
}

type FiltersResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message,omitempty"`
	Filters []models.FilterOption `json:"filters"`
}

type FilterOptionsResponse struct {
	Success bool                `json:"success"`
	Options []models.FilterSpec `json:"options"`
}

type SearchRequest struct {
	Keyword string `json:"keyword"`
}

type SuggestionsResponse struct {
	Success     bool                      `json:"success"`
	Suggestions []models.SearchSuggestion `json:"suggestions"`
}

type PopularResponse struct {
	Success  bool                   `json:"success"`
	Searches []models.PopularSearch `json:"searches"`
}

type LocationResponse struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message,omitempty"`
	Location *models.Location `json:"location"`
}

type PlacesResponse struct {
	Success bool                   `json:"success"`
	Places  []models.ReferredPlace `json:"places"`
	Total   int                    `json:"total"`
}

type StatsResponse struct {
	Success bool              `json:"success"`
	Stats   models.UsageStats `json:"stats"`
}

// GetFilters returns the saved filters.
func (a *API) GetFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FiltersResponse{
		Success: true,
		Filters: a.App.UserData.GetFilters(r.Context()),
	})
}

// SaveFilters replaces the saved filters.
func (a *API) SaveFilters(w http.ResponseWriter, r *http.Request) {
	var req FiltersRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := services.ValidateFilters(req.Filters); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !a.App.UserData.SaveFilters(r.Context(), req.Filters) {
		writeError(w, http.StatusServiceUnavailable, "Failed to save filters")
		return
	}
	writeJSON(w, http.StatusOK, FiltersResponse{
		Success: true,
		Message: "Filters saved",
		Filters: models.NormalizeFilters(req.Filters),
	})
}

// GetFilterOptions returns the filter taxonomy.
func (a *API) GetFilterOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FilterOptionsResponse{Success: true, Options: models.FilterTaxonomy()})
}

// AddSearch records a search keyword.
func (a *API) AddSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := utils.ValidateKeyword(utils.NormalizeKeyword(req.Keyword)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !a.App.UserData.AddSearchKeyword(r.Context(), req.Keyword) {
		writeError(w, http.StatusServiceUnavailable, "Failed to record search")
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Search recorded"})
}

// GetSuggestions returns the identity's recent searches.
func (a *API) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SuggestionsResponse{
		Success:     true,
		Suggestions: a.App.UserData.GetSuggestions(r.Context(), queryLimit(r)),
	})
}

// GetPopularSearches returns the most searched keywords of all users.
func (a *API) GetPopularSearches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PopularResponse{
		Success:  true,
		Searches: a.App.UserData.GetPopularSearches(r.Context(), queryLimit(r)),
	})
}

// GetLocation returns the last known location.
func (a *API) GetLocation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LocationResponse{
		Success:  true,
		Location: a.App.UserData.GetLastLocation(r.Context()),
	})
}

// SetLocation stores the last known location.
func (a *API) SetLocation(w http.ResponseWriter, r *http.Request) {
	var loc models.Location
	if !decodeBody(w, r, &loc) {
		return
	}
	if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		writeError(w, http.StatusBadRequest, "Coordinates out of range")
		return
	}
	if !a.App.UserData.SetLastLocation(r.Context(), loc) {
		writeError(w, http.StatusServiceUnavailable, "Failed to save location")
		return
	}
	writeJSON(w, http.StatusOK, LocationResponse{Success: true, Message: "Location saved", Location: &loc})
}

// GetReferredPlaces lists referred places, newest first.
func (a *API) GetReferredPlaces(w http.ResponseWriter, r *http.Request) {
	places := a.App.UserData.GetReferredPlaces(r.Context())
	writeJSON(w, http.StatusOK, PlacesResponse{Success: true, Places: places, Total: len(places)})
}

// AddReferredPlace stores a referred place.
func (a *API) AddReferredPlace(w http.ResponseWriter, r *http.Request) {
	var place models.ReferredPlace
	if !decodeBody(w, r, &place) {
		return
	}
	if strings.TrimSpace(place.PlaceID) == "" {
		writeError(w, http.StatusBadRequest, "place_id is required")
		return
	}
	if !a.App.UserData.AddReferredPlace(r.Context(), place) {
		writeError(w, http.StatusServiceUnavailable, "Failed to save referred place")
		return
	}
	writeJSON(w, http.StatusCreated, Response{Success: true, Message: "Referred place saved"})
}

// RemoveReferredPlace deletes a referred place.
func (a *API) RemoveReferredPlace(w http.ResponseWriter, r *http.Request) {
	if !a.App.UserData.RemoveReferredPlace(r.Context(), chi.URLParam(r, "placeID")) {
		writeError(w, http.StatusServiceUnavailable, "Failed to remove referred place")
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Referred place removed"})
}

// MarkPlaceVisited flags a referred place as visited.
func (a *API) MarkPlaceVisited(w http.ResponseWriter, r *http.Request) {
	placeID := chi.URLParam(r, "placeID")
	if !a.App.UserData.IsReferredPlace(r.Context(), placeID) {
		writeError(w, http.StatusNotFound, "Referred place not found")
		return
	}
	if !a.App.UserData.MarkPlaceVisited(r.Context(), placeID) {
		writeError(w, http.StatusServiceUnavailable, "Failed to mark place as visited")
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Place marked as visited"})
}

// GetStats returns usage statistics of the identity.
func (a *API) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatsResponse{Success: true, Stats: a.App.UserData.GetUsageStats(r.Context())})
}

func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
