package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/AnshRaj112/wayfarer-backend/internal/models"
)

type NearbyPlacesResponse struct {
	Success bool           `json:"success"`
	Places  []models.Place `json:"places"`
	Total   int            `json:"total"`
}

// queryLocation reads ?lat=&lng=, falling back to the last stored location.
func (a *API) queryLocation(w http.ResponseWriter, r *http.Request) (models.Location, bool) {
	q := r.URL.Query()
	if q.Get("lat") == "" && q.Get("lng") == "" {
		if loc := a.App.UserData.GetLastLocation(r.Context()); loc != nil {
			return *loc, true
		}
		writeError(w, http.StatusBadRequest, "lat and lng are required when no location is stored")
		return models.Location{}, false
	}

	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		writeError(w, http.StatusBadRequest, "Invalid coordinates")
		return models.Location{}, false
	}
	return models.Location{Latitude: lat, Longitude: lng}, true
}

func writePlaces(w http.ResponseWriter, places []models.Place) {
	writeJSON(w, http.StatusOK, NearbyPlacesResponse{Success: true, Places: places, Total: len(places)})
}

// GetNearbyPlaces lists the places around a location, best ranked first.
func (a *API) GetNearbyPlaces(w http.ResponseWriter, r *http.Request) {
	loc, ok := a.queryLocation(w, r)
	if !ok {
		return
	}
	writePlaces(w, a.App.UserData.NearbyPlaces(r.Context(), loc, queryLimit(r)))
}

// GetFilteredPlaces lists nearby places matching ?filters=a,b, or the saved
// filters when the parameter is absent.
func (a *API) GetFilteredPlaces(w http.ResponseWriter, r *http.Request) {
	loc, ok := a.queryLocation(w, r)
	if !ok {
		return
	}

	var filters []models.FilterOption
	if raw, set := r.URL.Query()["filters"]; set {
		for _, part := range strings.Split(strings.Join(raw, ","), ",") {
			if part = strings.TrimSpace(part); part != "" {
				filters = append(filters, models.FilterOption(part))
			}
		}
	} else {
		filters = a.App.UserData.GetFilters(r.Context())
	}
	writePlaces(w, a.App.UserData.FilteredPlaces(r.Context(), loc, filters, queryLimit(r)))
}

// SearchPlaces lists nearby places whose name, address or category
// contains ?q=.
func (a *API) SearchPlaces(w http.ResponseWriter, r *http.Request) {
	loc, ok := a.queryLocation(w, r)
	if !ok {
		return
	}
	writePlaces(w, a.App.UserData.SearchPlaces(r.Context(), loc, r.URL.Query().Get("q"), queryLimit(r)))
}
