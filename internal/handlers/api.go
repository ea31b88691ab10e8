package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/AnshRaj112/wayfarer-backend/internal/services"
)

// API serves the localhost bridge the app shell talks to.
type API struct {
	App *services.AppContext
	// Client is used for fields the shell leaves out of /api/identity/init.
	Client services.ClientInfo
}

func NewAPI(app *services.AppContext, client services.ClientInfo) *API {
	return &API{App: app, Client: client}
}

// Response is the envelope of every bridge reply.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Message: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// Health answers liveness checks.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}
