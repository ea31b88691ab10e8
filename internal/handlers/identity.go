package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/AnshRaj112/wayfarer-backend/internal/services"
)

// InitIdentityRequest is sent by the shell on every cold start.
type InitIdentityRequest struct {
	AppVersion  string `json:"app_version"`
	BuildNumber string `json:"build_number"`
	Platform    string `json:"platform"`
	DeviceModel string `json:"device_model"`
	OSVersion   string `json:"os_version"`
}

// IdentityResponse describes the identity the app runs under.
type IdentityResponse struct {
	Success        bool                    `json:"success"`
	Message        string                  `json:"message,omitempty"`
	Identity       string                  `json:"identity"`
	Recovered      bool                    `json:"recovered"`
	SessionStarted time.Time               `json:"session_started"`
	Status         services.RecoveryStatus `json:"status"`
}

// RecoveryResponse is the reply of the recovery and clear-data endpoints.
type RecoveryResponse struct {
	Success   bool                    `json:"success"`
	Message   string                  `json:"message,omitempty"`
	Recovered bool                    `json:"recovered"`
	Status    services.RecoveryStatus `json:"status"`
}

func (a *API) identityResponse(message string) IdentityResponse {
	status := a.App.Recovery.Status()
	return IdentityResponse{
		Success:        true,
		Message:        message,
		Identity:       a.App.Session.Identity(),
		Recovered:      a.App.Session.Recovered(),
		SessionStarted: a.App.Session.StartedAt(),
		Status:         status,
	}
}

// InitIdentity runs recovery if this session has not resolved yet and
// writes the user profile.
func (a *API) InitIdentity(w http.ResponseWriter, r *http.Request) {
	var req InitIdentityRequest
	if r.ContentLength != 0 {
		if !decodeBody(w, r, &req) {
			return
		}
	}

	if a.App.Session.Identity() == "" {
		a.App.Recovery.CheckRecovery(r.Context())
	}

	info := a.Client
	if req.AppVersion != "" {
		info.AppVersion = req.AppVersion
		info.DeviceInfo.AppVersion = req.AppVersion
	}
	if req.BuildNumber != "" {
		info.DeviceInfo.BuildNumber = req.BuildNumber
	}
	if req.Platform != "" {
		info.Platform = req.Platform
	}
	if req.DeviceModel != "" {
		info.DeviceInfo.DeviceModel = req.DeviceModel
	}
	if req.OSVersion != "" {
		info.DeviceInfo.OSVersion = req.OSVersion
	}

	if _, err := a.App.UserData.InitializeUser(r.Context(), info); err != nil {
		log.Printf("handlers: %v", err)
	}
	writeJSON(w, http.StatusOK, a.identityResponse("Identity ready"))
}

// GetIdentity returns the current identity and recovery status.
func (a *API) GetIdentity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.identityResponse(""))
}

// CheckRecovery runs identity resolution for this session.
func (a *API) CheckRecovery(w http.ResponseWriter, r *http.Request) {
	recovered := a.App.Recovery.CheckRecovery(r.Context())
	writeJSON(w, http.StatusOK, RecoveryResponse{
		Success:   true,
		Recovered: recovered,
		Status:    a.App.Recovery.Status(),
	})
}

// ForceRecovery switches to the identity mapped to this device, if any.
func (a *API) ForceRecovery(w http.ResponseWriter, r *http.Request) {
	recovered := a.App.Recovery.ForceRecovery(r.Context())
	message := "Recovered identity from this device"
	if !recovered {
		message = "No previous identity found for this device"
	}
	writeJSON(w, http.StatusOK, RecoveryResponse{
		Success:   true,
		Message:   message,
		Recovered: recovered,
		Status:    a.App.Recovery.Status(),
	})
}

// ClearData deletes all data of the current identity. Requires
// ?confirm=true.
func (a *API) ClearData(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		writeError(w, http.StatusBadRequest, "Deleting all data requires confirm=true")
		return
	}
	if err := a.App.Recovery.ClearAllData(r.Context()); err != nil {
		log.Printf("handlers: clear data failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete all data: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "All data deleted"})
}
