package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/abhinaya/internal/session"
)

// Controller is the part of the running app the session endpoints drive.
type Controller interface {
	Snapshot() session.Snapshot
	RequestCalibrate()
	SetEnabled(enabled bool)
	IsEnabled() bool
}

// SessionHandler serves the live session state and its controls.
type SessionHandler struct {
	ctrl Controller
}

// NewSessionHandler creates a new SessionHandler for c.
func NewSessionHandler(c Controller) *SessionHandler {
	return &SessionHandler{ctrl: c}
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

type enabledResponse struct {
	Enabled bool `json:"enabled"`
}

// Session handles GET /api/session.
func (h *SessionHandler) Session(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

// Calibrate handles POST /api/calibrate. Calibration happens on the next
// frame, so the request is only accepted here.
func (h *SessionHandler) Calibrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.ctrl.RequestCalibrate()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// Enabled handles GET and PUT /api/enabled.
func (h *SessionHandler) Enabled(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req enabledRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "enabled is required")
			return
		}
		h.ctrl.SetEnabled(*req.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, enabledResponse{Enabled: h.ctrl.IsEnabled()})
}
