package api

import (
	"net/http"

	"github.com/ayusman/abhinaya/internal/store"
)

// CalibrationHandler lists saved calibrations.
type CalibrationHandler struct {
	store *store.Store
}

// NewCalibrationHandler creates a new CalibrationHandler with the given store.
func NewCalibrationHandler(s *store.Store) *CalibrationHandler {
	return &CalibrationHandler{store: s}
}

type listCalibrationsResponse struct {
	Calibrations []*store.Calibration `json:"calibrations"`
}

// ServeHTTP serves GET /api/calibrations.
func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit, ok := parseLimit(r, defaultListLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	list, err := h.store.Calibrations().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list calibrations")
		return
	}
	if list == nil {
		list = []*store.Calibration{}
	}
	writeJSON(w, http.StatusOK, listCalibrationsResponse{Calibrations: list})
}
