package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/abhinaya/internal/store"
)

const defaultListLimit = 50

// RoundHandler serves finished-round history.
type RoundHandler struct {
	store *store.Store
}

// NewRoundHandler creates a new RoundHandler with the given store.
func NewRoundHandler(s *store.Store) *RoundHandler {
	return &RoundHandler{store: s}
}

type listRoundsResponse struct {
	Rounds []*store.Round `json:"rounds"`
}

// ServeHTTP routes /api/rounds, /api/rounds/stats and /api/rounds/{id}.
func (h *RoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/rounds")
	path = strings.TrimPrefix(path, "/")

	switch path {
	case "":
		h.list(w, r)
	case "stats":
		h.stats(w)
	default:
		h.get(w, path)
	}
}

func (h *RoundHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, defaultListLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	rounds, err := h.store.Rounds().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rounds")
		return
	}
	if rounds == nil {
		rounds = []*store.Round{}
	}
	writeJSON(w, http.StatusOK, listRoundsResponse{Rounds: rounds})
}

func (h *RoundHandler) get(w http.ResponseWriter, id string) {
	round, err := h.store.Rounds().Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Round not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get round")
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (h *RoundHandler) stats(w http.ResponseWriter) {
	st, err := h.store.Rounds().Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, st)
}
