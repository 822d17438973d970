package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/cognicore/triplan/pkg/triplan"
	"github.com/cognicore/triplan/pkg/triplan/config"
	"github.com/cognicore/triplan/pkg/triplan/internalerr"
)

// Handlers provides HTTP handlers for planning endpoints
type Handlers struct {
	planner *triplan.Planner
	log     zerolog.Logger
}

// NewHandlers creates a new planning handlers instance
func NewHandlers(planner *triplan.Planner, log zerolog.Logger) *Handlers {
	return &Handlers{
		planner: planner,
		log:     log.With().Str("module", "plan_handlers").Logger(),
	}
}

// RegisterRoutes registers all planning routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Post("/plan", h.Plan)
	r.Post("/candidates", h.Candidates)
	r.Get("/policy", h.Policy)
}

// Plan composes an itinerary for the posted request
func (h *Handlers) Plan(w http.ResponseWriter, r *http.Request) {
	var req triplan.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	it, err := h.planner.Plan(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it.Summary())
}

// CandidatesResponse lists flight offers for a request
type CandidatesResponse struct {
	Offers []config.OfferRecord `json:"offers"`
}

// Candidates lists the flights that exactly match the posted request
func (h *Handlers) Candidates(w http.ResponseWriter, r *http.Request) {
	var req triplan.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	cs, err := h.planner.Normalize(req).FlightConstraints()
	if err != nil {
		h.fail(w, err)
		return
	}
	offers, err := h.planner.Candidates(r.Context(), cs)
	if err != nil {
		h.fail(w, err)
		return
	}

	resp := CandidatesResponse{Offers: make([]config.OfferRecord, 0, len(offers))}
	for _, o := range offers {
		resp.Offers = append(resp.Offers, config.Record(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Policy returns the loaded relaxation policy
func (h *Handlers) Policy(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.planner.Policy().Config())
}

func (h *Handlers) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, internalerr.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Planning failed")
		writeError(w, http.StatusInternalServerError, "planning failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
