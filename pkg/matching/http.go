package matching

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/partyof4/platform/pkg/common/logger"
	"github.com/partyof4/platform/pkg/common/models"
	"github.com/partyof4/platform/pkg/schedule"
)

type HTTPHandler struct {
	coordinator *Coordinator
	catalog     schedule.Catalog
	maxBody     int64
}

func NewHTTPHandler(coordinator *Coordinator, catalog schedule.Catalog, maxBody int64) *HTTPHandler {
	return &HTTPHandler{coordinator: coordinator, catalog: catalog, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/matching/attempt", h.handleAttempt).Methods(http.MethodPost)
	router.HandleFunc("/matching/candidates", h.handleCandidates).Methods(http.MethodGet)
	router.HandleFunc("/matching/matches/{id}/status", h.handleStatus).Methods(http.MethodPatch)
}

func (h *HTTPHandler) handleAttempt(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req models.AttemptMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	slot, err := h.catalog.ParseSlot(req.Slot)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.coordinator.AttemptMatch(r.Context(), slot)
	if err != nil {
		h.writeAttemptError(w, err)
		return
	}

	resp := models.AttemptMatchResponse{Outcome: string(result.Outcome)}
	if result.Match != nil {
		resp.Match = toMatchView(result.Match)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *HTTPHandler) handleCandidates(w http.ResponseWriter, r *http.Request) {
	slot, err := h.catalog.ParseSlot(r.URL.Query().Get("slot"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	candidates, err := h.coordinator.ListOpenCandidates(r.Context(), slot)
	if err != nil {
		h.writeAttemptError(w, err)
		return
	}

	views := make([]models.CandidateView, 0, len(candidates))
	for _, c := range candidates {
		views = append(views, models.CandidateView{
			CandidateID: c.ID,
			PersonID:    c.PersonID,
			Gender:      c.Gender,
			Slot:        c.Slot,
			PartyStyle:  c.PartyStyle,
			State:       c.State,
			CreatedAt:   c.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

func (h *HTTPHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	vars := mux.Vars(r)
	id := vars["id"]

	var req models.UpdateMatchStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	match, err := h.coordinator.ApplyMatchStatus(r.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrMatchNotFound):
			http.Error(w, "match not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidStatus):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			logger.Log.WithError(err).Error("failed to update match status")
			http.Error(w, "internal error", http.StatusServiceUnavailable)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toMatchView(match))
}

func (h *HTTPHandler) writeAttemptError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidSlot):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrSlotBusy):
		http.Error(w, "slot busy, retry later", http.StatusConflict)
	case errors.Is(err, ErrConsistencyViolation):
		logger.Log.WithError(err).Error("consistency violation on match attempt")
		http.Error(w, "internal error", http.StatusInternalServerError)
	default:
		logger.Log.WithError(err).Error("match attempt failed")
		http.Error(w, "store unavailable, retry later", http.StatusServiceUnavailable)
	}
}

func toMatchView(m *Match) *models.MatchView {
	return &models.MatchView{
		MatchID:    m.ID,
		Slot:       m.Slot,
		PartyStyle: m.PartyStyle,
		Men:        []string(m.Men),
		Women:      []string(m.Women),
		Status:     m.Status,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
