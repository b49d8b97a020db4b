package registration

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/partyof4/platform/pkg/common/logger"
	"github.com/partyof4/platform/pkg/common/models"
	"github.com/partyof4/platform/pkg/schedule"
)

type HTTPHandler struct {
	service *Service
	catalog schedule.Catalog
	maxBody int64
}

func NewHTTPHandler(service *Service, catalog schedule.Catalog, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, catalog: catalog, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/register", h.handleRegister).Methods(http.MethodPost)
	router.HandleFunc("/candidates", h.handleCandidates).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.WithError(err).Warn("invalid registration payload")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Register(r.Context(), req)
	if err != nil {
		if IsValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).Error("failed to register candidate")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func (h *HTTPHandler) handleCandidates(w http.ResponseWriter, r *http.Request) {
	slot, err := h.catalog.ParseSlot(r.URL.Query().Get("slot"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	candidates, err := h.service.ListOpen(r.Context(), slot)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list candidates")
		http.Error(w, "internal error", http.StatusInternalServerError)
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
