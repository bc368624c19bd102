// internal/handler/campaign_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/callforge/dialer-backend/internal/errors"
	"github.com/callforge/dialer-backend/internal/service"
)

// CampaignHandler serves the read-only campaign views.
type CampaignHandler struct {
	Service *service.CampaignService
}

// GetCampaignWithStats returns a campaign with its per-status contact
// counts.
func (h *CampaignHandler) GetCampaignWithStats(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	details, err := h.Service.GetCampaignDetails(id)
	if err != nil {
		if appErrors.IsNotFound(err) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "failed to fetch campaign: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(details)
}
