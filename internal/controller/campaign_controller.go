// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/callforge/dialer-backend/internal/errors"
	"github.com/callforge/dialer-backend/internal/model"
	"github.com/callforge/dialer-backend/internal/repository"
	"github.com/callforge/dialer-backend/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
	Settings        *repository.SettingsRepository
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses. Retryable errors
// get 429 so callers back off instead of treating them as hard failures.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case appErrors.IsValidation(err):
		status = http.StatusBadRequest
	case appErrors.IsNotFound(err):
		status = http.StatusNotFound
	case appErrors.IsInvalidState(err), appErrors.IsConflict(err):
		status = http.StatusConflict
	case appErrors.IsResourceExhausted(err), appErrors.IsRateLimited(err):
		status = http.StatusTooManyRequests
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func campaignID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return 0, appErrors.NewValidation("invalid campaign id")
	}
	return id, nil
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name      string               `json:"name"`
		Type      string               `json:"type"`
		Config    model.CampaignConfig `json:"config"`
		StartTime *time.Time           `json:"start_time"`
		EndTime   *time.Time           `json:"end_time"`
		Timezone  string               `json:"timezone"`
		CreatedBy string               `json:"created_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, appErrors.NewValidation("invalid body: %v", err))
		return
	}

	campaign := &model.Campaign{
		Name:      body.Name,
		Type:      body.Type,
		Config:    body.Config,
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
		Timezone:  body.Timezone,
		CreatedBy: body.CreatedBy,
	}
	created, err := c.CampaignService.CreateCampaign(campaign)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	ctype := r.URL.Query().Get("type")
	status := r.URL.Query().Get("status")

	campaigns, pagination, err := c.CampaignService.ListCampaigns(page, pageSize, ctype, status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":       campaigns,
		"pagination": pagination,
	})
}

func (c *CampaignController) Schedule(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		StartTime time.Time `json:"start_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, appErrors.NewValidation("invalid body: %v", err))
		return
	}

	if err := c.CampaignService.Schedule(id, body.StartTime); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": model.StatusScheduled})
}

func (c *CampaignController) Start(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.CampaignService.Start, model.StatusActive)
}

func (c *CampaignController) Pause(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.CampaignService.Pause, model.StatusPaused)
}

func (c *CampaignController) Resume(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.CampaignService.Resume, model.StatusActive)
}

func (c *CampaignController) Cancel(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.CampaignService.Cancel, model.StatusCancelled)
}

func (c *CampaignController) transition(w http.ResponseWriter, r *http.Request, op func(int) error, target string) {
	id, err := campaignID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := op(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": target})
}

// Advance runs one stateless orchestration pass. The polling driver calls
// the service directly; this endpoint exists for operators and tooling.
func (c *CampaignController) Advance(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := c.CampaignService.Advance(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Status runs a monitoring pass (reclaim + counts + completion check).
func (c *CampaignController) Status(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := c.CampaignService.Monitor.CheckStatus(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ContactOutcome ingests the telephony plane's call-outcome callback.
func (c *CampaignController) ContactOutcome(w http.ResponseWriter, r *http.Request) {
	contactID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, appErrors.NewValidation("invalid contact id"))
		return
	}

	var body struct {
		Outcome string `json:"outcome"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, appErrors.NewValidation("invalid body: %v", err))
		return
	}

	if err := c.CampaignService.RecordCallOutcome(contactID, body.Outcome); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contact_id": contactID, "status": body.Outcome})
}

// SetMaxCPS lets operators lower the dial ceiling live; the limiter reads
// it fresh on every admit.
func (c *CampaignController) SetMaxCPS(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value int `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Value <= 0 {
		writeError(w, appErrors.NewValidation("value must be a positive integer"))
		return
	}
	if err := c.Settings.SetInt(repository.SettingMaxCPS, body.Value); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"max_cps": body.Value})
}
