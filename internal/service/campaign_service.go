// internal/service/campaign_service.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/callforge/dialer-backend/internal/errors"
	"github.com/callforge/dialer-backend/internal/model"
	"github.com/callforge/dialer-backend/internal/repository"
)

// AdmissionController gates activation against per-resource-class caps.
type AdmissionController interface {
	TryActivate(campaignID int, resourceClass string) error
	Release(campaignID int) error
}

// Dispatcher runs one contact-dispatch cycle for an active campaign.
type Dispatcher interface {
	RunCycle(ctx context.Context, campaignID int) (*CycleResult, error)
}

// Monitor recomputes progress and detects completion.
type Monitor interface {
	CheckStatus(ctx context.Context, campaignID int) (*CheckResult, error)
}

// CampaignService owns the campaign lifecycle state machine. Every
// transition is a single conditional update; losing a race surfaces as
// Conflict or InvalidState, never as a silent double-success.
type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	ContactRepo  repository.ContactRepositoryInterface
	Admission    AdmissionController
	Dispatcher   Dispatcher
	Monitor      Monitor
	Logger       *zap.Logger
}

func (s *CampaignService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func validType(t string) bool {
	return t == model.TypeVoice || t == model.TypeSMS || t == model.TypeHybrid
}

func (s *CampaignService) CreateCampaign(c *model.Campaign) (*model.Campaign, error) {
	if c.Name == "" {
		return nil, appErrors.NewValidation("campaign name is required")
	}
	if !validType(c.Type) {
		return nil, appErrors.NewValidation("unknown campaign type %q", c.Type)
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return nil, appErrors.NewValidation("unknown timezone %q", c.Timezone)
		}
	}
	if err := c.Config.Validate(); err != nil {
		return nil, err
	}
	if c.StartTime != nil && c.EndTime != nil && !c.EndTime.After(*c.StartTime) {
		return nil, appErrors.NewValidation("end_time must be after start_time")
	}

	c.Status = model.StatusDraft
	if err := s.CampaignRepo.Create(c); err != nil {
		return nil, err
	}
	s.logger().Info("campaign created",
		zap.Int("campaign_id", c.ID),
		zap.String("type", c.Type))
	return c, nil
}

// Schedule moves draft -> scheduled. The start time must be in the
// future.
func (s *CampaignService) Schedule(campaignID int, startTime time.Time) error {
	if !startTime.After(time.Now()) {
		return appErrors.NewValidation("start time must be in the future")
	}

	ok, err := s.CampaignRepo.ScheduleAt(campaignID, startTime)
	if err != nil {
		return err
	}
	if !ok {
		return s.loserError(campaignID, model.StatusScheduled)
	}
	s.logger().Info("campaign scheduled",
		zap.Int("campaign_id", campaignID),
		zap.Time("start_time", startTime))
	return nil
}

// Start moves draft|scheduled -> active, subject to admission control. On
// ResourceExhausted the campaign keeps its prior status and the caller may
// retry later.
func (s *CampaignService) Start(campaignID int) error {
	c, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return err
	}
	if c.Status != model.StatusDraft && c.Status != model.StatusScheduled {
		return appErrors.NewInvalidState(c.Status, model.StatusActive)
	}

	if err := s.Admission.TryActivate(c.ID, c.ResourceClass()); err != nil {
		return err
	}

	ok, err := s.CampaignRepo.TransitionStatus(c.ID, c.Status, model.StatusActive)
	if err != nil {
		return err
	}
	if !ok {
		fresh, ferr := s.CampaignRepo.GetByID(campaignID)
		if ferr != nil {
			return ferr
		}
		if fresh.Status == model.StatusActive {
			// A concurrent activation won; the grant is shared.
			return appErrors.NewConflict("campaign %d was concurrently activated", campaignID)
		}
		// The campaign moved somewhere else entirely; give the slot back.
		if rerr := s.Admission.Release(c.ID); rerr != nil {
			s.logger().Error("release after lost activation failed",
				zap.Int("campaign_id", c.ID), zap.Error(rerr))
		}
		return appErrors.NewInvalidState(fresh.Status, model.StatusActive)
	}

	s.logger().Info("campaign activated",
		zap.Int("campaign_id", c.ID),
		zap.String("resource_class", c.ResourceClass()))
	return nil
}

// Pause moves active -> paused and frees the admission slot. In-flight
// dials settle on their own; only future cycles stop.
func (s *CampaignService) Pause(campaignID int) error {
	ok, err := s.CampaignRepo.TransitionStatus(campaignID, model.StatusActive, model.StatusPaused)
	if err != nil {
		return err
	}
	if !ok {
		return s.loserError(campaignID, model.StatusPaused)
	}
	if err := s.Admission.Release(campaignID); err != nil {
		s.logger().Error("admission release on pause failed",
			zap.Int("campaign_id", campaignID), zap.Error(err))
	}
	s.logger().Info("campaign paused", zap.Int("campaign_id", campaignID))
	return nil
}

// Resume moves paused -> active, re-checked against admission control.
func (s *CampaignService) Resume(campaignID int) error {
	c, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return err
	}
	if c.Status != model.StatusPaused {
		return appErrors.NewInvalidState(c.Status, model.StatusActive)
	}

	if err := s.Admission.TryActivate(c.ID, c.ResourceClass()); err != nil {
		return err
	}

	ok, err := s.CampaignRepo.TransitionStatus(c.ID, model.StatusPaused, model.StatusActive)
	if err != nil {
		return err
	}
	if !ok {
		fresh, ferr := s.CampaignRepo.GetByID(campaignID)
		if ferr != nil {
			return ferr
		}
		if fresh.Status == model.StatusActive {
			return appErrors.NewConflict("campaign %d was concurrently resumed", campaignID)
		}
		if rerr := s.Admission.Release(c.ID); rerr != nil {
			s.logger().Error("release after lost resume failed",
				zap.Int("campaign_id", c.ID), zap.Error(rerr))
		}
		return appErrors.NewInvalidState(fresh.Status, model.StatusActive)
	}

	s.logger().Info("campaign resumed", zap.Int("campaign_id", campaignID))
	return nil
}

// Cancel moves any non-terminal status -> cancelled and frees the
// admission slot if one is held.
func (s *CampaignService) Cancel(campaignID int) error {
	c, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return err
	}
	if c.IsTerminal() {
		return appErrors.NewInvalidState(c.Status, model.StatusCancelled)
	}

	ok, err := s.CampaignRepo.TransitionStatus(c.ID, c.Status, model.StatusCancelled)
	if err != nil {
		return err
	}
	if !ok {
		return s.loserError(campaignID, model.StatusCancelled)
	}
	if err := s.Admission.Release(c.ID); err != nil {
		s.logger().Error("admission release on cancel failed",
			zap.Int("campaign_id", campaignID), zap.Error(err))
	}
	s.logger().Info("campaign cancelled", zap.Int("campaign_id", campaignID))
	return nil
}

// loserError re-reads after a lost conditional update and names the status
// the loser actually observed.
func (s *CampaignService) loserError(campaignID int, requested string) error {
	fresh, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return err
	}
	if fresh.Status == requested {
		return appErrors.NewConflict("campaign %d already %s", campaignID, requested)
	}
	return appErrors.NewInvalidState(fresh.Status, requested)
}

func (s *CampaignService) GetCampaign(campaignID int) (*model.Campaign, error) {
	return s.CampaignRepo.GetByID(campaignID)
}

func (s *CampaignService) ListCampaigns(page, pageSize int, ctype, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(offset, pageSize, ctype, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}
	return campaigns, pagination, nil
}

// CampaignDetails is the status+stats view served by the HTTP API.
type CampaignDetails struct {
	Campaign *model.Campaign     `json:"campaign"`
	Counts   model.ContactCounts `json:"counts"`
}

func (s *CampaignService) GetCampaignDetails(campaignID int) (*CampaignDetails, error) {
	c, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	counts, err := s.ContactRepo.CountByStatus(campaignID)
	if err != nil {
		return nil, err
	}
	return &CampaignDetails{Campaign: c, Counts: counts}, nil
}

// RecordCallOutcome applies the telephony plane's outcome callback:
// in_progress -> completed|failed. Duplicate or late callbacks lose the
// conditional update and report Conflict.
func (s *CampaignService) RecordCallOutcome(contactID int, outcome string) error {
	ok, err := s.ContactRepo.RecordOutcome(contactID, outcome)
	if err != nil {
		return err
	}
	if !ok {
		return appErrors.NewConflict("contact %d is not in progress", contactID)
	}
	return nil
}
