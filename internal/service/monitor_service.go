// internal/service/monitor_service.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/callforge/dialer-backend/internal/metrics"
	"github.com/callforge/dialer-backend/internal/model"
	"github.com/callforge/dialer-backend/internal/repository"
)

// Completion reasons, recorded on the campaign for observability. The
// evaluation order below is fixed; first match wins.
const (
	ReasonEndTimePassed = "end time passed"
	ReasonNoContacts    = "no contacts to process"
	ReasonAllProcessed  = "all contacts processed"
	ReasonMaxDuration   = "max duration exceeded"
)

// CheckResult is one monitoring pass over a campaign.
type CheckResult struct {
	CampaignID        int                 `json:"campaign_id"`
	Status            string              `json:"status"`
	Counts            model.ContactCounts `json:"counts"`
	Reclaimed         int64               `json:"reclaimed"`
	CompletionReason  string              `json:"completion_reason,omitempty"`
	NeedsMoreDispatch bool                `json:"needs_more_dispatch"`
}

// MonitorService reclaims stale contacts, recomputes progress, and decides
// whether an active campaign is done.
type MonitorService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	ContactRepo  repository.ContactRepositoryInterface
	Admission    AdmissionController
	StaleAfter   time.Duration // default 30m
	MaxRuntime   time.Duration // safety cutoff, default 24h
	Logger       *zap.Logger

	Now func() time.Time
}

func (m *MonitorService) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *MonitorService) logger() *zap.Logger {
	if m.Logger == nil {
		return zap.NewNop()
	}
	return m.Logger
}

func (m *MonitorService) staleAfter() time.Duration {
	if m.StaleAfter > 0 {
		return m.StaleAfter
	}
	return 30 * time.Minute
}

func (m *MonitorService) maxRuntime() time.Duration {
	if m.MaxRuntime > 0 {
		return m.MaxRuntime
	}
	return 24 * time.Hour
}

func (m *MonitorService) CheckStatus(ctx context.Context, campaignID int) (*CheckResult, error) {
	c, err := m.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	// Step 1: safety valve for crashed downstream workers. A contact stuck
	// in_progress past the threshold is forced to failed so nothing stays
	// invisibly stuck.
	reclaimed, err := m.ContactRepo.ReclaimStale(campaignID, m.staleAfter())
	if err != nil {
		return nil, err
	}
	if reclaimed > 0 {
		metrics.ContactsReclaimed.Add(float64(reclaimed))
		m.logger().Warn("stale in-progress contacts reclaimed",
			zap.Int("campaign_id", campaignID),
			zap.Int64("reclaimed", reclaimed),
			zap.Duration("threshold", m.staleAfter()))
	}

	// Step 2: fresh aggregates.
	counts, err := m.ContactRepo.CountByStatus(campaignID)
	if err != nil {
		return nil, err
	}

	result := &CheckResult{
		CampaignID: campaignID,
		Status:     c.Status,
		Counts:     counts,
		Reclaimed:  reclaimed,
	}

	// Step 3: completion rules, fixed priority, first match wins.
	reason := m.completionReason(c, counts)

	// Step 4: only the monitor produces active -> completed.
	if reason != "" && c.Status == model.StatusActive {
		won, err := m.CampaignRepo.CompleteWithReason(campaignID, reason)
		if err != nil {
			return nil, err
		}
		if won {
			result.Status = model.StatusCompleted
			result.CompletionReason = reason
			metrics.CampaignsCompleted.WithLabelValues(reason).Inc()
			if rerr := m.Admission.Release(campaignID); rerr != nil {
				m.logger().Error("admission release on completion failed",
					zap.Int("campaign_id", campaignID), zap.Error(rerr))
			}
			m.logger().Info("campaign completed",
				zap.Int("campaign_id", campaignID),
				zap.String("reason", reason))
		} else {
			// Someone else moved the campaign; report what is there now.
			fresh, ferr := m.CampaignRepo.GetByID(campaignID)
			if ferr != nil {
				return nil, ferr
			}
			result.Status = fresh.Status
			result.CompletionReason = fresh.CompletionReason
		}
	}

	result.NeedsMoreDispatch = result.Status == model.StatusActive && counts.Pending > 0
	return result, nil
}

func (m *MonitorService) completionReason(c *model.Campaign, counts model.ContactCounts) string {
	now := m.now()
	switch {
	case c.EndTime != nil && now.After(*c.EndTime):
		return ReasonEndTimePassed
	case counts.Total == 0:
		return ReasonNoContacts
	case counts.Pending == 0 && counts.InProgress == 0:
		return ReasonAllProcessed
	case now.Sub(c.CreatedAt) > m.maxRuntime():
		return ReasonMaxDuration
	}
	return ""
}

var _ Monitor = (*MonitorService)(nil)
