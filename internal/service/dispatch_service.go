// internal/service/dispatch_service.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/callforge/dialer-backend/internal/errors"
	"github.com/callforge/dialer-backend/internal/metrics"
	"github.com/callforge/dialer-backend/internal/model"
	"github.com/callforge/dialer-backend/internal/prediction"
	"github.com/callforge/dialer-backend/internal/queue"
	"github.com/callforge/dialer-backend/internal/repository"
)

// CycleResult reports one dispatch cycle. Dispatched = 0 with a nil error
// is the normal "nothing eligible right now" signal, not a failure.
type CycleResult struct {
	CampaignID int `json:"campaign_id"`
	Dispatched int `json:"dispatched"`
	Skipped    int `json:"skipped"`
}

// DispatchService selects eligible contacts for an active campaign and
// hands them to the dial queue in bounded batches. The conditional
// pending -> in_progress claim runs before the publish, so overlapping
// cycles can never dispatch the same contact twice.
type DispatchService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	ContactRepo  repository.ContactRepositoryInterface
	Queue        queue.Queue
	Predictor    prediction.Predictor // nil disables backfill
	BatchSize    int
	Topic        string
	Logger       *zap.Logger

	// Now is swappable for tests.
	Now func() time.Time
}

func (d *DispatchService) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *DispatchService) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

func (d *DispatchService) RunCycle(ctx context.Context, campaignID int) (*CycleResult, error) {
	c, err := d.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status != model.StatusActive {
		return nil, appErrors.NewInvalidState(c.Status, model.StatusActive)
	}

	result := &CycleResult{CampaignID: campaignID}

	localNow := d.now().In(c.Location())
	if !c.Config.InCallingWindow(localNow) {
		return result, nil
	}

	batch := d.BatchSize
	if batch <= 0 {
		batch = 100
	}
	if c.Config.MaxConcurrentCalls > 0 {
		// Respect the per-campaign concurrency cap: never push more than
		// the remaining headroom.
		counts, err := d.ContactRepo.CountByStatus(campaignID)
		if err != nil {
			return nil, err
		}
		headroom := c.Config.MaxConcurrentCalls - counts.InProgress
		if headroom <= 0 {
			return result, nil
		}
		if headroom < batch {
			batch = headroom
		}
	}

	contacts, err := d.ContactRepo.SelectEligible(campaignID, localNow.Hour(), batch)
	if err != nil {
		return nil, err
	}

	for _, contact := range contacts {
		if !d.inContactWindow(c, contact) {
			result.Skipped++
			continue
		}

		claimed, err := d.ContactRepo.ClaimPending(contact.ID)
		if err != nil {
			return result, err
		}
		if !claimed {
			// An overlapping cycle got here first.
			result.Skipped++
			continue
		}

		task := model.DialTask{
			CampaignID:  contact.CampaignID,
			ContactID:   contact.ID,
			PhoneNumber: contact.PhoneNumber,
			Metadata:    contact.Metadata,
			Attempts:    contact.Attempts + 1,
		}
		if err := d.Queue.Publish(d.Topic, task); err != nil {
			// The claim stands; the monitor's staleness reclaim resolves
			// the contact if the task never reaches a worker.
			d.logger().Warn("dial task publish failed",
				zap.Int("campaign_id", campaignID),
				zap.Int("contact_id", contact.ID),
				zap.Error(err))
			result.Skipped++
			continue
		}

		result.Dispatched++
		metrics.ContactsDispatched.Inc()

		d.maybeBackfillPrediction(ctx, contact)
	}

	d.logger().Info("dispatch cycle finished",
		zap.Int("campaign_id", campaignID),
		zap.Int("dispatched", result.Dispatched),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// inContactWindow re-checks the calling window against the contact's own
// timezone when the campaign opts in and the contact carries one.
// Unparseable zones fall back to the campaign clock.
func (d *DispatchService) inContactWindow(c *model.Campaign, contact *model.Contact) bool {
	if !c.Config.ContactTZEnabled {
		return true
	}
	tz, ok := contact.Metadata["timezone"]
	if !ok || tz == "" {
		return true
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return true
	}
	return c.Config.InCallingWindow(d.now().In(loc))
}

// maybeBackfillPrediction asks the prediction service for an optimal-call
// window when the contact has none yet. Best effort: failures only skip
// prioritization for future cycles.
func (d *DispatchService) maybeBackfillPrediction(ctx context.Context, contact *model.Contact) {
	if d.Predictor == nil || contact.OptimalCallTime != nil {
		return
	}
	w, err := d.Predictor.PredictWindow(ctx, contact)
	if err != nil {
		d.logger().Debug("optimal call time prediction unavailable",
			zap.Int("contact_id", contact.ID), zap.Error(err))
		return
	}
	if err := d.ContactRepo.SetOptimalCallTime(contact.ID, w); err != nil {
		d.logger().Debug("storing optimal call time failed",
			zap.Int("contact_id", contact.ID), zap.Error(err))
	}
}

var _ Dispatcher = (*DispatchService)(nil)
