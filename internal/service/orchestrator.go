// internal/service/orchestrator.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/callforge/dialer-backend/internal/model"
)

// AdvanceResult is what one stateless advance pass produced. The external
// driver keeps calling Advance until Done, backing off on retryable
// errors.
type AdvanceResult struct {
	CampaignID int          `json:"campaign_id"`
	Status     string       `json:"status"`
	Dispatched int          `json:"dispatched"`
	Check      *CheckResult `json:"check,omitempty"`
	Done       bool         `json:"done"`
}

// Advance is the single entry point the polling driver invokes. It holds
// no memory between calls: every decision is derived from durable state,
// so any invocation is safe to retry.
//
// scheduled + due start time: try to activate (admission-gated).
// active: one dispatch cycle, then a monitoring pass.
// draft/paused: nothing to do until an operator acts.
// completed/cancelled: done.
func (s *CampaignService) Advance(ctx context.Context, campaignID int) (*AdvanceResult, error) {
	c, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	result := &AdvanceResult{CampaignID: campaignID, Status: c.Status}

	switch c.Status {
	case model.StatusCompleted, model.StatusCancelled:
		result.Done = true
		return result, nil

	case model.StatusDraft, model.StatusPaused:
		return result, nil

	case model.StatusScheduled:
		if c.StartTime == nil || c.StartTime.After(time.Now()) {
			return result, nil
		}
		// Start bubbles ResourceExhausted up; the driver retries later.
		if err := s.Start(campaignID); err != nil {
			return nil, err
		}
		result.Status = model.StatusActive
	}

	cycle, err := s.Dispatcher.RunCycle(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	result.Dispatched = cycle.Dispatched

	check, err := s.Monitor.CheckStatus(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	result.Check = check
	result.Status = check.Status
	result.Done = check.Status == model.StatusCompleted || check.Status == model.StatusCancelled

	s.logger().Debug("advance pass",
		zap.Int("campaign_id", campaignID),
		zap.String("status", result.Status),
		zap.Int("dispatched", result.Dispatched),
		zap.Bool("done", result.Done))
	return result, nil
}
