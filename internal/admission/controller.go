// internal/admission/controller.go
package admission

import (
	"go.uber.org/zap"

	appErrors "github.com/callforge/dialer-backend/internal/errors"
	"github.com/callforge/dialer-backend/internal/metrics"
	"github.com/callforge/dialer-backend/internal/repository"
)

// Controller caps how many campaigns per resource class may be active at
// once. The check-and-increment is atomic in the store; this layer adds
// the limits and the error shape.
type Controller struct {
	Store  repository.AdmissionStore
	Limits map[string]int // resource class -> max active campaigns
	Logger *zap.Logger
}

func NewController(store repository.AdmissionStore, limits map[string]int, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{Store: store, Limits: limits, Logger: logger}
}

// TryActivate admits the campaign into its resource class or returns
// ResourceExhaustedError. Admission is idempotent per campaign: retrying
// an activation that already holds a grant succeeds without consuming
// another slot.
func (c *Controller) TryActivate(campaignID int, resourceClass string) error {
	limit, ok := c.Limits[resourceClass]
	if !ok {
		return appErrors.NewValidation("unknown resource class %q", resourceClass)
	}

	acquired, current, err := c.Store.TryAcquire(campaignID, resourceClass, limit)
	if err != nil {
		return err
	}
	if !acquired {
		metrics.AdmissionRejected.WithLabelValues(resourceClass).Inc()
		c.Logger.Info("admission rejected",
			zap.Int("campaign_id", campaignID),
			zap.String("resource_class", resourceClass),
			zap.Int("limit", limit),
			zap.Int("current", current))
		return appErrors.NewResourceExhausted(resourceClass, limit, current)
	}
	return nil
}

// Release returns the campaign's slot. Exactly one decrement happens per
// held grant no matter how often this is retried; releasing a campaign
// that holds no grant is a no-op.
func (c *Controller) Release(campaignID int) error {
	released, err := c.Store.Release(campaignID)
	if err != nil {
		return err
	}
	if released {
		c.Logger.Debug("admission slot released", zap.Int("campaign_id", campaignID))
	}
	return nil
}
