// internal/model/campaign.go
package model

import "time"

// Campaign statuses. Transitions between them are owned by the
// service layer; nothing else writes campaigns.status.
const (
	StatusDraft     = "draft"
	StatusScheduled = "scheduled"
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Campaign types.
const (
	TypeVoice  = "voice"
	TypeSMS    = "sms"
	TypeHybrid = "hybrid"
)

// Resource classes for admission control. Hybrid campaigns hold voice
// capacity because they can place calls.
const (
	ResourceClassVoice = "voice"
	ResourceClassSMS   = "sms"
)

type Campaign struct {
	ID               int            `db:"id" json:"id"`
	Name             string         `db:"name" json:"name"`
	Type             string         `db:"type" json:"type"`
	Status           string         `db:"status" json:"status"`
	Config           CampaignConfig `db:"config_json" json:"config"`
	StartTime        *time.Time     `db:"start_time" json:"start_time,omitempty"`
	EndTime          *time.Time     `db:"end_time" json:"end_time,omitempty"`
	Timezone         string         `db:"timezone" json:"timezone"`
	CompletionReason string         `db:"completion_reason" json:"completion_reason,omitempty"`
	CreatedBy        string         `db:"created_by" json:"created_by"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

// ResourceClass maps the campaign type onto the admission resource class.
func (c *Campaign) ResourceClass() string {
	if c.Type == TypeSMS {
		return ResourceClassSMS
	}
	return ResourceClassVoice
}

// IsTerminal reports whether no further transitions are possible.
func (c *Campaign) IsTerminal() bool {
	return c.Status == StatusCompleted || c.Status == StatusCancelled
}

// Location resolves the campaign timezone, falling back to UTC.
func (c *Campaign) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
