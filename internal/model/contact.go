// internal/model/contact.go
package model

import "time"

// Contact statuses. pending -> in_progress -> completed|failed, plus the
// monitor's staleness reclaim (in_progress -> failed). Blacklisted contacts
// never leave pending via dispatch.
const (
	ContactPending     = "pending"
	ContactInProgress  = "in_progress"
	ContactCompleted   = "completed"
	ContactFailed      = "failed"
	ContactBlacklisted = "blacklisted"
)

type Contact struct {
	ID              int               `db:"id" json:"id"`
	CampaignID      int               `db:"campaign_id" json:"campaign_id"`
	PhoneNumber     string            `db:"phone_number" json:"phone_number"`
	Metadata        map[string]string `db:"metadata_json" json:"metadata,omitempty"`
	Status          string            `db:"status" json:"status"`
	Attempts        int               `db:"attempts" json:"attempts"`
	LastAttemptAt   *time.Time        `db:"last_attempt_at" json:"last_attempt_at,omitempty"`
	OptimalCallTime *HourWindow       `db:"optimal_call_time_json" json:"optimal_call_time,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       *time.Time        `db:"updated_at" json:"updated_at,omitempty"`
}

// ContactCounts is the per-status aggregate the monitor works from.
type ContactCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}
