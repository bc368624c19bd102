// internal/model/blacklist.go
package model

import "time"

// BlacklistEntry is read-only to the orchestrator; the list is maintained
// by compliance tooling upstream.
type BlacklistEntry struct {
	PhoneNumber string    `db:"phone_number" json:"phone_number"`
	AddedAt     time.Time `db:"added_at" json:"added_at"`
	Reason      string    `db:"reason" json:"reason"`
	Source      string    `db:"source" json:"source"`
}
