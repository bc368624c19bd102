// internal/model/dial_task.go
package model

// DialTask is the queue message handed from the dispatcher to the dial
// worker. Delivery is at-least-once; the conditional contact claim keeps
// dispatch at-most-once per cycle.
type DialTask struct {
	CampaignID  int               `json:"campaign_id"`
	ContactID   int               `json:"contact_id"`
	PhoneNumber string            `json:"phone_number"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Attempts    int               `json:"attempts"`
}
