// internal/repository/contact_repository.go
package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	appErrors "github.com/callforge/dialer-backend/internal/errors"
	"github.com/callforge/dialer-backend/internal/model"
)

type ContactRepositoryInterface interface {
	GetByID(id int) (*model.Contact, error)

	// SelectEligible returns up to limit pending contacts for the campaign
	// whose number is not blacklisted, contacts whose optimal-call-time
	// window contains localHour first, then FIFO by creation.
	SelectEligible(campaignID, localHour, limit int) ([]*model.Contact, error)

	// ClaimPending is the conditional pending -> in_progress update. False
	// means another cycle already claimed the contact.
	ClaimPending(contactID int) (bool, error)

	// ReclaimStale forces contacts stuck in_progress longer than olderThan
	// to failed and returns how many were reclaimed.
	ReclaimStale(campaignID int, olderThan time.Duration) (int64, error)

	CountByStatus(campaignID int) (model.ContactCounts, error)

	// RecordOutcome is the conditional in_progress -> completed|failed
	// update driven by the telephony plane's outcome callback.
	RecordOutcome(contactID int, outcome string) (bool, error)

	SetOptimalCallTime(contactID int, w *model.HourWindow) error
}

type ContactRepository struct {
	DB *sql.DB
}

const contactColumns = `c.id, c.campaign_id, c.phone_number, c.metadata_json, c.status, c.attempts, c.last_attempt_at, c.optimal_call_time_json, c.created_at, c.updated_at`

func scanContact(row interface{ Scan(...any) error }) (*model.Contact, error) {
	var c model.Contact
	var meta, optimal []byte
	err := row.Scan(&c.ID, &c.CampaignID, &c.PhoneNumber, &meta, &c.Status,
		&c.Attempts, &c.LastAttemptAt, &optimal, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &c.Metadata); err != nil {
			return nil, fmt.Errorf("decode contact %d metadata: %w", c.ID, err)
		}
	}
	if len(optimal) > 0 {
		var w model.HourWindow
		if err := json.Unmarshal(optimal, &w); err != nil {
			return nil, fmt.Errorf("decode contact %d optimal call time: %w", c.ID, err)
		}
		c.OptimalCallTime = &w
	}
	return &c, nil
}

func (r *ContactRepository) GetByID(id int) (*model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts c WHERE c.id=$1`
	c, err := scanContact(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewContactNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *ContactRepository) SelectEligible(campaignID, localHour, limit int) ([]*model.Contact, error) {
	// The CASE ranks contacts whose predicted hour window contains the
	// current local hour ahead of the rest; windows may wrap midnight.
	query := `
        SELECT ` + contactColumns + `
        FROM contacts c
        LEFT JOIN blacklist b ON b.phone_number = c.phone_number
        WHERE c.campaign_id = $1
          AND c.status = 'pending'
          AND b.phone_number IS NULL
        ORDER BY
          CASE WHEN c.optimal_call_time_json IS NOT NULL AND (
            CASE WHEN (c.optimal_call_time_json->>'start_hour')::int <= (c.optimal_call_time_json->>'end_hour')::int
                 THEN $2 >= (c.optimal_call_time_json->>'start_hour')::int
                  AND $2 <  (c.optimal_call_time_json->>'end_hour')::int
                 ELSE $2 >= (c.optimal_call_time_json->>'start_hour')::int
                   OR $2 <  (c.optimal_call_time_json->>'end_hour')::int
            END
          ) THEN 0 ELSE 1 END,
          c.created_at ASC
        LIMIT $3
    `
	rows, err := r.DB.Query(query, campaignID, localHour, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []*model.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (r *ContactRepository) ClaimPending(contactID int) (bool, error) {
	query := `
        UPDATE contacts
        SET status=$1, attempts=attempts+1, last_attempt_at=NOW(), updated_at=NOW()
        WHERE id=$2 AND status=$3
    `
	res, err := r.DB.Exec(query, model.ContactInProgress, contactID, model.ContactPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ContactRepository) ReclaimStale(campaignID int, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	query := `
        UPDATE contacts
        SET status=$1, updated_at=NOW()
        WHERE campaign_id=$2 AND status=$3 AND last_attempt_at < $4
    `
	res, err := r.DB.Exec(query, model.ContactFailed, campaignID, model.ContactInProgress, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *ContactRepository) CountByStatus(campaignID int) (model.ContactCounts, error) {
	query := `SELECT status, COUNT(*) FROM contacts WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return model.ContactCounts{}, err
	}
	defer rows.Close()

	var counts model.ContactCounts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return model.ContactCounts{}, err
		}
		switch status {
		case model.ContactPending:
			counts.Pending = n
		case model.ContactInProgress:
			counts.InProgress = n
		case model.ContactCompleted:
			counts.Completed = n
		case model.ContactFailed:
			counts.Failed = n
		}
		counts.Total += n
	}
	return counts, rows.Err()
}

func (r *ContactRepository) RecordOutcome(contactID int, outcome string) (bool, error) {
	if outcome != model.ContactCompleted && outcome != model.ContactFailed {
		return false, appErrors.NewValidation("invalid contact outcome %q", outcome)
	}
	query := `
        UPDATE contacts SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status=$3
    `
	res, err := r.DB.Exec(query, outcome, contactID, model.ContactInProgress)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ContactRepository) SetOptimalCallTime(contactID int, w *model.HourWindow) error {
	payload, err := json.Marshal(w)
	if err != nil {
		return err
	}
	query := `UPDATE contacts SET optimal_call_time_json=$1, updated_at=NOW() WHERE id=$2`
	_, err = r.DB.Exec(query, payload, contactID)
	return err
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
