// internal/repository/admission_repository.go
package repository

import (
	"database/sql"
)

// AdmissionStore is the shared counter the admission controller checks and
// increments atomically. The grants table is the idempotency ledger: one
// row per admitted campaign, so retried activations and releases settle to
// exactly one increment/decrement per campaign.
type AdmissionStore interface {
	// TryAcquire atomically grants a slot in the resource class if fewer
	// than limit are held. Re-acquiring for a campaign that already holds a
	// grant succeeds without consuming another slot.
	TryAcquire(campaignID int, resourceClass string, limit int) (acquired bool, current int, err error)

	// Release returns the campaign's slot. Releasing a campaign with no
	// grant is a no-op (false, nil).
	Release(campaignID int) (released bool, err error)

	ActiveCount(resourceClass string) (int, error)
}

type AdmissionRepository struct {
	DB *sql.DB
}

func (r *AdmissionRepository) TryAcquire(campaignID int, resourceClass string, limit int) (bool, int, error) {
	tx, err := r.DB.Begin()
	if err != nil {
		return false, 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
        INSERT INTO admission_grants (campaign_id, resource_class, granted_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (campaign_id) DO NOTHING
    `, campaignID, resourceClass)
	if err != nil {
		return false, 0, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, 0, err
	}
	if inserted == 0 {
		// Retried activation: the grant is already held.
		if err := tx.Commit(); err != nil {
			return false, 0, err
		}
		return true, 0, nil
	}

	// The guarded increment is the actual admission decision. No separate
	// COUNT: check and increment are one statement.
	res, err = tx.Exec(`
        UPDATE admission_counters SET active = active + 1
        WHERE resource_class = $1 AND active < $2
    `, resourceClass, limit)
	if err != nil {
		return false, 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, 0, err
	}
	if n == 0 {
		var current int
		if err := tx.QueryRow(`SELECT active FROM admission_counters WHERE resource_class=$1`,
			resourceClass).Scan(&current); err != nil && err != sql.ErrNoRows {
			return false, 0, err
		}
		// Rollback drops the grant row too.
		return false, current, nil
	}

	if err := tx.Commit(); err != nil {
		return false, 0, err
	}
	return true, 0, nil
}

func (r *AdmissionRepository) Release(campaignID int) (bool, error) {
	tx, err := r.DB.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var resourceClass string
	err = tx.QueryRow(`
        DELETE FROM admission_grants WHERE campaign_id=$1 RETURNING resource_class
    `, campaignID).Scan(&resourceClass)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}

	if _, err := tx.Exec(`
        UPDATE admission_counters SET active = GREATEST(active - 1, 0)
        WHERE resource_class = $1
    `, resourceClass); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *AdmissionRepository) ActiveCount(resourceClass string) (int, error) {
	var n int
	err := r.DB.QueryRow(`SELECT active FROM admission_counters WHERE resource_class=$1`, resourceClass).Scan(&n)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

var _ AdmissionStore = (*AdmissionRepository)(nil)
