// internal/repository/blacklist_repository.go
package repository

import (
	"database/sql"

	"github.com/callforge/dialer-backend/internal/model"
)

type BlacklistRepositoryInterface interface {
	Contains(phoneNumber string) (bool, error)
	GetEntry(phoneNumber string) (*model.BlacklistEntry, error)
}

type BlacklistRepository struct {
	DB *sql.DB
}

// Contains checks the do-not-call list. Callers degrade to "not
// blacklisted" on error rather than blocking dispatch; the dispatcher's
// eligibility query also joins against this table.
func (r *BlacklistRepository) Contains(phoneNumber string) (bool, error) {
	var one int
	err := r.DB.QueryRow(`SELECT 1 FROM blacklist WHERE phone_number=$1`, phoneNumber).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *BlacklistRepository) GetEntry(phoneNumber string) (*model.BlacklistEntry, error) {
	query := `SELECT phone_number, added_at, reason, source FROM blacklist WHERE phone_number=$1`
	var e model.BlacklistEntry
	err := r.DB.QueryRow(query, phoneNumber).Scan(&e.PhoneNumber, &e.AddedAt, &e.Reason, &e.Source)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

var _ BlacklistRepositoryInterface = (*BlacklistRepository)(nil)
