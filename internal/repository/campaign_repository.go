// internal/repository/campaign_repository.go
package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/callforge/dialer-backend/internal/errors"
	"github.com/callforge/dialer-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	GetByID(id int) (*model.Campaign, error)
	ListCampaigns(offset, limit int, ctype, status string) ([]*model.Campaign, int, error)
	ListByStatuses(statuses ...string) ([]*model.Campaign, error)

	// TransitionStatus is a single-row conditional update. It reports
	// whether this caller won the transition; zero rows affected means a
	// concurrent writer got there first or the campaign left `from`.
	TransitionStatus(campaignID int, from, to string) (bool, error)
	ScheduleAt(campaignID int, startTime time.Time) (bool, error)
	CompleteWithReason(campaignID int, reason string) (bool, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, name, type, status, config_json, start_time, end_time, timezone, completion_reason, created_by, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (*model.Campaign, error) {
	var c model.Campaign
	var cfg []byte
	var reason sql.NullString
	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.Status, &cfg, &c.StartTime, &c.EndTime,
		&c.Timezone, &reason, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if reason.Valid {
		c.CompletionReason = reason.String
	}
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &c.Config); err != nil {
			return nil, fmt.Errorf("decode campaign %d config: %w", c.ID, err)
		}
	}
	return &c, nil
}

func (r *CampaignRepository) Create(c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.StatusDraft
	}
	cfg, err := json.Marshal(c.Config)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO campaigns (name, type, status, config_json, start_time, end_time, timezone, created_by, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id
    `
	return r.DB.QueryRow(query, c.Name, c.Type, c.Status, cfg, c.StartTime, c.EndTime,
		c.Timezone, c.CreatedBy, c.CreatedAt).Scan(&c.ID)
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) ListCampaigns(offset, limit int, ctype, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
	args := []any{}
	argPos := 1

	if ctype != "" {
		query += fmt.Sprintf(" AND type=$%d", argPos)
		args = append(args, ctype)
		argPos++
	}
	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	argsCount := []any{}
	argPosCount := 1
	if ctype != "" {
		countQuery += fmt.Sprintf(" AND type=$%d", argPosCount)
		argsCount = append(argsCount, ctype)
		argPosCount++
	}
	if status != "" {
		countQuery += fmt.Sprintf(" AND status=$%d", argPosCount)
		argsCount = append(argsCount, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

// ListByStatuses returns campaigns in any of the given statuses, oldest
// first. The advance driver polls with this.
func (r *CampaignRepository) ListByStatuses(statuses ...string) ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE status = ANY($1) ORDER BY id ASC`

	rows, err := r.DB.Query(query, pq.Array(statuses))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *CampaignRepository) TransitionStatus(campaignID int, from, to string) (bool, error) {
	query := `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
	res, err := r.DB.Exec(query, to, campaignID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ScheduleAt moves draft -> scheduled and records the start time in the
// same conditional update.
func (r *CampaignRepository) ScheduleAt(campaignID int, startTime time.Time) (bool, error) {
	query := `
        UPDATE campaigns SET status=$1, start_time=$2, updated_at=NOW()
        WHERE id=$3 AND status=$4
    `
	res, err := r.DB.Exec(query, model.StatusScheduled, startTime, campaignID, model.StatusDraft)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CompleteWithReason moves active -> completed and records the completion
// reason for observability. Only the monitor calls this.
func (r *CampaignRepository) CompleteWithReason(campaignID int, reason string) (bool, error) {
	query := `
        UPDATE campaigns SET status=$1, completion_reason=$2, updated_at=NOW()
        WHERE id=$3 AND status=$4
    `
	res, err := r.DB.Exec(query, model.StatusCompleted, reason, campaignID, model.StatusActive)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
