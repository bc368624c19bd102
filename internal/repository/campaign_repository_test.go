package repository_test

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/callforge/dialer-backend/internal/errors"
	"github.com/callforge/dialer-backend/internal/model"
	"github.com/callforge/dialer-backend/internal/repository"
)

func newCampaignRepo(t *testing.T) (*repository.CampaignRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &repository.CampaignRepository{DB: db}, mock
}

func campaignRows(id int, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "type", "status", "config_json", "start_time", "end_time",
		"timezone", "completion_reason", "created_by", "created_at", "updated_at",
	}).AddRow(id, "renewal reminders", "voice", status,
		[]byte(`{"calling_windows":[{"days":["mon"],"start_hour":9,"end_hour":17}],"max_concurrent_calls":5}`),
		nil, nil, "America/New_York", nil, "ops", now, now)
}

func TestGetByIDDecodesConfig(t *testing.T) {
	repo, mock := newCampaignRepo(t)
	mock.ExpectQuery(`SELECT .+ FROM campaigns WHERE id=\$1`).
		WithArgs(7).
		WillReturnRows(campaignRows(7, model.StatusActive))

	c, err := repo.GetByID(7)
	require.NoError(t, err)
	assert.Equal(t, 7, c.ID)
	assert.Equal(t, model.StatusActive, c.Status)
	assert.Equal(t, 5, c.Config.MaxConcurrentCalls)
	require.Len(t, c.Config.CallingWindows, 1)
	assert.Equal(t, 9, c.Config.CallingWindows[0].StartHour)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newCampaignRepo(t)
	mock.ExpectQuery(`SELECT .+ FROM campaigns WHERE id=\$1`).
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(99)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestTransitionStatusWinnerAndLoser(t *testing.T) {
	repo, mock := newCampaignRepo(t)

	mock.ExpectExec(`UPDATE campaigns SET status=\$1, updated_at=NOW\(\) WHERE id=\$2 AND status=\$3`).
		WithArgs(model.StatusPaused, 1, model.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.TransitionStatus(1, model.StatusActive, model.StatusPaused)
	require.NoError(t, err)
	assert.True(t, won)

	// The same update from a stale status touches zero rows.
	mock.ExpectExec(`UPDATE campaigns SET status=\$1, updated_at=NOW\(\) WHERE id=\$2 AND status=\$3`).
		WithArgs(model.StatusPaused, 1, model.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err = repo.TransitionStatus(1, model.StatusActive, model.StatusPaused)
	require.NoError(t, err)
	assert.False(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleAtOnlyFromDraft(t *testing.T) {
	repo, mock := newCampaignRepo(t)
	start := time.Now().Add(time.Hour)

	mock.ExpectExec(`UPDATE campaigns SET status=\$1, start_time=\$2, updated_at=NOW\(\)`).
		WithArgs(model.StatusScheduled, start, 1, model.StatusDraft).
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.ScheduleAt(1, start)
	require.NoError(t, err)
	assert.True(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteWithReason(t *testing.T) {
	repo, mock := newCampaignRepo(t)

	mock.ExpectExec(`UPDATE campaigns SET status=\$1, completion_reason=\$2, updated_at=NOW\(\)`).
		WithArgs(model.StatusCompleted, "all contacts processed", 1, model.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.CompleteWithReason(1, "all contacts processed")
	require.NoError(t, err)
	assert.True(t, won)

	// Losing the race against a concurrent cancel: zero rows.
	mock.ExpectExec(`UPDATE campaigns SET status=\$1, completion_reason=\$2, updated_at=NOW\(\)`).
		WithArgs(model.StatusCompleted, "all contacts processed", 1, model.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err = repo.CompleteWithReason(1, "all contacts processed")
	require.NoError(t, err)
	assert.False(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByStatuses(t *testing.T) {
	repo, mock := newCampaignRepo(t)

	rows := campaignRows(1, model.StatusScheduled)
	now := time.Now()
	rows.AddRow(2, "payment follow-up", "sms", model.StatusActive,
		[]byte(`{}`), nil, nil, "Europe/London", nil, "ops", now, now)

	mock.ExpectQuery(`SELECT .+ FROM campaigns WHERE status = ANY\(\$1\) ORDER BY id ASC`).
		WillReturnRows(rows)

	campaigns, err := repo.ListByStatuses(model.StatusScheduled, model.StatusActive)
	require.NoError(t, err)
	require.Len(t, campaigns, 2)
	assert.Equal(t, model.StatusScheduled, campaigns[0].Status)
	assert.Equal(t, model.StatusActive, campaigns[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReturnsID(t *testing.T) {
	repo, mock := newCampaignRepo(t)

	mock.ExpectQuery(`INSERT INTO campaigns`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	c := &model.Campaign{Name: "service notice", Type: model.TypeHybrid, Timezone: "UTC"}
	require.NoError(t, repo.Create(c))
	assert.Equal(t, 42, c.ID)
	assert.Equal(t, model.StatusDraft, c.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
