package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/callforge/dialer-backend/internal/errors"
	"github.com/callforge/dialer-backend/internal/model"
	"github.com/callforge/dialer-backend/internal/queue"
	"github.com/callforge/dialer-backend/internal/service"
)

// fullService wires the real dispatcher and monitor behind the in-memory
// repos so Advance can be exercised end to end.
func fullService(campaignRepo *memCampaignRepo, contactRepo *memContactRepo, admission *stubAdmission, q queue.Queue) *service.CampaignService {
	svc := &service.CampaignService{
		CampaignRepo: campaignRepo,
		ContactRepo:  contactRepo,
		Admission:    admission,
	}
	svc.Dispatcher = &service.DispatchService{
		CampaignRepo: campaignRepo,
		ContactRepo:  contactRepo,
		Queue:        q,
		BatchSize:    10,
		Topic:        testTopic,
	}
	svc.Monitor = &service.MonitorService{
		CampaignRepo: campaignRepo,
		ContactRepo:  contactRepo,
		Admission:    admission,
	}
	return svc
}

func TestAdvanceActivatesDueScheduledCampaign(t *testing.T) {
	c := voiceCampaign(model.StatusScheduled)
	due := time.Now().Add(-time.Minute)
	c.StartTime = &due

	campaignRepo := newMemCampaignRepo(c)
	contactRepo := newMemContactRepo(pendingContacts(1, 2)...)
	q := queue.NewInMemoryQueue()
	svc := fullService(campaignRepo, contactRepo, &stubAdmission{}, q)

	result, err := svc.Advance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, result.Status)
	assert.Equal(t, 2, result.Dispatched)
	assert.False(t, result.Done)
	assert.Equal(t, 2, q.Len(testTopic))
}

func TestAdvanceLeavesFutureScheduledAlone(t *testing.T) {
	c := voiceCampaign(model.StatusScheduled)
	future := time.Now().Add(time.Hour)
	c.StartTime = &future

	campaignRepo := newMemCampaignRepo(c)
	svc := fullService(campaignRepo, newMemContactRepo(), &stubAdmission{}, queue.NewInMemoryQueue())

	result, err := svc.Advance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusScheduled, result.Status)
	assert.Equal(t, 0, result.Dispatched)
	assert.Equal(t, model.StatusScheduled, campaignRepo.status(1))
}

func TestAdvanceBubblesAdmissionDenial(t *testing.T) {
	c := voiceCampaign(model.StatusScheduled)
	due := time.Now().Add(-time.Minute)
	c.StartTime = &due

	campaignRepo := newMemCampaignRepo(c)
	svc := fullService(campaignRepo, newMemContactRepo(), &stubAdmission{reject: true}, queue.NewInMemoryQueue())

	_, err := svc.Advance(context.Background(), 1)
	assert.True(t, appErrors.IsResourceExhausted(err))
	assert.Equal(t, model.StatusScheduled, campaignRepo.status(1),
		"a denied campaign stays scheduled for the next poll")
}

func TestAdvanceTerminalIsDone(t *testing.T) {
	for _, status := range []string{model.StatusCompleted, model.StatusCancelled} {
		t.Run(status, func(t *testing.T) {
			campaignRepo := newMemCampaignRepo(voiceCampaign(status))
			svc := fullService(campaignRepo, newMemContactRepo(), &stubAdmission{}, queue.NewInMemoryQueue())

			result, err := svc.Advance(context.Background(), 1)
			require.NoError(t, err)
			assert.True(t, result.Done)
			assert.Equal(t, 0, result.Dispatched)
		})
	}
}

func TestAdvanceDraftAndPausedAreNoOps(t *testing.T) {
	for _, status := range []string{model.StatusDraft, model.StatusPaused} {
		t.Run(status, func(t *testing.T) {
			campaignRepo := newMemCampaignRepo(voiceCampaign(status))
			contactRepo := newMemContactRepo(pendingContacts(1, 2)...)
			q := queue.NewInMemoryQueue()
			svc := fullService(campaignRepo, contactRepo, &stubAdmission{}, q)

			result, err := svc.Advance(context.Background(), 1)
			require.NoError(t, err)
			assert.False(t, result.Done)
			assert.Equal(t, 0, q.Len(testTopic))
			assert.Equal(t, status, campaignRepo.status(1))
		})
	}
}

// Repeated Advance calls drive a campaign from scheduled to completed as
// outcomes arrive, without any state held between calls.
func TestAdvanceDrivesCampaignToCompletion(t *testing.T) {
	c := voiceCampaign(model.StatusScheduled)
	due := time.Now().Add(-time.Minute)
	c.StartTime = &due

	campaignRepo := newMemCampaignRepo(c)
	contactRepo := newMemContactRepo(pendingContacts(1, 3)...)
	q := queue.NewInMemoryQueue()
	svc := fullService(campaignRepo, contactRepo, &stubAdmission{}, q)

	ctx := context.Background()

	result, err := svc.Advance(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 3, result.Dispatched)
	require.False(t, result.Done)

	// Telephony outcomes land for every dispatched task.
	for _, task := range q.Drain(testTopic) {
		require.NoError(t, svc.RecordCallOutcome(task.ContactID, model.ContactCompleted))
	}

	result, err = svc.Advance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, result.Done)
	assert.Equal(t, model.StatusCompleted, result.Status)
	require.NotNil(t, result.Check)
	assert.Equal(t, service.ReasonAllProcessed, result.Check.CompletionReason)
}
