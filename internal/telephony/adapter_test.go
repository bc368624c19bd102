package telephony_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/callforge/dialer-backend/internal/errors"
	"github.com/callforge/dialer-backend/internal/telephony"
)

func command() telephony.DialCommand {
	return telephony.DialCommand{
		CallID:      "c-123",
		PhoneNumber: "+14155550101",
		CampaignID:  1,
		ContactID:   7,
		AudioRef:    "audio/renewal-v2.wav",
		Metadata:    map[string]string{"first_name": "Alice"},
	}
}

func TestDialPostsCommand(t *testing.T) {
	var received telephony.DialCommand
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/dial", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	a := telephony.NewHTTPAdapter(srv.URL, time.Second)
	require.NoError(t, a.Dial(context.Background(), command()))
	assert.Equal(t, "c-123", received.CallID)
	assert.Equal(t, "+14155550101", received.PhoneNumber)
}

func TestDialRejectedByControlPlane(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := telephony.NewHTTPAdapter(srv.URL, time.Second)
	err := a.Dial(context.Background(), command())
	require.Error(t, err)
	assert.False(t, appErrors.IsAdapterUnavailable(err), "a rejection is not an outage")
}

func TestDialUnreachableControlPlane(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately, so the port refuses connections

	a := telephony.NewHTTPAdapter(srv.URL, time.Second)
	err := a.Dial(context.Background(), command())
	require.Error(t, err)
	assert.True(t, appErrors.IsAdapterUnavailable(err))
	assert.True(t, appErrors.IsRetryable(err))
}

func TestDialTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	a := telephony.NewHTTPAdapter(srv.URL, 20*time.Millisecond)
	err := a.Dial(context.Background(), command())
	require.Error(t, err)
	assert.True(t, appErrors.IsAdapterUnavailable(err))
}
