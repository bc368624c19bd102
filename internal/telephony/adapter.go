// internal/telephony/adapter.go
package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	appErrors "github.com/callforge/dialer-backend/internal/errors"
)

// DialCommand is what the orchestrator hands to the telephony control
// plane. Audio/IVR execution and call signaling live entirely on the other
// side of this boundary.
type DialCommand struct {
	CallID      string            `json:"call_id"`
	PhoneNumber string            `json:"phone_number"`
	CampaignID  int               `json:"campaign_id"`
	ContactID   int               `json:"contact_id"`
	AudioRef    string            `json:"audio_ref,omitempty"`
	IVRFlow     string            `json:"ivr_flow,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Adapter submits a dial command. A failed or timed-out dial fails only
// that contact; the rest of the batch proceeds.
type Adapter interface {
	Dial(ctx context.Context, cmd DialCommand) error
}

// HTTPAdapter posts dial commands to the control plane with a short
// timeout so one unresponsive call never blocks a batch.
type HTTPAdapter struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPAdapter(baseURL string, timeout time.Duration) *HTTPAdapter {
	return &HTTPAdapter{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (a *HTTPAdapter) Dial(ctx context.Context, cmd DialCommand) error {
	body, err := json.Marshal(cmd)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/dial", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.Client.Do(req)
	if err != nil {
		return appErrors.NewAdapterUnavailable("telephony", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("dial %s rejected: status %d", cmd.CallID, resp.StatusCode)
	}
	return nil
}

var _ Adapter = (*HTTPAdapter)(nil)
