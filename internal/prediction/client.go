// internal/prediction/client.go
package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/callforge/dialer-backend/internal/model"
)

// Predictor produces an optimal-call-time window for a contact. Strictly
// best-effort: any error just skips prioritization for that contact.
type Predictor interface {
	PredictWindow(ctx context.Context, contact *model.Contact) (*model.HourWindow, error)
}

type HTTPClient struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) PredictWindow(ctx context.Context, contact *model.Contact) (*model.HourWindow, error) {
	payload, err := json.Marshal(map[string]any{
		"phone_number": contact.PhoneNumber,
		"metadata":     contact.Metadata,
		"attempts":     contact.Attempts,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prediction service: status %d", resp.StatusCode)
	}

	var w model.HourWindow
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return nil, err
	}
	return &w, nil
}

var _ Predictor = (*HTTPClient)(nil)
