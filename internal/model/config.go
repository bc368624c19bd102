// internal/model/config.go
package model

import (
	"strings"
	"time"

	appErrors "github.com/callforge/dialer-backend/internal/errors"
)

// CallingWindow is a day-of-week set plus a [StartHour, EndHour) range in
// the campaign's local time during which dialing is permitted.
type CallingWindow struct {
	Days      []string `json:"days"`
	StartHour int      `json:"start_hour"`
	EndHour   int      `json:"end_hour"`
}

// HourWindow is the shape of an optimal-call-time prediction: dial this
// contact between StartHour and EndHour local time.
type HourWindow struct {
	StartHour  int     `json:"start_hour"`
	EndHour    int     `json:"end_hour"`
	Confidence float64 `json:"confidence"`
}

// ContainsHour reports whether hour falls inside the window. Windows that
// wrap midnight (e.g. 22-2) are supported.
func (w *HourWindow) ContainsHour(hour int) bool {
	if w == nil {
		return false
	}
	if w.StartHour <= w.EndHour {
		return hour >= w.StartHour && hour < w.EndHour
	}
	return hour >= w.StartHour || hour < w.EndHour
}

// CampaignConfig is the authoring-owned portion of a campaign. The
// orchestrator only reads it.
type CampaignConfig struct {
	CallingWindows     []CallingWindow `json:"calling_windows,omitempty"`
	MaxConcurrentCalls int             `json:"max_concurrent_calls,omitempty"`
	AudioRef           string          `json:"audio_ref,omitempty"`
	IVRFlow            string          `json:"ivr_flow,omitempty"`
	ContactTZEnabled   bool            `json:"contact_tz_enabled,omitempty"`
}

var dayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

func (w CallingWindow) matchesDay(d time.Weekday) bool {
	if len(w.Days) == 0 {
		return true
	}
	for _, name := range w.Days {
		if wd, ok := dayNames[strings.ToLower(strings.TrimSpace(name))]; ok && wd == d {
			return true
		}
	}
	return false
}

func (w CallingWindow) containsHour(hour int) bool {
	if w.StartHour <= w.EndHour {
		return hour >= w.StartHour && hour < w.EndHour
	}
	return hour >= w.StartHour || hour < w.EndHour
}

// InCallingWindow reports whether now (already in the campaign's local
// zone) falls inside any configured calling window. A campaign with no
// windows may dial at any time.
func (c *CampaignConfig) InCallingWindow(now time.Time) bool {
	if len(c.CallingWindows) == 0 {
		return true
	}
	for _, w := range c.CallingWindows {
		if w.matchesDay(now.Weekday()) && w.containsHour(now.Hour()) {
			return true
		}
	}
	return false
}

// Validate checks the authoring invariants the orchestrator depends on.
func (c *CampaignConfig) Validate() error {
	for _, w := range c.CallingWindows {
		if w.StartHour < 0 || w.StartHour > 23 || w.EndHour < 0 || w.EndHour > 24 {
			return appErrors.NewValidation("calling window hours out of range: %d-%d", w.StartHour, w.EndHour)
		}
		for _, d := range w.Days {
			if _, ok := dayNames[strings.ToLower(strings.TrimSpace(d))]; !ok {
				return appErrors.NewValidation("unknown calling window day %q", d)
			}
		}
	}
	return nil
}
