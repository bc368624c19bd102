package service_test

import (
	"sort"
	"sync"
	"time"

	appErrors "github.com/callforge/dialer-backend/internal/errors"
	"github.com/callforge/dialer-backend/internal/model"
)

// memCampaignRepo is an in-memory CampaignRepositoryInterface with the
// same conditional-update semantics as the SQL implementation.
type memCampaignRepo struct {
	mu        sync.Mutex
	nextID    int
	campaigns map[int]*model.Campaign
}

func newMemCampaignRepo(campaigns ...*model.Campaign) *memCampaignRepo {
	r := &memCampaignRepo{campaigns: map[int]*model.Campaign{}, nextID: 1}
	for _, c := range campaigns {
		cp := *c
		if cp.ID == 0 {
			cp.ID = r.nextID
		}
		r.campaigns[cp.ID] = &cp
		if cp.ID >= r.nextID {
			r.nextID = cp.ID + 1
		}
	}
	return r
}

func (r *memCampaignRepo) Create(c *model.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.nextID
	r.nextID++
	c.CreatedAt = time.Now()
	cp := *c
	r.campaigns[c.ID] = &cp
	return nil
}

func (r *memCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (r *memCampaignRepo) ListCampaigns(offset, limit int, ctype, status string) ([]*model.Campaign, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := []*model.Campaign{}
	for _, c := range r.campaigns {
		if ctype != "" && c.Type != ctype {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		cp := *c
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	if offset > total {
		return []*model.Campaign{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *memCampaignRepo) ListByStatuses(statuses ...string) ([]*model.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Campaign{}
	for _, c := range r.campaigns {
		for _, s := range statuses {
			if c.Status == s {
				cp := *c
				out = append(out, &cp)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memCampaignRepo) TransitionStatus(campaignID int, from, to string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[campaignID]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	return true, nil
}

func (r *memCampaignRepo) ScheduleAt(campaignID int, startTime time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[campaignID]
	if !ok || c.Status != model.StatusDraft {
		return false, nil
	}
	c.Status = model.StatusScheduled
	c.StartTime = &startTime
	return true, nil
}

func (r *memCampaignRepo) CompleteWithReason(campaignID int, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[campaignID]
	if !ok || c.Status != model.StatusActive {
		return false, nil
	}
	c.Status = model.StatusCompleted
	c.CompletionReason = reason
	return true, nil
}

func (r *memCampaignRepo) status(id int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.campaigns[id].Status
}

// memContactRepo is an in-memory ContactRepositoryInterface mirroring the
// SQL eligibility and claim semantics.
type memContactRepo struct {
	mu        sync.Mutex
	contacts  map[int]*model.Contact
	blacklist map[string]bool
}

func newMemContactRepo(contacts ...*model.Contact) *memContactRepo {
	r := &memContactRepo{contacts: map[int]*model.Contact{}, blacklist: map[string]bool{}}
	for _, c := range contacts {
		cp := *c
		r.contacts[cp.ID] = &cp
	}
	return r
}

func (r *memContactRepo) GetByID(id int) (*model.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contacts[id]
	if !ok {
		return nil, appErrors.NewContactNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (r *memContactRepo) SelectEligible(campaignID, localHour, limit int) ([]*model.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	eligible := []*model.Contact{}
	for _, c := range r.contacts {
		if c.CampaignID != campaignID || c.Status != model.ContactPending {
			continue
		}
		if r.blacklist[c.PhoneNumber] {
			continue
		}
		cp := *c
		eligible = append(eligible, &cp)
	}
	sort.Slice(eligible, func(i, j int) bool {
		pi := eligible[i].OptimalCallTime.ContainsHour(localHour)
		pj := eligible[j].OptimalCallTime.ContainsHour(localHour)
		if pi != pj {
			return pi
		}
		return eligible[i].ID < eligible[j].ID
	})
	if len(eligible) > limit {
		eligible = eligible[:limit]
	}
	return eligible, nil
}

func (r *memContactRepo) ClaimPending(contactID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contacts[contactID]
	if !ok || c.Status != model.ContactPending {
		return false, nil
	}
	now := time.Now()
	c.Status = model.ContactInProgress
	c.Attempts++
	c.LastAttemptAt = &now
	return true, nil
}

func (r *memContactRepo) ReclaimStale(campaignID int, olderThan time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var n int64
	for _, c := range r.contacts {
		if c.CampaignID != campaignID || c.Status != model.ContactInProgress {
			continue
		}
		if c.LastAttemptAt != nil && c.LastAttemptAt.Before(cutoff) {
			c.Status = model.ContactFailed
			n++
		}
	}
	return n, nil
}

func (r *memContactRepo) CountByStatus(campaignID int) (model.ContactCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var counts model.ContactCounts
	for _, c := range r.contacts {
		if c.CampaignID != campaignID {
			continue
		}
		switch c.Status {
		case model.ContactPending:
			counts.Pending++
		case model.ContactInProgress:
			counts.InProgress++
		case model.ContactCompleted:
			counts.Completed++
		case model.ContactFailed:
			counts.Failed++
		}
		counts.Total++
	}
	return counts, nil
}

func (r *memContactRepo) RecordOutcome(contactID int, outcome string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contacts[contactID]
	if !ok || c.Status != model.ContactInProgress {
		return false, nil
	}
	c.Status = outcome
	return true, nil
}

func (r *memContactRepo) SetOptimalCallTime(contactID int, w *model.HourWindow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.contacts[contactID]; ok {
		c.OptimalCallTime = w
	}
	return nil
}

func (r *memContactRepo) status(id int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.contacts[id].Status
}

// stubAdmission either admits everything or rejects everything, and
// records releases.
type stubAdmission struct {
	mu       sync.Mutex
	reject   bool
	admitted []int
	released []int
}

func (a *stubAdmission) TryActivate(campaignID int, resourceClass string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.reject {
		return appErrors.NewResourceExhausted(resourceClass, 1, 1)
	}
	a.admitted = append(a.admitted, campaignID)
	return nil
}

func (a *stubAdmission) Release(campaignID int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.released = append(a.released, campaignID)
	return nil
}
