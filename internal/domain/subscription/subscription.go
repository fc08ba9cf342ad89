// Package subscription holds the subscription records shared with the
// dashboard application and the rules that decide which record speaks for a
// user.
package subscription

import (
	"sort"
	"strings"
	"time"
)

// Status is the lifecycle state of a subscription record.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

// Source records how a subscription came to exist.
type Source string

const (
	SourceManual Source = "manual"
	SourceAuto   Source = "auto"
)

// TrialDays is the validity window of an auto-issued trial subscription.
const TrialDays = 7

// Subscription is one payment/plan record. Records are never rewritten in
// place by collaborators; the whole document is replaced, so the struct maps
// 1:1 onto the stored JSON.
type Subscription struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id,omitempty"`
	Username           string     `json:"username,omitempty"`
	PlanID             string     `json:"plan_id,omitempty"`
	PlanName           string     `json:"plan_name,omitempty"`
	DurationDays       int        `json:"duration_days"`
	Price              float64    `json:"price,omitempty"`
	Currency           string     `json:"currency,omitempty"`
	Status             Status     `json:"status"`
	SubmittedAt        time.Time  `json:"submitted_at"`
	StartDate          *time.Time `json:"start_date,omitempty"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	ApprovedAt         *time.Time `json:"approved_at,omitempty"`
	ApprovedBy         string     `json:"approved_by,omitempty"`
	PlaybackDisabledAt *time.Time `json:"playback_disabled_at,omitempty"`
	SlipPath           string     `json:"slip_path,omitempty"`
	Source             Source     `json:"source"`
}

// UserKey returns the stable identity for the record's owner: the upstream
// user id when present, otherwise the lowercased username.
func (s Subscription) UserKey() string {
	if s.UserID != "" {
		return s.UserID
	}
	return strings.ToLower(s.Username)
}

// IsActive reports whether the record grants access right now. Expiry is a
// UTC date comparison, not a timestamp one: a subscription ending today is
// still active.
func (s Subscription) IsActive(now time.Time) bool {
	if s.Status != StatusApproved || s.EndDate == nil {
		return false
	}
	return !dateOf(*s.EndDate).Before(dateOf(now))
}

// IsExpired reports whether an approved record has passed its end date.
func (s Subscription) IsExpired(now time.Time) bool {
	if s.Status != StatusApproved || s.EndDate == nil {
		return false
	}
	return dateOf(*s.EndDate).Before(dateOf(now))
}

// Approve finalizes the record at now. When the user already has an active
// subscription the new window extends from its end date instead of starting
// over; otherwise it starts at now.
func (s *Subscription) Approve(now time.Time, current *Subscription, adminName string) {
	start := now
	if current != nil && current.ID != s.ID && current.IsActive(now) && current.EndDate != nil {
		start = *current.EndDate
	}
	end := start.AddDate(0, 0, s.DurationDays)

	s.Status = StatusApproved
	s.StartDate = &start
	s.EndDate = &end
	s.ApprovedAt = &now
	s.ApprovedBy = adminName
	s.PlaybackDisabledAt = nil
}

// NewTrial builds the single auto-approved trial record issued to users with
// no subscription history.
func NewTrial(id, userID, username string, now time.Time) Subscription {
	end := now.AddDate(0, 0, TrialDays)
	return Subscription{
		ID:           id,
		UserID:       userID,
		Username:     username,
		PlanName:     "Trial",
		DurationDays: TrialDays,
		Status:       StatusApproved,
		SubmittedAt:  now,
		StartDate:    &now,
		EndDate:      &end,
		ApprovedAt:   &now,
		Source:       SourceAuto,
	}
}

// Authoritative picks the record that speaks for a user: the one with the
// latest end date, regardless of status. Records without an end date rank
// below any record that has one and are ordered among themselves by latest
// submission time.
func Authoritative(subs []Subscription) *Subscription {
	var best *Subscription
	for i := range subs {
		c := &subs[i]
		if best == nil || moreAuthoritative(c, best) {
			best = c
		}
	}
	return best
}

// AuthoritativePerUser groups records by user key and keeps the
// authoritative one for each.
func AuthoritativePerUser(subs []Subscription) map[string]Subscription {
	byUser := make(map[string][]Subscription)
	for _, s := range subs {
		key := s.UserKey()
		byUser[key] = append(byUser[key], s)
	}
	out := make(map[string]Subscription, len(byUser))
	for key, group := range byUser {
		out[key] = *Authoritative(group)
	}
	return out
}

// LatestPendingPerUser returns, for each user with pending records, only the
// most recently submitted one. Older pendings for the same user are
// superseded and must not surface as separate notifications.
func LatestPendingPerUser(subs []Subscription) []Subscription {
	latest := make(map[string]Subscription)
	for _, s := range subs {
		if s.Status != StatusPending {
			continue
		}
		key := s.UserKey()
		if cur, ok := latest[key]; !ok || s.SubmittedAt.After(cur.SubmittedAt) {
			latest[key] = s
		}
	}
	out := make([]Subscription, 0, len(latest))
	for _, s := range latest {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out
}

// SupersedePending marks every other pending record of the same user as
// rejected. Called when one record is approved or rejected so a user never
// carries two live applications. Returns the ids that were changed.
func SupersedePending(subs []Subscription, approvedID string) []string {
	approved := find(subs, approvedID)
	if approved == nil {
		return nil
	}
	key := approved.UserKey()
	var changed []string
	for i := range subs {
		s := &subs[i]
		if s.ID == approvedID || s.UserKey() != key {
			continue
		}
		if s.Status == StatusPending {
			s.Status = StatusRejected
			changed = append(changed, s.ID)
		}
	}
	return changed
}

// Find returns a pointer into subs for the record with the given id, or nil.
func Find(subs []Subscription, id string) *Subscription {
	return find(subs, id)
}

func find(subs []Subscription, id string) *Subscription {
	for i := range subs {
		if subs[i].ID == id {
			return &subs[i]
		}
	}
	return nil
}

// HasAnyForUser reports whether the user key owns at least one record of any
// status. Used as the trial guard: once a user has history, trials never
// re-fire.
func HasAnyForUser(subs []Subscription, userKey string) bool {
	for _, s := range subs {
		if s.UserKey() == userKey {
			return true
		}
	}
	return false
}

func moreAuthoritative(a, b *Subscription) bool {
	switch {
	case a.EndDate != nil && b.EndDate == nil:
		return true
	case a.EndDate == nil && b.EndDate != nil:
		return false
	case a.EndDate != nil && b.EndDate != nil && !a.EndDate.Equal(*b.EndDate):
		return a.EndDate.After(*b.EndDate)
	default:
		return a.SubmittedAt.After(b.SubmittedAt)
	}
}

func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
