package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func TestUserKey(t *testing.T) {
	assert.Equal(t, "u1", Subscription{UserID: "u1", Username: "Alice"}.UserKey())
	assert.Equal(t, "alice", Subscription{Username: "Alice"}.UserKey())
}

func TestIsActiveEndDateIsInclusive(t *testing.T) {
	now := time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC)

	s := Subscription{Status: StatusApproved, EndDate: datePtr(2024, 3, 10)}
	assert.True(t, s.IsActive(now), "subscription ending today is still active")

	s.EndDate = datePtr(2024, 3, 9)
	assert.False(t, s.IsActive(now))
	assert.True(t, s.IsExpired(now))

	s.Status = StatusPending
	assert.False(t, s.IsActive(now))
	assert.False(t, s.IsExpired(now), "only approved records expire")
}

func TestApproveStartsNowWithoutActiveCurrent(t *testing.T) {
	now := date(2024, 2, 1)
	s := Subscription{ID: "s1", DurationDays: 30, Status: StatusPending}

	s.Approve(now, nil, "admin")

	assert.Equal(t, StatusApproved, s.Status)
	assert.Equal(t, now, *s.StartDate)
	assert.Equal(t, date(2024, 3, 2), *s.EndDate)
	assert.Equal(t, "admin", s.ApprovedBy)
}

func TestApproveExtendsFromActiveEndDate(t *testing.T) {
	now := date(2024, 2, 1)
	current := Subscription{
		ID:      "old",
		Status:  StatusApproved,
		EndDate: datePtr(2024, 2, 20),
	}
	s := Subscription{ID: "new", DurationDays: 30, Status: StatusPending}

	s.Approve(now, &current, "admin")

	assert.Equal(t, date(2024, 2, 20), *s.StartDate)
	assert.Equal(t, date(2024, 3, 21), *s.EndDate)
}

func TestApproveIgnoresExpiredCurrent(t *testing.T) {
	now := date(2024, 2, 1)
	current := Subscription{
		ID:      "old",
		Status:  StatusApproved,
		EndDate: datePtr(2024, 1, 15),
	}
	s := Subscription{ID: "new", DurationDays: 7}

	s.Approve(now, &current, "admin")

	assert.Equal(t, now, *s.StartDate)
	assert.Equal(t, date(2024, 2, 8), *s.EndDate)
}

func TestApproveClearsPlaybackDisabledAt(t *testing.T) {
	now := date(2024, 2, 1)
	s := Subscription{ID: "s1", DurationDays: 7, PlaybackDisabledAt: datePtr(2024, 1, 1)}

	s.Approve(now, nil, "admin")

	assert.Nil(t, s.PlaybackDisabledAt)
}

func TestAuthoritativePrefersLatestEndDate(t *testing.T) {
	subs := []Subscription{
		{ID: "a", UserID: "u1", Status: StatusExpired, EndDate: datePtr(2024, 5, 1)},
		{ID: "b", UserID: "u1", Status: StatusApproved, EndDate: datePtr(2024, 3, 1)},
	}
	got := Authoritative(subs)
	assert.Equal(t, "a", got.ID, "latest end date wins regardless of status")
}

func TestAuthoritativeEndDateOutranksNone(t *testing.T) {
	subs := []Subscription{
		{ID: "a", UserID: "u1", Status: StatusPending, SubmittedAt: date(2024, 6, 1)},
		{ID: "b", UserID: "u1", Status: StatusApproved, EndDate: datePtr(2024, 1, 1), SubmittedAt: date(2024, 1, 1)},
	}
	assert.Equal(t, "b", Authoritative(subs).ID)
}

func TestAuthoritativeTieBreaksOnSubmittedAt(t *testing.T) {
	subs := []Subscription{
		{ID: "a", UserID: "u1", SubmittedAt: date(2024, 1, 1)},
		{ID: "b", UserID: "u1", SubmittedAt: date(2024, 2, 1)},
	}
	assert.Equal(t, "b", Authoritative(subs).ID)
}

func TestLatestPendingPerUser(t *testing.T) {
	subs := []Subscription{
		{ID: "a", UserID: "u1", Status: StatusPending, SubmittedAt: date(2024, 1, 1)},
		{ID: "b", UserID: "u1", Status: StatusPending, SubmittedAt: date(2024, 2, 1)},
		{ID: "c", UserID: "u2", Status: StatusApproved, SubmittedAt: date(2024, 3, 1)},
		{ID: "d", UserID: "u2", Status: StatusPending, SubmittedAt: date(2024, 1, 15)},
	}

	got := LatestPendingPerUser(subs)

	assert.Len(t, got, 2)
	ids := []string{got[0].ID, got[1].ID}
	assert.Contains(t, ids, "b")
	assert.Contains(t, ids, "d")
}

func TestSupersedePending(t *testing.T) {
	subs := []Subscription{
		{ID: "a", UserID: "u1", Status: StatusPending},
		{ID: "b", UserID: "u1", Status: StatusPending},
		{ID: "c", UserID: "u1", Status: StatusApproved},
		{ID: "d", UserID: "u2", Status: StatusPending},
	}

	changed := SupersedePending(subs, "b")

	assert.Equal(t, []string{"a"}, changed)
	assert.Equal(t, StatusRejected, subs[0].Status)
	assert.Equal(t, StatusPending, subs[1].Status, "the winning record is untouched")
	assert.Equal(t, StatusApproved, subs[2].Status)
	assert.Equal(t, StatusPending, subs[3].Status, "other users are untouched")
}

func TestHasAnyForUser(t *testing.T) {
	subs := []Subscription{
		{ID: "a", UserID: "u1", Status: StatusRejected},
	}
	assert.True(t, HasAnyForUser(subs, "u1"), "any status counts as history")
	assert.False(t, HasAnyForUser(subs, "u2"))
}

func TestNewTrial(t *testing.T) {
	now := date(2024, 4, 1)
	tr := NewTrial("t1", "u1", "alice", now)

	assert.Equal(t, StatusApproved, tr.Status)
	assert.Equal(t, SourceAuto, tr.Source)
	assert.Equal(t, date(2024, 4, 8), *tr.EndDate)
	assert.True(t, tr.IsActive(now))
}
