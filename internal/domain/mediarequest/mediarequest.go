// Package mediarequest models the content requests users submit through the
// dashboard and the workflow engine approves into the download managers.
package mediarequest

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// MediaType distinguishes movie requests from series requests. The two route
// to different download managers on approval.
type MediaType string

const (
	TypeMovie MediaType = "movie"
	TypeTV    MediaType = "tv"
)

// Status is the workflow state of a request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusAvailable Status = "available"
)

// MediaRequest is one content request record in the shared document.
type MediaRequest struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id,omitempty"`
	Username           string     `json:"username,omitempty"`
	MediaType          MediaType  `json:"media_type"`
	Title              string     `json:"title"`
	Year               int        `json:"year,omitempty"`
	TMDBID             int        `json:"tmdb_id,omitempty"`
	IMDBID             string     `json:"imdb_id,omitempty"`
	PosterURL          string     `json:"poster_url,omitempty"`
	Overview           string     `json:"overview,omitempty"`
	ReleaseStatus      string     `json:"release_status,omitempty"`
	Status             Status     `json:"status"`
	RequestManagerID   *int       `json:"request_manager_id,omitempty"`
	DownloadProgress   *float64   `json:"download_progress,omitempty"`
	RootFolder         string     `json:"root_folder,omitempty"`
	ApprovedBy         string     `json:"approved_by,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	ApprovedAt         *time.Time `json:"approved_at,omitempty"`
	AvailableAt        *time.Time `json:"available_at,omitempty"`
	RejectionForwarded bool       `json:"rejection_forwarded,omitempty"`
}

// UserKey returns the stable identity for the requester.
func (r MediaRequest) UserKey() string {
	if r.UserID != "" {
		return r.UserID
	}
	return strings.ToLower(r.Username)
}

// DisplayTitle renders the title with the release year when known.
func (r MediaRequest) DisplayTitle() string {
	if r.Year > 0 {
		return fmt.Sprintf("%s (%d)", r.Title, r.Year)
	}
	return r.Title
}

// LatestPendingPerUser returns, for each user, only the most recently
// created pending request. Sorted by creation time so notifications go out
// oldest first.
func LatestPendingPerUser(reqs []MediaRequest) []MediaRequest {
	latest := make(map[string]MediaRequest)
	for _, r := range reqs {
		if r.Status != StatusPending {
			continue
		}
		key := r.UserKey()
		if cur, ok := latest[key]; !ok || r.CreatedAt.After(cur.CreatedAt) {
			latest[key] = r
		}
	}
	out := make([]MediaRequest, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Find returns a pointer into reqs for the record with the given id, or nil.
func Find(reqs []MediaRequest, id string) *MediaRequest {
	for i := range reqs {
		if reqs[i].ID == id {
			return &reqs[i]
		}
	}
	return nil
}
