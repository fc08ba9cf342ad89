// Package mediaserver is the thin Jellyfin-compatible client the reconciler
// and workflow engine use to read users, libraries, and access policies.
package mediaserver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hucksarn/movieflixdash/internal/domain/user"
	"github.com/hucksarn/movieflixdash/internal/infrastructure/httpx"
	"github.com/hucksarn/movieflixdash/internal/shared/logger"
)

// Library is one selectable media folder on the server.
type Library struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// Client talks to one media server. All methods return soft failures; the
// caller decides whether a failure aborts its cycle.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     logger.Interface
}

func NewClient(baseURL, apiKey string, log logger.Interface) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    httpx.NewClient(),
		log:     log.Named("mediaserver"),
	}
}

func (c *Client) headers() map[string]string {
	return map[string]string{"X-Emby-Token": c.apiKey}
}

// ListUsers returns every account on the server.
func (c *Client) ListUsers(ctx context.Context) ([]user.MediaUser, error) {
	res := httpx.Do(ctx, c.http, http.MethodGet, c.baseURL+"/Users", c.headers(), nil)
	if !res.OK {
		return nil, fmt.Errorf("list users: status %d: %s", res.Status, res.Body)
	}
	var users []user.MediaUser
	if err := res.DecodeJSON(&users); err != nil {
		return nil, err
	}
	return users, nil
}

// ListLibraries returns the selectable media folders.
func (c *Client) ListLibraries(ctx context.Context) ([]Library, error) {
	res := httpx.Do(ctx, c.http, http.MethodGet, c.baseURL+"/Library/SelectableMediaFolders", c.headers(), nil)
	if !res.OK {
		return nil, fmt.Errorf("list libraries: status %d: %s", res.Status, res.Body)
	}
	var libs []Library
	if err := res.DecodeJSON(&libs); err != nil {
		return nil, err
	}
	return libs, nil
}

// GetPolicy reads a user's full policy object. The policy is kept as a raw
// map so fields this controller does not manage survive the round trip.
func (c *Client) GetPolicy(ctx context.Context, userID string) (map[string]any, error) {
	res := httpx.Do(ctx, c.http, http.MethodGet, c.baseURL+"/Users/"+url.PathEscape(userID), c.headers(), nil)
	if !res.OK {
		return nil, fmt.Errorf("get user %s: status %d: %s", userID, res.Status, res.Body)
	}
	var u struct {
		Policy map[string]any `json:"Policy"`
	}
	if err := res.DecodeJSON(&u); err != nil {
		return nil, err
	}
	if u.Policy == nil {
		u.Policy = map[string]any{}
	}
	return u.Policy, nil
}

// UpdatePolicy writes a user's policy, merging target over the current
// policy so unmanaged fields are preserved. Playback stays enabled no matter
// what the target says; access control happens through library visibility.
// Older servers only accept POST, newer ones only PUT, and reverse-proxied
// deployments may need the self-reported base path; all three are tried
// before giving up.
func (c *Client) UpdatePolicy(ctx context.Context, userID string, current, target map[string]any) error {
	merged := make(map[string]any, len(current)+len(target))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range target {
		merged[k] = v
	}
	merged["EnableMediaPlayback"] = true

	path := "/Users/" + url.PathEscape(userID) + "/Policy"

	res := httpx.Do(ctx, c.http, http.MethodPost, c.baseURL+path, c.headers(), merged)
	if res.OK {
		return nil
	}
	c.log.Debugw("policy POST rejected, retrying with PUT", "user_id", userID, "status", res.Status)

	res = httpx.Do(ctx, c.http, http.MethodPut, c.baseURL+path, c.headers(), merged)
	if res.OK {
		return nil
	}

	if base := httpx.DiscoverBasePath(res.Body); base != "" {
		c.log.Infow("retrying policy write against discovered base path", "base_path", base)
		res = httpx.Do(ctx, c.http, http.MethodPost, httpx.JoinBase(c.baseURL, base, path), c.headers(), merged)
		if res.OK {
			return nil
		}
	}
	return fmt.Errorf("update policy for %s: status %d: %s", userID, res.Status, res.Body)
}
