// Package requestmanager is the thin Jellyseerr-compatible client used when
// media requests are approved or rejected.
package requestmanager

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hucksarn/movieflixdash/internal/domain/mediarequest"
	"github.com/hucksarn/movieflixdash/internal/infrastructure/httpx"
	"github.com/hucksarn/movieflixdash/internal/shared/logger"
)

// Client talks to one request manager instance.
type Client struct {
	baseURL  string
	apiKey   string
	serverID int
	http     *http.Client
	log      logger.Interface
}

func NewClient(baseURL, apiKey string, serverID int, log logger.Interface) *Client {
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		serverID: serverID,
		http:     httpx.NewClient(),
		log:      log.Named("requestmanager"),
	}
}

// Configured reports whether the settings document gave this client a
// target. Unconfigured clients no-op.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

func (c *Client) headers() map[string]string {
	return map[string]string{"X-Api-Key": c.apiKey}
}

type createRequestBody struct {
	MediaType  string `json:"mediaType"`
	MediaID    int    `json:"mediaId"`
	Seasons    string `json:"seasons,omitempty"`
	ServerID   int    `json:"serverId"`
	ProfileID  int    `json:"profileId,omitempty"`
	RootFolder string `json:"rootFolder,omitempty"`
}

// CreateRequest submits an approved request downstream and returns the
// external request id for later correlation.
func (c *Client) CreateRequest(ctx context.Context, req mediarequest.MediaRequest, rootFolder string, profileID int) (int, error) {
	if !c.Configured() {
		return 0, fmt.Errorf("request manager not configured")
	}
	body := createRequestBody{
		MediaType:  string(req.MediaType),
		MediaID:    req.TMDBID,
		ServerID:   c.serverID,
		ProfileID:  profileID,
		RootFolder: rootFolder,
	}
	if req.MediaType == mediarequest.TypeTV {
		body.Seasons = "all"
	}

	res := c.post(ctx, "/api/v1/request", body)
	if !res.OK {
		return 0, fmt.Errorf("create request for %q: status %d: %s", req.Title, res.Status, res.Body)
	}
	var out struct {
		ID int `json:"id"`
	}
	if err := res.DecodeJSON(&out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// DeleteRequest removes the external record for a rejected or deleted
// request. Best-effort at call sites; this returns the failure and the
// caller decides to ignore it.
func (c *Client) DeleteRequest(ctx context.Context, externalID int) error {
	if !c.Configured() {
		return nil
	}
	path := fmt.Sprintf("/api/v1/request/%d", externalID)
	res := httpx.Do(ctx, c.http, http.MethodDelete, c.baseURL+path, c.headers(), nil)
	if !res.OK && res.Status != http.StatusNotFound {
		return fmt.Errorf("delete request %d: status %d: %s", externalID, res.Status, res.Body)
	}
	return nil
}

// ImportUsers pulls the given media-server accounts into the request
// manager, so a freshly approved subscriber can sign in there immediately.
func (c *Client) ImportUsers(ctx context.Context, mediaUserIDs []string) error {
	if !c.Configured() || len(mediaUserIDs) == 0 {
		return nil
	}
	body := map[string]any{"jellyfinUserIds": mediaUserIDs}
	res := c.post(ctx, "/api/v1/user/import-from-jellyfin", body)
	if !res.OK {
		return fmt.Errorf("import users: status %d: %s", res.Status, res.Body)
	}
	return nil
}

// post issues a POST with one base-path-discovery retry, mirroring the media
// server client's reverse-proxy handling.
func (c *Client) post(ctx context.Context, path string, body any) httpx.Result {
	res := httpx.Do(ctx, c.http, http.MethodPost, c.baseURL+path, c.headers(), body)
	if res.OK {
		return res
	}
	if base := httpx.DiscoverBasePath(res.Body); base != "" {
		c.log.Infow("retrying against discovered base path", "base_path", base, "path", path)
		return httpx.Do(ctx, c.http, http.MethodPost, httpx.JoinBase(c.baseURL, base, path), c.headers(), body)
	}
	return res
}
