// Package downloadmanager is the thin Radarr/Sonarr-compatible client the
// workflow engine uses for destination folders, quality profiles, and
// download progress.
package downloadmanager

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hucksarn/movieflixdash/internal/infrastructure/httpx"
	"github.com/hucksarn/movieflixdash/internal/shared/logger"
)

// RootFolder is one destination directory the manager can download into.
type RootFolder struct {
	ID   int    `json:"id"`
	Path string `json:"path"`
}

// QualityProfile is one named quality tier.
type QualityProfile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Client talks to one movie or series manager instance. The API shape is
// identical between the two; only the lookup endpoints differ.
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
		log:     log.Named("downloadmanager"),
	}
}

// Configured reports whether the settings document gave this client a
// target.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

func (c *Client) get(ctx context.Context, path string) httpx.Result {
	headers := map[string]string{"X-Api-Key": c.apiKey}
	return httpx.Do(ctx, c.http, http.MethodGet, c.baseURL+path, headers, nil)
}

// RootFolders lists the destination folders.
func (c *Client) RootFolders(ctx context.Context) ([]RootFolder, error) {
	if !c.Configured() {
		return nil, nil
	}
	res := c.get(ctx, "/api/v3/rootfolder")
	if !res.OK {
		return nil, fmt.Errorf("root folders: status %d: %s", res.Status, res.Body)
	}
	var folders []RootFolder
	if err := res.DecodeJSON(&folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// QualityProfiles lists the configured quality tiers. The first one is used
// as the default on approvals.
func (c *Client) QualityProfiles(ctx context.Context) ([]QualityProfile, error) {
	if !c.Configured() {
		return nil, nil
	}
	res := c.get(ctx, "/api/v3/qualityprofile")
	if !res.OK {
		return nil, fmt.Errorf("quality profiles: status %d: %s", res.Status, res.Body)
	}
	var profiles []QualityProfile
	if err := res.DecodeJSON(&profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

type managedItem struct {
	ID         int  `json:"id"`
	HasFile    bool `json:"hasFile"`
	Statistics struct {
		PercentOfEpisodes float64 `json:"percentOfEpisodes"`
	} `json:"statistics"`
}

// LookupMovieByTMDB finds the manager's internal record for a TMDB id.
// Returns (nil, nil) when the movie is not in the library.
func (c *Client) LookupMovieByTMDB(ctx context.Context, tmdbID int) (*Item, error) {
	if !c.Configured() {
		return nil, nil
	}
	res := c.get(ctx, "/api/v3/movie?tmdbId="+strconv.Itoa(tmdbID))
	if !res.OK {
		return nil, fmt.Errorf("movie lookup tmdb %d: status %d: %s", tmdbID, res.Status, res.Body)
	}
	var items []managedItem
	if err := res.DecodeJSON(&items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &Item{ID: items[0].ID, Complete: items[0].HasFile}, nil
}

// LookupSeriesByIMDB finds the manager's internal record for an IMDB id.
// Series completeness tracks the episode statistics rather than a single
// file flag.
func (c *Client) LookupSeriesByIMDB(ctx context.Context, imdbID string) (*Item, error) {
	if !c.Configured() {
		return nil, nil
	}
	res := c.get(ctx, "/api/v3/series/lookup?term="+url.QueryEscape("imdb:"+imdbID))
	if !res.OK {
		return nil, fmt.Errorf("series lookup imdb %s: status %d: %s", imdbID, res.Status, res.Body)
	}
	var items []managedItem
	if err := res.DecodeJSON(&items); err != nil {
		return nil, err
	}
	for _, it := range items {
		if it.ID != 0 {
			return &Item{ID: it.ID, Complete: it.Statistics.PercentOfEpisodes >= 100}, nil
		}
	}
	return nil, nil
}

// Item is the slice of a managed record the workflow engine cares about.
type Item struct {
	ID       int
	Complete bool
}

type queueRecord struct {
	Size     float64 `json:"size"`
	Sizeleft float64 `json:"sizeleft"`
}

// QueueProgress reports the download progress (0-100) of the active queue
// entries for a managed movie id. Returns (0, false) when nothing is queued.
func (c *Client) QueueProgress(ctx context.Context, movieID int) (float64, bool, error) {
	if !c.Configured() {
		return 0, false, nil
	}
	res := c.get(ctx, "/api/v3/queue?movieId="+strconv.Itoa(movieID))
	if !res.OK {
		return 0, false, fmt.Errorf("queue for movie %d: status %d: %s", movieID, res.Status, res.Body)
	}
	var out struct {
		Records []queueRecord `json:"records"`
	}
	if err := res.DecodeJSON(&out); err != nil {
		return 0, false, err
	}
	var size, left float64
	for _, r := range out.Records {
		size += r.Size
		left += r.Sizeleft
	}
	if size == 0 {
		return 0, false, nil
	}
	return (size - left) / size * 100, true, nil
}
