package requestmanager

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hucksarn/movieflixdash/internal/domain/mediarequest"
	"github.com/hucksarn/movieflixdash/internal/shared/logger"
)

func TestCreateRequestMovie(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/request", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":88}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", 2, logger.NewLogger())
	req := mediarequest.MediaRequest{Title: "Dune", MediaType: mediarequest.TypeMovie, TMDBID: 438631}

	id, err := c.CreateRequest(context.Background(), req, "/movies", 4)
	require.NoError(t, err)
	assert.Equal(t, 88, id)

	assert.Equal(t, "movie", got["mediaType"])
	assert.Equal(t, float64(438631), got["mediaId"])
	assert.Equal(t, float64(2), got["serverId"])
	assert.Equal(t, "/movies", got["rootFolder"])
	assert.NotContains(t, got, "seasons")
}

func TestCreateRequestTVRequestsAllSeasons(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":1}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", 1, logger.NewLogger())
	req := mediarequest.MediaRequest{Title: "Severance", MediaType: mediarequest.TypeTV, TMDBID: 95396}

	_, err := c.CreateRequest(context.Background(), req, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "all", got["seasons"])
}

func TestCreateRequestRetriesDiscoveredBasePath(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/jellyseerr/api/v1/request" {
			w.Write([]byte(`{"id":5}`))
			return
		}
		http.Error(w, `Expected path to start with /jellyseerr`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", 1, logger.NewLogger())
	id, err := c.CreateRequest(context.Background(), mediarequest.MediaRequest{MediaType: mediarequest.TypeMovie, TMDBID: 1}, "", 0)
	require.NoError(t, err)
	assert.Equal(t, 5, id)
	assert.Equal(t, []string{"/api/v1/request", "/jellyseerr/api/v1/request"}, paths)
}

func TestDeleteRequestToleratesNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", 1, logger.NewLogger())
	assert.NoError(t, c.DeleteRequest(context.Background(), 42), "already-gone records are not failures")
}

func TestUnconfiguredClientNoOps(t *testing.T) {
	c := NewClient("", "", 0, logger.NewLogger())

	assert.False(t, c.Configured())
	assert.NoError(t, c.DeleteRequest(context.Background(), 1))
	assert.NoError(t, c.ImportUsers(context.Background(), []string{"u1"}))

	_, err := c.CreateRequest(context.Background(), mediarequest.MediaRequest{}, "", 0)
	assert.Error(t, err, "creation needs a configured target")
}
