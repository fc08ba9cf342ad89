package mediaserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hucksarn/movieflixdash/internal/shared/logger"
)

func TestListUsersAndLibraries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("X-Emby-Token"))
		switch r.URL.Path {
		case "/Users":
			w.Write([]byte(`[{"Id":"u1","Name":"alice"}]`))
		case "/Library/SelectableMediaFolders":
			w.Write([]byte(`[{"Id":"l1","Name":"Movies"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", logger.NewLogger())

	users, err := c.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Name)

	libs, err := c.ListLibraries(context.Background())
	require.NoError(t, err)
	require.Len(t, libs, 1)
	assert.Equal(t, "l1", libs[0].ID)
}

func TestUpdatePolicyFallsBackToPUT(t *testing.T) {
	var methods []string
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", logger.NewLogger())
	current := map[string]any{"MaxBitrate": 1000, "EnableMediaPlayback": false}
	target := map[string]any{"EnableAllFolders": false}

	require.NoError(t, c.UpdatePolicy(context.Background(), "u1", current, target))

	assert.Equal(t, []string{http.MethodPost, http.MethodPut}, methods)
	assert.Equal(t, float64(1000), got["MaxBitrate"], "unmanaged fields merge over")
	assert.Equal(t, true, got["EnableMediaPlayback"], "playback is always forced on")
	assert.Equal(t, false, got["EnableAllFolders"])
}

func TestUpdatePolicyDiscoversBasePath(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/jellyfin/Users/u1/Policy" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.Error(w, `Expected path to start with /jellyfin`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", logger.NewLogger())
	require.NoError(t, c.UpdatePolicy(context.Background(), "u1", nil, map[string]any{}))

	require.Len(t, paths, 3)
	assert.Equal(t, "/jellyfin/Users/u1/Policy", paths[2])
}

func TestUpdatePolicyExhaustedReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", logger.NewLogger())
	err := c.UpdatePolicy(context.Background(), "u1", nil, map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
