package mediaserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testLibs = []Library{
	{ID: "lib-movies", Name: "Movies"},
	{ID: "lib-shows", Name: "Shows"},
	{ID: "lib-sub", Name: "Subscription"},
}

func TestBuildAccessPolicyEnabled(t *testing.T) {
	p := BuildAccessPolicy(true, testLibs)

	assert.Equal(t, false, p["EnableAllFolders"])
	assert.ElementsMatch(t, []string{"lib-movies", "lib-shows"}, p["EnabledFolders"])
	assert.Equal(t, true, p["EnableAllChannels"])
}

func TestBuildAccessPolicyDisabled(t *testing.T) {
	p := BuildAccessPolicy(false, testLibs)

	assert.Equal(t, []string{"lib-sub"}, p["EnabledFolders"])
	assert.Equal(t, false, p["EnableAllChannels"])
}

func TestBuildAccessPolicyDisabledWithoutSubscriptionLibrary(t *testing.T) {
	libs := []Library{{ID: "lib-movies", Name: "Movies"}}
	p := BuildAccessPolicy(false, libs)

	assert.Empty(t, p["EnabledFolders"], "no subscription library means no folders at all")
}

func TestPolicyEqualsIgnoresOrderAndUnmanagedFields(t *testing.T) {
	target := map[string]any{
		"EnableAllFolders": false,
		"EnabledFolders":   []string{"a", "b"},
	}
	// shapes as they come back from json.Unmarshal
	current := map[string]any{
		"EnableAllFolders": false,
		"EnabledFolders":   []any{"b", "a"},
		"MaxBitrate":       float64(20000),
	}
	assert.True(t, PolicyEquals(current, target))
}

func TestPolicyEqualsDetectsDrift(t *testing.T) {
	target := map[string]any{
		"EnableAllFolders": false,
		"EnabledFolders":   []string{"a"},
	}

	assert.False(t, PolicyEquals(map[string]any{
		"EnableAllFolders": false,
		"EnabledFolders":   []any{"a", "b"},
	}, target), "extra folder")

	assert.False(t, PolicyEquals(map[string]any{
		"EnableAllFolders": true,
		"EnabledFolders":   []any{"a"},
	}, target), "flag drift")

	assert.False(t, PolicyEquals(map[string]any{
		"EnabledFolders": []any{"a"},
	}, target), "missing managed field")
}
