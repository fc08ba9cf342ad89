package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRequiresMediaServer(t *testing.T) {
	s := &Settings{}
	assert.Error(t, s.Validate())

	s.MediaServerURL = "http://jellyfin:8096"
	s.MediaServerKey = "key"
	assert.NoError(t, s.Validate())
}

func TestValidateRejectsMalformedURLs(t *testing.T) {
	s := &Settings{
		MediaServerURL: "not a url",
		MediaServerKey: "key",
	}
	assert.Error(t, s.Validate())

	s.MediaServerURL = "http://jellyfin:8096"
	s.MovieManagerURL = "::bad::"
	assert.Error(t, s.Validate())
}

func TestValidateOptionalServicesMayBeEmpty(t *testing.T) {
	s := &Settings{
		MediaServerURL: "http://jellyfin:8096",
		MediaServerKey: "key",
	}
	assert.NoError(t, s.Validate(), "download managers and bot are optional")
}
