// Package settings defines the operator-editable configuration document
// shared with the dashboard application.
package settings

import (
	"github.com/go-playground/validator/v10"
)

// Settings is the whole settings document. It is written by the dashboard
// and read here on every cycle so operator changes apply without restarts.
type Settings struct {
	MediaServerURL string `json:"media_server_url" validate:"required,url"`
	MediaServerKey string `json:"media_server_key" validate:"required"`

	RequestManagerURL      string `json:"request_manager_url" validate:"omitempty,url"`
	RequestManagerKey      string `json:"request_manager_key"`
	RequestManagerServerID int    `json:"request_manager_server_id"`

	MovieManagerURL  string `json:"movie_manager_url" validate:"omitempty,url"`
	MovieManagerKey  string `json:"movie_manager_key"`
	SeriesManagerURL string `json:"series_manager_url" validate:"omitempty,url"`
	SeriesManagerKey string `json:"series_manager_key"`

	BotToken       string   `json:"bot_token"`
	AdminChatIDs   []int64  `json:"admin_chat_ids"`
	AdminUsernames []string `json:"admin_usernames"`

	DisableAutoTrial bool   `json:"disable_auto_trial"`
	PublicBaseURL    string `json:"public_base_url" validate:"omitempty,url"`
}

var validate = validator.New()

// Validate checks the document is usable. Called after every load; a broken
// document aborts the cycle rather than enforcing garbage.
func (s *Settings) Validate() error {
	return validate.Struct(s)
}
