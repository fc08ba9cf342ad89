// Package store persists the shared JSON documents the controller exchanges
// with the dashboard application. Every document is read and written whole;
// there is no partial update.
package store

import "errors"

// ErrNotFound is returned when a document has never been written. Callers
// treat it as an empty document, not a failure.
var ErrNotFound = errors.New("store: document not found")

// Document names shared with the dashboard. These are file names, not paths.
const (
	DocSubscriptions  = "subscriptions.json"
	DocMediaRequests  = "media_requests.json"
	DocUnlimitedUsers = "unlimited_users.json"
	DocSettings       = "settings.json"
	DocBotState       = "bot_state.json"
)

// Store reads and writes whole documents by name.
type Store interface {
	// Get unmarshals the named document into out. Returns ErrNotFound when
	// the document does not exist yet.
	Get(name string, out any) error
	// Put marshals v and replaces the named document atomically.
	Put(name string, v any) error
}
