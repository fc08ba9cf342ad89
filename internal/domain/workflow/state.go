// Package workflow holds the approval engine's persisted state: what has
// already been announced, which approvals are waiting on admin input, and
// where the announcement messages live so they can be edited in place.
package workflow

// MessageRef locates one Telegram message previously sent for a record.
// Caption distinguishes photo messages, whose text lives in the caption and
// needs the caption edit call.
type MessageRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
	Caption   bool  `json:"caption,omitempty"`
}

// RootFolderSelection is a media approval parked while an admin picks a
// destination folder. The folder list is frozen at prompt time so the index
// in the button callback stays meaningful.
type RootFolderSelection struct {
	RequestID   string   `json:"request_id"`
	RootFolders []string `json:"root_folders"`
	ProfileID   int      `json:"profile_id,omitempty"`
}

// State is the engine's whole persisted document. All fields survive
// restarts; the dedup sets are what makes notifications exactly-once.
type State struct {
	LastUpdateID int64 `json:"last_update_id"`

	NotifiedPayments map[string]bool `json:"notified_payments"`
	NotifiedMedia    map[string]bool `json:"notified_media"`
	NotifiedExpired  map[string]bool `json:"notified_expired"`

	PendingSelections map[string]RootFolderSelection `json:"pending_selections"`

	PaymentMessages map[string][]MessageRef `json:"payment_messages"`
	MediaMessages   map[string][]MessageRef `json:"media_messages"`
}

// NewState returns a State with every map allocated.
func NewState() *State {
	s := &State{}
	s.Normalize()
	return s
}

// Normalize allocates any map a JSON load left nil. Call after decoding.
func (s *State) Normalize() {
	if s.NotifiedPayments == nil {
		s.NotifiedPayments = make(map[string]bool)
	}
	if s.NotifiedMedia == nil {
		s.NotifiedMedia = make(map[string]bool)
	}
	if s.NotifiedExpired == nil {
		s.NotifiedExpired = make(map[string]bool)
	}
	if s.PendingSelections == nil {
		s.PendingSelections = make(map[string]RootFolderSelection)
	}
	if s.PaymentMessages == nil {
		s.PaymentMessages = make(map[string][]MessageRef)
	}
	if s.MediaMessages == nil {
		s.MediaMessages = make(map[string][]MessageRef)
	}
}

// ClearPayment drops every trace of a payment record once its decision is
// final.
func (s *State) ClearPayment(id string) {
	delete(s.PaymentMessages, id)
}

// ClearMedia drops every trace of a media record once its decision is final.
func (s *State) ClearMedia(id string) {
	delete(s.MediaMessages, id)
	delete(s.PendingSelections, id)
}
