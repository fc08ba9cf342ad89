// Package user models the media-server accounts the reconciler manages and
// the exemption list that keeps certain accounts out of policy enforcement.
package user

import "strings"

// MediaUser is the slice of a media-server account the reconciler cares
// about.
type MediaUser struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// Key returns the identity used to match accounts against subscription
// records: the server id when present, otherwise the lowercased name.
func (u MediaUser) Key() string {
	if u.ID != "" {
		return u.ID
	}
	return strings.ToLower(u.Name)
}

// UnlimitedUser is an account exempt from subscription enforcement. The
// reconciler neither restricts nor trials these accounts.
type UnlimitedUser struct {
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Note     string `json:"note,omitempty"`
}

// UnlimitedSet builds a lookup of exempt identities, indexed by both id and
// lowercased username so either form of a record matches.
func UnlimitedSet(users []UnlimitedUser) map[string]bool {
	set := make(map[string]bool, len(users)*2)
	for _, u := range users {
		if u.UserID != "" {
			set[u.UserID] = true
		}
		if u.Username != "" {
			set[strings.ToLower(u.Username)] = true
		}
	}
	return set
}

// IsUnlimited reports whether the account is exempt, matching by id or name.
func IsUnlimited(set map[string]bool, u MediaUser) bool {
	return set[u.ID] || set[strings.ToLower(u.Name)]
}
