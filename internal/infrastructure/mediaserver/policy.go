package mediaserver

import "strings"

// SubscriptionLibraryName is the library shown to users whose subscription
// has lapsed. Matched case-insensitively against library names.
const SubscriptionLibraryName = "subscription"

// BuildAccessPolicy derives the managed slice of a user's policy.
//
// Enabled users see every library except the subscription one, with all
// channels. Disabled users see only the subscription library when it exists
// and no channels.
func BuildAccessPolicy(enable bool, libraries []Library) map[string]any {
	if enable {
		ids := make([]string, 0, len(libraries))
		for _, lib := range libraries {
			if isSubscriptionLibrary(lib) {
				continue
			}
			ids = append(ids, lib.ID)
		}
		return map[string]any{
			"EnableAllFolders":  false,
			"EnabledFolders":    ids,
			"EnableAllChannels": true,
			"EnabledChannels":   []string{},
		}
	}

	ids := []string{}
	for _, lib := range libraries {
		if isSubscriptionLibrary(lib) {
			ids = append(ids, lib.ID)
			break
		}
	}
	return map[string]any{
		"EnableAllFolders":  false,
		"EnabledFolders":    ids,
		"EnableAllChannels": false,
		"EnabledChannels":   []string{},
	}
}

// PolicyEquals reports whether the current upstream policy already matches
// the target on every managed field. Id lists compare as sets; everything
// else compares as booleans. Used to skip no-op writes.
func PolicyEquals(current, target map[string]any) bool {
	for key, want := range target {
		got, ok := current[key]
		if !ok {
			return false
		}
		switch w := want.(type) {
		case bool:
			g, ok := got.(bool)
			if !ok || g != w {
				return false
			}
		case []string:
			if !sameIDSet(toStrings(got), w) {
				return false
			}
		default:
			if got != want {
				return false
			}
		}
	}
	return true
}

func isSubscriptionLibrary(lib Library) bool {
	return strings.EqualFold(lib.Name, SubscriptionLibraryName)
}

// toStrings handles the []interface{} shape json.Unmarshal produces for the
// upstream policy's id lists.
func toStrings(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			s, ok := e.(string)
			if !ok {
				return nil
			}
			out = append(out, s)
		}
		return out
	case nil:
		return []string{}
	default:
		return nil
	}
}

func sameIDSet(a, b []string) bool {
	if a == nil || len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if !set[id] {
			return false
		}
	}
	return true
}
