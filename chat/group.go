// Package chat routes proximity chat to ad-hoc player groups.
package chat

import (
	"sort"
	"strings"
)

// Separator joins player ids into a group id. Player ids never contain it.
const Separator = "-"

// GroupID returns the canonical id of a group: the sorted member ids joined
// with Separator.
func GroupID(ids ...string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return strings.Join(sorted, Separator)
}

// Members splits a group id into its distinct, non-empty member ids in the
// order they appear.
func Members(groupID string) []string {
	parts := strings.Split(groupID, Separator)
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Targets lists the members of groupID that should receive a message from
// sender: everyone but the sender, filtered through live.
func Targets(groupID, sender string, live func(id string) bool) []string {
	var out []string
	for _, id := range Members(groupID) {
		if id == sender || !live(id) {
			continue
		}
		out = append(out, id)
	}
	return out
}
