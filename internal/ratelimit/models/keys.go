package models

import (
	"strings"
)

// NormalizeIdentifier canonicalises a login handle so "Bob@Example.com " and
// "bob@example.com" share attempt history and lockout state.
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// NewBucketKey builds the storage key for a (client, class) bucket. The
// client id is sanitised so a crafted id cannot address another bucket.
func NewBucketKey(clientID string, class EndpointClass) string {
	return "rl:" + sanitizeKeySegment(clientID) + ":" + string(class)
}

// sanitizeKeySegment escapes '_' to "__" and then ':' to "_c". The mapping is
// injective, so distinct inputs never share a key.
func sanitizeKeySegment(s string) string {
	s = strings.ReplaceAll(s, "_", "__")
	return strings.ReplaceAll(s, ":", "_c")
}
