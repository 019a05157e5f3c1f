package mappings

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SanitizeIdentity derives the deterministic storage key for an entity
// identity. Unicode is NFKC-normalized so visually identical names from
// different hosts land on the same record, then anything outside
// [a-z0-9._-] becomes an underscore.
func SanitizeIdentity(identity string) string {
	normalized := norm.NFKC.String(strings.TrimSpace(identity))
	lowered := strings.ToLower(normalized)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	key := strings.Trim(b.String(), "_")
	if key == "" {
		return "_"
	}
	return key
}
