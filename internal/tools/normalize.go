package tools

import "strings"

// NormalizeName strips a tenant-specific prefix from a tool name.
//
// Assistants are provisioned per clinic, and their tool names arrive
// prefixed with an arbitrary clinic slug (e.g. "lakeview_getCaseDetails").
// Rather than maintaining a tenant list, the raw name's suffix is compared
// against the canonical tool names: on a suffix match where the raw name is
// strictly longer, the canonical name wins. Names with no matching suffix
// (including exact canonical names) pass through unchanged.
func NormalizeName(raw string, canonical []string) string {
	for _, name := range canonical {
		if len(raw) > len(name) && strings.HasSuffix(raw, name) {
			return name
		}
	}
	return raw
}
