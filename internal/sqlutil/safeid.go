// Package sqlutil provides identifier-safety helpers. linkbridge has no SQL
// backend, but the identifier-validity idiom is repurposed here to derive a
// diagram-safe node id from a record's _original_id and to sanity-check
// resource-type strings before they're interpolated into a URL path.
package sqlutil

import "regexp"

// nonAlphanumeric matches every rune that isn't a letter or digit.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// SafeID strips every non-alphanumeric character from name, producing a
// value safe to use as a mermaid node id. Mermaid node ids can't contain
// most punctuation, and record ids are free-form strings (UUIDs, slugs,
// emails as a lookup value, etc.), so this is applied to every
// _original_id before it is emitted as a diagram node id.
func SafeID(name string) string {
	return nonAlphanumeric.ReplaceAllString(name, "")
}

// IsValidIdentifier reports whether name contains only alphanumeric
// characters and underscores. Used to sanity-check resource-type strings
// pulled from FK field-name inference before they are interpolated into a
// URL path segment.
var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")

func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}
