// Package lookup implements the Lookup Policy (C2): mapping a resource type
// to an ordered list of candidate fields used to discriminate a referent
// record during import-side lookup queries.
package lookup

import "encoding/json"

// defaults are the built-in fallback fields, keyed by resource type.
var defaults = map[string][]string{
	"users":    {"email"},
	"projects": {"name"},
	"roles":    {"name"},
}

// fallback is used for any resource type with neither a user override nor a
// built-in default.
var fallback = []string{"name"}

// Policy holds user-supplied overrides (typically decoded from the
// lookup_config query parameter) layered on top of the built-in defaults.
type Policy struct {
	overrides map[string][]string
}

// NewPolicy builds a Policy from a user-supplied override map. A nil map is
// equivalent to no overrides.
func NewPolicy(overrides map[string][]string) *Policy {
	return &Policy{overrides: overrides}
}

// FieldsFor returns the ordered candidate lookup fields for resourceType,
// following the three-tier resolution order: explicit override, then
// built-in default, then the ["name"] fallback.
func (p *Policy) FieldsFor(resourceType string) []string {
	if p != nil {
		if fields, ok := p.overrides[resourceType]; ok && len(fields) > 0 {
			return fields
		}
	}
	if fields, ok := defaults[resourceType]; ok {
		return fields
	}
	return fallback
}

// FirstNonNull returns the first field in FieldsFor(resourceType) whose
// value in record is non-null, along with that value, and whether any field
// matched.
func (p *Policy) FirstNonNull(resourceType string, record map[string]any) (field string, value any, ok bool) {
	for _, f := range p.FieldsFor(resourceType) {
		v, present := record[f]
		if present && v != nil {
			return f, v, true
		}
	}
	return "", nil, false
}

// ParseConfig decodes the JSON text carried by the lookup_config query
// parameter (spec.md §6) into the user_config override map consumed by
// NewPolicy.
func ParseConfig(raw []byte) (map[string][]string, error) {
	var overrides map[string][]string
	if err := json.Unmarshal(raw, &overrides); err != nil {
		return nil, err
	}
	return overrides, nil
}

// FirstNonNullFrom is the same resolution as FirstNonNull, but reads values
// via get instead of a plain map — used against *linkrecord.Record, which
// exposes Get rather than supporting map indexing.
func (p *Policy) FirstNonNullFrom(resourceType string, get func(field string) (any, bool)) (field string, value any, ok bool) {
	for _, f := range p.FieldsFor(resourceType) {
		v, present := get(f)
		if present && v != nil {
			return f, v, true
		}
	}
	return "", nil, false
}
