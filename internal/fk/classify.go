// Package fk classifies record fields as scalars, self-referential foreign
// keys, or external foreign keys, per the detection rules of the data model.
// Classification is pure and has no I/O: the same (field, value) pair always
// yields the same Classification.
package fk

import "strings"

// Kind enumerates the outcomes of Classify.
type Kind int

const (
	// Scalar is any field that is not a candidate FK.
	Scalar Kind = iota
	// SelfFK is parent_id or parent_uuid: its referent is the same
	// resource type as the containing record.
	SelfFK
	// ExternalFK is any other candidate FK field.
	ExternalFK
)

func (k Kind) String() string {
	switch k {
	case SelfFK:
		return "self_fk"
	case ExternalFK:
		return "external_fk"
	default:
		return "scalar"
	}
}

// Classification is the result of classifying one field.
type Classification struct {
	Kind Kind
	// ResourceType is set only for ExternalFK: the inferred referent
	// collection name. For SelfFK it is left empty — the caller already
	// knows the current resource type.
	ResourceType string
}

// neverFK are field names that are never treated as foreign keys even
// though they may look like identifiers.
var neverFK = map[string]bool{
	"id":           true,
	"_original_id": true,
}

// Classify implements the FK Field Detector (C1). A field is a candidate FK
// iff its name ends in "_id" or "_uuid" and its value is a non-empty
// string; id and _original_id are never FKs; parent_id/parent_uuid are
// self-FKs; every other candidate FK is external, with its resource type
// inferred from the field-name prefix.
//
// An empty string is excluded here, in the one place "candidate FK" is
// decided, rather than left for callers to filter: a record with e.g.
// assigned_to_id="" has nothing to resolve or enrich, and every caller
// (the enricher, the import resolver) needs the same answer for it, so the
// rule belongs in C1 itself rather than duplicated at each call site.
func Classify(field string, value any) Classification {
	if neverFK[field] {
		return Classification{Kind: Scalar}
	}

	suffix, ok := fkSuffix(field)
	if !ok {
		return Classification{Kind: Scalar}
	}

	s, isString := value.(string)
	if !isString || s == "" {
		return Classification{Kind: Scalar}
	}

	if field == "parent_id" || field == "parent_uuid" {
		return Classification{Kind: SelfFK}
	}

	prefix := strings.TrimSuffix(field, suffix)
	return Classification{Kind: ExternalFK, ResourceType: Pluralize(prefix)}
}

// fkSuffix reports whether field ends in a recognized FK suffix and, if so,
// returns that suffix.
func fkSuffix(field string) (string, bool) {
	for _, suffix := range []string{"_id", "_uuid"} {
		if strings.HasSuffix(field, suffix) && len(field) > len(suffix) {
			return suffix, true
		}
	}
	return "", false
}

// Pluralize appends "s" to name unless it already ends in "s", implementing
// the prefix-to-resource-type inference rule of the FK classifier.
func Pluralize(name string) string {
	if strings.HasSuffix(name, "s") {
		return name
	}
	return name + "s"
}
