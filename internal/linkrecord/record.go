// Package linkrecord defines the schemaless record type shared by every
// component of linkbridge: the FK classifier, the enricher, the tree
// flattener/nester, the topological sorter, and all three codecs. A Record
// preserves the field insertion order of its source document end to end,
// which is what lets the diagram codec declare nodes in a stable order and
// the tabular codec build a deterministic header union. The exception is a
// record decoded from JSON nested under another record's children field: it
// is held as a plain map until tree.Flatten converts it, so its field order
// is not preserved.
package linkrecord

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/elliotchance/orderedmap/v2"
)

// Reserved field names, per the data model.
const (
	FieldID         = "id"
	FieldOriginalID = "_original_id"
	FieldReferences = "_references"
	FieldChildren   = "children"
	FieldParentID   = "parent_id"
	FieldParentUUID = "parent_uuid"
)

// Record is an ordered string->value map. Values are the JSON-shaped dynamic
// types encoding/json already produces: nil, bool, float64/json.Number,
// string, []any, map[string]any, or a nested *Record once normalized.
type Record struct {
	fields *orderedmap.OrderedMap[string, any]
}

// New returns an empty Record.
func New() *Record {
	return &Record{fields: orderedmap.NewOrderedMap[string, any]()}
}

// Get returns the value stored under key and whether it was present.
func (r *Record) Get(key string) (any, bool) {
	return r.fields.Get(key)
}

// GetString returns the value under key as a string, or "" if absent or not
// a string.
func (r *Record) GetString(key string) string {
	v, ok := r.fields.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Set assigns value to key, appending key to the insertion order if it is
// new and leaving the existing position unchanged if key already exists.
func (r *Record) Set(key string, value any) {
	r.fields.Set(key, value)
}

// Delete removes key, if present.
func (r *Record) Delete(key string) {
	r.fields.Delete(key)
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.fields.Get(key)
	return ok
}

// Keys returns field names in insertion order.
func (r *Record) Keys() []string {
	return r.fields.Keys()
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return r.fields.Len()
}

// Range calls fn for every field in insertion order, stopping early if fn
// returns false.
func (r *Record) Range(fn func(key string, value any) bool) {
	for el := r.fields.Front(); el != nil; el = el.Next() {
		if !fn(el.Key, el.Value) {
			return
		}
	}
}

// Clone returns a shallow copy of the record with an independent field order.
func (r *Record) Clone() *Record {
	c := New()
	r.Range(func(k string, v any) bool {
		c.Set(k, v)
		return true
	})
	return c
}

// WithoutReserved returns a clone with _original_id, _references, and
// children stripped, as required before a record is POSTed to a target
// endpoint (data model Invariant 2).
func (r *Record) WithoutReserved() *Record {
	c := New()
	r.Range(func(k string, v any) bool {
		switch k {
		case FieldOriginalID, FieldReferences, FieldChildren:
			return true
		}
		c.Set(k, v)
		return true
	})
	return c
}

// OriginalID returns the _original_id field, falling back to id if absent.
func (r *Record) OriginalID() string {
	if v := r.GetString(FieldOriginalID); v != "" {
		return v
	}
	return r.GetString(FieldID)
}

// ParentRef returns the value of parent_id or parent_uuid and the field name
// it was found under, or ("", "") if the record has neither.
func (r *Record) ParentRef() (value, field string) {
	if v, ok := r.Get(FieldParentID); ok {
		if s, ok := v.(string); ok && s != "" {
			return s, FieldParentID
		}
	}
	if v, ok := r.Get(FieldParentUUID); ok {
		if s, ok := v.(string); ok && s != "" {
			return s, FieldParentUUID
		}
	}
	return "", ""
}

// MarshalJSON emits the record as a JSON object with fields in insertion
// order. encoding/json does not do this for plain maps, which is the whole
// reason Record exists instead of map[string]any.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	var encErr error
	r.Range(func(k string, v any) bool {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		keyBytes, err := json.Marshal(k)
		if err != nil {
			encErr = err
			return false
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		valBytes, err := json.Marshal(v)
		if err != nil {
			encErr = err
			return false
		}
		buf.Write(valBytes)
		return true
	})
	if encErr != nil {
		return nil, encErr
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the record, preserving the key
// order the tokens arrive in.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return fmt.Errorf("linkrecord: expected JSON object, got %v", tok)
	}

	r.fields = orderedmap.NewOrderedMap[string, any]()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("linkrecord: expected string key, got %v", keyTok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return err
		}
		r.Set(key, normalize(value))
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// normalize recursively converts nested JSON objects decoded with UseNumber
// into the same any-typed shape used throughout the pipeline, recursing into
// []any slices as well. Nested objects stay as map[string]any rather than
// *Record: only top-level records need stable field order for the codecs,
// per the design note on dynamic field shapes.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	default:
		return v
	}
}

// FromMap builds a Record from a plain map, iterating in the order supplied
// by keys (callers that don't care about order may pass keys in any order
// they have, e.g. from a decoded children list).
func FromMap(m map[string]any, keys []string) *Record {
	r := New()
	for _, k := range keys {
		if v, ok := m[k]; ok {
			r.Set(k, v)
		}
	}
	return r
}
