// Package document implements the Document Codec (C8): a structured-document
// (JSON-shaped) emission, flat or nested, with enrichment metadata preserved
// in both modes.
package document

import (
	"encoding/json"
	"fmt"

	"github.com/dbsmedya/linkbridge/internal/linkrecord"
	"github.com/dbsmedya/linkbridge/internal/tree"
)

// Codec implements codec.Codec for the JSON document format. When Nested is
// true, Encode first runs C4's Nest over the record list; Decode always
// normalizes to flat by calling C4's Flatten whenever a children field is
// detected on any top-level record, regardless of Nested.
type Codec struct {
	Nested bool
}

// New returns a document Codec. nested selects whether Encode emits the
// nested-forest shape (via tree.Nest) or the flat list as-is.
func New(nested bool) *Codec {
	return &Codec{Nested: nested}
}

// MediaType implements codec.Codec.
func (c *Codec) MediaType() string { return "application/json" }

// Extension implements codec.Codec.
func (c *Codec) Extension() string { return "json" }

// Encode implements codec.Codec.
func (c *Codec) Encode(records []*linkrecord.Record) ([]byte, error) {
	if c.Nested {
		forest, ambiguous := tree.Nest(records)
		if ambiguous {
			// Cycles make nesting meaningless; fall back to the flat shape
			// rather than emit a forest that silently drops the cyclic
			// records, per the nest precondition in §4.4.
			return json.Marshal(records)
		}
		return json.Marshal(forest)
	}
	return json.Marshal(records)
}

// Decode implements codec.Codec. It accepts either the flat or nested shape
// and normalizes to flat, calling tree.Flatten when a children field is
// present on any top-level record.
func (c *Codec) Decode(data []byte) ([]*linkrecord.Record, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("document codec: decode: %w", err)
	}

	records := make([]*linkrecord.Record, 0, len(raw))
	nested := false
	for _, r := range raw {
		rec := linkrecord.New()
		if err := json.Unmarshal(r, rec); err != nil {
			return nil, fmt.Errorf("document codec: decode record: %w", err)
		}
		if rec.Has(linkrecord.FieldChildren) {
			nested = true
		}
		records = append(records, rec)
	}

	if nested {
		return tree.Flatten(records), nil
	}
	return records, nil
}
