// Package tabular implements the Tabular Codec (C7): a flat, columnar CSV
// format. The header row is the union of field names across all records in
// first-appearance order; nested values are JSON-encoded as single cells;
// children fields are never emitted.
package tabular

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/dbsmedya/linkbridge/internal/linkrecord"
)

// Codec implements codec.Codec for CSV.
type Codec struct{}

// New returns a tabular Codec.
func New() *Codec { return &Codec{} }

// MediaType implements codec.Codec.
func (c *Codec) MediaType() string { return "text/csv" }

// Extension implements codec.Codec.
func (c *Codec) Extension() string { return "csv" }

// Encode implements codec.Codec. The header is the union of field names
// across all records, in first-appearance order; children is always
// excluded. Nested values (lists, maps) are JSON-encoded per cell; quoting
// on the delimiter, quote character, or newline is delegated entirely to
// encoding/csv.Writer.
func (c *Codec) Encode(records []*linkrecord.Record) ([]byte, error) {
	var header []string
	seen := make(map[string]bool)
	for _, rec := range records {
		for _, key := range rec.Keys() {
			if key == linkrecord.FieldChildren || seen[key] {
				continue
			}
			seen[key] = true
			header = append(header, key)
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("tabular codec: write header: %w", err)
	}

	for _, rec := range records {
		row := make([]string, len(header))
		for i, key := range header {
			value, ok := rec.Get(key)
			if !ok || value == nil {
				row[i] = ""
				continue
			}
			cell, err := cellValue(value)
			if err != nil {
				return nil, fmt.Errorf("tabular codec: encode cell %q: %w", key, err)
			}
			row[i] = cell
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("tabular codec: write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("tabular codec: flush: %w", err)
	}
	return buf.Bytes(), nil
}

// cellValue renders a field value for a single CSV cell: scalars render as
// their plain string form, nested lists/maps are JSON-encoded.
func cellValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		if v {
			return "true", nil
		}
		return "false", nil
	case json.Number:
		return v.String(), nil
	case float64:
		return fmt.Sprintf("%g", v), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

// Decode implements codec.Codec. Every cell is first tried as JSON; if
// parsing fails, the raw string is kept. Empty cells become null.
func (c *Codec) Decode(data []byte) ([]*linkrecord.Record, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("tabular codec: decode: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	records := make([]*linkrecord.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := linkrecord.New()
		for i, key := range header {
			if i >= len(row) {
				rec.Set(key, nil)
				continue
			}
			rec.Set(key, decodeCell(row[i]))
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeCell(raw string) any {
	if raw == "" {
		return nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return raw
	}
	if dec.More() {
		// trailing garbage after the JSON value means it wasn't really JSON
		// (e.g. the bare word "a@x" isn't valid JSON and fails earlier, but
		// "123abc" would partially decode) — treat it as a raw string.
		return raw
	}
	return v
}
