// Package codec defines the common capability set shared by the three
// record-encoding dialects (diagram, tabular, document): encode a record
// list to bytes, decode bytes back to a record list, and report the
// content-type/extension a caller should use when serving the result.
package codec

import "github.com/dbsmedya/linkbridge/internal/linkrecord"

// Codec is implemented identically by the diagram, tabular, and document
// packages, realizing the "polymorphism over codec dialects" design note:
// a variant tag selects the codec, after which callers treat all three
// uniformly.
type Codec interface {
	Encode(records []*linkrecord.Record) ([]byte, error)
	Decode(data []byte) ([]*linkrecord.Record, error)
	MediaType() string
	Extension() string
}
