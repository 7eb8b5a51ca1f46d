package migrate

import (
	"fmt"

	"github.com/dbsmedya/linkbridge/internal/codec"
	"github.com/dbsmedya/linkbridge/internal/codec/diagram"
	"github.com/dbsmedya/linkbridge/internal/codec/document"
	"github.com/dbsmedya/linkbridge/internal/codec/tabular"
	"github.com/dbsmedya/linkbridge/internal/lookup"
)

// Format selects one of the three codec variants, per the "variant tag
// (json | csv | mermaid)" design note.
const (
	FormatJSON    = "json"
	FormatCSV     = "csv"
	FormatMermaid = "mermaid"
)

// CodecOptions carries every per-request knob that can influence codec
// selection: nested document shape, diagram dialect, resource type (for
// diagram labels), and the lookup policy (for diagram labels and, via the
// enricher, reference resolution).
type CodecOptions struct {
	Nested       bool
	Dialect      diagram.Dialect
	ResourceType string
	Policy       *lookup.Policy
}

// NewCodec resolves format into a codec.Codec implementation.
func NewCodec(format string, opts CodecOptions) (codec.Codec, error) {
	switch format {
	case FormatJSON, "":
		return document.New(opts.Nested), nil
	case FormatCSV:
		return tabular.New(), nil
	case FormatMermaid:
		dialect := opts.Dialect
		if dialect == "" {
			dialect = diagram.Flowchart
		}
		return diagram.New(dialect, opts.ResourceType, opts.Policy), nil
	default:
		return nil, NewError(DecodeError, "unsupported format %q", format)
	}
}

// ParseDialect maps the diagram_type query parameter to a diagram.Dialect,
// defaulting to flowchart.
func ParseDialect(raw string) (diagram.Dialect, error) {
	switch raw {
	case "", "flowchart":
		return diagram.Flowchart, nil
	case "graph":
		return diagram.Graph, nil
	case "mindmap":
		return diagram.Mindmap, nil
	default:
		return "", fmt.Errorf("unsupported diagram_type %q", raw)
	}
}
