package diagram

import (
	"time"

	"github.com/dbsmedya/linkbridge/internal/linkrecord"
	"github.com/dbsmedya/linkbridge/internal/lookup"
)

// Codec implements codec.Codec for the mermaid diagram format. Diagram
// codec always emits hierarchically — tree shape is intrinsic to the
// format, not a caller option (tree.Nest is invoked internally for mindmap;
// flowchart/graph express the same hierarchy via edge lines instead of
// indentation).
type Codec struct {
	Dialect      Dialect
	ResourceType string
	Policy       *lookup.Policy
}

// New returns a diagram Codec for the given dialect and resource type. A
// nil policy falls back to built-in lookup defaults only.
func New(dialect Dialect, resourceType string, policy *lookup.Policy) *Codec {
	if policy == nil {
		policy = lookup.NewPolicy(nil)
	}
	return &Codec{Dialect: dialect, ResourceType: resourceType, Policy: policy}
}

// MediaType implements codec.Codec.
func (c *Codec) MediaType() string { return "text/vnd.mermaid" }

// Extension implements codec.Codec.
func (c *Codec) Extension() string { return "mmd" }

// Encode implements codec.Codec.
func (c *Codec) Encode(records []*linkrecord.Record) ([]byte, error) {
	cfg := &Config{Dialect: c.Dialect, ResourceType: c.ResourceType, Policy: c.Policy}
	out, err := Emit(records, cfg, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// Decode implements codec.Codec.
func (c *Codec) Decode(data []byte) ([]*linkrecord.Record, error) {
	return Parse(string(data))
}
