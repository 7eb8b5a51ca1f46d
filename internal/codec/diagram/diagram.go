// Package diagram implements the Diagram Codec (C6): emitting and parsing a
// textual diagram syntax with three dialects (flowchart, graph, mindmap).
//
// linkbridge needs the opposite capability of a typical mermaid renderer —
// emit mermaid source from records, then re-parse it back into records — so
// the algorithmic core here is new. The package shape (a Config struct
// holding tunable constants, a Parse/Render-style pair of entry points, a
// root.go of layout constants) follows the rendering-package conventions
// used elsewhere in this codebase.
package diagram

import (
	"fmt"
	"strings"

	"github.com/dbsmedya/linkbridge/internal/linkrecord"
	"github.com/dbsmedya/linkbridge/internal/lookup"
)

// Dialect selects which of the three mermaid variants Emit produces.
type Dialect string

const (
	Flowchart Dialect = "flowchart"
	Graph     Dialect = "graph"
	Mindmap   Dialect = "mindmap"
)

// Config holds the tunable knobs for one Emit/Parse pass.
type Config struct {
	Dialect      Dialect
	ResourceType string
	Policy       *lookup.Policy
}

// DefaultConfig returns a Config defaulting to the flowchart dialect with no
// lookup-policy overrides.
func DefaultConfig() *Config {
	return &Config{Dialect: Flowchart, Policy: lookup.NewPolicy(nil)}
}

func dialectToken(d Dialect) string {
	switch d {
	case Graph:
		return "graph " + defaultDirection
	case Mindmap:
		return "mindmap"
	default:
		return "flowchart " + defaultDirection
	}
}

// parseDialectToken recognizes the header line emitted by dialectToken
// (lenient about trailing direction tokens or their absence).
func parseDialectToken(line string) (Dialect, bool) {
	switch {
	case strings.HasPrefix(line, "flowchart"):
		return Flowchart, true
	case strings.HasPrefix(line, "graph"):
		return Graph, true
	case strings.HasPrefix(line, "mindmap"):
		return Mindmap, true
	default:
		return "", false
	}
}

func fmtMetadata(resourceType, exportedAt string) []string {
	return []string{
		fmt.Sprintf("%%%% exported: %s", exportedAt),
		fmt.Sprintf("%%%% resource_type: %s", resourceType),
	}
}

// labelFor selects the human-readable field per the lookup policy (C2) and
// formats the full node label, including the embedded _original_id segment
// the parser relies on to recover the source identifier.
func labelFor(rec *linkrecord.Record, resourceType string, policy *lookup.Policy) string {
	_, value, ok := policy.FirstNonNullFrom(resourceType, func(f string) (any, bool) {
		return rec.Get(f)
	})
	display := rec.OriginalID()
	if ok {
		display = fmt.Sprintf("%v", value)
	}
	return fmt.Sprintf("%s<br/>_original_id: %s", display, rec.OriginalID())
}

// nameField is the field parsed records carry their label's first segment
// under, per the parsing contract's "name-bearing field (default name)".
const nameField = "name"
