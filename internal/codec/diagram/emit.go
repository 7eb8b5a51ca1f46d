package diagram

import (
	"fmt"
	"strings"

	"github.com/dbsmedya/linkbridge/internal/linkrecord"
	"github.com/dbsmedya/linkbridge/internal/sqlutil"
	"github.com/dbsmedya/linkbridge/internal/tree"
)

// Emit renders records as mermaid source per cfg.Dialect. records are
// expected flat (parent_id set on children); mindmap rendering nests them
// internally via tree.Nest since hierarchy is expressed through indentation
// rather than explicit edge lines.
func Emit(records []*linkrecord.Record, cfg *Config, exportedAt string) (string, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var b strings.Builder
	b.WriteString(themeInitDirective)
	b.WriteByte('\n')
	b.WriteString(dialectToken(cfg.Dialect))
	b.WriteByte('\n')
	for _, line := range fmtMetadata(cfg.ResourceType, exportedAt) {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	switch cfg.Dialect {
	case Mindmap:
		emitMindmap(&b, records, cfg)
	default:
		emitFlowchartOrGraph(&b, records, cfg)
	}

	return b.String(), nil
}

func emitFlowchartOrGraph(b *strings.Builder, records []*linkrecord.Record, cfg *Config) {
	safeIDs := make(map[string]string, len(records)) // _original_id -> safeId
	for _, rec := range records {
		safeIDs[rec.OriginalID()] = sqlutil.SafeID(rec.OriginalID())
	}

	for _, rec := range records {
		label := labelFor(rec, cfg.ResourceType, cfg.Policy)
		fmt.Fprintf(b, "%s[\"%s\"]\n", safeIDs[rec.OriginalID()], label)
	}

	for _, rec := range records {
		parentOriginalID, _ := rec.ParentRef()
		if parentOriginalID == "" {
			continue
		}
		parentSafeID, ok := safeIDs[parentOriginalID]
		if !ok {
			continue
		}
		fmt.Fprintf(b, "%s --> %s\n", parentSafeID, safeIDs[rec.OriginalID()])
	}
}

func emitMindmap(b *strings.Builder, records []*linkrecord.Record, cfg *Config) {
	forest, ambiguous := tree.Nest(records)
	if ambiguous {
		// Cycles make indentation-based hierarchy meaningless; emit every
		// record at the root level rather than guess a shape.
		forest = records
	}

	var walk func(rec *linkrecord.Record, depth int)
	walk = func(rec *linkrecord.Record, depth int) {
		label := labelFor(rec, cfg.ResourceType, cfg.Policy)
		indent := strings.Repeat(" ", depth*indentWidth)
		fmt.Fprintf(b, "%s%s(%s)\n", indent, sqlutil.SafeID(rec.OriginalID()), label)

		childrenAny, ok := rec.Get(linkrecord.FieldChildren)
		if !ok {
			return
		}
		children, _ := childrenAny.([]any)
		for _, childAny := range children {
			if child, ok := childAny.(*linkrecord.Record); ok {
				walk(child, depth+1)
			}
		}
	}
	for _, root := range forest {
		walk(root, 0)
	}
}
