package diagram

import (
	"regexp"
	"strings"

	"github.com/dbsmedya/linkbridge/internal/linkrecord"
)

var (
	// nodeLineRe matches a node declaration in any of the three bracket
	// shapes the dialects use (flowchart/graph use [...], mindmap uses
	// (...); {...} is accepted too, per the parser's leniency contract).
	nodeLineRe = regexp.MustCompile(`^([A-Za-z0-9_]+)\s*[\[\(\{]"?(.*?)"?[\]\)\}]\s*$`)
	edgeLineRe = regexp.MustCompile(`^([A-Za-z0-9_]+)\s*-->\s*([A-Za-z0-9_]+)\s*$`)
)

// parsedNode is Parse's intermediate per-node bookkeeping.
type parsedNode struct {
	safeID     string
	label      string
	originalID string
	parentSafe string
	depth      int
	order      int
}

// Parse decodes mermaid source back into records, recovering _original_id,
// a name-bearing field, and parent_id per the parsing contract. Metadata
// comment lines are skipped if present; they are optional.
func Parse(input string) ([]*linkrecord.Record, error) {
	lines := strings.Split(input, "\n")

	var dialect Dialect
	dialectFound := false

	var nodes []*parsedNode
	bySafeID := make(map[string]*parsedNode)

	// mindmap indentation tracking: most recently seen node at each depth.
	lastAtDepth := make(map[int]*parsedNode)

	for _, rawLine := range lines {
		trimmed := strings.TrimSpace(rawLine)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "%%") {
			continue
		}
		if !dialectFound {
			if d, ok := parseDialectToken(trimmed); ok {
				dialect = d
				dialectFound = true
				continue
			}
		}

		if dialect == Mindmap {
			if m := nodeLineRe.FindStringSubmatch(trimmed); m != nil {
				indent := leadingSpaces(rawLine)
				depth := indent / indentWidth
				n := &parsedNode{
					safeID: m[1],
					label:  m[2],
					depth:  depth,
					order:  len(nodes),
				}
				resolveOriginalID(n)
				if parent, ok := lastAtDepth[depth-1]; ok {
					n.parentSafe = parent.safeID
				}
				lastAtDepth[depth] = n
				nodes = append(nodes, n)
				bySafeID[n.safeID] = n
			}
			continue
		}

		if m := edgeLineRe.FindStringSubmatch(trimmed); m != nil {
			if child, ok := bySafeID[m[2]]; ok {
				child.parentSafe = m[1]
			}
			continue
		}
		if m := nodeLineRe.FindStringSubmatch(trimmed); m != nil {
			n := &parsedNode{
				safeID: m[1],
				label:  m[2],
				order:  len(nodes),
			}
			resolveOriginalID(n)
			nodes = append(nodes, n)
			bySafeID[n.safeID] = n
			continue
		}
	}

	records := make([]*linkrecord.Record, 0, len(nodes))
	for _, n := range nodes {
		rec := linkrecord.New()
		rec.Set(linkrecord.FieldOriginalID, n.originalID)
		rec.Set(nameField, firstSegment(n.label))
		if n.parentSafe != "" {
			if parent, ok := bySafeID[n.parentSafe]; ok {
				rec.Set(linkrecord.FieldParentID, parent.originalID)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// resolveOriginalID implements the node-declaration parsing rule: split the
// label on <br/>; if a segment of the form "_original_id: <value>" is
// present, that becomes the original id, otherwise the safeId stands in for
// it (it was derived from the original id on emission, so it's the closest
// available recovery when the metadata segment is missing).
func resolveOriginalID(n *parsedNode) {
	n.originalID = n.safeID
	for _, seg := range strings.Split(n.label, "<br/>") {
		seg = strings.TrimSpace(seg)
		if rest, ok := strings.CutPrefix(seg, "_original_id:"); ok {
			n.originalID = strings.TrimSpace(rest)
		}
	}
}

func firstSegment(label string) string {
	segments := strings.SplitN(label, "<br/>", 2)
	return strings.TrimSpace(segments[0])
}

func leadingSpaces(s string) int {
	n := 0
	for _, r := range s {
		if r == ' ' {
			n++
			continue
		}
		break
	}
	return n
}
