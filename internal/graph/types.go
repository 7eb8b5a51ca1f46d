// Package graph provides the record dependency graph and Kahn's-algorithm
// topological sort used by the tree flattener/nester and the import
// orchestrator to order records so parents are posted before children.
package graph

// Node represents one record in the dependency graph, keyed by its
// _original_id.
type Node struct {
	ID         string // _original_id of the record
	ParentID   string // _original_id of the parent, empty for roots
	InputIndex int    // position of this record in the original input list
	IsRoot     bool   // true if ParentID is empty or unresolvable within the batch
}

// RecordGraph is the dependency structure built from a flat record list: an
// edge runs from parent to child whenever child.parent_id (or
// child.parent_uuid) equals parent._original_id. It is keyed by each
// record's own _original_id, with edges inferred purely from the
// self-referential FK field, rather than by a config-declared relation
// between named tables.
type RecordGraph struct {
	Nodes    map[string]*Node    // _original_id -> node
	Children map[string][]string // _original_id -> child ids (outgoing edges)
	Order    []string            // all node ids in original input order
}

// NewRecordGraph creates an empty graph.
func NewRecordGraph() *RecordGraph {
	return &RecordGraph{
		Nodes:    make(map[string]*Node),
		Children: make(map[string][]string),
	}
}

// AddNode registers a record's id at the given input position. Calling
// AddNode twice for the same id is a no-op beyond the first call, since
// each _original_id should appear once in a batch.
func (g *RecordGraph) AddNode(id string, inputIndex int) {
	if _, exists := g.Nodes[id]; exists {
		return
	}
	g.Nodes[id] = &Node{ID: id, InputIndex: inputIndex, IsRoot: true}
	g.Order = append(g.Order, id)
}

// AddEdge records that child's parent is parent. If parent is not a node in
// this batch, the child remains a root (its self-FK cannot be resolved from
// within the batch, per the Topological Sorter's rule that records whose
// parent_id refers to an id not present in the batch become roots).
func (g *RecordGraph) AddEdge(parent, child string) {
	if _, ok := g.Nodes[parent]; !ok {
		return
	}
	g.Children[parent] = append(g.Children[parent], child)
	if node, ok := g.Nodes[child]; ok {
		node.ParentID = parent
		node.IsRoot = false
	}
}

// GetChildren returns the direct children of id in the order they were
// added.
func (g *RecordGraph) GetChildren(id string) []string {
	return g.Children[id]
}

// GetNode returns the node for id, or nil.
func (g *RecordGraph) GetNode(id string) *Node {
	return g.Nodes[id]
}

// NodeCount returns the number of nodes in the graph.
func (g *RecordGraph) NodeCount() int {
	return len(g.Nodes)
}

// Build constructs a RecordGraph from an ordered list of (id, parentID)
// pairs, i.e. one pass assigning input indices followed by a second pass
// wiring edges — parents may appear after children in the input, so edges
// cannot be wired in a single pass.
func Build(ids []string, parentIDs []string) *RecordGraph {
	g := NewRecordGraph()
	for i, id := range ids {
		g.AddNode(id, i)
	}
	for i, id := range ids {
		parent := parentIDs[i]
		if parent == "" {
			continue
		}
		g.AddEdge(parent, id)
	}
	return g
}
