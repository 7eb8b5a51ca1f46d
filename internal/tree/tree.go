// Package tree implements the Tree Flattener/Nester (C4): converting
// between a flat record list with parent pointers and a nested forest with
// children lists.
package tree

import (
	"github.com/dbsmedya/linkbridge/internal/graph"
	"github.com/dbsmedya/linkbridge/internal/linkrecord"
)

// Flatten performs a depth-first pre-order traversal of forest, setting
// parent_id on each child to the parent's _original_id and removing the
// children field on emission.
func Flatten(forest []*linkrecord.Record) []*linkrecord.Record {
	var out []*linkrecord.Record
	var walk func(node *linkrecord.Record, parentID string)
	walk = func(node *linkrecord.Record, parentID string) {
		flat := node.Clone()
		if parentID != "" {
			flat.Set(linkrecord.FieldParentID, parentID)
		}
		var children []*linkrecord.Record
		if childrenAny, ok := flat.Get(linkrecord.FieldChildren); ok {
			children = toRecordSlice(childrenAny)
		}
		flat.Delete(linkrecord.FieldChildren)
		out = append(out, flat)

		id := flat.OriginalID()
		for _, child := range children {
			walk(child, id)
		}
	}
	for _, root := range forest {
		walk(root, "")
	}
	return out
}

// Nest groups flat by parent_id, giving each record a children list. Roots
// are records whose parent_id is null or refers to an id not present in the
// list. Ordering within a sibling set follows input order.
//
// Precondition: flat must be cycle-free. If graph.RecordGraph detects a
// cycle, Nest returns the input unchanged and reports ambiguous=true,
// signalling the caller not to trust the nested shape.
func Nest(flat []*linkrecord.Record) (forest []*linkrecord.Record, ambiguous bool) {
	ids := make([]string, len(flat))
	parentIDs := make([]string, len(flat))
	byID := make(map[string]*linkrecord.Record, len(flat))

	for i, rec := range flat {
		id := rec.OriginalID()
		ids[i] = id
		parentRef, _ := rec.ParentRef()
		parentIDs[i] = parentRef
		if id != "" {
			byID[id] = rec
		}
	}

	g := graph.Build(ids, parentIDs)
	if _, cycleInfo := g.TopologicalSort(true); cycleInfo != nil {
		return flat, true
	}

	childrenOf := make(map[string][]*linkrecord.Record)
	var roots []*linkrecord.Record

	for i, rec := range flat {
		parentID := parentIDs[i]
		if parentID == "" {
			roots = append(roots, rec)
			continue
		}
		if _, exists := byID[parentID]; !exists {
			roots = append(roots, rec)
			continue
		}
		childrenOf[parentID] = append(childrenOf[parentID], rec)
	}

	var nest func(rec *linkrecord.Record) *linkrecord.Record
	nest = func(rec *linkrecord.Record) *linkrecord.Record {
		nested := rec.Clone()
		kids := childrenOf[rec.OriginalID()]
		if len(kids) == 0 {
			return nested
		}
		nestedKids := make([]any, len(kids))
		for i, kid := range kids {
			nestedKids[i] = nest(kid)
		}
		nested.Set(linkrecord.FieldChildren, nestedKids)
		return nested
	}

	forest = make([]*linkrecord.Record, len(roots))
	for i, root := range roots {
		forest[i] = nest(root)
	}
	return forest, false
}

// toRecordSlice normalizes a children field's dynamic value (populated
// either by direct construction, in which case it is []any of *Record, or
// by JSON decoding, in which case each element is map[string]any) into a
// slice of *linkrecord.Record.
func toRecordSlice(v any) []*linkrecord.Record {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]*linkrecord.Record, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case *linkrecord.Record:
			out = append(out, t)
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			out = append(out, linkrecord.FromMap(t, keys))
		}
	}
	return out
}
