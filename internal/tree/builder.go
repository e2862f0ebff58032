package tree

import "bommel/internal/core"

// Branch is one node of the nested render tree.
type Branch struct {
	Node     core.Node
	Children []*Branch
	// Virtual marks a wrapper synthesized by root consolidation; it is never persisted.
	Virtual bool

	// Display holds the figures shown for the current statistics mode.
	Display core.Statistics
	// SubBommelsCount is the number of direct children.
	SubBommelsCount int
}

// Tree is the result of BuildTree: always exactly one root.
type Tree struct {
	Root *Branch
	// Omitted lists nodes that could not be reached from the top level,
	// which only happens with cyclic data.
	Omitted []int64
}

// BuildTree nests the flat node list under virtualParentID.
//
// Root consolidation: a single top-level node is the root; none plus a
// rootRecord synthesizes a root from the record; several are wrapped in a
// virtual root labelled after rootRecord when present.
func BuildTree(nodes []core.Node, virtualParentID int64, rootRecord *core.Node) *Tree {
	children := make(map[int64][]core.Node, len(nodes))
	var top []core.Node
	for _, n := range nodes {
		if n.ParentID == virtualParentID {
			top = append(top, n)
			continue
		}
		children[n.ParentID] = append(children[n.ParentID], n)
	}

	visited := make(IDSet, len(nodes))
	var nest func(n core.Node) *Branch
	nest = func(n core.Node) *Branch {
		visited[n.ID] = struct{}{}
		b := &Branch{Node: n}
		for _, c := range children[n.ID] {
			if visited.Has(c.ID) {
				continue
			}
			b.Children = append(b.Children, nest(c))
		}
		b.SubBommelsCount = len(b.Children)
		return b
	}

	t := &Tree{}
	switch {
	case len(top) == 1:
		t.Root = nest(top[0])
	case len(top) == 0 && rootRecord != nil:
		root := *rootRecord
		root.ParentID = virtualParentID
		root.Stats = core.Statistics{}
		t.Root = &Branch{Node: root, Virtual: true}
	default:
		wrapper := core.Node{ID: virtualParentID, ParentID: virtualParentID}
		if rootRecord != nil {
			wrapper.Label = rootRecord.Label
			wrapper.Emoji = rootRecord.Emoji
			wrapper.OrganizationID = rootRecord.OrganizationID
		}
		t.Root = &Branch{Node: wrapper, Virtual: true}
		for _, n := range top {
			t.Root.Children = append(t.Root.Children, nest(n))
		}
		t.Root.SubBommelsCount = len(t.Root.Children)
	}

	for _, n := range nodes {
		if !visited.Has(n.ID) {
			t.Omitted = append(t.Omitted, n.ID)
		}
	}
	return t
}

// Walk visits every branch in pre-order.
func (t *Tree) Walk(fn func(b *Branch, depth int)) {
	var walk func(b *Branch, depth int)
	walk = func(b *Branch, depth int) {
		fn(b, depth)
		for _, c := range b.Children {
			walk(c, depth+1)
		}
	}
	if t.Root != nil {
		walk(t.Root, 0)
	}
}

// Find returns the branch holding id, skipping virtual wrappers.
func (t *Tree) Find(id int64) (*Branch, bool) {
	var found *Branch
	t.Walk(func(b *Branch, _ int) {
		if found == nil && !b.Virtual && b.Node.ID == id {
			found = b
		}
	})
	return found, found != nil
}

// Flatten converts the tree back to the flat list in pre-order,
// dropping synthesized wrappers.
func Flatten(t *Tree) []core.Node {
	var out []core.Node
	t.Walk(func(b *Branch, _ int) {
		if !b.Virtual {
			out = append(out, b.Node)
		}
	})
	return out
}
