// Package tree keeps the Bommel hierarchy as a flat adjacency list and
// derives nested trees and legal move targets from it.
//
// The flat list is the source of truth: reparenting is a single ParentID
// update, and nesting only happens at render time (BuildTree).
package tree

import (
	"errors"
	"sort"

	"bommel/internal/core"
)

// IDSet is a set of Bommel ids.
type IDSet map[int64]struct{}

// NewIDSet builds a set from the given ids.
func NewIDSet(ids ...int64) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Store is an immutable snapshot of one organization's nodes in load order.
type Store struct {
	nodes []core.Node
	index map[int64]int
}

// NewStore copies nodes into a new snapshot. On duplicate ids the first one wins.
func NewStore(nodes []core.Node) *Store {
	s := &Store{
		nodes: make([]core.Node, 0, len(nodes)),
		index: make(map[int64]int, len(nodes)),
	}
	for _, n := range nodes {
		if _, dup := s.index[n.ID]; dup {
			continue
		}
		s.index[n.ID] = len(s.nodes)
		s.nodes = append(s.nodes, n)
	}
	return s
}

// Nodes returns a copy of the nodes in load order.
func (s *Store) Nodes() []core.Node {
	return append([]core.Node(nil), s.nodes...)
}

func (s *Store) Len() int {
	return len(s.nodes)
}

func (s *Store) Get(id int64) (core.Node, bool) {
	i, ok := s.index[id]
	if !ok {
		return core.Node{}, false
	}
	return s.nodes[i], true
}

// Root returns the organization's own root Bommel, if loaded.
func (s *Store) Root() (core.Node, bool) {
	for _, n := range s.nodes {
		if n.IsRoot {
			return n, true
		}
	}
	return core.Node{}, false
}

// ChildrenOf returns the direct children of id in list order.
func (s *Store) ChildrenOf(id int64) []core.Node {
	var out []core.Node
	for _, n := range s.nodes {
		if n.ParentID == id && n.ID != id {
			out = append(out, n)
		}
	}
	return out
}

// DescendantsOf returns every transitive child of id, breadth first.
// Each id is visited once, so cyclic data terminates.
func (s *Store) DescendantsOf(id int64) []int64 {
	children := s.childIndex()
	visited := NewIDSet(id)
	var out []int64
	queue := []int64{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range children[cur] {
			if visited.Has(child) {
				continue
			}
			visited[child] = struct{}{}
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

// AncestorChainOf walks parent links from id (exclusive) up to the top level.
// The first element is the direct parent. A parent id that is not loaded ends
// the chain. More than Len() steps means a cycle and yields an IntegrityError.
func (s *Store) AncestorChainOf(id int64) ([]int64, error) {
	n, ok := s.Get(id)
	if !ok {
		return nil, core.ErrNodeNotFound
	}
	var chain []int64
	cur := n.ParentID
	for steps := 0; cur != core.VirtualRootID; steps++ {
		if steps >= len(s.nodes) || cur == id {
			return nil, &core.IntegrityError{NodeID: id, Chain: append(append([]int64{id}, chain...), cur)}
		}
		parent, ok := s.Get(cur)
		if !ok {
			break
		}
		chain = append(chain, cur)
		cur = parent.ParentID
	}
	return chain, nil
}

// CheckIntegrity walks every ancestor chain and joins the IntegrityErrors found.
func (s *Store) CheckIntegrity() error {
	var errs []error
	for _, n := range s.nodes {
		if _, err := s.AncestorChainOf(n.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) childIndex() map[int64][]int64 {
	children := make(map[int64][]int64, len(s.nodes))
	for _, n := range s.nodes {
		children[n.ParentID] = append(children[n.ParentID], n.ID)
	}
	return children
}
