package tree

import (
	"fmt"

	"bommel/internal/core"
)

// LegalTargets returns every id nodeID may be dropped onto.
//
// Excluded are the node itself, its descendants (cycles), its current parent
// (no-op), and the real root when the node already sits at the top level.
func LegalTargets(nodeID int64, nodes []core.Node) IDSet {
	return NewStore(nodes).LegalTargets(nodeID)
}

// LegalTargets is the snapshot-bound form of the package function.
func (s *Store) LegalTargets(nodeID int64) IDSet {
	node, ok := s.Get(nodeID)
	if !ok {
		return IDSet{}
	}

	legal := make(IDSet, len(s.nodes))
	for _, n := range s.nodes {
		legal[n.ID] = struct{}{}
	}
	delete(legal, nodeID)
	for _, d := range s.DescendantsOf(nodeID) {
		delete(legal, d)
	}
	delete(legal, node.ParentID)
	if node.IsTopLevel() {
		if root, ok := s.Root(); ok {
			delete(legal, root.ID)
		}
	}
	return legal
}

// InvalidTargets is the complement of LegalTargets over the loaded ids.
func (s *Store) InvalidTargets(nodeID int64) IDSet {
	legal := s.LegalTargets(nodeID)
	invalid := make(IDSet, len(s.nodes)-len(legal))
	for _, n := range s.nodes {
		if !legal.Has(n.ID) {
			invalid[n.ID] = struct{}{}
		}
	}
	return invalid
}

// Movable reports whether nodeID may start a drag at all.
func (s *Store) Movable(nodeID int64) bool {
	n, ok := s.Get(nodeID)
	return ok && !n.IsRoot
}

// ValidateMove gates a reparent before it reaches the collaborator.
func (s *Store) ValidateMove(nodeID, newParentID int64) error {
	n, ok := s.Get(nodeID)
	if !ok {
		return &core.ValidationError{Field: "id", Err: core.ErrNodeNotFound}
	}
	if n.IsRoot {
		return &core.ValidationError{Field: "id", Err: core.ErrRootImmutable}
	}
	if !s.LegalTargets(nodeID).Has(newParentID) {
		return &core.ValidationError{
			Field: "parentId",
			Err:   fmt.Errorf("%w: cannot move %d under %d", core.ErrIllegalTarget, nodeID, newParentID),
		}
	}
	return nil
}
