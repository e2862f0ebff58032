package tree

import (
	"testing"

	"bommel/internal/core"
	"pgregory.net/rapid"
)

// forestGen draws a valid forest: every node's parent is 0 or an earlier id.
func forestGen(t *rapid.T) []core.Node {
	n := rapid.IntRange(1, 25).Draw(t, "size")
	nodes := make([]core.Node, 0, n)
	for i := 1; i <= n; i++ {
		parent := int64(rapid.IntRange(0, i-1).Draw(t, "parent"))
		nodes = append(nodes, core.Node{ID: int64(i), ParentID: parent, Label: "n"})
	}
	return nodes
}

func TestProperty_MovesNeverIntroduceCycles(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		nodes := forestGen(t)
		steps := rapid.IntRange(0, 40).Draw(t, "steps")

		for i := 0; i < steps; i++ {
			s := NewStore(nodes)
			src := int64(rapid.IntRange(1, len(nodes)).Draw(t, "src"))
			dst := int64(rapid.IntRange(0, len(nodes)).Draw(t, "dst"))
			if s.ValidateMove(src, dst) != nil {
				continue
			}
			for j := range nodes {
				if nodes[j].ID == src {
					nodes[j].ParentID = dst
				}
			}
		}

		s := NewStore(nodes)
		if err := s.CheckIntegrity(); err != nil {
			t.Fatalf("integrity broken: %v", err)
		}
		for _, n := range nodes {
			for _, d := range s.DescendantsOf(n.ID) {
				if d == n.ID {
					t.Fatalf("node %d is its own descendant", n.ID)
				}
			}
		}
	})
}

func TestProperty_LegalTargetsExclusions(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		nodes := forestGen(t)
		s := NewStore(nodes)
		id := int64(rapid.IntRange(1, len(nodes)).Draw(t, "id"))
		node, _ := s.Get(id)

		legal := s.LegalTargets(id)
		if legal.Has(id) {
			t.Fatalf("legal targets of %d contain itself", id)
		}
		if legal.Has(node.ParentID) {
			t.Fatalf("legal targets of %d contain its parent %d", id, node.ParentID)
		}
		for _, d := range s.DescendantsOf(id) {
			if legal.Has(d) {
				t.Fatalf("legal targets of %d contain descendant %d", id, d)
			}
		}
	})
}

func TestProperty_BuildTreeHasExactlyOneRoot(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var nodes []core.Node
		if rapid.Bool().Draw(t, "nonEmpty") {
			nodes = forestGen(t)
		}
		var record *core.Node
		if rapid.Bool().Draw(t, "withRecord") {
			record = &core.Node{ID: 1000, Label: "Org", IsRoot: true}
		}

		tr := BuildTree(nodes, core.VirtualRootID, record)
		if tr.Root == nil {
			t.Fatalf("no root for %d nodes", len(nodes))
		}
		if len(tr.Omitted) != 0 {
			t.Fatalf("valid forest lost nodes: %v", tr.Omitted)
		}
		if got := len(Flatten(tr)); got != len(nodes) {
			t.Fatalf("flatten returned %d of %d nodes", got, len(nodes))
		}
	})
}
