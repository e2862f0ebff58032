// Package stats computes the figures shown next to every Bommel.
package stats

import (
	"fmt"
	"strconv"

	"bommel/internal/core"
	"bommel/internal/tree"
)

// Apply fills Node.Stats, Display and SubBommelsCount on every branch of t.
//
// direct holds each node's own figures as fetched for mode.IncludeDrafts.
// With mode.Aggregate set, Display is own plus the cumulative figures of all
// children, computed in a single post-order pass. Virtual wrappers have no own
// figures.
func Apply(t *tree.Tree, direct map[int64]core.Statistics, mode core.StatisticsMode) {
	if t == nil || t.Root == nil {
		return
	}
	var visit func(b *tree.Branch) core.Statistics
	visit = func(b *tree.Branch) core.Statistics {
		own := core.Statistics{}
		if !b.Virtual {
			own = direct[b.Node.ID]
		}
		b.Node.Stats = own

		cumulative := own
		for _, c := range b.Children {
			cumulative = cumulative.Add(visit(c))
		}
		b.SubBommelsCount = len(b.Children)
		if mode.Aggregate {
			b.Display = cumulative
		} else {
			b.Display = own
		}
		return cumulative
	}
	visit(t.Root)
}

// Cumulative returns the figures of id including every descendant, straight
// from the flat store. It is used where no tree has been built.
func Cumulative(s *tree.Store, direct map[int64]core.Statistics, id int64) core.Statistics {
	total := direct[id]
	for _, d := range s.DescendantsOf(id) {
		total = total.Add(direct[d])
	}
	return total
}

// FiguresFromWire converts collaborator output keyed by string ids.
func FiguresFromWire(wire map[string]core.Statistics) (map[int64]core.Statistics, error) {
	out := make(map[int64]core.Statistics, len(wire))
	for key, s := range wire {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("statistics key %q: %w", key, err)
		}
		out[id] = s
	}
	return out, nil
}

// FiguresToWire is the inverse of FiguresFromWire, used by collaborators.
func FiguresToWire(figures map[int64]core.Statistics) map[string]core.Statistics {
	out := make(map[string]core.Statistics, len(figures))
	for id, s := range figures {
		out[strconv.FormatInt(id, 10)] = s
	}
	return out
}
