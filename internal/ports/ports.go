// Package ports declares the outbound persistence and statistics contracts
// the tree core depends on.
package ports

import (
	"context"

	"bommel/internal/core"
)

type (
	NodeLister interface {
		ListNodes(ctx context.Context, organizationID int64) ([]core.Node, error)
	}

	NodeWriter interface {
		CreateNode(ctx context.Context, parentID int64, label, emoji string) (core.Node, error)
		UpdateNode(ctx context.Context, id int64, label, emoji string, parentID int64) (core.Node, error)
		MoveNode(ctx context.Context, id, newParentID int64) error
		// DeleteNode removes the node; its children move to the node's parent.
		DeleteNode(ctx context.Context, id int64, handling core.TransactionHandling) error
	}

	// StatisticsReader returns per-node figures keyed by the decimal node id.
	StatisticsReader interface {
		GetStatistics(ctx context.Context, organizationID int64, mode core.StatisticsMode) (map[string]core.Statistics, error)
	}

	// Collaborator is everything the mutation coordinator needs.
	Collaborator interface {
		NodeLister
		NodeWriter
		StatisticsReader
	}

	// RootReader is optional; it supplies the organization record used for
	// root consolidation.
	RootReader interface {
		RootRecord(ctx context.Context, organizationID int64) (*core.Node, error)
	}

	// TransactionRecorder is optional; it books receipts against a node.
	TransactionRecorder interface {
		RecordTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	}
)
