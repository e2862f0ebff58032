package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"bommel/internal/core"
	"bommel/internal/stats"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries

	// organizationID owns nodes created at the top level.
	organizationID int64
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer keeps the check-then-write sequences below serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db), organizationID: 1}, nil
}

// SetOrganization selects the organization that receives top-level nodes.
func (r *SQLiteRepository) SetOrganization(id int64) {
	r.organizationID = id
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListNodes implements ports.NodeLister
func (r *SQLiteRepository) ListNodes(ctx context.Context, organizationID int64) ([]core.Node, error) {
	rows, err := r.queries.ListBommels(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list bommels: %w", err)
	}
	nodes := make([]core.Node, len(rows))
	for i, b := range rows {
		nodes[i] = b.toCore()
	}
	return nodes, nil
}

// CreateNode implements ports.NodeWriter
func (r *SQLiteRepository) CreateNode(ctx context.Context, parentID int64, label, emoji string) (core.Node, error) {
	if err := core.ValidateLabel(label); err != nil {
		return core.Node{}, err
	}

	org := r.organizationID
	if parentID != core.VirtualRootID {
		parent, err := r.queries.GetBommel(ctx, parentID)
		if err != nil {
			return core.Node{}, notFound(err, parentID)
		}
		org = parent.OrganizationID
	}

	b, err := r.queries.CreateBommel(ctx, CreateBommelParams{
		OrganizationID: org,
		ParentID:       parentID,
		Label:          strings.TrimSpace(label),
		Emoji:          emoji,
	})
	if err != nil {
		return core.Node{}, fmt.Errorf("create bommel: %w", err)
	}

	slog.InfoContext(ctx, "Bommel saved to SQLite", "id", b.ID, "parent_id", b.ParentID, "organization_id", b.OrganizationID)
	return b.toCore(), nil
}

// CreateNodeInOrganization creates a top-level node for a specific organization.
func (r *SQLiteRepository) CreateNodeInOrganization(ctx context.Context, organizationID int64, label, emoji string, isRoot bool) (core.Node, error) {
	if err := core.ValidateLabel(label); err != nil {
		return core.Node{}, err
	}
	b, err := r.queries.CreateBommel(ctx, CreateBommelParams{
		OrganizationID: organizationID,
		ParentID:       core.VirtualRootID,
		Label:          strings.TrimSpace(label),
		Emoji:          emoji,
		IsRoot:         isRoot,
	})
	if err != nil {
		return core.Node{}, fmt.Errorf("create bommel: %w", err)
	}
	return b.toCore(), nil
}

// UpdateNode implements ports.NodeWriter
func (r *SQLiteRepository) UpdateNode(ctx context.Context, id int64, label, emoji string, parentID int64) (core.Node, error) {
	if err := core.ValidateLabel(label); err != nil {
		return core.Node{}, err
	}

	var updated Bommel
	err := r.inTx(ctx, func(q *Queries) error {
		cur, err := q.GetBommel(ctx, id)
		if err != nil {
			return notFound(err, id)
		}
		if cur.IsRoot {
			return core.ErrRootImmutable
		}
		if parentID != cur.ParentID {
			if err := checkParent(ctx, q, id, parentID); err != nil {
				return err
			}
		}
		updated, err = q.UpdateBommel(ctx, UpdateBommelParams{
			ID:       id,
			ParentID: parentID,
			Label:    strings.TrimSpace(label),
			Emoji:    emoji,
		})
		if err != nil {
			return fmt.Errorf("update bommel: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Node{}, err
	}
	return updated.toCore(), nil
}

// MoveNode implements ports.NodeWriter
func (r *SQLiteRepository) MoveNode(ctx context.Context, id, newParentID int64) error {
	return r.inTx(ctx, func(q *Queries) error {
		cur, err := q.GetBommel(ctx, id)
		if err != nil {
			return notFound(err, id)
		}
		if cur.IsRoot {
			return core.ErrRootImmutable
		}
		if err := checkParent(ctx, q, id, newParentID); err != nil {
			return err
		}
		if err := q.SetParent(ctx, id, newParentID); err != nil {
			return fmt.Errorf("set parent: %w", err)
		}
		slog.InfoContext(ctx, "Bommel moved", "id", id, "parent_id", newParentID)
		return nil
	})
}

// DeleteNode implements ports.NodeWriter. Children move to the deleted
// node's parent.
func (r *SQLiteRepository) DeleteNode(ctx context.Context, id int64, handling core.TransactionHandling) error {
	if err := handling.Validate(); err != nil {
		return err
	}
	return r.inTx(ctx, func(q *Queries) error {
		cur, err := q.GetBommel(ctx, id)
		if err != nil {
			return notFound(err, id)
		}
		if cur.IsRoot {
			return core.ErrRootImmutable
		}

		linked, err := q.CountTransactionsForBommel(ctx, id)
		if err != nil {
			return fmt.Errorf("count transactions: %w", err)
		}
		if linked > 0 {
			if handling != core.HandlingUnlink {
				return fmt.Errorf("bommel %d has %d transactions: %w", id, linked, core.ErrTransactionHandlingRequired)
			}
			if err := q.UnlinkTransactions(ctx, id); err != nil {
				return fmt.Errorf("unlink transactions: %w", err)
			}
		}

		if err := q.ReparentChildren(ctx, id, cur.ParentID); err != nil {
			return fmt.Errorf("reparent children: %w", err)
		}
		if err := q.DeleteBommel(ctx, id); err != nil {
			return fmt.Errorf("delete bommel: %w", err)
		}
		slog.InfoContext(ctx, "Bommel deleted", "id", id, "unlinked_transactions", linked)
		return nil
	})
}

// GetStatistics implements ports.StatisticsReader
func (r *SQLiteRepository) GetStatistics(ctx context.Context, organizationID int64, mode core.StatisticsMode) (map[string]core.Statistics, error) {
	var (
		rows []StatisticsRow
		err  error
	)
	if mode.Aggregate {
		rows, err = r.queries.AggregateStatistics(ctx, organizationID, mode.IncludeDrafts)
	} else {
		rows, err = r.queries.DirectStatistics(ctx, organizationID, mode.IncludeDrafts)
	}
	if err != nil {
		return nil, fmt.Errorf("get statistics: %w", err)
	}

	figures := make(map[int64]core.Statistics, len(rows))
	for _, s := range rows {
		figures[s.BommelID] = core.Statistics{
			Total:             core.Money{Cents: s.TotalCents},
			Income:            core.Money{Cents: s.IncomeCents},
			Expenses:          core.Money{Cents: s.ExpensesCents},
			TransactionsCount: s.TransactionsCount,
		}
	}
	return stats.FiguresToWire(figures), nil
}

// RootRecord implements ports.RootReader
func (r *SQLiteRepository) RootRecord(ctx context.Context, organizationID int64) (*core.Node, error) {
	org, err := r.queries.GetOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("get organization %d: %w", organizationID, err)
	}
	return &core.Node{
		ID:             core.VirtualRootID,
		OrganizationID: org.ID,
		Label:          org.Name,
		Emoji:          org.Emoji,
		IsRoot:         true,
	}, nil
}

// EnsureOrganization creates or renames the organization record.
func (r *SQLiteRepository) EnsureOrganization(ctx context.Context, id int64, name, emoji string) error {
	if err := r.queries.UpsertOrganization(ctx, Organization{ID: id, Name: name, Emoji: emoji}); err != nil {
		return fmt.Errorf("upsert organization: %w", err)
	}
	return nil
}

// RecordTransaction implements ports.TransactionRecorder
func (r *SQLiteRepository) RecordTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.Amount.Cents == 0 {
		return core.Transaction{}, core.ErrInvalidAmount
	}
	bommelID := sql.NullInt64{}
	if tx.BommelID != 0 {
		if _, err := r.queries.GetBommel(ctx, tx.BommelID); err != nil {
			return core.Transaction{}, notFound(err, tx.BommelID)
		}
		bommelID = sql.NullInt64{Int64: tx.BommelID, Valid: true}
	}
	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		BommelID:    bommelID,
		AmountCents: tx.Amount.Cents,
		Draft:       tx.Draft,
		Description: tx.Description,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return core.Transaction{
		ID:          row.ID,
		BommelID:    row.BommelID.Int64,
		Amount:      core.Money{Cents: row.AmountCents},
		Draft:       row.Draft,
		Description: row.Description,
	}, nil
}

// CountNodes reports how many bommels an organization holds.
func (r *SQLiteRepository) CountNodes(ctx context.Context, organizationID int64) (int64, error) {
	n, err := r.queries.CountBommels(ctx, organizationID)
	if err != nil {
		return 0, fmt.Errorf("count bommels: %w", err)
	}
	return n, nil
}

// Import copies an existing tree with its transactions into an empty
// organization, preserving structure and the root flag. Ids are reassigned.
func (r *SQLiteRepository) Import(ctx context.Context, organizationID int64, nodes []core.Node, txs []core.Transaction) error {
	return r.inTx(ctx, func(q *Queries) error {
		ids := make(map[int64]int64, len(nodes))
		pending := append([]core.Node(nil), nodes...)
		for len(pending) > 0 {
			var next []core.Node
			for _, n := range pending {
				parent := core.VirtualRootID
				if n.ParentID != core.VirtualRootID {
					mapped, ok := ids[n.ParentID]
					if !ok {
						next = append(next, n)
						continue
					}
					parent = mapped
				}
				b, err := q.CreateBommel(ctx, CreateBommelParams{
					OrganizationID: organizationID,
					ParentID:       parent,
					Label:          n.Label,
					Emoji:          n.Emoji,
					IsRoot:         n.IsRoot,
				})
				if err != nil {
					return fmt.Errorf("import bommel %q: %w", n.Label, err)
				}
				ids[n.ID] = b.ID
			}
			if len(next) == len(pending) {
				return fmt.Errorf("import: %d bommels have no reachable parent", len(next))
			}
			pending = next
		}

		for _, t := range txs {
			bommelID := sql.NullInt64{}
			if mapped, ok := ids[t.BommelID]; ok {
				bommelID = sql.NullInt64{Int64: mapped, Valid: true}
			}
			if _, err := q.CreateTransaction(ctx, CreateTransactionParams{
				BommelID:    bommelID,
				AmountCents: t.Amount.Cents,
				Draft:       t.Draft,
				Description: t.Description,
			}); err != nil {
				return fmt.Errorf("import transaction: %w", err)
			}
		}
		slog.InfoContext(ctx, "Tree imported", "organization_id", organizationID, "bommels", len(nodes), "transactions", len(txs))
		return nil
	})
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func checkParent(ctx context.Context, q *Queries, id, parentID int64) error {
	if parentID == core.VirtualRootID {
		return nil
	}
	if parentID == id {
		return fmt.Errorf("%w: %d under itself", core.ErrIllegalTarget, id)
	}
	if _, err := q.GetBommel(ctx, parentID); err != nil {
		return notFound(err, parentID)
	}
	below, err := q.IsDescendant(ctx, id, parentID)
	if err != nil {
		return fmt.Errorf("check descendants: %w", err)
	}
	if below {
		return fmt.Errorf("%w: %d is a descendant of %d", core.ErrIllegalTarget, parentID, id)
	}
	return nil
}

func notFound(err error, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("bommel %d: %w", id, core.ErrNodeNotFound)
	}
	return fmt.Errorf("get bommel %d: %w", id, err)
}

func (b Bommel) toCore() core.Node {
	return core.Node{
		ID:             b.ID,
		ParentID:       b.ParentID,
		OrganizationID: b.OrganizationID,
		Label:          b.Label,
		Emoji:          b.Emoji,
		IsRoot:         b.IsRoot,
	}
}
