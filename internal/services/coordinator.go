package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"bommel/internal/core"
	"bommel/internal/log"
	"bommel/internal/ports"
	"bommel/internal/stats"
	"bommel/internal/tree"
	"golang.org/x/sync/errgroup"
)

// ChangePublisher announces committed mutations, e.g. on AMQP.
type ChangePublisher interface {
	PublishTreeChange(ctx context.Context, change core.TreeChange) error
}

// Snapshot is one consistent view of the tree. It is never mutated after it
// has been published; every reload or mode change swaps in a new one.
type Snapshot struct {
	Store *tree.Store
	Tree  *tree.Tree
	// Figures holds each node's own figures for Mode.IncludeDrafts.
	Figures map[int64]core.Statistics
	// Record is the organization's root record, nil when unavailable.
	Record   *core.Node
	Mode     core.StatisticsMode
	LoadedAt time.Time
	// Integrity is set when the collaborator returned cyclic data. Store and
	// Tree then hold only the reachable nodes; Tree.Omitted lists the rest.
	Integrity error

	seq uint64
}

// Coordinator is the only writer of the tree. Every mutation validates
// locally, calls the collaborator, then reloads the full snapshot.
type Coordinator struct {
	collab         ports.Collaborator
	organizationID int64
	publisher      ChangePublisher
	logger         *log.Logger
	structured     *log.StructuredLogger

	// busy rejects a second mutation while one is persisting or reloading.
	busy atomic.Bool
	// loads numbers fetches in start order; applied is the newest one swapped in.
	loads atomic.Uint64

	mu      sync.RWMutex
	snap    *Snapshot
	applied uint64
}

func NewCoordinator(collab ports.Collaborator, organizationID int64, mode core.StatisticsMode, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentMutation)
	return &Coordinator{
		collab:         collab,
		organizationID: organizationID,
		logger:         logger,
		structured:     log.NewStructuredLogger(logger),
		snap: &Snapshot{
			Store:   tree.NewStore(nil),
			Tree:    tree.BuildTree(nil, core.VirtualRootID, nil),
			Figures: map[int64]core.Statistics{},
			Mode:    mode,
		},
	}
}

// SetLogger replaces the logger. Call it before the coordinator is shared.
func (c *Coordinator) SetLogger(logger *log.Logger) {
	c.logger = logger.WithComponent(log.ComponentMutation)
	c.structured = log.NewStructuredLogger(c.logger)
}

// SetPublisher attaches an optional change publisher.
func (c *Coordinator) SetPublisher(p ChangePublisher) {
	c.publisher = p
}

func (c *Coordinator) OrganizationID() int64 { return c.organizationID }

// Snapshot returns the current view. Callers must not modify it.
func (c *Coordinator) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

func (c *Coordinator) Tree() *tree.Tree { return c.Snapshot().Tree }

func (c *Coordinator) Store() *tree.Store { return c.Snapshot().Store }

func (c *Coordinator) Mode() core.StatisticsMode { return c.Snapshot().Mode }

// Reload re-fetches nodes, statistics and the root record concurrently and
// swaps the snapshot only if all of them succeed. A reload overtaken by a
// later one is dropped. Cyclic nodes do not fail the reload: they are left out
// of the new snapshot and reported through Snapshot.Integrity.
func (c *Coordinator) Reload(ctx context.Context) error {
	return c.reload(ctx, c.Mode())
}

func (c *Coordinator) reload(ctx context.Context, mode core.StatisticsMode) error {
	var (
		nodes  []core.Node
		wire   map[string]core.Statistics
		record *core.Node
	)
	seq := c.loads.Add(1)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		nodes, err = c.collab.ListNodes(gctx, c.organizationID)
		return err
	})
	g.Go(func() error {
		var err error
		wire, err = c.collab.GetStatistics(gctx, c.organizationID, core.StatisticsMode{IncludeDrafts: mode.IncludeDrafts})
		return err
	})
	if rr, ok := c.collab.(ports.RootReader); ok {
		g.Go(func() error {
			r, err := rr.RootRecord(gctx, c.organizationID)
			if err != nil {
				// The record only labels synthesized roots.
				c.logger.WarnContext(gctx, "Root record unavailable", log.FieldError, err)
				return nil
			}
			record = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return &core.PersistenceError{Op: log.OpReload, Err: err}
	}

	figures, err := stats.FiguresFromWire(wire)
	if err != nil {
		return &core.PersistenceError{Op: log.OpReload, Err: err}
	}

	store := tree.NewStore(nodes)
	integrity := store.CheckIntegrity()
	t := tree.BuildTree(nodes, core.VirtualRootID, record)
	if integrity != nil {
		fields := log.NewFields().WithOrganization(c.organizationID)
		fields[log.FieldNodeCount] = len(t.Omitted)
		c.structured.LogError(ctx, "Omitting corrupt bommels", integrity, log.ComponentTree, log.OpReload, fields)
		nodes = reachable(nodes, t.Omitted)
		store = tree.NewStore(nodes)
	}
	stats.Apply(t, figures, mode)

	snap := &Snapshot{Store: store, Tree: t, Figures: figures, Record: record, Mode: mode, LoadedAt: time.Now(), Integrity: integrity}
	if !c.swap(seq, snap) {
		c.logger.DebugContext(ctx, "Dropped stale reload", log.FieldNodeCount, len(nodes))
		return nil
	}

	c.logger.DebugContext(ctx, "Tree reloaded",
		log.FieldNodeCount, len(nodes),
		log.FieldIncludeDrafts, mode.IncludeDrafts,
		log.FieldAggregate, mode.Aggregate)
	return nil
}

// SetMode switches the statistics display. Only an IncludeDrafts change
// goes back to the collaborator; Aggregate alone re-aggregates locally.
func (c *Coordinator) SetMode(ctx context.Context, mode core.StatisticsMode) error {
	cur := c.Snapshot()
	if mode == cur.Mode {
		return nil
	}
	if mode.IncludeDrafts != cur.Mode.IncludeDrafts {
		return c.reload(ctx, mode)
	}

	t := tree.BuildTree(cur.Store.Nodes(), core.VirtualRootID, cur.Record)
	t.Omitted = cur.Tree.Omitted
	stats.Apply(t, cur.Figures, mode)

	c.swap(cur.seq, &Snapshot{
		Store: cur.Store, Tree: t, Figures: cur.Figures, Record: cur.Record,
		Mode: mode, LoadedAt: cur.LoadedAt, Integrity: cur.Integrity,
	})
	return nil
}

// swap installs snap unless a load that started after seq has already been
// swapped in.
func (c *Coordinator) swap(seq uint64, snap *Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq < c.applied {
		return false
	}
	snap.seq = seq
	c.applied = seq
	c.snap = snap
	return true
}

// reachable drops the omitted ids from nodes.
func reachable(nodes []core.Node, omitted []int64) []core.Node {
	skip := make(tree.IDSet, len(omitted))
	for _, id := range omitted {
		skip[id] = struct{}{}
	}
	out := make([]core.Node, 0, len(nodes)-len(omitted))
	for _, n := range nodes {
		if !skip.Has(n.ID) {
			out = append(out, n)
		}
	}
	return out
}

// View builds a tree of the current nodes for mode without replacing the
// snapshot. Figures are fetched only when mode.IncludeDrafts differs.
func (c *Coordinator) View(ctx context.Context, mode core.StatisticsMode) (*tree.Tree, error) {
	cur := c.Snapshot()
	if mode == cur.Mode {
		return cur.Tree, nil
	}
	figures := cur.Figures
	if mode.IncludeDrafts != cur.Mode.IncludeDrafts {
		wire, err := c.collab.GetStatistics(ctx, c.organizationID, core.StatisticsMode{IncludeDrafts: mode.IncludeDrafts})
		if err != nil {
			return nil, &core.PersistenceError{Op: log.OpRender, Err: err}
		}
		if figures, err = stats.FiguresFromWire(wire); err != nil {
			return nil, &core.PersistenceError{Op: log.OpRender, Err: err}
		}
	}
	t := tree.BuildTree(cur.Store.Nodes(), core.VirtualRootID, cur.Record)
	t.Omitted = cur.Tree.Omitted
	stats.Apply(t, figures, mode)
	return t, nil
}

// Create adds a "New item" node under parentID.
func (c *Coordinator) Create(ctx context.Context, parentID int64) (core.Node, error) {
	if err := c.begin(); err != nil {
		return core.Node{}, err
	}
	defer c.end()

	if parentID != core.VirtualRootID {
		if _, ok := c.Store().Get(parentID); !ok {
			return core.Node{}, &core.ValidationError{Field: "parentId", Err: core.ErrNodeNotFound}
		}
	}

	n, err := c.collab.CreateNode(ctx, parentID, core.DefaultLabel, "")
	if err != nil {
		return core.Node{}, c.persistenceFailed(ctx, log.OpCreate, parentID, err)
	}
	if err := c.commit(ctx, log.OpCreate, core.TreeChange{Kind: core.ChangeCreated, BommelID: n.ID, ParentID: parentID}); err != nil {
		return n, err
	}
	return n, nil
}

// Rename updates label and emoji of a non-root node.
func (c *Coordinator) Rename(ctx context.Context, id int64, label, emoji string) error {
	if err := core.ValidateLabel(label); err != nil {
		return err
	}
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	n, ok := c.Store().Get(id)
	if !ok {
		return &core.ValidationError{Field: "id", Err: core.ErrNodeNotFound}
	}
	if n.IsRoot {
		return &core.ValidationError{Field: "id", Err: core.ErrRootImmutable}
	}

	if _, err := c.collab.UpdateNode(ctx, id, strings.TrimSpace(label), emoji, n.ParentID); err != nil {
		return c.persistenceFailed(ctx, log.OpRename, id, err)
	}
	return c.commit(ctx, log.OpRename, core.TreeChange{Kind: core.ChangeRenamed, BommelID: id, ParentID: n.ParentID})
}

// Move reparents id under newParentID after checking the legal-target set.
func (c *Coordinator) Move(ctx context.Context, id, newParentID int64) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	if err := c.Store().ValidateMove(id, newParentID); err != nil {
		return err
	}
	if err := c.collab.MoveNode(ctx, id, newParentID); err != nil {
		return c.persistenceFailed(ctx, log.OpMove, id, err)
	}
	return c.commit(ctx, log.OpMove, core.TreeChange{Kind: core.ChangeMoved, BommelID: id, ParentID: newParentID})
}

// Delete removes id. A node with transactions needs an available handling
// policy; without any transactions the policy is ignored.
func (c *Coordinator) Delete(ctx context.Context, id int64, handling core.TransactionHandling) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	n, ok := c.Store().Get(id)
	if !ok {
		return &core.ValidationError{Field: "id", Err: core.ErrNodeNotFound}
	}
	if n.IsRoot {
		return &core.ValidationError{Field: "id", Err: core.ErrRootImmutable}
	}

	count, err := c.TransactionCount(ctx, id)
	if err != nil {
		return err
	}
	if count == 0 {
		handling = core.HandlingNone
	} else {
		if handling == core.HandlingNone {
			return &core.ValidationError{
				Field: "transactionHandling",
				Err:   fmt.Errorf("%w (%d transactions)", core.ErrTransactionHandlingRequired, count),
			}
		}
		if err := handling.Validate(); err != nil {
			return err
		}
	}

	if err := c.collab.DeleteNode(ctx, id, handling); err != nil {
		return c.persistenceFailed(ctx, log.OpDelete, id, err)
	}
	return c.commit(ctx, log.OpDelete, core.TreeChange{Kind: core.ChangeDeleted, BommelID: id, ParentID: n.ParentID})
}

// TransactionCount asks the collaborator how many transactions, drafts
// included, are booked directly on id.
func (c *Coordinator) TransactionCount(ctx context.Context, id int64) (int64, error) {
	wire, err := c.collab.GetStatistics(ctx, c.organizationID, core.StatisticsMode{IncludeDrafts: true})
	if err != nil {
		return 0, &core.PersistenceError{Op: "count transactions", Err: err}
	}
	figures, err := stats.FiguresFromWire(wire)
	if err != nil {
		return 0, &core.PersistenceError{Op: "count transactions", Err: err}
	}
	return figures[id].TransactionsCount, nil
}

func (c *Coordinator) begin() error {
	if !c.busy.CompareAndSwap(false, true) {
		return core.ErrMutationInFlight
	}
	return nil
}

func (c *Coordinator) end() {
	c.busy.Store(false)
}

// commit reloads after a persisted mutation and announces it.
func (c *Coordinator) commit(ctx context.Context, op string, change core.TreeChange) error {
	if err := c.Reload(ctx); err != nil {
		return err
	}
	c.structured.LogMutation(ctx, op, change.BommelID, change.ParentID, c.Store().Len())

	if c.publisher == nil {
		return nil
	}
	change.OrganizationID = c.organizationID
	if err := c.publisher.PublishTreeChange(ctx, change); err != nil {
		c.logger.WarnContext(ctx, "Failed to publish tree change",
			log.FieldOperation, op,
			log.FieldBommelID, change.BommelID,
			log.FieldError, err)
	}
	return nil
}

func (c *Coordinator) persistenceFailed(ctx context.Context, op string, id int64, err error) error {
	perr := &core.PersistenceError{Op: op, Err: err}
	c.structured.LogError(ctx, "Collaborator rejected mutation", perr, log.ComponentMutation, op,
		log.NewFields().WithBommel(id, 0))
	return perr
}
