// Package memory is an in-process collaborator, seeded from YAML. It backs
// local development and tests.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"bommel/internal/core"
	"bommel/internal/stats"
	"bommel/internal/tree"
)

// Organization is the record that owns a tree.
type Organization struct {
	ID    int64
	Name  string
	Emoji string
}

type Store struct {
	mu     sync.Mutex
	orgs   map[int64]Organization
	nodes  []core.Node
	txs    []core.Transaction
	nextID int64
	nextTx int64

	// defaultOrg receives nodes created at the top level.
	defaultOrg int64
}

func New(org Organization) *Store {
	return &Store{
		orgs:       map[int64]Organization{org.ID: org},
		nextID:     1,
		nextTx:     1,
		defaultOrg: org.ID,
	}
}

// CreateNode stores a new node under parentID. The new node inherits the
// parent's organization.
func (s *Store) CreateNode(_ context.Context, parentID int64, label, emoji string) (core.Node, error) {
	if err := core.ValidateLabel(label); err != nil {
		return core.Node{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	org := s.defaultOrg
	if parentID != core.VirtualRootID {
		parent, ok := s.find(parentID)
		if !ok {
			return core.Node{}, fmt.Errorf("parent %d: %w", parentID, core.ErrNodeNotFound)
		}
		org = s.nodes[parent].OrganizationID
	}
	n := core.Node{
		ID:             s.nextID,
		ParentID:       parentID,
		OrganizationID: org,
		Label:          strings.TrimSpace(label),
		Emoji:          emoji,
	}
	s.nextID++
	s.nodes = append(s.nodes, n)
	return n, nil
}

func (s *Store) ListNodes(_ context.Context, organizationID int64) ([]core.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		if n.OrganizationID == organizationID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *Store) UpdateNode(_ context.Context, id int64, label, emoji string, parentID int64) (core.Node, error) {
	if err := core.ValidateLabel(label); err != nil {
		return core.Node{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.find(id)
	if !ok {
		return core.Node{}, fmt.Errorf("bommel %d: %w", id, core.ErrNodeNotFound)
	}
	if s.nodes[i].IsRoot {
		return core.Node{}, core.ErrRootImmutable
	}
	if parentID != s.nodes[i].ParentID {
		if err := s.checkParent(id, parentID); err != nil {
			return core.Node{}, err
		}
	}
	s.nodes[i].Label = strings.TrimSpace(label)
	s.nodes[i].Emoji = emoji
	s.nodes[i].ParentID = parentID
	return s.nodes[i], nil
}

func (s *Store) MoveNode(_ context.Context, id, newParentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.find(id)
	if !ok {
		return fmt.Errorf("bommel %d: %w", id, core.ErrNodeNotFound)
	}
	if s.nodes[i].IsRoot {
		return core.ErrRootImmutable
	}
	if err := s.checkParent(id, newParentID); err != nil {
		return err
	}
	s.nodes[i].ParentID = newParentID
	return nil
}

// DeleteNode removes id and hands its children to its parent. Linked
// transactions need the unlink policy.
func (s *Store) DeleteNode(_ context.Context, id int64, handling core.TransactionHandling) error {
	if err := handling.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.find(id)
	if !ok {
		return fmt.Errorf("bommel %d: %w", id, core.ErrNodeNotFound)
	}
	victim := s.nodes[i]
	if victim.IsRoot {
		return core.ErrRootImmutable
	}

	linked := 0
	for _, tx := range s.txs {
		if tx.BommelID == id {
			linked++
		}
	}
	if linked > 0 && handling != core.HandlingUnlink {
		return fmt.Errorf("bommel %d has %d transactions: %w", id, linked, core.ErrTransactionHandlingRequired)
	}
	for j := range s.txs {
		if s.txs[j].BommelID == id {
			s.txs[j].BommelID = 0
		}
	}
	for j := range s.nodes {
		if s.nodes[j].ParentID == id {
			s.nodes[j].ParentID = victim.ParentID
		}
	}
	s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
	return nil
}

// GetStatistics books every matching transaction onto its node. With
// mode.Aggregate each node also carries its descendants' figures.
func (s *Store) GetStatistics(_ context.Context, organizationID int64, mode core.StatisticsMode) (map[string]core.Statistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	direct := make(map[int64]core.Statistics, len(s.nodes))
	var scoped []core.Node
	for _, n := range s.nodes {
		if n.OrganizationID == organizationID {
			scoped = append(scoped, n)
			direct[n.ID] = core.Statistics{}
		}
	}
	for _, tx := range s.txs {
		if tx.Draft && !mode.IncludeDrafts {
			continue
		}
		if cur, ok := direct[tx.BommelID]; ok {
			direct[tx.BommelID] = cur.Book(tx.Amount)
		}
	}
	if !mode.Aggregate {
		return stats.FiguresToWire(direct), nil
	}

	st := tree.NewStore(scoped)
	cumulative := make(map[int64]core.Statistics, len(direct))
	for id := range direct {
		cumulative[id] = stats.Cumulative(st, direct, id)
	}
	return stats.FiguresToWire(cumulative), nil
}

// RootRecord returns the organization as a node for root consolidation.
func (s *Store) RootRecord(_ context.Context, organizationID int64) (*core.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[organizationID]
	if !ok {
		return nil, fmt.Errorf("organization %d not found", organizationID)
	}
	return &core.Node{
		ID:             core.VirtualRootID,
		OrganizationID: org.ID,
		Label:          org.Name,
		Emoji:          org.Emoji,
		IsRoot:         true,
	}, nil
}

// RecordTransaction books tx. BommelID 0 records an unlinked transaction.
func (s *Store) RecordTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.Amount.Cents == 0 {
		return core.Transaction{}, core.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.BommelID != 0 {
		if _, ok := s.find(tx.BommelID); !ok {
			return core.Transaction{}, fmt.Errorf("bommel %d: %w", tx.BommelID, core.ErrNodeNotFound)
		}
	}
	tx.ID = s.nextTx
	s.nextTx++
	s.txs = append(s.txs, tx)
	return tx, nil
}

// Transactions returns a copy of every stored transaction.
func (s *Store) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.txs...)
}

func (s *Store) find(id int64) (int, bool) {
	for i, n := range s.nodes {
		if n.ID == id {
			return i, true
		}
	}
	return 0, false
}

// checkParent rejects unknown parents and cycles. Caller holds mu.
func (s *Store) checkParent(id, parentID int64) error {
	if parentID == core.VirtualRootID {
		return nil
	}
	if parentID == id {
		return fmt.Errorf("%w: %d under itself", core.ErrIllegalTarget, id)
	}
	if _, ok := s.find(parentID); !ok {
		return fmt.Errorf("parent %d: %w", parentID, core.ErrNodeNotFound)
	}
	for _, d := range tree.NewStore(s.nodes).DescendantsOf(id) {
		if d == parentID {
			return fmt.Errorf("%w: %d is a descendant of %d", core.ErrIllegalTarget, parentID, id)
		}
	}
	return nil
}
