package memory

import (
	"context"
	"fmt"
	"os"

	"bommel/internal/core"
	"gopkg.in/yaml.v3"
)

// Seed is the YAML layout of a seed file:
//
//	organization: {id: 1, name: ACME, emoji: "🏢"}
//	bommels:
//	  - label: ACME
//	    root: true
//	    children:
//	      - label: Marketing
//	        transactions:
//	          - {amount: "-12,50", description: Flyer}
type Seed struct {
	Organization struct {
		ID    int64  `yaml:"id"`
		Name  string `yaml:"name"`
		Emoji string `yaml:"emoji"`
	} `yaml:"organization"`
	Bommels []SeedBommel `yaml:"bommels"`
}

type SeedBommel struct {
	Label        string            `yaml:"label"`
	Emoji        string            `yaml:"emoji"`
	Root         bool              `yaml:"root"`
	Children     []SeedBommel      `yaml:"children"`
	Transactions []SeedTransaction `yaml:"transactions"`
}

type SeedTransaction struct {
	Amount      string `yaml:"amount"`
	Draft       bool   `yaml:"draft"`
	Description string `yaml:"description"`
}

// NewFromFile loads a seed file. A missing file yields a store holding only
// the organization with defaultOrg as its id.
func NewFromFile(path string, defaultOrg int64) (*Store, error) {
	empty := New(Organization{ID: defaultOrg, Name: "Organization"})
	if path == "" {
		return empty, nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return empty, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	if seed.Organization.ID == 0 {
		seed.Organization.ID = defaultOrg
	}
	return NewFromSeed(seed)
}

// NewFromSeed builds a store from an already decoded seed.
func NewFromSeed(seed Seed) (*Store, error) {
	s := New(Organization{
		ID:    seed.Organization.ID,
		Name:  seed.Organization.Name,
		Emoji: seed.Organization.Emoji,
	})
	ctx := context.Background()
	for _, b := range seed.Bommels {
		if err := s.plant(ctx, core.VirtualRootID, b); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) plant(ctx context.Context, parentID int64, b SeedBommel) error {
	n, err := s.CreateNode(ctx, parentID, b.Label, b.Emoji)
	if err != nil {
		return fmt.Errorf("seed bommel %q: %w", b.Label, err)
	}
	if b.Root {
		s.mu.Lock()
		i, _ := s.find(n.ID)
		s.nodes[i].IsRoot = true
		s.mu.Unlock()
	}
	for _, t := range b.Transactions {
		amount, err := core.ParseAmount(t.Amount)
		if err != nil {
			return fmt.Errorf("seed transaction %q on %q: %w", t.Amount, b.Label, err)
		}
		if _, err := s.RecordTransaction(ctx, core.Transaction{
			BommelID:    n.ID,
			Amount:      amount,
			Draft:       t.Draft,
			Description: t.Description,
		}); err != nil {
			return err
		}
	}
	for _, c := range b.Children {
		if err := s.plant(ctx, n.ID, c); err != nil {
			return err
		}
	}
	return nil
}
