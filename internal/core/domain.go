package core

import (
	"strings"
	"unicode/utf8"
)

const (
	// VirtualRootID is the parent id of every top-level Bommel.
	VirtualRootID int64 = 0

	// DefaultLabel is assigned to freshly created nodes until the user renames them.
	DefaultLabel = "New item"

	// MaxLabelLength is measured in characters after trimming.
	MaxLabelLength = 255
)

const (
	// HandlingNone means the caller did not choose a transaction policy.
	HandlingNone TransactionHandling = ""
	// HandlingUnlink detaches the transactions from the deleted Bommel.
	HandlingUnlink TransactionHandling = "unlink"
	// HandlingReassign moves transactions to another Bommel. Recognized, not implemented.
	HandlingReassign TransactionHandling = "reassign"
)

// Kinds of structural change announced after a successful mutation.
const (
	ChangeCreated ChangeKind = "created"
	ChangeRenamed ChangeKind = "renamed"
	ChangeMoved   ChangeKind = "moved"
	ChangeDeleted ChangeKind = "deleted"
)

type (
	ChangeKind string

	// TreeChange describes one committed mutation.
	TreeChange struct {
		Kind           ChangeKind
		OrganizationID int64
		BommelID       int64
		ParentID       int64
	}

	// TransactionHandling selects what happens to the transactions of a deleted Bommel.
	TransactionHandling string

	Money struct {
		Cents int64
	}

	// Statistics are the financial figures of a single Bommel.
	Statistics struct {
		Total             Money
		Income            Money
		Expenses          Money
		TransactionsCount int64
	}

	// StatisticsMode is the two-axis display configuration for statistics.
	StatisticsMode struct {
		// IncludeDrafts counts unconfirmed transactions. Changing it needs a re-fetch.
		IncludeDrafts bool
		// Aggregate rolls descendant figures up into each node.
		Aggregate bool
	}

	// Node is one Bommel in the flat adjacency list.
	Node struct {
		ID             int64
		ParentID       int64
		OrganizationID int64
		Label          string
		Emoji          string
		IsRoot         bool
		Stats          Statistics
	}

	// Transaction is a booked or draft receipt attached to a Bommel.
	Transaction struct {
		ID          int64
		BommelID    int64 // 0 when unlinked
		Amount      Money // positive for income, negative for expenses
		Draft       bool
		Description string
	}
)

// IsTopLevel reports whether the node hangs directly off the virtual root.
func (n Node) IsTopLevel() bool {
	return n.ParentID == VirtualRootID
}

// ValidateLabel checks a label the way the rename form does.
func ValidateLabel(label string) error {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return &ValidationError{Field: "label", Err: ErrEmptyLabel}
	}
	if utf8.RuneCountInString(trimmed) > MaxLabelLength {
		return &ValidationError{Field: "label", Err: ErrLabelTooLong}
	}
	return nil
}

// Add returns the field-wise sum of two statistics.
func (s Statistics) Add(o Statistics) Statistics {
	return Statistics{
		Total:             Money{Cents: s.Total.Cents + o.Total.Cents},
		Income:            Money{Cents: s.Income.Cents + o.Income.Cents},
		Expenses:          Money{Cents: s.Expenses.Cents + o.Expenses.Cents},
		TransactionsCount: s.TransactionsCount + o.TransactionsCount,
	}
}

// Book adds one transaction amount: positive counts as income, negative as
// an expense magnitude.
func (s Statistics) Book(amount Money) Statistics {
	if amount.Cents >= 0 {
		s.Income.Cents += amount.Cents
	} else {
		s.Expenses.Cents -= amount.Cents
	}
	s.Total.Cents += amount.Cents
	s.TransactionsCount++
	return s
}

// IsZero reports whether no figures were recorded.
func (s Statistics) IsZero() bool {
	return s == Statistics{}
}

// Validate accepts the empty policy; callers decide when a policy is required.
func (h TransactionHandling) Validate() error {
	switch h {
	case HandlingNone, HandlingUnlink:
		return nil
	case HandlingReassign:
		return &ValidationError{Field: "transactionHandling", Err: ErrHandlingUnavailable}
	default:
		return &ValidationError{Field: "transactionHandling", Err: ErrUnknownHandling}
	}
}

// Available reports whether the policy can be executed end to end.
func (h TransactionHandling) Available() bool {
	return h == HandlingUnlink
}

// TransactionHandlings lists every recognized policy with its availability,
// so forms can render reassign as disabled.
func TransactionHandlings() []TransactionHandling {
	return []TransactionHandling{HandlingUnlink, HandlingReassign}
}

// ParseTransactionHandling normalizes user input onto a policy name without
// validating it. Whether a policy is needed, and so whether it must be valid,
// depends on the transaction count known only at delete time.
func ParseTransactionHandling(s string) TransactionHandling {
	return TransactionHandling(strings.ToLower(strings.TrimSpace(s)))
}
