package storage

import (
	"context"
	"database/sql"
)

const getOrganization = `SELECT id, name, emoji FROM organizations WHERE id = ?`

func (q *Queries) GetOrganization(ctx context.Context, id int64) (Organization, error) {
	var o Organization
	err := q.db.QueryRowContext(ctx, getOrganization, id).Scan(&o.ID, &o.Name, &o.Emoji)
	return o, err
}

const upsertOrganization = `
INSERT INTO organizations (id, name, emoji) VALUES (?, ?, ?)
ON CONFLICT (id) DO UPDATE SET name = excluded.name, emoji = excluded.emoji`

func (q *Queries) UpsertOrganization(ctx context.Context, o Organization) error {
	_, err := q.db.ExecContext(ctx, upsertOrganization, o.ID, o.Name, o.Emoji)
	return err
}

const listBommels = `
SELECT id, organization_id, parent_id, label, emoji, is_root
FROM bommels WHERE organization_id = ? ORDER BY id`

func (q *Queries) ListBommels(ctx context.Context, organizationID int64) ([]Bommel, error) {
	rows, err := q.db.QueryContext(ctx, listBommels, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Bommel
	for rows.Next() {
		var b Bommel
		if err := rows.Scan(&b.ID, &b.OrganizationID, &b.ParentID, &b.Label, &b.Emoji, &b.IsRoot); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

const getBommel = `
SELECT id, organization_id, parent_id, label, emoji, is_root
FROM bommels WHERE id = ?`

func (q *Queries) GetBommel(ctx context.Context, id int64) (Bommel, error) {
	var b Bommel
	err := q.db.QueryRowContext(ctx, getBommel, id).
		Scan(&b.ID, &b.OrganizationID, &b.ParentID, &b.Label, &b.Emoji, &b.IsRoot)
	return b, err
}

const countBommels = `SELECT COUNT(*) FROM bommels WHERE organization_id = ?`

func (q *Queries) CountBommels(ctx context.Context, organizationID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countBommels, organizationID).Scan(&n)
	return n, err
}

type CreateBommelParams struct {
	OrganizationID int64
	ParentID       int64
	Label          string
	Emoji          string
	IsRoot         bool
}

const createBommel = `
INSERT INTO bommels (organization_id, parent_id, label, emoji, is_root)
VALUES (?, ?, ?, ?, ?)
RETURNING id, organization_id, parent_id, label, emoji, is_root`

func (q *Queries) CreateBommel(ctx context.Context, arg CreateBommelParams) (Bommel, error) {
	var b Bommel
	err := q.db.QueryRowContext(ctx, createBommel,
		arg.OrganizationID, arg.ParentID, arg.Label, arg.Emoji, arg.IsRoot,
	).Scan(&b.ID, &b.OrganizationID, &b.ParentID, &b.Label, &b.Emoji, &b.IsRoot)
	return b, err
}

type UpdateBommelParams struct {
	ID       int64
	ParentID int64
	Label    string
	Emoji    string
}

const updateBommel = `
UPDATE bommels SET parent_id = ?, label = ?, emoji = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING id, organization_id, parent_id, label, emoji, is_root`

func (q *Queries) UpdateBommel(ctx context.Context, arg UpdateBommelParams) (Bommel, error) {
	var b Bommel
	err := q.db.QueryRowContext(ctx, updateBommel, arg.ParentID, arg.Label, arg.Emoji, arg.ID).
		Scan(&b.ID, &b.OrganizationID, &b.ParentID, &b.Label, &b.Emoji, &b.IsRoot)
	return b, err
}

const setParent = `UPDATE bommels SET parent_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

func (q *Queries) SetParent(ctx context.Context, id, parentID int64) error {
	_, err := q.db.ExecContext(ctx, setParent, parentID, id)
	return err
}

const reparentChildren = `UPDATE bommels SET parent_id = ?, updated_at = CURRENT_TIMESTAMP WHERE parent_id = ?`

func (q *Queries) ReparentChildren(ctx context.Context, from, to int64) error {
	_, err := q.db.ExecContext(ctx, reparentChildren, to, from)
	return err
}

const deleteBommel = `DELETE FROM bommels WHERE id = ?`

func (q *Queries) DeleteBommel(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteBommel, id)
	return err
}

const isDescendant = `
WITH RECURSIVE descendants(id) AS (
    SELECT id FROM bommels WHERE parent_id = ?
    UNION
    SELECT b.id FROM bommels b JOIN descendants d ON b.parent_id = d.id
)
SELECT EXISTS (SELECT 1 FROM descendants WHERE id = ?)`

// IsDescendant reports whether candidate sits anywhere below id. UNION keeps
// the walk finite on cyclic rows.
func (q *Queries) IsDescendant(ctx context.Context, id, candidate int64) (bool, error) {
	var found bool
	err := q.db.QueryRowContext(ctx, isDescendant, id, candidate).Scan(&found)
	return found, err
}

const countTransactionsForBommel = `SELECT COUNT(*) FROM transactions WHERE bommel_id = ?`

func (q *Queries) CountTransactionsForBommel(ctx context.Context, bommelID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countTransactionsForBommel, bommelID).Scan(&n)
	return n, err
}

const unlinkTransactions = `UPDATE transactions SET bommel_id = NULL WHERE bommel_id = ?`

func (q *Queries) UnlinkTransactions(ctx context.Context, bommelID int64) error {
	_, err := q.db.ExecContext(ctx, unlinkTransactions, bommelID)
	return err
}

type CreateTransactionParams struct {
	BommelID    sql.NullInt64
	AmountCents int64
	Draft       bool
	Description string
}

const createTransaction = `
INSERT INTO transactions (bommel_id, amount_cents, draft, description)
VALUES (?, ?, ?, ?)
RETURNING id, bommel_id, amount_cents, draft, description`

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	var t Transaction
	err := q.db.QueryRowContext(ctx, createTransaction,
		arg.BommelID, arg.AmountCents, arg.Draft, arg.Description,
	).Scan(&t.ID, &t.BommelID, &t.AmountCents, &t.Draft, &t.Description)
	return t, err
}

const directStatistics = `
SELECT b.id,
    COALESCE(SUM(CASE WHEN t.amount_cents > 0 THEN t.amount_cents END), 0),
    COALESCE(SUM(CASE WHEN t.amount_cents < 0 THEN -t.amount_cents END), 0),
    COALESCE(SUM(t.amount_cents), 0),
    COUNT(t.id)
FROM bommels b
LEFT JOIN transactions t ON t.bommel_id = b.id AND (? = 1 OR t.draft = 0)
WHERE b.organization_id = ?
GROUP BY b.id
ORDER BY b.id`

func (q *Queries) DirectStatistics(ctx context.Context, organizationID int64, includeDrafts bool) ([]StatisticsRow, error) {
	return q.statistics(ctx, directStatistics, includeDrafts, organizationID)
}

const aggregateStatistics = `
WITH RECURSIVE subtree(ancestor_id, bommel_id) AS (
    SELECT id, id FROM bommels WHERE organization_id = ?
    UNION
    SELECT s.ancestor_id, b.id FROM subtree s JOIN bommels b ON b.parent_id = s.bommel_id
)
SELECT s.ancestor_id,
    COALESCE(SUM(CASE WHEN t.amount_cents > 0 THEN t.amount_cents END), 0),
    COALESCE(SUM(CASE WHEN t.amount_cents < 0 THEN -t.amount_cents END), 0),
    COALESCE(SUM(t.amount_cents), 0),
    COUNT(t.id)
FROM subtree s
LEFT JOIN transactions t ON t.bommel_id = s.bommel_id AND (? = 1 OR t.draft = 0)
GROUP BY s.ancestor_id
ORDER BY s.ancestor_id`

// AggregateStatistics rolls every descendant's transactions into each bommel.
func (q *Queries) AggregateStatistics(ctx context.Context, organizationID int64, includeDrafts bool) ([]StatisticsRow, error) {
	return q.statistics(ctx, aggregateStatistics, organizationID, includeDrafts)
}

func (q *Queries) statistics(ctx context.Context, query string, args ...interface{}) ([]StatisticsRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []StatisticsRow
	for rows.Next() {
		var s StatisticsRow
		if err := rows.Scan(&s.BommelID, &s.IncomeCents, &s.ExpensesCents, &s.TotalCents, &s.TransactionsCount); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
