package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Organization struct {
	ID    int64
	Name  string
	Emoji string
}

type Bommel struct {
	ID             int64
	OrganizationID int64
	ParentID       int64
	Label          string
	Emoji          string
	IsRoot         bool
}

type Transaction struct {
	ID          int64
	BommelID    sql.NullInt64
	AmountCents int64
	Draft       bool
	Description string
}

type StatisticsRow struct {
	BommelID          int64
	IncomeCents       int64
	ExpensesCents     int64
	TotalCents        int64
	TransactionsCount int64
}
