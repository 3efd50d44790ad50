package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/compozy/quizbank/engine/store"
	"github.com/georgysavva/scany/v2/sqlscan"
)

// Querier is the subset of *sql.DB and *sql.Tx the adapter needs.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Tx adapts a database/sql transaction to store.Tx.
type Tx struct {
	q Querier
}

var _ store.Tx = (*Tx)(nil)

func NewTx(q Querier) *Tx {
	return &Tx{q: q}
}

func (t *Tx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	return affected, nil
}

func (t *Tx) Select(ctx context.Context, dst any, query string, args ...any) error {
	return sqlscan.Select(ctx, t.q, dst, query, args...)
}

func (t *Tx) Placeholder() squirrel.PlaceholderFormat {
	return squirrel.Question
}
