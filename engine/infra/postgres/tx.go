package postgres

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/compozy/quizbank/engine/store"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by pgx.Tx, *pgxpool.Pool and pgxmock.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Tx adapts a pgx transaction to store.Tx.
type Tx struct {
	q Querier
}

var _ store.Tx = (*Tx)(nil)

func NewTx(q Querier) *Tx {
	return &Tx{q: q}
}

func (t *Tx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := t.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *Tx) Select(ctx context.Context, dst any, query string, args ...any) error {
	return pgxscan.Select(ctx, t.q, dst, query, args...)
}

func (t *Tx) Placeholder() squirrel.PlaceholderFormat {
	return squirrel.Dollar
}
