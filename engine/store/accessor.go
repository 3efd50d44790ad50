package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/compozy/quizbank/engine/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const storeTracerName = "quizbank.store"

const (
	opFindOne    = "find_one"
	opFindAll    = "find_all"
	opSave       = "save"
	opHardDelete = "hard_delete"
	opSoftDelete = "soft_delete"
)

// Accessor is the generic entity access engine for one entity type. T is
// normally a pointer to an entity struct whose db tags match Schema.Columns.
//
// Reads follow Schema.OrderBy, so FindOne on a non-unique filter always picks
// the same record.
type Accessor[T Entity] struct {
	tx          Tx
	schema      Schema
	withDeleted bool
	metrics     *Metrics
	clock       func() time.Time
}

type AccessorOption func(*accessorOptions)

type accessorOptions struct {
	metrics *Metrics
	clock   func() time.Time
}

// WithMetrics overrides the instruments the accessor records to.
func WithMetrics(m *Metrics) AccessorOption {
	return func(o *accessorOptions) { o.metrics = m }
}

// WithClock overrides the clock used to stamp soft deletes.
func WithClock(clock func() time.Time) AccessorOption {
	return func(o *accessorOptions) { o.clock = clock }
}

// NewAccessor binds an accessor for schema to tx. The accessor borrows tx for
// its whole lifetime and never commits or rolls it back.
func NewAccessor[T Entity](tx Tx, schema Schema, opts ...AccessorOption) *Accessor[T] {
	o := accessorOptions{clock: Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = globalMetrics()
	}
	return &Accessor[T]{tx: tx, schema: schema, metrics: o.metrics, clock: o.clock}
}

// Schema returns the schema the accessor is bound to.
func (a *Accessor[T]) Schema() Schema {
	return a.schema
}

// WithDeleted returns a view of the accessor whose reads include soft-deleted
// records. It shares the same Tx.
func (a *Accessor[T]) WithDeleted() *Accessor[T] {
	clone := *a
	clone.withDeleted = true
	return &clone
}

// FindOne returns the first record matching every filter. Absence is reported
// through the boolean, never as an error.
func (a *Accessor[T]) FindOne(ctx context.Context, filters ...Filter) (result T, found bool, err error) {
	if err := ctx.Err(); err != nil {
		return result, false, err
	}
	ctx, finish := a.observe(ctx, opFindOne)
	defer func() { finish(err) }()
	query, args, err := a.selectBuilder(filters).Limit(1).ToSql()
	if err != nil {
		return result, false, fmt.Errorf("store: building %s select: %w", a.schema.Table, err)
	}
	var rows []T
	if err := a.tx.Select(ctx, &rows, query, args...); err != nil {
		return result, false, fmt.Errorf("store: find one in %s: %w", a.schema.Table, err)
	}
	if len(rows) == 0 {
		return result, false, nil
	}
	return rows[0], true, nil
}

// FindAll returns every record matching all filters; with no filters it
// returns every live record.
func (a *Accessor[T]) FindAll(ctx context.Context, filters ...Filter) (rows []T, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, finish := a.observe(ctx, opFindAll)
	defer func() { finish(err) }()
	query, args, err := a.selectBuilder(filters).ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: building %s select: %w", a.schema.Table, err)
	}
	rows = make([]T, 0)
	if err := a.tx.Select(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("store: find all in %s: %w", a.schema.Table, err)
	}
	return rows, nil
}

// Save inserts entity, or overwrites every column of the record stored under
// its id. An existing record is the normal update path, not an error.
func (a *Accessor[T]) Save(ctx context.Context, entity T) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, finish := a.observe(ctx, opSave)
	defer func() { finish(err) }()
	if entity.EntityID().IsZero() {
		return ErrMissingID
	}
	query, args, err := a.upsertBuilder(entity.Fields()).ToSql()
	if err != nil {
		return fmt.Errorf("store: building %s upsert: %w", a.schema.Table, err)
	}
	if _, err := a.tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("store: save into %s: %w", a.schema.Table, err)
	}
	return nil
}

// HardDelete permanently removes the record with the given id. It returns
// ErrNotFound when no such record exists, including on a repeated delete.
func (a *Accessor[T]) HardDelete(ctx context.Context, id core.ID) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, finish := a.observe(ctx, opHardDelete)
	defer func() { finish(err) }()
	query, args, err := squirrel.Delete(a.schema.Table).
		Where(ByID(id)).
		PlaceholderFormat(a.tx.Placeholder()).
		ToSql()
	if err != nil {
		return fmt.Errorf("store: building %s delete: %w", a.schema.Table, err)
	}
	affected, err := a.tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: hard delete from %s: %w", a.schema.Table, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks the live record with the given id as deleted. The row is
// kept but excluded from reads unless WithDeleted is used.
func (a *Accessor[T]) SoftDelete(ctx context.Context, id core.ID) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, finish := a.observe(ctx, opSoftDelete)
	defer func() { finish(err) }()
	if !a.schema.SoftDelete {
		return ErrSoftDeleteUnsupported
	}
	query, args, err := squirrel.Update(a.schema.Table).
		Set(ColumnDeletedAt, a.clock()).
		Where(ByID(id)).
		Where(IsNull(ColumnDeletedAt)).
		PlaceholderFormat(a.tx.Placeholder()).
		ToSql()
	if err != nil {
		return fmt.Errorf("store: building %s soft delete: %w", a.schema.Table, err)
	}
	affected, err := a.tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: soft delete in %s: %w", a.schema.Table, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// observe starts a span for op and returns the callback that ends it and
// records the operation metrics.
func (a *Accessor[T]) observe(ctx context.Context, op string) (context.Context, func(error)) {
	started := time.Now()
	ctx, span := otel.Tracer(storeTracerName).Start(ctx, "store."+op, trace.WithAttributes(
		attribute.String("table", a.schema.Table),
	))
	return ctx, func(err error) {
		a.metrics.record(ctx, a.schema.Table, op, started, err)
		if err != nil && !errors.Is(err, ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func (a *Accessor[T]) selectBuilder(filters []Filter) squirrel.SelectBuilder {
	sb := squirrel.Select(a.schema.Columns...).
		From(a.schema.Table).
		PlaceholderFormat(a.tx.Placeholder())
	for _, f := range filters {
		if f != nil {
			sb = sb.Where(f)
		}
	}
	if a.schema.SoftDelete && !a.withDeleted {
		sb = sb.Where(IsNull(ColumnDeletedAt))
	}
	return sb.OrderBy(a.schema.order()...)
}

func (a *Accessor[T]) upsertBuilder(fields []Field) squirrel.InsertBuilder {
	columns := make([]string, 0, len(fields))
	values := make([]any, 0, len(fields))
	assignments := make([]string, 0, len(fields))
	for _, f := range fields {
		columns = append(columns, f.Column)
		values = append(values, f.Value)
		if f.Column != ColumnID {
			assignments = append(assignments, f.Column+" = EXCLUDED."+f.Column)
		}
	}
	return squirrel.Insert(a.schema.Table).
		Columns(columns...).
		Values(values...).
		Suffix("ON CONFLICT (" + ColumnID + ") DO UPDATE SET " + strings.Join(assignments, ", ")).
		PlaceholderFormat(a.tx.Placeholder())
}
