package store

import (
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/compozy/quizbank/engine/core"
)

// Filter is a boolean condition over an entity's columns. Accessors combine
// the filters they receive with AND. Filters are plain squirrel expressions,
// so any squirrel.Sqlizer is a valid Filter.
type Filter = squirrel.Sqlizer

// ByID selects the record with the given identity.
func ByID(id core.ID) Filter {
	return squirrel.Eq{ColumnID: id}
}

// Eq matches column = value. A slice value renders as IN (...).
func Eq(column string, value any) Filter {
	return squirrel.Eq{column: value}
}

func NotEq(column string, value any) Filter {
	return squirrel.NotEq{column: value}
}

// In matches column IN (values...). An empty list matches nothing.
func In[V any](column string, values ...V) Filter {
	return squirrel.Eq{column: values}
}

func Like(column, pattern string) Filter {
	return squirrel.Like{column: pattern}
}

func Gt(column string, value any) Filter {
	return squirrel.Gt{column: value}
}

func GtOrEq(column string, value any) Filter {
	return squirrel.GtOrEq{column: value}
}

func Lt(column string, value any) Filter {
	return squirrel.Lt{column: value}
}

func LtOrEq(column string, value any) Filter {
	return squirrel.LtOrEq{column: value}
}

func IsNull(column string) Filter {
	return squirrel.Eq{column: nil}
}

func NotNull(column string) Filter {
	return squirrel.NotEq{column: nil}
}

// And joins filters conjunctively, skipping nil entries.
func And(filters ...Filter) Filter {
	return squirrel.And(compact(filters))
}

// Or joins filters disjunctively, skipping nil entries.
func Or(filters ...Filter) Filter {
	return squirrel.Or(compact(filters))
}

// Not negates a filter.
func Not(filter Filter) Filter {
	return notFilter{inner: filter}
}

type notFilter struct {
	inner Filter
}

func (n notFilter) ToSql() (string, []any, error) {
	if n.inner == nil {
		return "", nil, fmt.Errorf("store: NOT requires a filter")
	}
	sql, args, err := n.inner.ToSql()
	if err != nil {
		return "", nil, err
	}
	return "NOT (" + sql + ")", args, nil
}

func compact(filters []Filter) []Filter {
	out := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if f != nil {
			out = append(out, f)
		}
	}
	return out
}
