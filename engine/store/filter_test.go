package store_test

import (
	"testing"

	"github.com/compozy/quizbank/engine/core"
	"github.com/compozy/quizbank/engine/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilters_ToSql(t *testing.T) {
	cases := []struct {
		name     string
		filter   store.Filter
		wantSQL  string
		wantArgs []any
	}{
		{"Should render identity equality as plain text", store.ByID(core.ID("abc")), "id = ?", []any{"abc"}},
		{"Should render equality", store.Eq("title", "Algebra"), "title = ?", []any{"Algebra"}},
		{"Should render inequality", store.NotEq("title", "Algebra"), "title <> ?", []any{"Algebra"}},
		{"Should render IN list", store.In("position", 1, 2), "position IN (?,?)", []any{1, 2}},
		{"Should render LIKE", store.Like("title", "Alg%"), "title LIKE ?", []any{"Alg%"}},
		{"Should render greater than", store.Gt("position", 1), "position > ?", []any{1}},
		{"Should render less or equal", store.LtOrEq("position", 3), "position <= ?", []any{3}},
		{"Should render IS NULL", store.IsNull("deleted_at"), "deleted_at IS NULL", nil},
		{"Should render IS NOT NULL", store.NotNull("deleted_at"), "deleted_at IS NOT NULL", nil},
		{
			"Should join with AND skipping nil",
			store.And(store.Eq("a", 1), nil, store.Eq("b", 2)),
			"(a = ? AND b = ?)",
			[]any{1, 2},
		},
		{
			"Should join with OR",
			store.Or(store.Eq("a", 1), store.Eq("b", 2)),
			"(a = ? OR b = ?)",
			[]any{1, 2},
		},
		{"Should negate", store.Not(store.Eq("a", 1)), "NOT (a = ?)", []any{1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sql, args, err := tc.filter.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tc.wantSQL, sql)
			if tc.wantArgs == nil {
				assert.Empty(t, args)
				return
			}
			assert.Equal(t, tc.wantArgs, args)
		})
	}

	t.Run("Should match nothing for empty IN list", func(t *testing.T) {
		sql, _, err := store.In[string]("id").ToSql()
		require.NoError(t, err)
		assert.Equal(t, "(1=0)", sql)
	})

	t.Run("Should fail to negate a nil filter", func(t *testing.T) {
		_, _, err := store.Not(nil).ToSql()
		require.Error(t, err)
	})
}
