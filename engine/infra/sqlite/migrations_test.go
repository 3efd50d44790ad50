package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	t.Run("Should apply all migrations successfully", func(t *testing.T) {
		ctx := t.Context()
		dbPath := filepath.Join(t.TempDir(), "apply.db")
		require.NoError(t, ApplyMigrations(ctx, dbPath))

		store, err := NewStore(ctx, &Config{Path: dbPath})
		require.NoError(t, err)
		t.Cleanup(func() {
			require.NoError(t, store.Close(ctx))
		})
	})

	t.Run("Should create all required tables", func(t *testing.T) {
		ctx := t.Context()
		dbPath := filepath.Join(t.TempDir(), "tables.db")
		require.NoError(t, ApplyMigrations(ctx, dbPath))

		db := openTestSQLite(ctx, t, dbPath)
		defer db.Close()

		expected := map[string]bool{
			"tests":     true,
			"questions": true,
			"answers":   true,
		}
		rows, err := db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table'")
		require.NoError(t, err)
		defer rows.Close()

		for rows.Next() {
			var name string
			require.NoError(t, rows.Scan(&name))
			delete(expected, name)
		}
		require.NoError(t, rows.Err())
		assert.Empty(t, expected)
	})

	t.Run("Should create all indexes", func(t *testing.T) {
		ctx := t.Context()
		dbPath := filepath.Join(t.TempDir(), "indexes.db")
		require.NoError(t, ApplyMigrations(ctx, dbPath))

		db := openTestSQLite(ctx, t, dbPath)
		defer db.Close()

		indexes := make(map[string]bool)
		rows, err := db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'index'")
		require.NoError(t, err)
		defer rows.Close()
		for rows.Next() {
			var name string
			require.NoError(t, rows.Scan(&name))
			indexes[name] = true
		}
		require.NoError(t, rows.Err())

		expectedIndexes := []string{
			"idx_tests_deleted_at",
			"idx_tests_created_at",
			"idx_questions_test_id",
			"idx_answers_question_id",
		}
		for _, idx := range expectedIndexes {
			assert.Truef(t, indexes[idx], "expected index %s to exist", idx)
		}
	})

	t.Run("Should enforce foreign keys", func(t *testing.T) {
		ctx := t.Context()
		dbPath := filepath.Join(t.TempDir(), "fk.db")
		require.NoError(t, ApplyMigrations(ctx, dbPath))

		db := openTestSQLite(ctx, t, dbPath)
		defer db.Close()

		_, err := db.ExecContext(
			ctx,
			"INSERT INTO questions (id, test_id, text, created_at) VALUES ('q-1', 'missing-test', 'Q?', CURRENT_TIMESTAMP)",
		)
		require.Error(t, err)
	})

	t.Run("Should enforce check constraints", func(t *testing.T) {
		ctx := t.Context()
		dbPath := filepath.Join(t.TempDir(), "constraints.db")
		require.NoError(t, ApplyMigrations(ctx, dbPath))

		db := openTestSQLite(ctx, t, dbPath)
		defer db.Close()

		_, err := db.ExecContext(
			ctx,
			"INSERT INTO tests (id, title, created_at) VALUES ('t-1', '   ', CURRENT_TIMESTAMP)",
		)
		require.Error(t, err)
	})

	t.Run("Should rollback migrations", func(t *testing.T) {
		ctx := t.Context()
		dbPath := filepath.Join(t.TempDir(), "rollback.db")
		require.NoError(t, ApplyMigrations(ctx, dbPath))

		db := openTestSQLite(ctx, t, dbPath)
		defer db.Close()

		gooseInitMu.Lock()
		goose.SetBaseFS(migrationsFS)
		require.NoError(t, goose.SetDialect("sqlite3"))
		err := goose.DownToContext(ctx, db, "migrations", 0)
		goose.SetBaseFS(nil)
		gooseInitMu.Unlock()
		require.NoError(t, err)

		var count int
		err = db.QueryRowContext(
			ctx,
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('tests', 'questions', 'answers')",
		).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("Should cascade deletes from tests to answers", func(t *testing.T) {
		ctx := t.Context()
		dbPath := filepath.Join(t.TempDir(), "cascade.db")
		require.NoError(t, ApplyMigrations(ctx, dbPath))

		db := openTestSQLite(ctx, t, dbPath)
		for _, stmt := range []string{
			"INSERT INTO tests (id, title, created_at) VALUES ('t-1', 'Algebra', CURRENT_TIMESTAMP)",
			"INSERT INTO questions (id, test_id, text, created_at) VALUES ('q-1', 't-1', 'Q?', CURRENT_TIMESTAMP)",
			"INSERT INTO answers (id, question_id, text, created_at) VALUES ('a-1', 'q-1', 'A', CURRENT_TIMESTAMP)",
			"DELETE FROM tests WHERE id = 't-1'",
		} {
			_, err := db.ExecContext(ctx, stmt)
			require.NoError(t, err)
		}
		var count int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM answers").Scan(&count))
		assert.Zero(t, count)
	})

	t.Run("Should be idempotent", func(t *testing.T) {
		ctx := t.Context()
		dbPath := filepath.Join(t.TempDir(), "idempotent.db")
		require.NoError(t, ApplyMigrations(ctx, dbPath))
		require.NoError(t, ApplyMigrations(ctx, dbPath))
	})
}

func TestMigrationLock(t *testing.T) {
	t.Run("Should wait for a lock held by another migrator", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "locked.db")
		held := flock.New(dbPath + ".lock")
		require.NoError(t, held.Lock())
		defer held.Unlock()

		ctx, cancel := context.WithTimeout(t.Context(), 150*time.Millisecond)
		defer cancel()
		err := ApplyMigrations(ctx, dbPath)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Contains(t, err.Error(), "migration lock")
	})

	t.Run("Should release the lock after migrating", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "released.db")
		require.NoError(t, ApplyMigrations(t.Context(), dbPath))
		lock := flock.New(dbPath + ".lock")
		locked, err := lock.TryLock()
		require.NoError(t, err)
		assert.True(t, locked)
		require.NoError(t, lock.Unlock())
	})
}

func openTestSQLite(ctx context.Context, t *testing.T, dbPath string) *sql.DB {
	t.Helper()
	dsn, _, err := buildDSN(&Config{Path: dbPath})
	require.NoError(t, err)
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, db.PingContext(ctx))
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}
