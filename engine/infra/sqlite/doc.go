// Package sqlite provides the modernc.org/sqlite backed store driver.
//
// The package mirrors the postgres driver layout while supplying SQLite specific
// connection management, migrations, and the database/sql transaction adapter.
package sqlite
