// Package sqlite implements the repository interfaces on SQLite.
//
// The driver is modernc.org/sqlite, a pure Go translation of SQLite, so the
// binary builds without a C toolchain. Use ":memory:" for tests.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	driverpkg "modernc.org/sqlite"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/repository"
)

// Importing the driver registers "sqlite" with database/sql. casefold gives
// search the same Unicode case folding on every connection; SQLite's own
// LIKE folds ASCII only.
func init() {
	driverpkg.MustRegisterDeterministicScalarFunction("casefold", 1,
		func(_ *driverpkg.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return foldCase(v), nil
			case []byte:
				return foldCase(string(v)), nil
			default:
				return v, nil
			}
		})
}

// foldCase applies full Unicode case folding and composes the result, so
// "CAFÉ" and a decomposed "café" compare equal.
func foldCase(s string) string {
	return norm.NFC.String(cases.Fold().String(s))
}

var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB pool and implements repository.Store.
type DB struct {
	conn *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx so helpers can run inside
// or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// The pool is pinned to a single connection. PRAGMAs such as foreign_keys are
// per connection in SQLite, and an in-memory database exists only on the
// connection that created it. One connection keeps both consistent; WAL still
// lets readers in other processes proceed during a write.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. Every statement is idempotent, so it runs on
// each start.
func (db *DB) migrate() error {
	steps := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id            TEXT PRIMARY KEY,
				username      TEXT NOT NULL UNIQUE,
				email         TEXT NOT NULL DEFAULT '',
				first_name    TEXT NOT NULL DEFAULT '',
				last_name     TEXT NOT NULL DEFAULT '',
				github_id     INTEGER UNIQUE,
				avatar_url    TEXT NOT NULL DEFAULT '',
				password_hash TEXT NOT NULL DEFAULT '',
				created_at    DATETIME NOT NULL,
				updated_at    DATETIME NOT NULL
			);`},
		{"tags", `
			CREATE TABLE IF NOT EXISTS tags (
				id   TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				slug TEXT NOT NULL UNIQUE
			);
			CREATE INDEX IF NOT EXISTS idx_tags_name ON tags(name);`},
		{"posts", `
			CREATE TABLE IF NOT EXISTS posts (
				id         TEXT PRIMARY KEY,
				title      TEXT NOT NULL,
				content    TEXT NOT NULL,
				author_id  TEXT NOT NULL REFERENCES users(id),
				created_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at, id);
			CREATE INDEX IF NOT EXISTS idx_posts_author_id ON posts(author_id);`},
		{"post_tags", `
			CREATE TABLE IF NOT EXISTS post_tags (
				post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
				tag_id  TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
				PRIMARY KEY (post_id, tag_id)
			);
			CREATE INDEX IF NOT EXISTS idx_post_tags_tag_id ON post_tags(tag_id);`},
		{"comments", `
			CREATE TABLE IF NOT EXISTS comments (
				id         TEXT PRIMARY KEY,
				post_id    TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
				author_id  TEXT NOT NULL REFERENCES users(id),
				content    TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id, created_at);`},
	}

	for _, s := range steps {
		if _, err := db.conn.Exec(s.sql); err != nil {
			return fmt.Errorf("creating %s table: %w", s.name, err)
		}
	}
	return nil
}

// withTx runs fn in a transaction, rolling back on error. fn must use tx, not
// db.conn: the pool has one connection and the transaction holds it.
func (db *DB) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(ctx, op, fmt.Errorf("beginning transaction: %w", err))
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeErr(ctx, op, fmt.Errorf("committing: %w", err))
	}
	return nil
}

// storeErr wraps a driver error as a store failure. When the context expired
// the deadline is kept in the chain so the failure reports as a timeout even
// if the driver returned its own interrupt error.
func storeErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w (%w)", err, ctxErr)
	}
	return apperror.StoreFailure(op, fmt.Errorf("sqlite: %s: %w", op, err))
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func now() time.Time {
	return time.Now().UTC()
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// likePattern builds a LIKE pattern matching s as a substring, escaping the
// LIKE metacharacters with a backslash.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func orderClause(o repository.Order) string {
	if o == repository.OldestFirst {
		return "p.created_at ASC, p.id ASC"
	}
	return "p.created_at DESC, p.id DESC"
}
