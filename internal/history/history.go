// Package history provides SQLite-based persistence for conversation turns.
// The table is append-only; turns are removed only in bulk by Clear.
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/pressly/goose/v3"

	"github.com/comigor/resume-chat/internal/logger"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Store is a turn log backed by a single SQLite file. It is safe for
// concurrent use; concurrency control is left to the driver.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &StoreError{Op: "open", Err: fmt.Errorf("create db directory %s: %w", dir, err)}
		}
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &StoreError{Op: "open", Err: err}
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, &StoreError{Op: "migrate", Err: err}
	}

	logger.L.Info("sqlite history DB initialized", "path", path)
	return &Store{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		logger.L.Debug("migration applied", "source", r.Source.Path, "duration", r.Duration)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &StoreError{Op: "ping", Err: err}
	}
	return nil
}

// Append persists a turn and returns it with its store-assigned ID and timestamp.
func (s *Store) Append(ctx context.Context, role Role, content string) (Turn, error) {
	if err := validate(role, content); err != nil {
		return Turn{}, err
	}

	var (
		id int64
		ms int64
	)
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO messages (role, content) VALUES (?, ?) RETURNING id, timestamp;`,
		string(role), content,
	).Scan(&id, &ms)
	if err != nil {
		return Turn{}, &StoreError{Op: "append", Err: err}
	}

	return Turn{ID: id, Role: role, Content: content, CreatedAt: time.UnixMilli(ms).UTC()}, nil
}

// ListRecent returns at most limit of the newest turns, oldest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Turn, error) {
	if limit <= 0 {
		return []Turn{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, timestamp FROM messages ORDER BY timestamp DESC, id DESC LIMIT ?;`,
		limit,
	)
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	defer rows.Close()

	turns := make([]Turn, 0, limit)
	for rows.Next() {
		var (
			t    Turn
			role string
			ms   int64
		)
		if err := rows.Scan(&t.ID, &role, &t.Content, &ms); err != nil {
			return nil, &StoreError{Op: "list", Err: err}
		}
		t.Role = Role(role)
		t.CreatedAt = time.UnixMilli(ms).UTC()
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}

	// newest-first from the query; callers want chronological order
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Clear deletes every turn in one transaction and returns how many were removed.
// On failure the transaction is rolled back and no turn is lost.
func (s *Store) Clear(ctx context.Context) (n int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &StoreError{Op: "clear", Err: err}
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				logger.L.Error("history clear rollback failed", "error", rbErr)
			}
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM messages;`)
	if err != nil {
		return 0, &StoreError{Op: "clear", Err: err}
	}
	n, err = res.RowsAffected()
	if err != nil {
		return 0, &StoreError{Op: "clear", Err: err}
	}
	if err = tx.Commit(); err != nil {
		return 0, &StoreError{Op: "clear", Err: err}
	}
	return n, nil
}
