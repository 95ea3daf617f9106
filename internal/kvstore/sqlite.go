package kvstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore persists keys in a single SQLite table. Every write takes the
// next value of a table-wide sequence, which is what Poll uses to find writes
// made by other handles or processes.
type SQLiteStore struct {
	db      *sql.DB
	origin  string
	logger  *slog.Logger
	changes chan Change

	mu      sync.Mutex
	lastSeq int64
}

// OpenSQLite opens (or creates) the database at path and runs migrations.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open kv db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping kv db: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	store := &SQLiteStore{
		db:      db,
		origin:  uuid.NewString(),
		logger:  logger,
		changes: make(chan Change, 64),
	}
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM kv`).Scan(&store.lastSeq); err != nil {
		db.Close()
		return nil, fmt.Errorf("read kv sequence: %w", err)
	}
	return store, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Origin() string {
	return s.origin
}

func (s *SQLiteStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(key string, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, origin, seq, updated_at)
		 VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM kv), ?)
		 ON CONFLICT(key) DO UPDATE SET
		   value = excluded.value,
		   origin = excluded.origin,
		   seq = excluded.seq,
		   updated_at = excluded.updated_at`,
		key, value, s.origin, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Changes() <-chan Change {
	return s.changes
}

// Poll emits every write made by another origin since the last poll.
func (s *SQLiteStore) Poll(ctx context.Context) error {
	s.mu.Lock()
	since := s.lastSeq
	s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT key, value, origin, seq FROM kv WHERE seq > ? ORDER BY seq ASC`, since)
	if err != nil {
		return fmt.Errorf("poll kv: %w", err)
	}
	defer rows.Close()

	var pending []Change
	for rows.Next() {
		var change Change
		var seq int64
		if err := rows.Scan(&change.Key, &change.Value, &change.Origin, &seq); err != nil {
			return fmt.Errorf("scan kv: %w", err)
		}
		if seq > since {
			since = seq
		}
		if change.Origin != s.origin {
			pending = append(pending, change)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("poll kv: %w", err)
	}
	// Release the only connection before blocking on receivers.
	rows.Close()

	s.mu.Lock()
	if since > s.lastSeq {
		s.lastSeq = since
	}
	s.mu.Unlock()

	for _, change := range pending {
		select {
		case s.changes <- change:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Watch polls until the context is cancelled.
func (s *SQLiteStore) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Poll(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("kv poll failed", "error", err)
			}
		}
	}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
