package state

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// SQLiteStore keeps layers in a SQLite database: one row per layer in
// "layers" and one row per key in "layer_values", values JSON encoded.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating when needed) the database at path and applies
// migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("state: open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("state: apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Load(ctx context.Context, ref Ref) (map[string]any, Meta, bool, error) {
	source, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}

	var (
		values map[string]any
		meta   Meta
		found  bool
	)
	err = retryOnBusy(ctx, func() error {
		values, meta, found = nil, Meta{}, false
		row := s.db.QueryRowContext(ctx,
			`SELECT snapshot_id, etag, updated_at, extra_json FROM layers WHERE source = ?`, source)
		loaded, err := scanMeta(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		meta, found = loaded, true

		rows, err := s.db.QueryContext(ctx,
			`SELECT key, value_json FROM layer_values WHERE source = ?`, source)
		if err != nil {
			return err
		}
		defer rows.Close()
		values = map[string]any{}
		for rows.Next() {
			var key, encoded string
			if err := rows.Scan(&key, &encoded); err != nil {
				return err
			}
			var value any
			if err := json.Unmarshal([]byte(encoded), &value); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			values[key] = value
		}
		return rows.Err()
	})
	if err != nil {
		return nil, Meta{}, false, fmt.Errorf("state: load %s: %w", source, err)
	}
	return values, meta, found, nil
}

func (s *SQLiteStore) Save(ctx context.Context, ref Ref, values map[string]any, meta Meta) (Meta, error) {
	source, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	encoded := make(map[string]string, len(values))
	for key, value := range values {
		payload, err := json.Marshal(value)
		if err != nil {
			return Meta{}, fmt.Errorf("state: encode %s: %w", key, err)
		}
		encoded[key] = string(payload)
	}

	var stored Meta
	err = retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		current, err := scanMeta(tx.QueryRowContext(ctx,
			`SELECT snapshot_id, etag, updated_at, extra_json FROM layers WHERE source = ?`, source))
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if err := checkETag(meta, current); err != nil {
			return err
		}

		stored = stamp(meta)
		var extra any
		if len(stored.Extra) > 0 {
			payload, err := json.Marshal(stored.Extra)
			if err != nil {
				return err
			}
			extra = string(payload)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO layers (source, snapshot_id, etag, updated_at, extra_json)
             VALUES (?, ?, ?, ?, ?)
             ON CONFLICT(source) DO UPDATE SET
                snapshot_id = excluded.snapshot_id,
                etag = excluded.etag,
                updated_at = excluded.updated_at,
                extra_json = excluded.extra_json`,
			source, stored.SnapshotID, stored.ETag, stored.UpdatedAt.Format(time.RFC3339Nano), extra,
		); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM layer_values WHERE source = ?`, source); err != nil {
			return err
		}
		for key, value := range encoded {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO layer_values (source, key, value_json) VALUES (?, ?, ?)`,
				source, key, value,
			); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if errors.Is(err, ErrETagMismatch) {
		return Meta{}, err
	}
	if err != nil {
		return Meta{}, fmt.Errorf("state: save %s: %w", source, err)
	}
	return cloneMeta(stored), nil
}

// Sources lists the identifiers of every stored layer.
func (s *SQLiteStore) Sources(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source FROM layers ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("state: list layers: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("state: list layers: %w", err)
		}
		out = append(out, source)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeta(row rowScanner) (Meta, error) {
	var (
		meta      Meta
		updatedAt string
		extra     sql.NullString
	)
	if err := row.Scan(&meta.SnapshotID, &meta.ETag, &updatedAt, &extra); err != nil {
		return Meta{}, err
	}
	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		meta.UpdatedAt = ts
	}
	if extra.Valid && extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &meta.Extra); err != nil {
			return Meta{}, fmt.Errorf("decode extra metadata: %w", err)
		}
	}
	return meta, nil
}

type migration struct {
	version string
	sql     string
}

func loadMigrations() ([]migration, error) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("state: read migrations dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	migrations := make([]migration, 0, len(names))
	for _, name := range names {
		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("state: read migration %s: %w", name, err)
		}
		migrations = append(migrations, migration{version: strings.TrimSuffix(name, ".sql"), sql: string(data)})
	}
	return migrations, nil
}

func (s *SQLiteStore) applyMigrations(ctx context.Context) error {
	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("state: begin migration tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("state: ensure schema_migrations: %w", err)
	}
	for _, m := range migrations {
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", m.version).Scan(&count); err != nil {
			return fmt.Errorf("state: scan migration version: %w", err)
		}
		if count > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("state: apply migration %s: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("state: record migration %s: %w", m.version, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("state: commit migrations: %w", err)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
