package mappings

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"dialbridge/internal/config"
	"dialbridge/internal/logging"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; users must delete the mapping database after a bump.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Store persists button mappings in SQLite with a write-through in-memory
// cache. Lookups hit the cache first; a miss reads the backing record named
// by the sanitized identity. While loading mode is active, assignment writes
// update the cache only, so programmatic repopulation of the layout cannot
// trigger autosave feedback loops.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	cache   map[string]Mapping
	loading bool
}

// Open initializes or connects to the mapping database under the configured
// mappings directory.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.MappingsDir, "mappings.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:     db,
		path:   dbPath,
		logger: logging.NewComponentLogger(logger, "mappings"),
		cache:  make(map[string]Mapping),
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the backing database location.
func (s *Store) Path() string {
	return s.path
}

// SetLoading toggles loading mode. While active, Assign and Unassign update
// the cache without touching the backing store.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = loading
}

// Get returns the mapping for identity. Cache first; on miss the backing
// record populates the cache. An unknown identity yields an empty mapping,
// not an error.
func (s *Store) Get(ctx context.Context, identity string) (Mapping, error) {
	key := SanitizeIdentity(identity)

	s.mu.Lock()
	if cached, ok := s.cache[key]; ok {
		out := cached.Clone()
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	mapping, err := s.read(ctx, key, identity)
	if err != nil {
		return Mapping{}, err
	}

	s.mu.Lock()
	s.cache[key] = mapping.Clone()
	s.mu.Unlock()
	return mapping, nil
}

// Assign binds button to a for identity and autosaves unless loading mode
// suppresses the write. Any rows already persisted for the identity are
// loaded into the cache first, so an edit on a cold cache cannot shadow them.
func (s *Store) Assign(ctx context.Context, identity string, button int, a Assignment) error {
	key := SanitizeIdentity(identity)

	if _, err := s.Get(ctx, identity); err != nil {
		return err
	}

	s.mu.Lock()
	mapping, ok := s.cache[key]
	if !ok {
		mapping = NewMapping(identity)
	}
	mapping.Buttons[button] = a
	s.cache[key] = mapping
	suppressed := s.loading
	s.mu.Unlock()

	if suppressed {
		return nil
	}
	return s.persistAssignment(ctx, key, button, a)
}

// Unassign removes the binding for button and autosaves unless loading mode
// suppresses the write.
func (s *Store) Unassign(ctx context.Context, identity string, button int) error {
	key := SanitizeIdentity(identity)

	if _, err := s.Get(ctx, identity); err != nil {
		return err
	}

	s.mu.Lock()
	if mapping, ok := s.cache[key]; ok {
		delete(mapping.Buttons, button)
		s.cache[key] = mapping
	}
	suppressed := s.loading
	s.mu.Unlock()

	if suppressed {
		return nil
	}
	return s.execWithoutResultRetry(ctx,
		"DELETE FROM button_mappings WHERE identity = ? AND button = ?", key, button)
}

// Identities lists every identity with at least one persisted assignment.
func (s *Store) Identities(ctx context.Context) ([]string, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT identity FROM button_mappings ORDER BY identity")
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var identity string
		if err := rows.Scan(&identity); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		out = append(out, identity)
	}
	return out, rows.Err()
}

// Export writes the mapping for identity to path as JSON, outside the
// deterministic naming scheme.
func (s *Store) Export(ctx context.Context, identity, path string) error {
	mapping, err := s.Get(ctx, identity)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(mapping, "", "  ")
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write mapping export: %w", err)
	}
	return nil
}

// Import reads a JSON mapping record from path, persists it, and refreshes
// the cache for the affected identity.
func (s *Store) Import(ctx context.Context, path string) (Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Mapping{}, fmt.Errorf("read mapping import: %w", err)
	}
	var mapping Mapping
	if err := json.Unmarshal(data, &mapping); err != nil {
		return Mapping{}, fmt.Errorf("decode mapping import: %w", err)
	}
	if strings.TrimSpace(mapping.Identity) == "" {
		return Mapping{}, errors.New("mapping import has no identity")
	}
	if mapping.Buttons == nil {
		mapping.Buttons = make(map[int]Assignment)
	}

	key := SanitizeIdentity(mapping.Identity)
	if err := s.execWithoutResultRetry(ctx,
		"DELETE FROM button_mappings WHERE identity = ?", key); err != nil {
		return Mapping{}, fmt.Errorf("clear previous mapping: %w", err)
	}
	for button, a := range mapping.Buttons {
		if err := s.persistAssignment(ctx, key, button, a); err != nil {
			return Mapping{}, err
		}
	}

	s.mu.Lock()
	s.cache[key] = mapping.Clone()
	s.mu.Unlock()

	s.logger.Info("imported mapping",
		logging.String(logging.FieldIdentity, mapping.Identity),
		logging.Int("assignments", len(mapping.Buttons)),
	)
	return mapping, nil
}

func (s *Store) read(ctx context.Context, key, identity string) (Mapping, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT button, property_id, property_name FROM button_mappings WHERE identity = ?", key)
	if err != nil {
		return Mapping{}, fmt.Errorf("read mapping: %w", err)
	}
	defer rows.Close()

	mapping := NewMapping(identity)
	for rows.Next() {
		var (
			button int
			a      Assignment
		)
		if err := rows.Scan(&button, &a.PropertyID, &a.PropertyName); err != nil {
			return Mapping{}, fmt.Errorf("scan mapping row: %w", err)
		}
		mapping.Buttons[button] = a
	}
	return mapping, rows.Err()
}

func (s *Store) persistAssignment(ctx context.Context, key string, button int, a Assignment) error {
	return s.execWithoutResultRetry(ctx, `
		INSERT INTO button_mappings (identity, button, property_id, property_name, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (identity, button) DO UPDATE SET
			property_id = excluded.property_id,
			property_name = excluded.property_name,
			updated_at = excluded.updated_at
	`, key, button, a.PropertyID, a.PropertyName, time.Now().UTC().Format(time.RFC3339))
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to rebuild)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
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

func (s *Store) execWithoutResultRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}
