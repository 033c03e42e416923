package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"
)

const (
	pragmaJournalModeWAL = `PRAGMA journal_mode=WAL`
	pragmaForeignKeysOn  = `PRAGMA foreign_keys=ON`
	pragmaBusyTimeout    = `PRAGMA busy_timeout=5000`

	memoryPath = ":memory:"
)

// Observer receives one call per repository statement. It must not block.
type Observer interface {
	ObserveQuery(entity, op string, err error)
}

type Option func(*Store)

func WithObserver(observer Observer) Option {
	return func(s *Store) {
		s.conn.observer = observer
	}
}

func WithMigrations(migrations []Migration) Option {
	return func(s *Store) {
		s.migrations = migrations
	}
}

type Store struct {
	conn       *conn
	path       string
	migrations []Migration

	initMu sync.Mutex

	Users     UserRepository
	Phones    PhoneRepository
	Bookings  BookingRepository
	Documents DocumentRepository
}

// conn is shared by every repository of a Store.
type conn struct {
	db       *sql.DB
	ready    atomic.Bool
	observer Observer
}

func (c *conn) checkReady() error {
	if !c.ready.Load() {
		return ErrNotInitialized
	}
	return nil
}

func (c *conn) observe(entity, op string, err error) {
	if c.observer != nil {
		c.observer.ObserveQuery(entity, op, err)
	}
}

// Open opens the database file without touching the schema. Init must run
// before any repository call.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("open storage: empty path")
	}

	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("open storage: create parent dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	// One connection: pragmas are per connection and writes are serialized
	// by the engine anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open storage: ping: %w", err)
	}

	store := &Store{
		conn:       &conn{db: db},
		path:       path,
		migrations: DefaultMigrations(),
	}
	for _, opt := range opts {
		opt(store)
	}

	store.Users = &userRepository{conn: store.conn}
	store.Phones = &phoneRepository{conn: store.conn}
	store.Bookings = &bookingRepository{conn: store.conn}
	store.Documents = &documentRepository{conn: store.conn}
	return store, nil
}

// Init configures the connection and brings the schema up to date. Calling it
// again after a successful run is a no-op.
func (s *Store) Init(ctx context.Context) error {
	if s == nil || s.conn == nil {
		return fmt.Errorf("init storage: nil store")
	}

	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.conn.ready.Load() {
		return nil
	}

	if err := configureSQLite(ctx, s.conn.db); err != nil {
		return err
	}
	if err := RunMigrations(ctx, s.conn.db, s.migrations); err != nil {
		return err
	}
	if s.path != memoryPath {
		if err := ensureDBPermissions(s.path); err != nil {
			return err
		}
	}

	s.conn.ready.Store(true)
	return nil
}

// OpenAndInit is Open followed by Init; the store is closed on failure.
func OpenAndInit(ctx context.Context, path string, opts ...Option) (*Store, error) {
	store, err := Open(path, opts...)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Ready() bool {
	return s != nil && s.conn != nil && s.conn.ready.Load()
}

func (s *Store) Close() error {
	if s == nil || s.conn == nil || s.conn.db == nil {
		return nil
	}
	s.conn.ready.Store(false)
	return s.conn.db.Close()
}

func (s *Store) DB() *sql.DB {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.db
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	if s == nil || s.conn == nil {
		return 0, fmt.Errorf("schema version: nil store")
	}
	return readUserVersion(ctx, s.conn.db)
}

func configureSQLite(ctx context.Context, db *sql.DB) error {
	pragmas := []string{pragmaJournalModeWAL, pragmaForeignKeysOn, pragmaBusyTimeout}
	for _, stmt := range pragmas {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("configure sqlite %q: %w", stmt, err)
		}
	}
	return nil
}

func ensureDBPermissions(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Chmod(p, 0o600); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("set db file permissions %s: %w", filepath.Base(p), err)
		}
	}
	return nil
}
