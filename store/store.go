// Package store owns the embedded SQLite database and its durability
// strategy: the live database is in-memory, and every mutation persists a
// full serialized snapshot to a blob store under a fixed key.
//
// The store is strictly single-process. Two processes pointed at the same
// data directory each hold an independent in-memory copy and the last
// persist wins; nothing here detects or merges that.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"

	"github.com/mattn/go-sqlite3"
)

// SnapshotKey is the fixed blob key holding the serialized database image.
const SnapshotKey = "campaign.db"

// Options configures store construction.
type Options struct {
	// DefaultAdminPassword seeds the bootstrap "admin" user when no such
	// user exists yet. It is bcrypt-hashed before it touches the database.
	DefaultAdminPassword string
}

// Store is the database handle shared by the repositories. All statement
// execution is serialized through one mutex: the engine runs on a single
// pinned connection, and the mutex doubles as the write queue that keeps
// check-then-insert sequences atomic.
type Store struct {
	mu    sync.Mutex
	db    *sql.DB
	conn  *sql.Conn
	blobs BlobStore
	opts  Options
}

// Open constructs the store: load-or-create the database from the blob
// store, ensure schema, run migrations, and bootstrap the admin user.
//
// A snapshot that exists but cannot be deserialized fails Open. Falling
// back to an empty database here would silently discard every recorded
// lead, so corruption is surfaced as a fatal initialization error instead.
func Open(blobs BlobStore, opts Options) (*Store, error) {
	db, conn, err := openMemoryDatabase()
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, conn: conn, blobs: blobs, opts: opts}

	snapshot, err := blobs.Load(SnapshotKey)
	if err != nil {
		s.closeLocked()
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	if snapshot != nil {
		if err := s.deserialize(snapshot); err != nil {
			s.closeLocked()
			return nil, fmt.Errorf("failed to load snapshot: %w", err)
		}
		log.Printf("Loaded database snapshot (%d bytes)", len(snapshot))
	} else {
		log.Println("No snapshot found -- starting with an empty database")
	}

	if err := s.bootstrap(); err != nil {
		s.closeLocked()
		return nil, err
	}

	return s, nil
}

func openMemoryDatabase() (*sql.DB, *sql.Conn, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// A second connection would see a different, empty :memory: database.
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(context.Background())
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to pin database connection: %w", err)
	}
	return db, conn, nil
}

// Read runs fn against the live database under the store mutex.
func (s *Store) Read(fn func(conn *sql.Conn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.conn)
}

// Write runs fn under the store mutex and, when fn succeeds, persists a
// fresh snapshot. Because the mutex spans fn and the persist, a
// check-then-insert inside a single Write cannot interleave with another
// writer.
func (s *Store) Write(fn func(conn *sql.Conn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.conn); err != nil {
		return err
	}
	s.persist()
	return nil
}

// Persist serializes the database and writes it to the blob store.
// Best effort: failures are logged, never returned, so a full disk does
// not take the running application down with it.
func (s *Store) Persist() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persist()
}

// persist requires the store mutex to be held.
func (s *Store) persist() {
	data, err := s.serialize()
	if err != nil {
		log.Printf("ERROR: serializing database: %v", err)
		return
	}
	if err := s.blobs.Save(SnapshotKey, data); err != nil {
		log.Printf("ERROR: saving snapshot: %v", err)
	}
}

// Snapshot returns the current serialized database image, the same bytes
// the persist path writes. Used for the downloadable .db export.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serialize()
}

// Reset discards the persisted snapshot and rebuilds an empty database,
// re-running the full bootstrap sequence. Maintenance use only.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.blobs.Delete(SnapshotKey); err != nil {
		return fmt.Errorf("failed to discard snapshot: %w", err)
	}

	s.closeLocked()
	db, conn, err := openMemoryDatabase()
	if err != nil {
		return err
	}
	s.db = db
	s.conn = conn

	log.Println("Database reset -- rebuilding from scratch")
	return s.bootstrap()
}

// Close releases the pinned connection and the database.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Store) closeLocked() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
}

func (s *Store) serialize() ([]byte, error) {
	var data []byte
	err := s.conn.Raw(func(driverConn any) error {
		sc, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection type %T", driverConn)
		}
		b, err := sc.Serialize("main")
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize database: %w", err)
	}
	return data, nil
}

func (s *Store) deserialize(data []byte) error {
	return s.conn.Raw(func(driverConn any) error {
		sc, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection type %T", driverConn)
		}
		return sc.Deserialize(data, "main")
	})
}
