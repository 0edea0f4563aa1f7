package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBlobs(t *testing.T) *FileBlobStore {
	t.Helper()
	blobs, err := NewFileBlobStore(t.TempDir())
	require.NoError(t, err)
	return blobs
}

func openTestStore(t *testing.T, blobs *FileBlobStore) *Store {
	t.Helper()
	s, err := Open(blobs, Options{DefaultAdminPassword: "admin"})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func insertLead(t *testing.T, s *Store, name, phone, email, createdAt string) {
	t.Helper()
	err := s.Write(func(conn *sql.Conn) error {
		_, err := conn.ExecContext(context.Background(),
			`INSERT INTO leads (full_name, phone_number, email, institution, occupation, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			name, phone, email, "Mozan Institute", "Student", createdAt)
		return err
	})
	require.NoError(t, err)
}

func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var count int
	err := s.Read(func(conn *sql.Conn) error {
		return conn.QueryRowContext(context.Background(),
			"SELECT COUNT(*) FROM "+table).Scan(&count)
	})
	require.NoError(t, err)
	return count
}

// writeSnapshot serializes a database built by fn and saves it under the
// snapshot key, simulating a blob written by an earlier build.
func writeSnapshot(t *testing.T, blobs *FileBlobStore, fn func(conn *sql.Conn) error) {
	t.Helper()
	db, conn, err := openMemoryDatabase()
	require.NoError(t, err)
	defer db.Close()
	defer conn.Close()

	require.NoError(t, fn(conn))

	var data []byte
	err = conn.Raw(func(driverConn any) error {
		sc, ok := driverConn.(*sqlite3.SQLiteConn)
		require.True(t, ok)
		b, err := sc.Serialize("main")
		data = b
		return err
	})
	require.NoError(t, err)
	require.NoError(t, blobs.Save(SnapshotKey, data))
}

func TestOpenBootstrapsAdminUser(t *testing.T) {
	s := openTestStore(t, newTestBlobs(t))

	var username, password string
	err := s.Read(func(conn *sql.Conn) error {
		return conn.QueryRowContext(context.Background(),
			"SELECT username, password FROM users").Scan(&username, &password)
	})
	require.NoError(t, err)
	assert.Equal(t, "admin", username)
	assert.True(t, strings.HasPrefix(password, "$2"), "bootstrap password should be bcrypt-hashed")
}

func TestOpenIsIdempotentAcrossRestarts(t *testing.T) {
	blobs := newTestBlobs(t)

	s := openTestStore(t, blobs)
	s.Close()

	s2 := openTestStore(t, blobs)
	assert.Equal(t, 1, countRows(t, s2, "users"), "reopening must not duplicate the admin user")
}

func TestRoundTripThroughSnapshot(t *testing.T) {
	blobs := newTestBlobs(t)

	s := openTestStore(t, blobs)
	insertLead(t, s, "Amina Hassan", "+25261100001", "amina@example.com", "2025-03-01T09:30:00Z")
	s.Close()

	s2 := openTestStore(t, blobs)
	var name, email string
	err := s2.Read(func(conn *sql.Conn) error {
		return conn.QueryRowContext(context.Background(),
			"SELECT full_name, email FROM leads").Scan(&name, &email)
	})
	require.NoError(t, err)
	assert.Equal(t, "Amina Hassan", name)
	assert.Equal(t, "amina@example.com", email)
}

func TestCorruptSnapshotFailsOpen(t *testing.T) {
	blobs := newTestBlobs(t)
	require.NoError(t, blobs.Save(SnapshotKey, []byte("this is not a database")))

	_, err := Open(blobs, Options{DefaultAdminPassword: "admin"})
	require.Error(t, err, "a corrupt snapshot must not silently fall back to empty")
}

func TestMigrationAddsTrackingColumns(t *testing.T) {
	blobs := newTestBlobs(t)

	// Snapshot from a build that predates the tracking columns.
	writeSnapshot(t, blobs, func(conn *sql.Conn) error {
		ctx := context.Background()
		stmts := []string{
			`CREATE TABLE leads (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				full_name TEXT NOT NULL,
				phone_number TEXT NOT NULL,
				email TEXT NOT NULL,
				institution TEXT NOT NULL,
				occupation TEXT NOT NULL,
				created_at TEXT NOT NULL
			)`,
			`CREATE TABLE users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				username TEXT NOT NULL UNIQUE,
				password TEXT NOT NULL,
				created_at TEXT NOT NULL
			)`,
			`INSERT INTO leads (full_name, phone_number, email, institution, occupation, created_at)
			 VALUES ('Omar Ali', '+25261100002', 'omar@example.com', 'Red Sea University', 'Engineer', '2025-01-15T08:00:00Z')`,
		}
		for _, stmt := range stmts {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})

	s := openTestStore(t, blobs)

	var name, phone, email, createdAt string
	var callDT, callNotes, visitDT, visitNotes sql.NullString
	err := s.Read(func(conn *sql.Conn) error {
		return conn.QueryRowContext(context.Background(),
			`SELECT full_name, phone_number, email, created_at,
			        call_datetime, call_notes, visit_datetime, visit_notes
			 FROM leads`).
			Scan(&name, &phone, &email, &createdAt, &callDT, &callNotes, &visitDT, &visitNotes)
	})
	require.NoError(t, err)

	assert.Equal(t, "Omar Ali", name)
	assert.Equal(t, "+25261100002", phone)
	assert.Equal(t, "omar@example.com", email)
	assert.Equal(t, "2025-01-15T08:00:00Z", createdAt)
	assert.False(t, callDT.Valid)
	assert.False(t, callNotes.Valid)
	assert.False(t, visitDT.Valid)
	assert.False(t, visitNotes.Valid)
}

func TestMigrationPersistsImmediately(t *testing.T) {
	blobs := newTestBlobs(t)
	writeSnapshot(t, blobs, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(context.Background(),
			`CREATE TABLE leads (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				full_name TEXT NOT NULL,
				phone_number TEXT NOT NULL,
				email TEXT NOT NULL,
				institution TEXT NOT NULL,
				occupation TEXT NOT NULL,
				created_at TEXT NOT NULL
			)`)
		return err
	})

	s := openTestStore(t, blobs)
	s.Close()

	// The persisted snapshot must already carry the migrated schema.
	s2 := openTestStore(t, blobs)
	var count int
	err := s2.Read(func(conn *sql.Conn) error {
		return conn.QueryRowContext(context.Background(),
			"SELECT COUNT(call_datetime) FROM leads").Scan(&count)
	})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestUniqueIndexBackstop(t *testing.T) {
	s := openTestStore(t, newTestBlobs(t))
	insertLead(t, s, "Amina Hassan", "+25261100001", "amina@example.com", "2025-03-01T09:30:00Z")

	err := s.Write(func(conn *sql.Conn) error {
		_, err := conn.ExecContext(context.Background(),
			`INSERT INTO leads (full_name, phone_number, email, institution, occupation, created_at)
			 VALUES ('Other', '+25261109999', 'amina@example.com', 'X', 'Y', '2025-03-02T09:30:00Z')`)
		return err
	})
	require.Error(t, err, "duplicate email must be rejected by the unique index")
}

func TestResetRebuildsFromScratch(t *testing.T) {
	blobs := newTestBlobs(t)
	s := openTestStore(t, blobs)
	insertLead(t, s, "Amina Hassan", "+25261100001", "amina@example.com", "2025-03-01T09:30:00Z")

	require.NoError(t, s.Reset())

	assert.Equal(t, 0, countRows(t, s, "leads"))
	assert.Equal(t, 1, countRows(t, s, "users"), "reset must re-run the admin bootstrap")

	// The rebuilt database is usable for writes.
	insertLead(t, s, "Omar Ali", "+25261100002", "omar@example.com", "2025-03-02T10:00:00Z")
	assert.Equal(t, 1, countRows(t, s, "leads"))
}

func TestWritePersistsSnapshot(t *testing.T) {
	blobs := newTestBlobs(t)
	s := openTestStore(t, blobs)

	before, err := blobs.Load(SnapshotKey)
	require.NoError(t, err)
	require.NotNil(t, before, "bootstrap should have persisted the admin user")

	insertLead(t, s, "Amina Hassan", "+25261100001", "amina@example.com", "2025-03-01T09:30:00Z")

	after, err := blobs.Load(SnapshotKey)
	require.NoError(t, err)
	assert.NotEqual(t, before, after, "a write must persist a new snapshot")
}

func TestFileBlobStoreMissingKey(t *testing.T) {
	blobs := newTestBlobs(t)

	data, err := blobs.Load("nope")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, blobs.Delete("nope"), "deleting a missing key is not an error")
}
