package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// schemaVersion is stamped into PRAGMA user_version after bootstrap.
// Version 1 is the pre-tracking-columns leads table; version 2 adds the
// four call/visit tracking columns and the uniqueness indexes.
const schemaVersion = 2

const createLeadsTableSQL = `
CREATE TABLE IF NOT EXISTS leads (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	full_name TEXT NOT NULL,
	phone_number TEXT NOT NULL,
	email TEXT NOT NULL,
	institution TEXT NOT NULL,
	occupation TEXT NOT NULL,
	created_at TEXT NOT NULL,
	call_datetime TEXT,
	call_notes TEXT,
	visit_datetime TEXT,
	visit_notes TEXT
)`

const createUsersTableSQL = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

// trackingColumns are the columns added in schema version 2. Snapshots
// written by older builds lack them.
var trackingColumns = []string{
	"call_datetime",
	"call_notes",
	"visit_datetime",
	"visit_notes",
}

// bootstrap brings a freshly loaded (or empty) database up to the current
// schema and guarantees the admin user exists. Requires the store mutex
// to be effectively exclusive, which holds during Open and Reset.
func (s *Store) bootstrap() error {
	ctx := context.Background()

	if _, err := s.conn.ExecContext(ctx, createLeadsTableSQL); err != nil {
		return fmt.Errorf("failed to ensure leads table: %w", err)
	}

	migrated, err := s.migrateLeadSchema(ctx)
	if err != nil {
		return err
	}
	if migrated {
		s.persist()
	}

	s.ensureLeadIndexes(ctx)

	if _, err := s.conn.ExecContext(ctx, createUsersTableSQL); err != nil {
		return fmt.Errorf("failed to ensure users table: %w", err)
	}

	created, err := s.ensureAdminUser(ctx)
	if err != nil {
		return err
	}
	if created {
		s.persist()
	}

	if _, err := s.conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("failed to stamp schema version: %w", err)
	}

	return nil
}

// migrateLeadSchema adds any tracking columns a pre-version-2 snapshot is
// missing. Each column is added individually so a partially migrated
// snapshot does not fail wholesale; afterwards the schema is re-read and
// verified, because a swallowed ALTER failure that was not "column already
// exists" must not be allowed to pass silently.
func (s *Store) migrateLeadSchema(ctx context.Context) (bool, error) {
	existing, err := s.leadColumns(ctx)
	if err != nil {
		return false, err
	}

	var missing []string
	for _, col := range trackingColumns {
		if !existing[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) == 0 {
		return false, nil
	}

	log.Printf("Migrating leads table: adding %d tracking column(s)", len(missing))
	for _, col := range missing {
		if _, err := s.conn.ExecContext(ctx, "ALTER TABLE leads ADD COLUMN "+col+" TEXT"); err != nil {
			log.Printf("ERROR: adding column %s: %v", col, err)
		}
	}

	existing, err = s.leadColumns(ctx)
	if err != nil {
		return false, err
	}
	for _, col := range trackingColumns {
		if !existing[col] {
			return false, fmt.Errorf("leads table is missing column %s after migration", col)
		}
	}

	log.Println("Leads table migration completed")
	return true, nil
}

func (s *Store) leadColumns(ctx context.Context) (map[string]bool, error) {
	rows, err := s.conn.QueryContext(ctx, "PRAGMA table_info(leads)")
	if err != nil {
		return nil, fmt.Errorf("failed to inspect leads schema: %w", err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, colType    string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan leads schema row: %w", err)
		}
		columns[name] = true
	}
	return columns, rows.Err()
}

// ensureLeadIndexes backs the application-level duplicate check with real
// uniqueness constraints. A legacy snapshot that already contains
// duplicate emails or phone numbers cannot take the index; in that case
// the failure is logged and the store keeps running with the
// repository-level check as the only guard, which matches the original
// behavior those rows were written under.
func (s *Store) ensureLeadIndexes(ctx context.Context) {
	stmts := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_email ON leads(email)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_phone ON leads(phone_number)",
	}
	for _, stmt := range stmts {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			log.Printf("ERROR: creating lead uniqueness index: %v", err)
		}
	}
}

// ensureAdminUser inserts the default admin account when no user named
// "admin" exists. Returns true when a row was inserted.
func (s *Store) ensureAdminUser(ctx context.Context) (bool, error) {
	var count int
	err := s.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE username = ?", "admin").Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check for admin user: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	password := s.opts.DefaultAdminPassword
	if password == "" {
		password = "admin"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("failed to hash default admin password: %w", err)
	}

	_, err = s.conn.ExecContext(ctx,
		"INSERT INTO users (username, password, created_at) VALUES (?, ?, ?)",
		"admin", string(hash), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("failed to create default admin user: %w", err)
	}

	log.Println("Bootstrapped default admin user")
	return true, nil
}
