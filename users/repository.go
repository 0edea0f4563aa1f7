// Package users implements the admin-panel credential repository.
//
// Passwords are stored as bcrypt hashes. Snapshots written by old builds
// hold plaintext passwords; those rows authenticate once via a
// constant-time comparison and are rehashed in place on success.
package users

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"github.com/mozanhq/campaign-go/store"
)

var (
	// ErrUsernameTaken rejects adding a user whose name already exists.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrLastAdmin rejects deleting the only user named "admin".
	ErrLastAdmin = errors.New("cannot delete the last admin user")
)

// User is the credential holder as exposed to the admin panel. The
// password never leaves this package.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"createdAt"`
}

// Repository provides domain operations over the users table.
type Repository struct {
	store *store.Store
}

// NewRepository wires the repository to the shared store.
func NewRepository(s *store.Store) *Repository {
	return &Repository{store: s}
}

// Authenticate reports whether the username/password pair matches a stored
// credential. Any storage error fails closed. A legacy plaintext row that
// matches is upgraded to a bcrypt hash before returning.
func (r *Repository) Authenticate(username, password string) bool {
	var id int64
	var stored string
	err := r.store.Read(func(conn *sql.Conn) error {
		return conn.QueryRowContext(context.Background(),
			"SELECT id, password FROM users WHERE username = ?", username).
			Scan(&id, &stored)
	})
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("ERROR: authenticating user %s: %v", username, err)
		}
		return false
	}

	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(password)) != 1 {
		return false
	}
	if err := r.UpdatePassword(id, password); err != nil {
		log.Printf("ERROR: upgrading legacy password for user %s: %v", username, err)
	}
	return true
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") ||
		strings.HasPrefix(s, "$2b$") ||
		strings.HasPrefix(s, "$2y$")
}

// GetAll returns every user, newest first, without password material.
func (r *Repository) GetAll() ([]User, error) {
	out := []User{}
	err := r.store.Read(func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(context.Background(),
			"SELECT id, username, created_at FROM users ORDER BY created_at DESC")
		if err != nil {
			return fmt.Errorf("failed to query users: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var u User
			if err := rows.Scan(&u.ID, &u.Username, &u.CreatedAt); err != nil {
				return fmt.Errorf("failed to scan user: %w", err)
			}
			out = append(out, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Add creates a new user. Returns ErrUsernameTaken when the name exists.
func (r *Repository) Add(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return r.store.Write(func(conn *sql.Conn) error {
		ctx := context.Background()

		var count int
		err := conn.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to check username: %w", err)
		}
		if count > 0 {
			return ErrUsernameTaken
		}

		_, err = conn.ExecContext(ctx,
			"INSERT INTO users (username, password, created_at) VALUES (?, ?, ?)",
			username, string(hash), time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			var serr sqlite3.Error
			if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique {
				return ErrUsernameTaken
			}
			return fmt.Errorf("failed to insert user: %w", err)
		}
		return nil
	})
}

// Delete removes a user by id. Returns ErrLastAdmin when the target is the
// only user named "admin"; an unknown id deletes zero rows and succeeds.
func (r *Repository) Delete(id int64) error {
	return r.store.Write(func(conn *sql.Conn) error {
		ctx := context.Background()

		var username string
		err := conn.QueryRowContext(ctx,
			"SELECT username FROM users WHERE id = ?", id).Scan(&username)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to look up user: %w", err)
		}

		if username == "admin" {
			var admins int
			err := conn.QueryRowContext(ctx,
				"SELECT COUNT(*) FROM users WHERE username = ?", "admin").Scan(&admins)
			if err != nil {
				return fmt.Errorf("failed to count admin users: %w", err)
			}
			if admins <= 1 {
				return ErrLastAdmin
			}
		}

		if _, err := conn.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
}

// UpdatePassword overwrites a user's password. No verification of the old
// password; the admin panel gates access.
func (r *Repository) UpdatePassword(id int64, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return r.store.Write(func(conn *sql.Conn) error {
		_, err := conn.ExecContext(context.Background(),
			"UPDATE users SET password = ? WHERE id = ?", string(hash), id)
		if err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		return nil
	})
}
