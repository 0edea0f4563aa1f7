package users

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozanhq/campaign-go/store"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	blobs, err := store.NewFileBlobStore(t.TempDir())
	require.NoError(t, err)
	s, err := store.Open(blobs, store.Options{DefaultAdminPassword: "admin"})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return NewRepository(s)
}

func findUser(t *testing.T, r *Repository, username string) *User {
	t.Helper()
	all, err := r.GetAll()
	require.NoError(t, err)
	for i := range all {
		if all[i].Username == username {
			return &all[i]
		}
	}
	return nil
}

func storedPassword(t *testing.T, r *Repository, username string) string {
	t.Helper()
	var password string
	err := r.store.Read(func(conn *sql.Conn) error {
		return conn.QueryRowContext(context.Background(),
			"SELECT password FROM users WHERE username = ?", username).Scan(&password)
	})
	require.NoError(t, err)
	return password
}

func TestAuthenticateDefaultAdmin(t *testing.T) {
	r := newTestRepo(t)

	assert.True(t, r.Authenticate("admin", "admin"))
	assert.False(t, r.Authenticate("admin", "wrong"))
	assert.False(t, r.Authenticate("nobody", "admin"))
}

func TestAuthenticateUpgradesLegacyPlaintext(t *testing.T) {
	r := newTestRepo(t)

	// A row as an old build would have written it.
	err := r.store.Write(func(conn *sql.Conn) error {
		_, err := conn.ExecContext(context.Background(),
			"INSERT INTO users (username, password, created_at) VALUES (?, ?, ?)",
			"legacy", "hunter2", "2024-06-01T00:00:00Z")
		return err
	})
	require.NoError(t, err)

	assert.True(t, r.Authenticate("legacy", "hunter2"))

	stored := storedPassword(t, r, "legacy")
	assert.True(t, strings.HasPrefix(stored, "$2"), "plaintext must be rehashed on first login")
	assert.NotEqual(t, "hunter2", stored)

	// The upgraded row keeps working.
	assert.True(t, r.Authenticate("legacy", "hunter2"))
	assert.False(t, r.Authenticate("legacy", "hunter3"))
}

func TestAddAndGetAll(t *testing.T) {
	r := newTestRepo(t)

	require.NoError(t, r.Add("sara", "s3cret"))
	assert.True(t, r.Authenticate("sara", "s3cret"))

	all, err := r.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)
	require.NotNil(t, findUser(t, r, "sara"))
	require.NotNil(t, findUser(t, r, "admin"))
}

func TestAddDuplicateUsername(t *testing.T) {
	r := newTestRepo(t)

	require.NoError(t, r.Add("sara", "s3cret"))
	err := r.Add("sara", "other")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	err = r.Add("admin", "other")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestDeleteLastAdminIsRejected(t *testing.T) {
	r := newTestRepo(t)

	admin := findUser(t, r, "admin")
	require.NotNil(t, admin)

	err := r.Delete(admin.ID)
	assert.ErrorIs(t, err, ErrLastAdmin)
	assert.True(t, r.Authenticate("admin", "admin"), "the admin row must survive")
}

func TestDeleteRegularUser(t *testing.T) {
	r := newTestRepo(t)
	require.NoError(t, r.Add("sara", "s3cret"))

	sara := findUser(t, r, "sara")
	require.NotNil(t, sara)

	require.NoError(t, r.Delete(sara.ID))
	assert.Nil(t, findUser(t, r, "sara"))
	assert.False(t, r.Authenticate("sara", "s3cret"))
}

func TestDeleteUnknownIDIsNoOp(t *testing.T) {
	r := newTestRepo(t)

	require.NoError(t, r.Delete(9999))

	all, err := r.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdatePassword(t *testing.T) {
	r := newTestRepo(t)

	admin := findUser(t, r, "admin")
	require.NotNil(t, admin)

	require.NoError(t, r.UpdatePassword(admin.ID, "new-password"))
	assert.False(t, r.Authenticate("admin", "admin"))
	assert.True(t, r.Authenticate("admin", "new-password"))
}
