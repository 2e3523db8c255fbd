package auth

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"blogapp/internal/config"
	"blogapp/internal/db"
	"blogapp/internal/models"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.Init("sqlite3", filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Migrate(context.Background()))
	return database
}

func setupCredentials(t *testing.T) (*Credentials, *db.DB) {
	t.Helper()
	database := setupTestDB(t)
	return NewCredentials(database, bcrypt.MinCost, zap.NewNop()), database
}

func TestCreateThenVerify(t *testing.T) {
	ctx := context.Background()
	creds, _ := setupCredentials(t)

	pairs := map[string]string{
		"alice":        "secret1",
		"bob":          "hunter22",
		"ünïcödé":      "pässwörd",
		"with space x": "      spaces ok",
	}
	for username, password := range pairs {
		created, err := creds.Create(ctx, username, password, models.RoleStandard)
		require.NoError(t, err, username)
		assert.NotEqual(t, password, created.PasswordHash)

		got, err := creds.Verify(ctx, username, password)
		require.NoError(t, err, username)
		assert.Equal(t, created.ID, got.ID)

		_, err = creds.Verify(ctx, username, password+"x")
		assert.ErrorIs(t, err, ErrInvalidCredentials, username)
	}
}

func TestCreateDefaultsToStandardRole(t *testing.T) {
	ctx := context.Background()
	creds, database := setupCredentials(t)

	user, err := creds.Create(ctx, "carol", "secret1", models.RoleStandard)
	require.NoError(t, err)
	assert.False(t, user.IsAdmin())

	stored, err := database.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStandard, stored.Role)

	admin, err := creds.Create(ctx, "root", "secret1", models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
}

func TestVerifyUnknownUser(t *testing.T) {
	creds, _ := setupCredentials(t)

	user, err := creds.Verify(context.Background(), "ghost", "whatever")
	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	creds, _ := setupCredentials(t)

	_, err := creds.Create(ctx, "bob", "secret1", models.RoleStandard)
	require.NoError(t, err)

	_, err = creds.Create(ctx, "bob", "secret2", models.RoleStandard)
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	// NFKC folds the fullwidth spelling onto the same name
	_, err = creds.Create(ctx, " ｂｏｂ ", "secret3", models.RoleStandard)
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestConcurrentDuplicateRegistration(t *testing.T) {
	ctx := context.Background()
	creds, database := setupCredentials(t)

	const attempts = 4
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = creds.Create(ctx, "bob", "secret1", models.RoleStandard)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateUsername)
	}
	assert.Equal(t, 1, succeeded)

	users, err := database.GetAllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	creds, _ := setupCredentials(t)

	_, err := creds.Create(ctx, "   ", "secret1", models.RoleStandard)
	require.ErrorIs(t, err, ErrValidationFailed)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "username")

	_, err = creds.Create(ctx, "dave", "short", models.RoleStandard)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "password")
}

func TestSetPassword(t *testing.T) {
	ctx := context.Background()
	creds, _ := setupCredentials(t)

	user, err := creds.Create(ctx, "erin", "secret1", models.RoleStandard)
	require.NoError(t, err)

	require.NoError(t, creds.SetPassword(ctx, user, "secret2"))
	assert.True(t, creds.CheckPassword(user, "secret2"))

	_, err = creds.Verify(ctx, "erin", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = creds.Verify(ctx, "erin", "secret2")
	assert.NoError(t, err)

	assert.ErrorIs(t, creds.SetPassword(ctx, user, "tiny"), ErrValidationFailed)
}

func TestUpdateAccount(t *testing.T) {
	ctx := context.Background()
	creds, _ := setupCredentials(t)

	admin, err := creds.Create(ctx, "user", "password", models.RoleAdmin)
	require.NoError(t, err)
	_, err = creds.Create(ctx, "taken", "password", models.RoleStandard)
	require.NoError(t, err)

	assert.ErrorIs(t, creds.UpdateAccount(ctx, admin, "taken", "newpassword"), ErrDuplicateUsername)

	require.NoError(t, creds.UpdateAccount(ctx, admin, "boss", "newpassword"))
	got, err := creds.Verify(ctx, "boss", "newpassword")
	require.NoError(t, err)
	assert.True(t, got.IsAdmin())

	_, err = creds.FindByUsername(ctx, "user")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestPolicy(t *testing.T) {
	anonymous := context.Background()
	member := WithPrincipal(anonymous, &models.User{ID: 1, Username: "alice"})
	admin := WithPrincipal(anonymous, &models.User{ID: 2, Username: "root", Role: models.RoleAdmin})

	_, err := RequireAuthenticated(anonymous)
	assert.ErrorIs(t, err, ErrUnauthorized)

	user, err := RequireAuthenticated(member)
	require.NoError(t, err)
	assert.EqualValues(t, 1, user.ID)

	_, err = RequireAdmin(anonymous)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrForbidden)

	_, err = RequireAdmin(member)
	assert.ErrorIs(t, err, ErrForbidden)

	user, err = RequireAdmin(admin)
	require.NoError(t, err)
	assert.EqualValues(t, 2, user.ID)
}

func TestWithNilPrincipalStaysAnonymous(t *testing.T) {
	ctx := WithPrincipal(context.Background(), nil)
	_, ok := PrincipalFrom(ctx)
	assert.False(t, ok)
}

func TestBootstrapIsIdempotent(t *testing.T) {
	ctx := context.Background()
	database, err := db.Init("sqlite3", filepath.Join(t.TempDir(), "boot.db"))
	require.NoError(t, err)
	defer database.Close()

	admin := config.Admin{Username: "user", Password: "password"}
	require.NoError(t, Bootstrap(ctx, database, admin, bcrypt.MinCost, zap.NewNop()))

	seeded, err := database.GetUserByUsername(ctx, "user")
	require.NoError(t, err)
	assert.True(t, seeded.IsAdmin())

	// a second run neither duplicates nor re-hashes
	require.NoError(t, Bootstrap(ctx, database, config.Admin{Username: "user", Password: "different"}, bcrypt.MinCost, zap.NewNop()))

	users, err := database.GetAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, seeded.PasswordHash, users[0].PasswordHash)

	creds := NewCredentials(database, bcrypt.MinCost, zap.NewNop())
	_, err = creds.Verify(ctx, "user", "password")
	assert.NoError(t, err)
}

func TestBootstrapRejectsWeakSeed(t *testing.T) {
	database, err := db.Init("sqlite3", filepath.Join(t.TempDir(), "boot.db"))
	require.NoError(t, err)
	defer database.Close()

	err = Bootstrap(context.Background(), database, config.Admin{Username: "user", Password: "pw"}, bcrypt.MinCost, zap.NewNop())
	assert.ErrorIs(t, err, ErrValidationFailed)
}
