package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"blogapp/internal/db"
	"blogapp/internal/models"
	"blogapp/internal/security"
)

const UsernameMaxLen = 150

// UserRepository is the persistence the credential store needs.
type UserRepository interface {
	CreateUser(ctx context.Context, username, passwordHash string, role models.Role) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateAccount(ctx context.Context, id int64, username, passwordHash string) error
}

// Credentials owns principal secrets: it hashes on the way in, verifies on
// the way back, and never hands out plaintext.
type Credentials struct {
	users  UserRepository
	cost   int
	logger *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentials(users UserRepository, bcryptCost int, logger *zap.Logger) *Credentials {
	return &Credentials{
		users:  users,
		cost:   security.NormalizeCost(bcryptCost),
		logger: logger,
	}
}

// NormalizeUsername trims and NFKC-normalizes a username so that lookalike
// spellings collide on the unique index.
func NormalizeUsername(username string) string {
	return norm.NFKC.String(strings.TrimSpace(username))
}

func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	switch {
	case n == 0:
		return NewValidationError("username", "This field is required.")
	case n > UsernameMaxLen:
		return NewValidationError("username", fmt.Sprintf("Field must be at most %d characters long.", UsernameMaxLen))
	}
	return nil
}

func (c *Credentials) hash(field, password string) (string, error) {
	if err := security.ValidatePassword(password); err != nil {
		return "", NewValidationError(field, err.Error())
	}
	hash, err := security.HashPassword(password, c.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// Create registers a principal. Uniqueness is left to the store's
// constraint; a violation surfaces as ErrDuplicateUsername.
func (c *Credentials) Create(ctx context.Context, username, password string, role models.Role) (*models.User, error) {
	username = NormalizeUsername(username)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	hash, err := c.hash("password", password)
	if err != nil {
		return nil, err
	}

	user, err := c.users.CreateUser(ctx, username, hash, role)
	if err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateUsername, username)
		}
		return nil, err
	}

	c.logger.Info("user created", zap.Int64("user_id", user.ID), zap.String("username", user.Username), zap.Stringer("role", user.Role))
	return user, nil
}

// Verify returns the principal named username when password matches its
// stored hash, ErrInvalidCredentials otherwise.
func (c *Credentials) Verify(ctx context.Context, username, password string) (*models.User, error) {
	user, err := c.users.GetUserByUsername(ctx, NormalizeUsername(username))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			// burn the same bcrypt work as a real comparison
			security.ComparePasswords(c.dummy(), password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !security.ComparePasswords(user.PasswordHash, password) {
		c.logger.Debug("password mismatch", zap.Int64("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// CheckPassword reports whether password is user's current secret.
func (c *Credentials) CheckPassword(user *models.User, password string) bool {
	return security.ComparePasswords(user.PasswordHash, password)
}

// SetPassword replaces user's secret. Sessions are left to the caller.
func (c *Credentials) SetPassword(ctx context.Context, user *models.User, password string) error {
	hash, err := c.hash("new_password", password)
	if err != nil {
		return err
	}
	if err := c.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	user.PasswordHash = hash

	c.logger.Info("password changed", zap.Int64("user_id", user.ID))
	return nil
}

// UpdateAccount renames user and replaces its secret in one statement.
func (c *Credentials) UpdateAccount(ctx context.Context, user *models.User, username, password string) error {
	username = NormalizeUsername(username)
	if err := ValidateUsername(username); err != nil {
		return err
	}

	hash, err := c.hash("password", password)
	if err != nil {
		return err
	}

	if err := c.users.UpdateAccount(ctx, user.ID, username, hash); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return fmt.Errorf("%w: %s", ErrDuplicateUsername, username)
		}
		return err
	}
	user.Username = username
	user.PasswordHash = hash

	c.logger.Info("account updated", zap.Int64("user_id", user.ID), zap.String("username", username))
	return nil
}

func (c *Credentials) Lookup(ctx context.Context, id int64) (*models.User, error) {
	return c.users.GetUserByID(ctx, id)
}

func (c *Credentials) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return c.users.GetUserByUsername(ctx, NormalizeUsername(username))
}

func (c *Credentials) dummy() string {
	c.dummyOnce.Do(func() {
		hash, err := security.HashPassword("not-a-real-password", c.cost)
		if err != nil {
			c.logger.Error("failed to prepare dummy hash", zap.Error(err))
			return
		}
		c.dummyHash = hash
	})
	return c.dummyHash
}
