package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	PasswordMinLen = 6
	// bcrypt only looks at the first 72 bytes, longer secrets are refused
	// rather than silently truncated.
	PasswordMaxBytes = 72
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 6 characters long")
	ErrPasswordTooLong  = errors.New("password must be at most 72 bytes long")
)

// NormalizeCost clamps a configured bcrypt cost into the range bcrypt accepts,
// treating zero as bcrypt.DefaultCost.
func NormalizeCost(cost int) int {
	switch {
	case cost == 0:
		return bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		return bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		return bcrypt.MaxCost
	default:
		return cost
	}
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), NormalizeCost(cost))
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePasswords reports whether password matches hashedPassword. The
// comparison is constant time in the secret content.
func ComparePasswords(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// ValidatePassword checks the length bounds applied to every new secret.
func ValidatePassword(password string) error {
	switch {
	case len([]rune(password)) < PasswordMinLen:
		return ErrPasswordTooShort
	case len(password) > PasswordMaxBytes:
		return ErrPasswordTooLong
	default:
		return nil
	}
}
