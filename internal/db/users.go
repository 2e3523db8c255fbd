package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"blogapp/internal/models"
)

const userColumns = "id, username, password_hash, is_admin, created_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	user := &models.User{}
	var isAdmin bool
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &isAdmin, &user.CreatedAt); err != nil {
		return nil, translate(err)
	}
	user.Role = models.RoleFromAdminFlag(isAdmin)
	return user, nil
}

func (q *Queries) CreateUser(ctx context.Context, username, passwordHash string, role models.Role) (*models.User, error) {
	user := &models.User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}

	query := "INSERT INTO users (username, password_hash, is_admin, created_at) VALUES (?, ?, ?, ?) RETURNING id"
	err := q.queryRow(ctx, query, username, passwordHash, role == models.RoleAdmin, user.CreatedAt).Scan(&user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", translate(err))
	}
	return user, nil
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := q.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := q.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
	return scanUser(row)
}

func (q *Queries) GetAllUsers(ctx context.Context) ([]models.User, error) {
	return q.listUsers(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
}

// SearchUsers returns users whose username contains searchTerm. LIKE
// metacharacters in the term are matched literally.
func (q *Queries) SearchUsers(ctx context.Context, searchTerm string) ([]models.User, error) {
	pattern := "%" + escapeLike(searchTerm) + "%"
	return q.listUsers(ctx, "SELECT "+userColumns+` FROM users WHERE username LIKE ? ESCAPE '\' ORDER BY id`, pattern)
}

func (q *Queries) listUsers(ctx context.Context, query string, args ...any) ([]models.User, error) {
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (q *Queries) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := q.exec(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireAffected(res)
}

func (q *Queries) UpdateAccount(ctx context.Context, id int64, username, passwordHash string) error {
	res, err := q.exec(ctx, "UPDATE users SET username = ?, password_hash = ? WHERE id = ?", username, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return requireAffected(res)
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func requireAffected(res rowsAffecter) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
