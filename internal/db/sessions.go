package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"blogapp/internal/models"
)

func (q *Queries) CreateSession(ctx context.Context, session *models.Session) error {
	query := "INSERT INTO sessions (id, user_id, remember, created_at, expires_at) VALUES (?, ?, ?, ?, ?)"
	_, err := q.exec(ctx, query, session.ID, session.UserID, session.Remember, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (q *Queries) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	query := "SELECT id, user_id, remember, created_at, expires_at, revoked_at FROM sessions WHERE id = ?"
	row := q.queryRow(ctx, query, sessionID)

	session := &models.Session{}
	var revokedAt sql.NullTime
	err := row.Scan(&session.ID, &session.UserID, &session.Remember, &session.CreatedAt, &session.ExpiresAt, &revokedAt)
	if err != nil {
		return nil, translate(err)
	}
	if revokedAt.Valid {
		session.RevokedAt = &revokedAt.Time
	}
	return session, nil
}

func (q *Queries) RevokeSession(ctx context.Context, sessionID string, at time.Time) error {
	_, err := q.exec(ctx, "UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL", at, sessionID)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// RevokeUserSessions revokes every live session of userID except keepID and
// reports how many were revoked. An empty keepID revokes all of them.
func (q *Queries) RevokeUserSessions(ctx context.Context, userID int64, keepID string, at time.Time) (int64, error) {
	res, err := q.exec(ctx, "UPDATE sessions SET revoked_at = ? WHERE user_id = ? AND id <> ? AND revoked_at IS NULL", at, userID, keepID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return res.RowsAffected()
}
