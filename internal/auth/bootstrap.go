package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"blogapp/internal/config"
	"blogapp/internal/db"
	"blogapp/internal/models"
)

// Bootstrap creates the schema and seeds the admin principal in a single
// transaction. An existing account with the admin username is left exactly
// as it is.
func Bootstrap(ctx context.Context, database *db.DB, admin config.Admin, bcryptCost int, logger *zap.Logger) error {
	return database.InTx(ctx, func(q *db.Queries) error {
		if err := q.Migrate(ctx); err != nil {
			return err
		}

		creds := NewCredentials(q, bcryptCost, logger)
		_, err := creds.FindByUsername(ctx, admin.Username)
		switch {
		case err == nil:
			return nil
		case !errors.Is(err, db.ErrNotFound):
			return fmt.Errorf("failed to look up admin user: %w", err)
		}

		user, err := creds.Create(ctx, admin.Username, admin.Password, models.RoleAdmin)
		if err != nil {
			return fmt.Errorf("failed to seed admin user: %w", err)
		}

		logger.Info("default admin user created", zap.String("username", user.Username))
		if admin.Password == config.DefaultAdminPassword {
			logger.Warn("admin user uses the built-in default password, change it now", zap.String("username", user.Username))
		}
		return nil
	})
}
