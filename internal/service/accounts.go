package service

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"github.com/safar/techshop-orders/internal/logging"
	"github.com/safar/techshop-orders/internal/models"
	"github.com/safar/techshop-orders/internal/store"
)

// Accounts manages the user records orders are placed against.
type Accounts struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewAccounts(db *sql.DB, logger *zap.Logger) *Accounts {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Accounts{db: db, logger: logger}
}

func (a *Accounts) CreateUser(ctx context.Context, email, name string, role models.Role) (*models.User, error) {
	user, err := store.CreateUser(ctx, a.db, strings.ToLower(strings.TrimSpace(email)), strings.TrimSpace(name), models.NormalizeRole(string(role)))
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx, a.logger).Info("user created", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

func (a *Accounts) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return store.GetUser(ctx, a.db, id)
}

func (a *Accounts) ListUsers(ctx context.Context, page, pageSize int) (*store.OffsetPage[models.User], error) {
	return store.ListUsers(ctx, a.db, page, pageSize)
}
