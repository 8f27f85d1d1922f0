package service

import (
	"context"

	"go.uber.org/zap"

	"gptbot/internal/model"
)

// UserStore is the persistence behind UserDirectory.
type UserStore interface {
	EnsureUser(ctx context.Context, userID int64, nickName string) error
	SetLanguage(ctx context.Context, userID int64, nickName string, lang model.Language) error
}

// UserDirectory is a best-effort view of the users table: store failures are logged and
// swallowed so they never block message delivery.
type UserDirectory struct {
	store UserStore
	log   *zap.Logger
}

func NewUserDirectory(store UserStore, log *zap.Logger) *UserDirectory {
	return &UserDirectory{store: store, log: log}
}

func (d *UserDirectory) EnsureUser(ctx context.Context, userID int64, nickName string) {
	if err := d.store.EnsureUser(ctx, userID, nickName); err != nil {
		d.log.Warn("ensure user failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (d *UserDirectory) SetLanguage(ctx context.Context, userID int64, nickName string, lang model.Language) {
	if err := d.store.SetLanguage(ctx, userID, nickName, lang); err != nil {
		d.log.Warn("set language failed",
			zap.Int64("user_id", userID),
			zap.String("lang", string(lang)),
			zap.Error(err))
	}
}
