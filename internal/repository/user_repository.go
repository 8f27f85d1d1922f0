package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gptbot/internal/model"
)

// UserRepository handles the users table.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// EnsureUser inserts the user if absent. Existing rows are left untouched.
func (r *UserRepository) EnsureUser(ctx context.Context, userID int64, nickName string) error {
	user := model.User{UserID: userID, NickName: nickName}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&user).Error
	if err != nil {
		return fmt.Errorf("ensure user %d: %w", userID, err)
	}
	return nil
}

// SetLanguage upserts the language and nick name in a single statement.
func (r *UserRepository) SetLanguage(ctx context.Context, userID int64, nickName string, lang model.Language) error {
	user := model.User{UserID: userID, NickName: nickName, Lang: lang}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"nick_name", "lang", "updated_at"}),
		}).
		Create(&user).Error
	if err != nil {
		return fmt.Errorf("set language for user %d: %w", userID, err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// LanguageCount is one row of CountByLanguage.
type LanguageCount struct {
	Lang  model.Language
	Total int64
}

// CountByLanguage returns the number of users per language, ordered by language code.
func (r *UserRepository) CountByLanguage(ctx context.Context) ([]LanguageCount, error) {
	var rows []LanguageCount
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Select("lang, COUNT(*) AS total").
		Group("lang").
		Order("lang ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	return rows, nil
}
