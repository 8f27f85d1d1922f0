package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gptbot/internal/model"
)

func newTestRepo(t *testing.T) *UserRepository {
	t.Helper()
	db, err := NewDB("sqlite", filepath.Join(t.TempDir(), "data", "bot.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewUserRepository(db)
}

func TestEnsureUser_InsertIfAbsent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.EnsureUser(ctx, 42, "Alice"))
	require.NoError(t, repo.EnsureUser(ctx, 42, "Bob"))

	user, err := repo.FindByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.NickName)
	assert.Equal(t, model.LanguageUnset, user.Lang)
}

func TestEnsureUser_KeepsLanguage(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetLanguage(ctx, 7, "Mei", model.LanguageChinese))
	require.NoError(t, repo.EnsureUser(ctx, 7, "Other"))

	user, err := repo.FindByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Mei", user.NickName)
	assert.Equal(t, model.LanguageChinese, user.Lang)
}

func TestSetLanguage_Upsert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.EnsureUser(ctx, 7, "Old"))
	require.NoError(t, repo.SetLanguage(ctx, 7, "New", model.LanguageChinese))

	user, err := repo.FindByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "New", user.NickName)
	assert.Equal(t, model.LanguageChinese, user.Lang)

	require.NoError(t, repo.SetLanguage(ctx, 7, "New", model.LanguageEnglish))
	user, err = repo.FindByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, model.LanguageEnglish, user.Lang)
}

func TestFindByID_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.FindByID(context.Background(), 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSetLanguage_ConcurrentUsers(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := int64(1); i <= 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			lang := model.LanguageEnglish
			if id%2 == 0 {
				lang = model.LanguageChinese
			}
			assert.NoError(t, repo.EnsureUser(ctx, id, fmt.Sprintf("user-%d", id)))
			assert.NoError(t, repo.SetLanguage(ctx, id, fmt.Sprintf("user-%d", id), lang))
		}(i)
	}
	wg.Wait()

	for i := int64(1); i <= 20; i++ {
		user, err := repo.FindByID(ctx, i)
		require.NoError(t, err)
		want := model.LanguageEnglish
		if i%2 == 0 {
			want = model.LanguageChinese
		}
		assert.Equal(t, want, user.Lang, "user %d", i)
	}
}

func TestCountByLanguage(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.EnsureUser(ctx, 1, "a"))
	require.NoError(t, repo.SetLanguage(ctx, 2, "b", model.LanguageEnglish))
	require.NoError(t, repo.SetLanguage(ctx, 3, "c", model.LanguageEnglish))
	require.NoError(t, repo.SetLanguage(ctx, 4, "d", model.LanguageChinese))

	counts, err := repo.CountByLanguage(ctx)
	require.NoError(t, err)
	assert.Equal(t, []LanguageCount{
		{Lang: model.LanguageUnset, Total: 1},
		{Lang: model.LanguageChinese, Total: 1},
		{Lang: model.LanguageEnglish, Total: 2},
	}, counts)
}
