package crud

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"conduit/domain"
)

// newTestDB opens a fresh sqlite database in a per-test temp dir and
// migrates the full schema. Error translation is on, like in production,
// so unique index violations surface as gorm.ErrDuplicatedKey.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "conduit_test.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		domain.User{},
		domain.Article{},
		domain.Favorite{},
		domain.Follow{},
	))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *domain.User {
	t.Helper()
	user := &domain.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "irrelevant",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// createTestArticle inserts an article with an explicit creation time so
// tests can control listing order.
func createTestArticle(t *testing.T, db *gorm.DB, author *domain.User, title string, tags []string, createdAt time.Time) *domain.Article {
	t.Helper()
	article := &domain.Article{
		Slug:      makeSlug(title),
		Title:     title,
		AuthorID:  author.ID,
		TagList:   tags,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(article).Error)
	return article
}

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }
