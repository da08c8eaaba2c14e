package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/board/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "board.db")), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, nickname string) models.User {
	t.Helper()
	u := models.User{
		Email:        nickname + "@example.com",
		PasswordHash: "x",
		Name:         nickname,
		Nickname:     nickname,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func seedPost(t *testing.T, db *gorm.DB, author models.User, title string, views int64, createdAt time.Time) models.Post {
	t.Helper()
	p := models.Post{
		UserID:    author.ID,
		Title:     title,
		Content:   "content of " + title,
		Views:     views,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func seedComment(t *testing.T, db *gorm.DB, post models.Post, author models.User, parent *models.Comment, deleted bool, at time.Time) models.Comment {
	t.Helper()
	c := models.Comment{
		PostID:    post.ID,
		UserID:    author.ID,
		Content:   fmt.Sprintf("comment by %s at %d", author.Nickname, at.Unix()),
		CreatedAt: at,
		UpdatedAt: at,
	}
	if parent != nil {
		c.ParentID = &parent.ID
	}
	require.NoError(t, db.Create(&c).Error)
	if deleted {
		require.NoError(t, db.Model(&c).Update("is_delete", true).Error)
		c.IsDelete = true
	}
	return c
}

func seedLike(t *testing.T, db *gorm.DB, post models.Post, user models.User, liked bool) {
	t.Helper()
	require.NoError(t, db.Create(&models.Like{PostID: post.ID, UserID: user.ID, Liked: liked}).Error)
}

func postViewsOf(t *testing.T, db *gorm.DB, postID uint) int64 {
	t.Helper()
	var p models.Post
	require.NoError(t, db.First(&p, postID).Error)
	return p.Views
}

var (
	bg     = context.Background()
	bgTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)
