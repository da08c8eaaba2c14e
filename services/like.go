package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/board/models"
)

// LikeService toggles per (post, user) likes.
type LikeService struct {
	db *gorm.DB
}

// NewLikeService creates a LikeService.
func NewLikeService(db *gorm.DB) *LikeService {
	return &LikeService{db: db}
}

// Toggle flips the like state of userID on postID and returns the new state.
// The first toggle creates the row liked. Concurrent toggles for the same pair
// collide on idx_like_post_user and are resolved by the upsert, never by a second row.
func (s *LikeService) Toggle(ctx context.Context, postID, userID uint) (bool, error) {
	db := s.db.WithContext(ctx)
	if err := activePost(db, postID); err != nil {
		return false, err
	}
	if err := activeUser(db, userID); err != nil {
		return false, err
	}

	var like models.Like
	err := db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		row := models.Like{PostID: postID, UserID: userID, Liked: true, UpdatedAt: now}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"liked":      gorm.Expr("NOT likes.liked"),
				"updated_at": now,
			}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
		return tx.Where("post_id = ? AND user_id = ?", postID, userID).First(&like).Error
	})
	if err != nil {
		return false, fmt.Errorf("toggle like on post %d: %w", postID, err)
	}

	likesToggled.WithLabelValues(strconv.FormatBool(like.Liked)).Inc()
	return like.Liked, nil
}

func activePost(db *gorm.DB, postID uint) error {
	var n int64
	if err := db.Model(&models.Post{}).Where("id = ? AND is_delete = ?", postID, false).Count(&n).Error; err != nil {
		return fmt.Errorf("check post %d: %w", postID, err)
	}
	if n == 0 {
		return notFound(40401, "post not found")
	}
	return nil
}

func activeUser(db *gorm.DB, userID uint) error {
	var n int64
	if err := db.Model(&models.User{}).Where("id = ? AND is_delete = ?", userID, false).Count(&n).Error; err != nil {
		return fmt.Errorf("check user %d: %w", userID, err)
	}
	if n == 0 {
		return notFound(40402, "user not found")
	}
	return nil
}
