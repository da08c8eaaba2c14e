package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/cppla/board/models"
)

// Stats are board wide totals of active rows.
type Stats struct {
	UserCount    int64 `json:"user_count"`
	PostCount    int64 `json:"post_count"`
	CommentCount int64 `json:"comment_count"`
	LikeCount    int64 `json:"like_count"`
}

// StatsService computes board totals.
type StatsService struct {
	db *gorm.DB
}

// NewStatsService creates a StatsService.
func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

// Totals counts active users, posts, comments and likes.
func (s *StatsService) Totals(ctx context.Context) (*Stats, error) {
	var st Stats
	g, gctx := errgroup.WithContext(ctx)
	count := func(model interface{}, out *int64, where string, args ...interface{}) {
		g.Go(func() error {
			return s.db.WithContext(gctx).Model(model).Where(where, args...).Count(out).Error
		})
	}
	count(&models.User{}, &st.UserCount, "is_delete = ?", false)
	count(&models.Post{}, &st.PostCount, "is_delete = ?", false)
	count(&models.Comment{}, &st.CommentCount, "is_delete = ?", false)
	count(&models.Like{}, &st.LikeCount, "liked = ?", true)
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("count stats: %w", err)
	}
	return &st, nil
}
