package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/cppla/board/models"
)

// SortMode selects the feed ordering.
type SortMode string

const (
	SortRecent  SortMode = "recent"
	SortPopular SortMode = "popular"
)

// Popularity weights.
const (
	likeWeight    = 2
	commentWeight = 1.5
)

// Correlated counts shared by the feed and search queries.
const (
	likeCountSQL    = "(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id AND likes.liked = TRUE)"
	commentCountSQL = "(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id AND comments.is_delete = FALSE)"
	imageCountSQL   = "(SELECT COUNT(*) FROM images WHERE images.post_id = posts.id AND images.is_delete = FALSE)"
	fileCountSQL    = "(SELECT COUNT(*) FROM files WHERE files.post_id = posts.id AND files.is_delete = FALSE)"
)

var summaryColumns = "posts.id, posts.title, posts.views, posts.created_at, " +
	likeCountSQL + " AS like_count, " +
	commentCountSQL + " AS comment_count, " +
	imageCountSQL + " AS image_count, " +
	fileCountSQL + " AS file_count"

var popularityScoreSQL = fmt.Sprintf("(posts.views + %s * %d + %s * %g)", likeCountSQL, likeWeight, commentCountSQL, commentWeight)

// FeedQuery is a validated feed request. Page and Limit are at least 1.
type FeedQuery struct {
	Sort  SortMode
	Page  int
	Limit int
}

// SearchField selects which columns a search matches.
type SearchField string

const (
	SearchTitle    SearchField = "title"
	SearchContent  SearchField = "content"
	SearchNickname SearchField = "nickname"
	SearchAll      SearchField = "all"
)

// SearchQuery is a post search request.
type SearchQuery struct {
	Query string
	Field SearchField
	Page  int
	Limit int
}

// PostSummary is one feed entry. PopularityScore is set in popular mode only.
type PostSummary struct {
	ID              uint      `json:"id"`
	Title           string    `json:"title"`
	ViewCount       int64     `json:"view_count"`
	LikeCount       int64     `json:"like_count"`
	CommentCount    int64     `json:"comment_count"`
	ImageCount      int64     `json:"image_count"`
	FileCount       int64     `json:"file_count"`
	CreatedAt       time.Time `json:"created_at"`
	PopularityScore *float64  `json:"popularity_score,omitempty"`
}

type summaryRow struct {
	ID           uint
	Title        string
	Views        int64
	CreatedAt    time.Time
	LikeCount    int64
	CommentCount int64
	ImageCount   int64
	FileCount    int64
}

// PopularityScore ranks a post by views, active likes and active comments.
func PopularityScore(views, likes, comments int64) float64 {
	return float64(views) + float64(likes)*likeWeight + float64(comments)*commentWeight
}

// FeedService builds paginated post listings.
type FeedService struct {
	db *gorm.DB
}

// NewFeedService creates a FeedService.
func NewFeedService(db *gorm.DB) *FeedService {
	return &FeedService{db: db}
}

// List returns one page of non-deleted posts in the requested order.
// An empty page is an empty slice, never an error.
func (s *FeedService) List(ctx context.Context, q FeedQuery) ([]PostSummary, error) {
	query := s.summaries(ctx)
	switch q.Sort {
	case SortPopular:
		query = query.Select(summaryColumns + ", " + popularityScoreSQL + " AS popularity_score").
			Order("popularity_score DESC").
			Order("posts.id ASC")
	default:
		query = query.Order("posts.created_at DESC").Order("posts.id DESC")
	}

	var rows []summaryRow
	if err := query.Offset((q.Page - 1) * q.Limit).Limit(q.Limit).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	feedBuilds.WithLabelValues(string(q.Sort)).Inc()

	return toSummaries(rows, q.Sort == SortPopular), nil
}

// Search matches non-deleted posts case-insensitively, newest first.
func (s *FeedService) Search(ctx context.Context, q SearchQuery) ([]PostSummary, error) {
	term := strings.TrimSpace(q.Query)
	if len([]rune(term)) < 2 {
		return nil, badRequest(40051, "search query must be at least 2 characters")
	}
	pattern := "%" + strings.ToLower(term) + "%"

	query := s.summaries(ctx).Joins("JOIN users ON users.id = posts.user_id")
	switch q.Field {
	case SearchTitle:
		query = query.Where("LOWER(posts.title) LIKE ?", pattern)
	case SearchContent:
		query = query.Where("LOWER(posts.content) LIKE ?", pattern)
	case SearchNickname:
		query = query.Where("LOWER(users.nickname) LIKE ?", pattern)
	case SearchAll, "":
		query = query.Where("LOWER(posts.title) LIKE ? OR LOWER(posts.content) LIKE ? OR LOWER(users.nickname) LIKE ?", pattern, pattern, pattern)
	default:
		return nil, badRequest(40052, "invalid search type")
	}

	var rows []summaryRow
	err := query.Order("posts.created_at DESC").Order("posts.id DESC").
		Offset((q.Page - 1) * q.Limit).Limit(q.Limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	return toSummaries(rows, false), nil
}

func (s *FeedService) summaries(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.Post{}).
		Select(summaryColumns).
		Where("posts.is_delete = ?", false)
}

func toSummaries(rows []summaryRow, withScore bool) []PostSummary {
	return lo.Map(rows, func(r summaryRow, _ int) PostSummary {
		summary := PostSummary{
			ID:           r.ID,
			Title:        r.Title,
			ViewCount:    r.Views,
			LikeCount:    r.LikeCount,
			CommentCount: r.CommentCount,
			ImageCount:   r.ImageCount,
			FileCount:    r.FileCount,
			CreatedAt:    r.CreatedAt,
		}
		if withScore {
			score := PopularityScore(r.Views, r.LikeCount, r.CommentCount)
			summary.PopularityScore = &score
		}
		return summary
	})
}
