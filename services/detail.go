package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/cppla/board/models"
)

// UserBrief is the public identity shown next to posts and comments.
type UserBrief struct {
	ID       uint   `json:"user_id"`
	Nickname string `json:"nickname"`
}

// ReplyView is a direct reply to a root comment.
type ReplyView struct {
	ID              uint      `json:"comment_id"`
	Content         string    `json:"content"`
	CreatedAt       time.Time `json:"created_at"`
	ParentCommentID uint      `json:"parent_comment_id"`
	ParentUser      UserBrief `json:"parent_user"`
	User            UserBrief `json:"user"`
}

// CommentView is a root comment with its active replies, oldest first.
// A deleted root is kept as a placeholder (Deleted, empty Content) while it still has active replies.
type CommentView struct {
	ID        uint        `json:"comment_id"`
	Content   string      `json:"content"`
	Deleted   bool        `json:"is_deleted,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	User      UserBrief   `json:"user"`
	Replies   []ReplyView `json:"replies"`
}

// PostDetail is the full single-post view.
type PostDetail struct {
	ID          uint           `json:"id"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Author      UserBrief      `json:"author"`
	ViewCount   int64          `json:"view_count"`
	LikeCount   int64          `json:"like_count"`
	IsLikedByMe bool           `json:"is_liked_by_me"`
	Files       []models.File  `json:"files"`
	Images      []models.Image `json:"images"`
	Comments    []CommentView  `json:"comments"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// DetailService assembles post detail views.
type DetailService struct {
	db *gorm.DB
}

// NewDetailService creates a DetailService.
func NewDetailService(db *gorm.DB) *DetailService {
	return &DetailService{db: db}
}

// Get builds the detail view of a post for viewerID and then counts the read as a view.
// ViewCount is the value before this read. Nothing is mutated when the assembly fails.
func (s *DetailService) Get(ctx context.Context, postID, viewerID uint) (*PostDetail, error) {
	db := s.db.WithContext(ctx)

	var post models.Post
	err := db.Preload("User").Where("id = ? AND is_delete = ?", postID, false).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(40401, "post not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load post %d: %w", postID, err)
	}

	var (
		files    []models.File
		images   []models.Image
		likes    []models.Like
		comments []models.Comment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).Where("post_id = ? AND is_delete = ?", postID, false).
			Order("id ASC").Find(&files).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Where("post_id = ? AND is_delete = ?", postID, false).
			Order("id ASC").Find(&images).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Where("post_id = ?", postID).Find(&likes).Error
	})
	g.Go(func() error {
		// Deleted comments are loaded too so that a deleted root can still carry its active replies.
		return s.db.WithContext(gctx).Preload("User").Where("post_id = ?", postID).
			Order("created_at ASC").Order("id ASC").Find(&comments).Error
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("gather post %d: %w", postID, err)
	}

	detail := &PostDetail{
		ID:          post.ID,
		Title:       post.Title,
		Content:     post.Content,
		Author:      brief(post.User),
		ViewCount:   post.Views,
		LikeCount:   int64(lo.CountBy(likes, func(l models.Like) bool { return l.Liked })),
		IsLikedByMe: lo.ContainsBy(likes, func(l models.Like) bool { return l.UserID == viewerID && l.Liked }),
		Files:       files,
		Images:      images,
		Comments:    AssembleComments(comments),
		CreatedAt:   post.CreatedAt,
		UpdatedAt:   post.UpdatedAt,
	}

	res := db.Model(&models.Post{}).
		Where("id = ? AND is_delete = ?", postID, false).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return nil, fmt.Errorf("increment views of post %d: %w", postID, res.Error)
	}
	if res.RowsAffected == 0 {
		// deleted while we were reading
		return nil, notFound(40401, "post not found")
	}
	postViews.Inc()

	return detail, nil
}

// AssembleComments turns a flat, creation-ordered comment list into roots with their direct replies.
// Deleted replies are dropped. A deleted root is dropped unless it has an active reply, in which case
// it is kept as a content-less placeholder so the replies stay reachable.
func AssembleComments(comments []models.Comment) []CommentView {
	replies := lo.GroupBy(
		lo.Filter(comments, func(c models.Comment, _ int) bool { return c.ParentID != nil && !c.IsDelete }),
		func(c models.Comment) uint { return *c.ParentID },
	)

	roots := lo.Filter(comments, func(c models.Comment, _ int) bool {
		return c.ParentID == nil && (!c.IsDelete || len(replies[c.ID]) > 0)
	})

	return lo.Map(roots, func(root models.Comment, _ int) CommentView {
		view := CommentView{
			ID:        root.ID,
			Content:   root.Content,
			Deleted:   root.IsDelete,
			CreatedAt: root.CreatedAt,
			User:      brief(root.User),
			Replies: lo.Map(replies[root.ID], func(r models.Comment, _ int) ReplyView {
				return ReplyView{
					ID:              r.ID,
					Content:         r.Content,
					CreatedAt:       r.CreatedAt,
					ParentCommentID: root.ID,
					ParentUser:      brief(root.User),
					User:            brief(r.User),
				}
			}),
		}
		if root.IsDelete {
			view.Content = ""
		}
		return view
	})
}

func brief(u models.User) UserBrief {
	return UserBrief{ID: u.ID, Nickname: u.Nickname}
}
