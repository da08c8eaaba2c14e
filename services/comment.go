package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/board/models"
	"github.com/cppla/board/utils"
)

const maxCommentRunes = 1000

// CommentInput is a new comment. ParentID is nil for a root comment.
type CommentInput struct {
	PostID   uint
	UserID   uint
	Content  string
	ParentID *uint
}

// PostBrief is the minimal post shown alongside a created comment.
type PostBrief struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentResult is the response for a created comment.
type CommentResult struct {
	ID              uint      `json:"comment_id"`
	Content         string    `json:"content"`
	ParentCommentID *uint     `json:"parent_comment_id"`
	UserID          uint      `json:"user_id"`
	Name            string    `json:"name"`
	Nickname        string    `json:"nickname"`
	Post            PostBrief `json:"post"`
	CreatedAt       time.Time `json:"created_at"`
}

// CommentService creates and deletes comments.
type CommentService struct {
	db *gorm.DB
}

// NewCommentService creates a CommentService.
func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{db: db}
}

// Create stores a comment on an active post. A reply to a reply is attached to that reply's root.
func (s *CommentService) Create(ctx context.Context, in CommentInput) (*CommentResult, error) {
	content := strings.TrimSpace(utils.Sanitize(in.Content))
	if content == "" {
		return nil, badRequest(40031, "comment content cannot be empty")
	}
	if len([]rune(content)) > maxCommentRunes {
		return nil, badRequest(40032, "comment content is too long")
	}

	db := s.db.WithContext(ctx)

	var post models.Post
	err := db.Where("id = ? AND is_delete = ?", in.PostID, false).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(40401, "post not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load post %d: %w", in.PostID, err)
	}

	var user models.User
	err = db.Where("id = ? AND is_delete = ?", in.UserID, false).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(40402, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", in.UserID, err)
	}

	parentID, err := s.resolveParent(db, in.PostID, in.ParentID)
	if err != nil {
		return nil, err
	}

	comment := models.Comment{
		PostID:   post.ID,
		UserID:   user.ID,
		ParentID: parentID,
		Content:  content,
	}
	if err := db.Create(&comment).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	return &CommentResult{
		ID:              comment.ID,
		Content:         comment.Content,
		ParentCommentID: comment.ParentID,
		UserID:          user.ID,
		Name:            user.Name,
		Nickname:        user.Nickname,
		Post: PostBrief{
			ID:        post.ID,
			Title:     post.Title,
			Content:   post.Content,
			CreatedAt: post.CreatedAt,
		},
		CreatedAt: comment.CreatedAt,
	}, nil
}

// resolveParent returns the root comment id a reply should hang under.
func (s *CommentService) resolveParent(db *gorm.DB, postID uint, parentID *uint) (*uint, error) {
	if parentID == nil {
		return nil, nil
	}
	var parent models.Comment
	err := db.Where("id = ? AND post_id = ? AND is_delete = ?", *parentID, postID, false).First(&parent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(40403, "parent comment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load parent comment %d: %w", *parentID, err)
	}
	if parent.ParentID != nil {
		root := *parent.ParentID
		return &root, nil
	}
	root := parent.ID
	return &root, nil
}

// Delete soft deletes a comment owned by userID.
func (s *CommentService) Delete(ctx context.Context, commentID, userID uint) error {
	db := s.db.WithContext(ctx)

	var comment models.Comment
	err := db.Where("id = ? AND is_delete = ?", commentID, false).First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(40403, "comment not found")
	}
	if err != nil {
		return fmt.Errorf("load comment %d: %w", commentID, err)
	}
	if comment.UserID != userID {
		return forbidden(40301, "only the author can delete this comment")
	}

	if err := db.Model(&comment).Update("is_delete", true).Error; err != nil {
		return fmt.Errorf("delete comment %d: %w", commentID, err)
	}
	return nil
}
