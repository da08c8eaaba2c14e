package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/board/services"
	"github.com/cppla/board/utils"
)

// CommentController creates and deletes comments.
type CommentController struct {
	comments *services.CommentService
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(comments *services.CommentService) *CommentController {
	return &CommentController{comments: comments}
}

// CreateComment adds a root comment or, with parent_comment_id, a reply.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	postID, ok := parseID(ctx, "postId")
	if !ok {
		return
	}
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req struct {
		Content         string `json:"content" binding:"required"`
		ParentCommentID *uint  `json:"parent_comment_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	comment, err := c.comments.Create(ctx.Request.Context(), services.CommentInput{
		PostID:   postID,
		UserID:   userID,
		Content:  req.Content,
		ParentID: req.ParentCommentID,
	})
	if err != nil {
		respondError(ctx, err, 50030, "failed to create comment")
		return
	}

	utils.Created(ctx, comment)
}

// DeleteComment soft deletes a comment written by the caller.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	commentID, ok := parseID(ctx, "commentId")
	if !ok {
		return
	}
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	if err := c.comments.Delete(ctx.Request.Context(), commentID, userID); err != nil {
		respondError(ctx, err, 50031, "failed to delete comment")
		return
	}

	utils.Success(ctx, gin.H{"comment_id": commentID, "deleted": true})
}
