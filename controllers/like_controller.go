package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/board/services"
	"github.com/cppla/board/utils"
)

// LikeController toggles likes.
type LikeController struct {
	likes *services.LikeService
}

// NewLikeController creates a new LikeController instance.
func NewLikeController(likes *services.LikeService) *LikeController {
	return &LikeController{likes: likes}
}

// ToggleLike flips the caller's like on a post.
func (l *LikeController) ToggleLike(ctx *gin.Context) {
	postID, ok := parseID(ctx, "postId")
	if !ok {
		return
	}
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	liked, err := l.likes.Toggle(ctx.Request.Context(), postID, userID)
	if err != nil {
		respondError(ctx, err, 50040, "failed to toggle like")
		return
	}

	utils.Success(ctx, gin.H{"post_id": postID, "liked": liked})
}
