package controllers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/board/services"
	"github.com/cppla/board/utils"
)

// PostController serves the feed, search, detail and post mutations.
type PostController struct {
	feed   *services.FeedService
	detail *services.DetailService
	posts  *services.PostService
}

// NewPostController creates a new PostController instance.
func NewPostController(feed *services.FeedService, detail *services.DetailService, posts *services.PostService) *PostController {
	return &PostController{feed: feed, detail: detail, posts: posts}
}

// ListPosts returns one feed page in recent or popular order.
func (p *PostController) ListPosts(ctx *gin.Context) {
	sort := services.SortMode(ctx.DefaultQuery("sort", string(services.SortRecent)))
	if sort != services.SortRecent && sort != services.SortPopular {
		utils.Error(ctx, http.StatusBadRequest, 40041, "sort must be recent or popular")
		return
	}
	page, limit, ok := parsePagination(ctx.Query("page"), ctx.Query("limit"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40042, "page and limit must be positive integers")
		return
	}

	items, err := p.feed.List(ctx.Request.Context(), services.FeedQuery{Sort: sort, Page: page, Limit: limit})
	if err != nil {
		respondError(ctx, err, 50021, "failed to list posts")
		return
	}

	utils.Success(ctx, gin.H{"items": items, "sort": sort, "page": page, "limit": limit})
}

// SearchPosts matches posts by title, content or author nickname.
func (p *PostController) SearchPosts(ctx *gin.Context) {
	page, limit, ok := parsePagination(ctx.Query("page"), ctx.Query("limit"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40042, "page and limit must be positive integers")
		return
	}

	items, err := p.feed.Search(ctx.Request.Context(), services.SearchQuery{
		Query: ctx.Query("q"),
		Field: services.SearchField(ctx.DefaultQuery("type", string(services.SearchAll))),
		Page:  page,
		Limit: limit,
	})
	if err != nil {
		respondError(ctx, err, 50022, "failed to search posts")
		return
	}
	utils.Success(ctx, gin.H{"items": items, "page": page, "limit": limit})
}

// GetPost returns the detail view of a post and counts the view.
func (p *PostController) GetPost(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	detail, err := p.detail.Get(ctx.Request.Context(), postID, userID)
	if err != nil {
		respondError(ctx, err, 50023, "failed to load post")
		return
	}
	utils.Success(ctx, detail)
}

// CreatePost accepts a multipart form with post_title, post_content, images[] and files[].
func (p *PostController) CreatePost(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	uploads, closeAll, err := formUploads(ctx)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid multipart payload")
		return
	}
	defer closeAll()

	post, err := p.posts.Create(ctx.Request.Context(), services.PostInput{
		UserID:  userID,
		Title:   ctx.PostForm("post_title"),
		Content: ctx.PostForm("post_content"),
		Images:  formImages(ctx),
		Files:   uploads,
	})
	if err != nil {
		respondError(ctx, err, 50020, "failed to create post")
		return
	}

	utils.Created(ctx, gin.H{"post": post})
}

// UpdatePost replaces a post owned by the caller. Omitted title or content is kept,
// images and files always replace the current ones.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	postID, ok := parseID(ctx, "postId")
	if !ok {
		return
	}
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	uploads, closeAll, err := formUploads(ctx)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid multipart payload")
		return
	}
	defer closeAll()

	in := services.PostUpdate{
		PostID: postID,
		UserID: userID,
		Images: formImages(ctx),
		Files:  uploads,
	}
	if v, ok := ctx.GetPostForm("post_title"); ok {
		in.Title = &v
	}
	if v, ok := ctx.GetPostForm("post_content"); ok {
		in.Content = &v
	}

	post, err := p.posts.Update(ctx.Request.Context(), in)
	if err != nil {
		respondError(ctx, err, 50024, "failed to update post")
		return
	}

	utils.Success(ctx, gin.H{"post": post})
}

// DeletePost soft deletes a post owned by the caller.
func (p *PostController) DeletePost(ctx *gin.Context) {
	postID, ok := parseID(ctx, "postId")
	if !ok {
		return
	}
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	if err := p.posts.Delete(ctx.Request.Context(), postID, userID); err != nil {
		respondError(ctx, err, 50025, "failed to delete post")
		return
	}

	utils.Success(ctx, gin.H{"post_id": postID, "deleted": true})
}

func formImages(ctx *gin.Context) []string {
	return append(ctx.PostFormArray("images[]"), ctx.PostFormArray("images")...)
}

// formUploads opens the uploaded files. The returned func closes them.
func formUploads(ctx *gin.Context) ([]services.Upload, func(), error) {
	form, err := ctx.MultipartForm()
	if errors.Is(err, http.ErrNotMultipart) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}

	var (
		uploads []services.Upload
		closers []io.Closer
	)
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}
	headers := append(append([]*multipart.FileHeader{}, form.File["files[]"]...), form.File["files"]...)
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, f)
		uploads = append(uploads, services.Upload{
			Filename: fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Reader:   f,
		})
	}
	return uploads, closeAll, nil
}
