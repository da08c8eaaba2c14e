package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/cppla/board/models"
	"github.com/cppla/board/utils"
)

const maxTitleRunes = 255

// FileStore persists uploaded binaries and returns their storage path.
type FileStore interface {
	Save(userID uint, filename string, r io.Reader) (string, int64, error)
	Remove(path string) error
}

// Upload is one uploaded file of a post payload.
type Upload struct {
	Filename string
	MimeType string
	Reader   io.Reader
}

// PostInput is the payload of post creation.
type PostInput struct {
	UserID  uint
	Title   string
	Content string
	Images  []string
	Files   []Upload
}

// PostUpdate replaces a post. Nil Title or Content keeps the current value.
// Images and Files always replace the current attachments.
type PostUpdate struct {
	PostID  uint
	UserID  uint
	Title   *string
	Content *string
	Images  []string
	Files   []Upload
}

// PostService creates, updates and deletes posts with their attachments.
type PostService struct {
	db    *gorm.DB
	store FileStore
}

// NewPostService creates a PostService.
func NewPostService(db *gorm.DB, store FileStore) *PostService {
	return &PostService{db: db, store: store}
}

// Create stores a post, its image URLs and its uploaded files in one transaction.
func (s *PostService) Create(ctx context.Context, in PostInput) (*models.Post, error) {
	title, err := cleanTitle(in.Title)
	if err != nil {
		return nil, err
	}
	content, err := cleanContent(in.Content)
	if err != nil {
		return nil, err
	}
	urls, err := cleanImageURLs(in.Images)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := activeUser(db, in.UserID); err != nil {
		return nil, err
	}

	files, err := s.saveFiles(in.UserID, in.Files)
	if err != nil {
		return nil, err
	}

	post := models.Post{UserID: in.UserID, Title: title, Content: content}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		var err error
		post.Images, post.Files, err = insertAttachments(tx, post.ID, urls, files)
		return err
	})
	if err != nil {
		s.removeFiles(files)
		return nil, fmt.Errorf("create post: %w", err)
	}
	return &post, nil
}

// Update replaces title, content and attachments of a post owned by the requester.
func (s *PostService) Update(ctx context.Context, in PostUpdate) (*models.Post, error) {
	db := s.db.WithContext(ctx)
	post, err := s.ownedPost(db, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		if post.Title, err = cleanTitle(*in.Title); err != nil {
			return nil, err
		}
	}
	if in.Content != nil {
		if post.Content, err = cleanContent(*in.Content); err != nil {
			return nil, err
		}
	}
	urls, err := cleanImageURLs(in.Images)
	if err != nil {
		return nil, err
	}

	files, err := s.saveFiles(in.UserID, in.Files)
	if err != nil {
		return nil, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Post{}).
			Where("id = ? AND is_delete = ?", post.ID, false).
			Updates(map[string]interface{}{"title": post.Title, "content": post.Content})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound(40401, "post not found")
		}
		if err := softDeleteAttachments(tx, post.ID); err != nil {
			return err
		}
		var err error
		post.Images, post.Files, err = insertAttachments(tx, post.ID, urls, files)
		return err
	})
	if err != nil {
		s.removeFiles(files)
		var svcErr *Error
		if errors.As(err, &svcErr) {
			return nil, err
		}
		return nil, fmt.Errorf("update post %d: %w", post.ID, err)
	}
	return post, nil
}

// Delete soft deletes a post owned by the requester together with its images and files.
// Comments and likes are kept; they are hidden through the deleted post.
func (s *PostService) Delete(ctx context.Context, postID, userID uint) error {
	db := s.db.WithContext(ctx)
	if _, err := s.ownedPost(db, postID, userID); err != nil {
		return err
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Update("is_delete", true).Error; err != nil {
			return err
		}
		return softDeleteAttachments(tx, postID)
	})
	if err != nil {
		return fmt.Errorf("delete post %d: %w", postID, err)
	}
	return nil
}

func (s *PostService) ownedPost(db *gorm.DB, postID, userID uint) (*models.Post, error) {
	var post models.Post
	err := db.Where("id = ? AND is_delete = ?", postID, false).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(40401, "post not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load post %d: %w", postID, err)
	}
	if post.UserID != userID {
		return nil, forbidden(40302, "only the author can modify this post")
	}
	return &post, nil
}

// saveFiles writes uploads to the store. On failure the files already written are removed.
func (s *PostService) saveFiles(userID uint, uploads []Upload) ([]models.File, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	if s.store == nil {
		return nil, badRequest(40025, "file uploads are not enabled")
	}
	files := make([]models.File, 0, len(uploads))
	for _, up := range uploads {
		path, size, err := s.store.Save(userID, up.Filename, up.Reader)
		if err != nil {
			s.removeFiles(files)
			if errors.Is(err, utils.ErrFileTooLarge) {
				return nil, badRequest(40026, fmt.Sprintf("file %q exceeds the upload size limit", up.Filename))
			}
			return nil, fmt.Errorf("store file %q: %w", up.Filename, err)
		}
		files = append(files, models.File{
			Title:    up.Filename,
			Path:     path,
			Size:     size,
			MimeType: up.MimeType,
		})
	}
	return files, nil
}

func (s *PostService) removeFiles(files []models.File) {
	for _, f := range files {
		if err := s.store.Remove(f.Path); err != nil {
			utils.Sugar.Warnw("remove orphaned upload failed", "path", f.Path, "err", err)
		}
	}
}

func insertAttachments(tx *gorm.DB, postID uint, urls []string, files []models.File) ([]models.Image, []models.File, error) {
	images := lo.Map(urls, func(u string, _ int) models.Image {
		return models.Image{PostID: postID, URL: u}
	})
	if len(images) > 0 {
		if err := tx.Create(&images).Error; err != nil {
			return nil, nil, err
		}
	}
	for i := range files {
		files[i].PostID = postID
	}
	if len(files) > 0 {
		if err := tx.Create(&files).Error; err != nil {
			return nil, nil, err
		}
	}
	return images, files, nil
}

func softDeleteAttachments(tx *gorm.DB, postID uint) error {
	if err := tx.Model(&models.Image{}).Where("post_id = ? AND is_delete = ?", postID, false).Update("is_delete", true).Error; err != nil {
		return err
	}
	return tx.Model(&models.File{}).Where("post_id = ? AND is_delete = ?", postID, false).Update("is_delete", true).Error
}

func cleanTitle(raw string) (string, error) {
	title := utils.SanitizeText(raw)
	if title == "" {
		return "", badRequest(40021, "title cannot be empty")
	}
	if len([]rune(title)) > maxTitleRunes {
		return "", badRequest(40022, "title is too long")
	}
	return title, nil
}

func cleanContent(raw string) (string, error) {
	content := strings.TrimSpace(utils.Sanitize(raw))
	if content == "" {
		return "", badRequest(40023, "content cannot be empty")
	}
	return content, nil
}

func cleanImageURLs(raw []string) ([]string, error) {
	urls := lo.Filter(lo.Map(raw, func(s string, _ int) string { return strings.TrimSpace(s) }),
		func(s string, _ int) bool { return s != "" })
	for _, u := range urls {
		parsed, err := url.Parse(u)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return nil, badRequest(40024, fmt.Sprintf("invalid image url %q", u))
		}
	}
	return urls, nil
}
