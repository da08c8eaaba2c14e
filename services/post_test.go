package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cppla/board/models"
	"github.com/cppla/board/utils"
)

type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
	seq   int
}

func newMemStore() *memStore { return &memStore{files: map[string][]byte{}} }

func (m *memStore) Save(userID uint, filename string, r io.Reader) (string, int64, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	p := utils.StoragePath(userID, filename, time.UnixMilli(1700000000000), fmt.Sprint(m.seq))
	m.files[p] = b
	return p, int64(len(b)), nil
}

func (m *memStore) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	return nil
}

func upload(name, body string) Upload {
	return Upload{Filename: name, MimeType: "text/plain", Reader: strings.NewReader(body)}
}

func TestCreatePost(t *testing.T) {
	db := newTestDB(t)
	author := seedUser(t, db, "author")
	store := newMemStore()
	svc := NewPostService(db, store)

	post, err := svc.Create(bg, PostInput{
		UserID:  author.ID,
		Title:   "  Hello <i>board</i> ",
		Content: "<p>body</p><script>x</script>",
		Images:  []string{"https://img.example.com/a.png", " "},
		Files:   []Upload{upload("Notes.TXT", "hello")},
	})
	require.NoError(t, err)
	require.Equal(t, "Hello board", post.Title)
	require.Equal(t, "<p>body</p>", post.Content)
	require.Len(t, post.Images, 1)
	require.Len(t, post.Files, 1)
	require.Equal(t, "Notes.TXT", post.Files[0].Title)
	require.Equal(t, int64(5), post.Files[0].Size)
	require.True(t, strings.HasPrefix(post.Files[0].Path, fmt.Sprintf("uploads/%d/txt/", author.ID)))
	require.Contains(t, store.files, post.Files[0].Path)
}

func TestCreatePostValidation(t *testing.T) {
	db := newTestDB(t)
	author := seedUser(t, db, "author")
	store := newMemStore()
	svc := NewPostService(db, store)

	_, err := svc.Create(bg, PostInput{UserID: author.ID, Title: " ", Content: "c"})
	require.ErrorIs(t, err, ErrBadRequest)

	_, err = svc.Create(bg, PostInput{UserID: author.ID, Title: "t", Content: "c", Images: []string{"javascript:alert(1)"}})
	require.ErrorIs(t, err, ErrBadRequest)

	_, err = svc.Create(bg, PostInput{UserID: author.ID + 100, Title: "t", Content: "c", Files: []Upload{upload("a.txt", "x")}})
	require.ErrorIs(t, err, ErrNotFound)

	var n int64
	require.NoError(t, db.Model(&models.Post{}).Count(&n).Error)
	require.Zero(t, n)
	require.Empty(t, store.files)
}

func TestCreatePostOversizedUploadLeavesNothing(t *testing.T) {
	db := newTestDB(t)
	author := seedUser(t, db, "author")
	dir := t.TempDir()
	store := &utils.LocalStorage{Root: dir, MaxBytes: 4}
	svc := NewPostService(db, store)

	_, err := svc.Create(bg, PostInput{
		UserID:  author.ID,
		Title:   "t",
		Content: "c",
		Files:   []Upload{upload("small.txt", "ok"), upload("big.txt", "too large")},
	})
	require.ErrorIs(t, err, ErrBadRequest)

	var n int64
	require.NoError(t, db.Model(&models.Post{}).Count(&n).Error)
	require.Zero(t, n)

	var leftovers []string
	require.NoError(t, filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			leftovers = append(leftovers, path)
		}
		return err
	}))
	require.Empty(t, leftovers)
}

func TestUpdatePostReplacesAttachments(t *testing.T) {
	db := newTestDB(t)
	author := seedUser(t, db, "author")
	stranger := seedUser(t, db, "stranger")
	svc := NewPostService(db, newMemStore())

	post, err := svc.Create(bg, PostInput{
		UserID:  author.ID,
		Title:   "v1",
		Content: "first",
		Images:  []string{"https://img.example.com/1.png", "https://img.example.com/2.png"},
		Files:   []Upload{upload("a.txt", "a")},
	})
	require.NoError(t, err)

	title := "v2"
	_, err = svc.Update(bg, PostUpdate{PostID: post.ID, UserID: stranger.ID, Title: &title})
	require.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.Update(bg, PostUpdate{
		PostID: post.ID,
		UserID: author.ID,
		Title:  &title,
		Images: []string{"https://img.example.com/3.png"},
	})
	require.NoError(t, err)
	require.Equal(t, "v2", updated.Title)
	require.Equal(t, "first", updated.Content)

	var active, deleted int64
	require.NoError(t, db.Model(&models.Image{}).Where("post_id = ? AND is_delete = ?", post.ID, false).Count(&active).Error)
	require.NoError(t, db.Model(&models.Image{}).Where("post_id = ? AND is_delete = ?", post.ID, true).Count(&deleted).Error)
	require.Equal(t, int64(1), active)
	require.Equal(t, int64(2), deleted)

	require.NoError(t, db.Model(&models.File{}).Where("post_id = ? AND is_delete = ?", post.ID, false).Count(&active).Error)
	require.Zero(t, active)
}

func TestDeletePostCascadesToAttachmentsOnly(t *testing.T) {
	db := newTestDB(t)
	author := seedUser(t, db, "author")
	fan := seedUser(t, db, "fan")
	svc := NewPostService(db, newMemStore())

	created, err := svc.Create(bg, PostInput{
		UserID:  author.ID,
		Title:   "doomed",
		Content: "c",
		Images:  []string{"https://img.example.com/1.png"},
		Files:   []Upload{upload("a.txt", "a")},
	})
	require.NoError(t, err)
	post := *created
	comment := seedComment(t, db, post, fan, nil, false, time.Now())
	seedLike(t, db, post, fan, true)

	require.ErrorIs(t, svc.Delete(bg, post.ID, fan.ID), ErrForbidden)
	require.NoError(t, svc.Delete(bg, post.ID, author.ID))
	require.ErrorIs(t, svc.Delete(bg, post.ID, author.ID), ErrNotFound)

	var stored models.Post
	require.NoError(t, db.First(&stored, post.ID).Error)
	require.True(t, stored.IsDelete)

	var activeImages, activeFiles int64
	require.NoError(t, db.Model(&models.Image{}).Where("post_id = ? AND is_delete = ?", post.ID, false).Count(&activeImages).Error)
	require.NoError(t, db.Model(&models.File{}).Where("post_id = ? AND is_delete = ?", post.ID, false).Count(&activeFiles).Error)
	require.Zero(t, activeImages)
	require.Zero(t, activeFiles)

	var storedComment models.Comment
	require.NoError(t, db.First(&storedComment, comment.ID).Error)
	require.False(t, storedComment.IsDelete)

	var like models.Like
	require.NoError(t, db.Where("post_id = ? AND user_id = ?", post.ID, fan.ID).First(&like).Error)
	require.True(t, like.Liked)
}
