package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrFileTooLarge is returned when an upload exceeds the configured size limit.
var ErrFileTooLarge = errors.New("file exceeds upload size limit")

// LocalStorage writes uploaded files under Root using paths of the form
// uploads/{userId}/{ext}/{timestamp}{random}.
type LocalStorage struct {
	Root     string
	MaxBytes int64
	now      func() time.Time
}

// NewLocalStorage creates a LocalStorage rooted at dir with a size limit in megabytes.
func NewLocalStorage(dir string, maxMB int) *LocalStorage {
	return &LocalStorage{Root: dir, MaxBytes: int64(maxMB) * 1024 * 1024, now: time.Now}
}

// StoragePath builds the relative storage path for a file uploaded by userID.
func StoragePath(userID uint, filename string, at time.Time, random string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filepath.Base(filename))), ".")
	if ext == "" {
		ext = "bin"
	}
	return path.Join("uploads", fmt.Sprint(userID), ext, fmt.Sprintf("%d%s", at.UnixMilli(), random))
}

// Save copies r to a new file and returns its relative path and size.
func (s *LocalStorage) Save(userID uint, filename string, r io.Reader) (string, int64, error) {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	rel := StoragePath(userID, filename, now(), uuid.NewString())
	dst := filepath.Join(s.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", 0, fmt.Errorf("create upload directory: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", 0, fmt.Errorf("create upload file: %w", err)
	}
	defer out.Close()

	src := r
	if s.MaxBytes > 0 {
		src = &io.LimitedReader{R: r, N: s.MaxBytes + 1}
	}
	written, err := io.Copy(out, src)
	if err != nil {
		_ = os.Remove(dst)
		return "", 0, fmt.Errorf("write upload file: %w", err)
	}
	if s.MaxBytes > 0 && written > s.MaxBytes {
		_ = os.Remove(dst)
		return "", 0, ErrFileTooLarge
	}
	return rel, written, nil
}

// Remove deletes a previously saved file. Missing files are not an error.
func (s *LocalStorage) Remove(rel string) error {
	err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
