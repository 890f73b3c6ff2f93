package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// uploads saves multipart files into a temp directory until the media
// store takes them over. cleanup removes whatever is still on disk.
type uploads struct {
	dir   string
	paths []string
}

func newUploads(dir string) *uploads {
	if dir == "" {
		dir = os.TempDir()
	}
	return &uploads{dir: dir}
}

// save copies the form file field to disk and returns its path, or "" when
// the field is absent.
func (u *uploads) save(c echo.Context, field string) (string, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", field, err)
	}
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", field, err)
	}
	defer src.Close()

	if err := os.MkdirAll(u.dir, 0o755); err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	path := filepath.Join(u.dir, uuid.NewString()+ext)
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", err
	}
	u.paths = append(u.paths, path)
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", err
	}
	return path, dst.Close()
}

func (u *uploads) cleanup() {
	for _, p := range u.paths {
		_ = os.Remove(p)
	}
}
