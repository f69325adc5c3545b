// Package storage keeps uploaded recipe images on the local filesystem.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// RecipeDir is the directory, relative to the media root, that holds
// recipe images.  Stored references have the form RecipeDir/<uuid><ext>.
const RecipeDir = "uploads/recipe"

var (
	// ErrNotImage is returned when the upload is not a decodable image.
	ErrNotImage = errors.New("upload a valid image")
	// ErrTooLarge is returned when the upload exceeds the size limit.
	ErrTooLarge = errors.New("image too large")
	// ErrEmpty is returned for a zero-byte upload.
	ErrEmpty = errors.New("the submitted file is empty")
)

var extByFormat = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"webp": ".webp",
}

// ImageStore writes images under root and serves them under baseURL.
// Safe for concurrent use.
type ImageStore struct {
	root     string
	baseURL  string
	maxBytes int64
	mu       sync.Mutex
}

// NewImageStore creates root/RecipeDir if needed.
func NewImageStore(root, baseURL string, maxBytes int64) (*ImageStore, error) {
	if root == "" {
		return nil, fmt.Errorf("media root cannot be empty")
	}
	if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(RecipeDir)), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", RecipeDir, err)
	}
	return &ImageStore{root: root, baseURL: strings.TrimRight(baseURL, "/"), maxBytes: maxBytes}, nil
}

// Save validates r as an image and stores it under a freshly generated
// name, which is returned.  The client's filename is never used.
func (s *ImageStore) Save(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrTooLarge
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", ErrNotImage
	}
	ext, ok := extByFormat[format]
	if !ok {
		return "", ErrNotImage
	}

	name := path.Join(RecipeDir, uuid.New().String()+ext)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.Path(name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	return name, nil
}

// Delete removes a stored image.  A missing file is not an error.
func (s *ImageStore) Delete(name string) error {
	if !s.owns(name) {
		return fmt.Errorf("invalid image reference %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.Path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image file: %w", err)
	}
	return nil
}

// Path returns the filesystem path of a stored reference.
func (s *ImageStore) Path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// URL returns the public URL of a stored reference.
func (s *ImageStore) URL(name string) string {
	return s.baseURL + "/" + name
}

// Root is the directory served under the base URL.
func (s *ImageStore) Root() string { return s.root }

// owns reports whether name is a reference this store could have issued.
func (s *ImageStore) owns(name string) bool {
	clean := path.Clean(name)
	return clean == name && strings.HasPrefix(clean, RecipeDir+"/") && !strings.Contains(clean, "..")
}
