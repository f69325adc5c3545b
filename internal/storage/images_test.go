package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func setupStore(t *testing.T) *ImageStore {
	t.Helper()
	s, err := NewImageStore(t.TempDir(), "/static/media/", 1<<20)
	require.NoError(t, err)
	return s
}

func TestNewImageStore(t *testing.T) {
	t.Run("creates recipe directory", func(t *testing.T) {
		root := t.TempDir()
		_, err := NewImageStore(root, "/media", 1024)
		require.NoError(t, err)
		info, err := os.Stat(filepath.Join(root, "uploads", "recipe"))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("rejects empty root", func(t *testing.T) {
		s, err := NewImageStore("", "/media", 1024)
		assert.Error(t, err)
		assert.Nil(t, s)
	})
}

func TestImageStoreSave(t *testing.T) {
	t.Run("stores png under a generated name", func(t *testing.T) {
		s := setupStore(t)
		data := pngBytes(t)

		first, err := s.Save(bytes.NewReader(data))
		require.NoError(t, err)
		second, err := s.Save(bytes.NewReader(data))
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
		assert.True(t, strings.HasPrefix(first, "uploads/recipe/"))
		assert.True(t, strings.HasSuffix(first, ".png"))

		got, err := os.ReadFile(s.Path(first))
		require.NoError(t, err)
		assert.Equal(t, data, got)
		assert.Equal(t, "/static/media/"+first, s.URL(first))
	})

	t.Run("rejects non-image", func(t *testing.T) {
		s := setupStore(t)
		_, err := s.Save(strings.NewReader("notanimage"))
		assert.ErrorIs(t, err, ErrNotImage)
	})

	t.Run("rejects empty upload", func(t *testing.T) {
		s := setupStore(t)
		_, err := s.Save(bytes.NewReader(nil))
		assert.ErrorIs(t, err, ErrEmpty)
	})

	t.Run("rejects oversized upload", func(t *testing.T) {
		s, err := NewImageStore(t.TempDir(), "/media", 16)
		require.NoError(t, err)
		_, err = s.Save(bytes.NewReader(pngBytes(t)))
		assert.ErrorIs(t, err, ErrTooLarge)
	})
}

func TestImageStoreDelete(t *testing.T) {
	s := setupStore(t)
	name, err := s.Save(bytes.NewReader(pngBytes(t)))
	require.NoError(t, err)

	require.NoError(t, s.Delete(name))
	_, err = os.Stat(s.Path(name))
	assert.True(t, os.IsNotExist(err))

	// already gone
	require.NoError(t, s.Delete(name))

	assert.Error(t, s.Delete("../../etc/passwd"))
	assert.Error(t, s.Delete("uploads/recipe/../../x"))
}
