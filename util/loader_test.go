package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupportedImage(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"frame.jpg", true},
		{"frame.JPG", true},
		{"frame.jpeg", true},
		{"frame.png", true},
		{"frame.bmp", true},
		{"frame.webp", true},
		{"frame.gif", false},
		{"frame.txt", false},
		{"frame", false},
		{"frame.jpg.bak", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SupportedImage(tt.name), tt.name)
	}
}

func TestLoadDirectoryImageFiles_OrderedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.jpg", "notes.txt", "c.webp"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte{0x1}, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))

	files, err := LoadDirectoryImageFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)

	assert.Equal(t, filepath.Join(dir, "a.jpg"), files[0].Path)
	assert.Equal(t, filepath.Join(dir, "b.png"), files[1].Path)
	assert.Equal(t, filepath.Join(dir, "c.webp"), files[2].Path)
	assert.Equal(t, []byte{0x1}, files[0].Data)
}

func TestLoadDirectoryImageFiles_MissingDirectory(t *testing.T) {
	_, err := LoadDirectoryImageFiles(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestDecode_RejectsGarbage(t *testing.T) {
	f := ImageFile{Path: "bad.jpg", Data: []byte("not an image")}
	mat, err := f.Decode()
	assert.Error(t, err)
	assert.True(t, mat.Empty())
}

func TestDecode_RejectsGarbageWebP(t *testing.T) {
	f := ImageFile{Path: "bad.webp", Data: []byte("not an image")}
	mat, err := f.Decode()
	assert.Error(t, err)
	assert.True(t, mat.Empty())
}
