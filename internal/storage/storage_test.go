package storage

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		`uploads\images\a.jpg`:   "images/a.jpg",
		"./uploads/audio/b.m4a":  "audio/b.m4a",
		"/uploads/images/c.png":  "images/c.png",
		"images/d.jpg":           "images/d.jpg",
		`.\uploads\images\e.jpg`: "images/e.jpg",
		"":                       "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePath(in), in)
	}
	assert.Nil(t, NormalizePtr(nil))
	empty := ""
	assert.Nil(t, NormalizePtr(&empty))
}

func fileHeader(t *testing.T, field, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File[field][0]
}

func TestDiskSave(t *testing.T) {
	root := t.TempDir()
	d := NewDisk(root)

	rel, err := d.Save(KindImage, fileHeader(t, "photo", "Zdjecie.JPG", []byte("jpegdata")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "images/"))
	assert.True(t, strings.HasSuffix(rel, ".jpg"))

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "jpegdata", string(data))

	_, err = d.Save(KindAudio, fileHeader(t, "audioNote", "note.exe", []byte("x")))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestDiskRemove(t *testing.T) {
	root := t.TempDir()
	d := NewDisk(root)

	rel, err := d.Save(KindImage, fileHeader(t, "photo", "a.png", []byte("png")))
	require.NoError(t, err)
	require.NoError(t, d.Remove(rel))
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, d.Remove(rel))
	assert.Error(t, d.Remove("../outside.jpg"))
}
