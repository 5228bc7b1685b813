// Package storage saves report attachments on local disk and normalizes the
// paths stored for them.
package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Kind selects the sub-directory of the upload root.
type Kind string

const (
	KindImage Kind = "images"
	KindAudio Kind = "audio"
)

// MaxFileSize caps a single attachment.
const MaxFileSize = 20 << 20

var (
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

var allowedExt = map[Kind]map[string]bool{
	KindImage: {".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".heic": true},
	KindAudio: {".m4a": true, ".mp3": true, ".aac": true, ".wav": true, ".ogg": true, ".3gp": true},
}

// Disk stores files below Root.
type Disk struct {
	Root string
}

func NewDisk(root string) *Disk { return &Disk{Root: root} }

// Save writes the uploaded file under Root/<kind>/ with a random name and
// returns its path relative to Root, using forward slashes.
func (d *Disk) Save(kind Kind, fh *multipart.FileHeader) (string, error) {
	if fh.Size > MaxFileSize {
		return "", ErrTooLarge
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExt[kind][ext] {
		return "", fmt.Errorf("%w: %s %q", ErrUnsupportedType, kind, ext)
	}

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dir := filepath.Join(d.Root, string(kind))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := uuid.NewString() + ext
	dst, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	n, err := io.Copy(dst, io.LimitReader(src, MaxFileSize+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxFileSize {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(filepath.Join(dir, name))
		return "", err
	}
	return path.Join(string(kind), name), nil
}

// Remove deletes a file previously returned by Save.  A missing file is not
// an error.
func (d *Disk) Remove(rel string) error {
	rel = filepath.FromSlash(NormalizePath(rel))
	if !filepath.IsLocal(rel) {
		return fmt.Errorf("storage: refusing to remove %q", rel)
	}
	err := os.Remove(filepath.Join(d.Root, rel))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// NormalizePath converts a stored path to the relative, forward-slash form
// served under /uploads: backslashes become slashes, and a leading "./",
// "/" or "uploads/" prefix is removed.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")
	for {
		trimmed := strings.TrimPrefix(p, "./")
		trimmed = strings.TrimLeft(trimmed, "/")
		trimmed = strings.TrimPrefix(trimmed, "uploads/")
		if trimmed == p {
			return p
		}
		p = trimmed
	}
}

// NormalizePtr applies NormalizePath to an optional path.
func NormalizePtr(p *string) *string {
	if p == nil {
		return nil
	}
	n := NormalizePath(*p)
	if n == "" {
		return nil
	}
	return &n
}
