// Package storage keeps uploaded files on local disk under a public root.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Upload directories, relative to the storage root.
const (
	DirProducts = "images/products"
	DirPictures = "images/pictures"
	DirPayments = "images/payments"
)

// ErrUnsupportedType is returned for file extensions outside the allow list.
var ErrUnsupportedType = errors.New("storage: unsupported file type")

// ErrTooLarge is returned when an upload exceeds the configured size.
var ErrTooLarge = errors.New("storage: file too large")

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".pdf": true}

// Local stores files below root. References are slash-separated paths
// relative to root, e.g. images/products/<uuid>.png.
type Local struct {
	root     string
	maxBytes int64
}

// NewLocal returns a Local rooted at root. maxBytes <= 0 disables the limit.
func NewLocal(root string, maxBytes int64) *Local {
	return &Local{root: root, maxBytes: maxBytes}
}

// Root returns the directory served under /uploads/.
func (l *Local) Root() string { return l.root }

// Save copies r into dir under a random name keeping filename's extension.
// The file is fully written before the reference is returned.
func (l *Local) Save(ctx context.Context, dir, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ref := path.Join(dir, uuid.NewString()+ext)
	full := filepath.Join(l.root, filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}

	src := r
	if l.maxBytes > 0 {
		src = io.LimitReader(r, l.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && l.maxBytes > 0 && n > l.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("write upload: %w", err)
	}
	return ref, nil
}

// Remove deletes a stored file. Missing files and references outside the
// root are ignored.
func (l *Local) Remove(ref string) error {
	if ref == "" {
		return nil
	}
	clean := path.Clean("/" + ref)[1:]
	if clean == "" || strings.HasPrefix(clean, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(l.root, filepath.FromSlash(clean)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}
