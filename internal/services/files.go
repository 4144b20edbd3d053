// Package services holds the multi-step operations behind the handlers.
// Each service returns *apperr.Error values whose Message is safe to show.
package services

import (
	"context"
	"fmt"
	"io"

	"github.com/diewo77/go-katalog/internal/logger"
	"github.com/diewo77/go-katalog/internal/models"
	"go.uber.org/zap"
)

// FileStore persists uploads and hands back a relative reference.
type FileStore interface {
	Save(ctx context.Context, dir, filename string, r io.Reader) (string, error)
	Remove(ref string) error
}

// Upload is one file received from a form.
type Upload struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

func saveUpload(ctx context.Context, files FileStore, dir string, u Upload) (string, error) {
	rc, err := u.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", u.Filename, err)
	}
	defer rc.Close()
	return files.Save(ctx, dir, u.Filename, rc)
}

// saveAll stores every upload or none of them.
func saveAll(ctx context.Context, files FileStore, dir string, uploads []Upload) ([]string, error) {
	refs := make([]string, 0, len(uploads))
	for _, u := range uploads {
		ref, err := saveUpload(ctx, files, dir, u)
		if err != nil {
			removeAll(ctx, files, refs)
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// removeAll deletes stored files, skipping the shared defaults. Failures
// are logged only; the records no longer point at the files.
func removeAll(ctx context.Context, files FileStore, refs []string) {
	for _, ref := range refs {
		if ref == "" || ref == models.DefaultProductImage || ref == models.DefaultProfilePicture {
			continue
		}
		if err := files.Remove(ref); err != nil {
			logger.FromContext(ctx).Warn("remove upload failed", zap.String("ref", ref), zap.Error(err))
		}
	}
}
