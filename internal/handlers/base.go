// Package handlers holds the HTTP handlers. Each handler group is a struct
// built by a NewXHandler constructor; routes are wired in cmd/server.
package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/diewo77/go-katalog/internal/apperr"
	"github.com/diewo77/go-katalog/internal/flash"
	"github.com/diewo77/go-katalog/internal/logger"
	"github.com/diewo77/go-katalog/internal/services"
	"github.com/diewo77/go-katalog/internal/view"
	"go.uber.org/zap"
)

// maxFormMemory is the in-memory share of a multipart form; the rest
// spills to temp files.
const maxFormMemory = 10 << 20

// render writes a page or a bare 500 when the template fails.
func render(v view.Renderer, w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	if err := v.Render(w, r, name, data); err != nil {
		logger.FromContext(r.Context()).Error("render failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// fail reports err to the user as an error flash and redirects to to.
// Errors without a user-facing message are logged and shown as fallback.
func fail(w http.ResponseWriter, r *http.Request, err error, fallback, to string) {
	switch apperr.KindOf(err) {
	case apperr.KindStore, apperr.KindUnknown:
		logger.FromContext(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path), zap.Error(err))
	}
	flash.Error(w, r, apperr.MessageOf(err, fallback))
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// done flashes a success message and redirects to to.
func done(w http.ResponseWriter, r *http.Request, msg, to string) {
	flash.Success(w, r, msg)
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// denied flashes msg and redirects without logging.
func denied(w http.ResponseWriter, r *http.Request, msg, to string) {
	flash.Error(w, r, msg)
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// pathID reads a positive numeric path parameter.
func pathID(r *http.Request, name string) (uint, bool) {
	n, err := strconv.ParseUint(r.PathValue(name), 10, 0)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

func formUint(r *http.Request, key string) uint {
	n, err := strconv.ParseUint(strings.TrimSpace(r.FormValue(key)), 10, 0)
	if err != nil {
		return 0
	}
	return uint(n)
}

func idPath(prefix string, id uint) string {
	return prefix + strconv.FormatUint(uint64(id), 10)
}

// parseMultipart accepts both multipart and urlencoded bodies.
func parseMultipart(r *http.Request) error {
	err := r.ParseMultipartForm(maxFormMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

func toUpload(fh *multipart.FileHeader) services.Upload {
	return services.Upload{
		Filename: fh.Filename,
		Open:     func() (io.ReadCloser, error) { return fh.Open() },
	}
}

// formFiles returns the non-empty uploads sent under field.
func formFiles(r *http.Request, field string) []services.Upload {
	if r.MultipartForm == nil {
		return nil
	}
	var out []services.Upload
	for _, fh := range r.MultipartForm.File[field] {
		if fh.Filename == "" {
			continue
		}
		out = append(out, toUpload(fh))
	}
	return out
}

// formFile returns the first upload sent under field.
func formFile(r *http.Request, field string) (services.Upload, bool) {
	files := formFiles(r, field)
	if len(files) == 0 {
		return services.Upload{}, false
	}
	return files[0], true
}
