package handlers

import (
	"net/http"

	"github.com/diewo77/go-katalog/internal/view"
)

// PagesHandler serves the static landing pages.
type PagesHandler struct {
	view view.Renderer
}

func NewPagesHandler(v view.Renderer) *PagesHandler {
	return &PagesHandler{view: v}
}

// Page returns a handler rendering the landing template name.
func (h *PagesHandler) Page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(h.view, w, r, "landing/"+name+".html", nil)
	}
}
