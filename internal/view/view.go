// Package view renders the server-side HTML pages.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/diewo77/go-katalog/internal/auth"
	"github.com/diewo77/go-katalog/internal/flash"
)

//go:embed templates
var embedded embed.FS

// Templates returns the templates compiled into the binary.
func Templates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Renderer writes a named page.
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error
}

// HTML renders pages from fsys. Every page is parsed together with
// layout.html and partials/*.html and executes the "layout" template.
type HTML struct {
	fsys fs.FS
	dev  bool
	now  func() time.Time

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// New returns an HTML renderer. In dev mode templates are parsed on every
// request so edits show up without a restart.
func New(fsys fs.FS, dev bool) *HTML {
	return &HTML{fsys: fsys, dev: dev, now: time.Now, cache: map[string]*template.Template{}}
}

// Render executes page name. Common keys are injected unless already set:
// Flash (the one-shot messages), IsLoggedIn and Year.
func (v *HTML) Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["Year"]; !ok {
		data["Year"] = v.now().Year()
	}
	if _, ok := data["IsLoggedIn"]; !ok {
		_, loggedIn := auth.UserIDFromContext(r.Context())
		data["IsLoggedIn"] = loggedIn
	}
	if _, ok := data["Flash"]; !ok {
		data["Flash"] = flash.Pop(w, r)
	}
	data["CurrentPath"] = r.URL.Path

	t, err := v.lookup(name)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("execute %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = buf.WriteTo(w)
	return err
}

// Preload parses every page once so template errors surface at startup.
// Outside dev mode the parsed pages stay cached.
func (v *HTML) Preload() error {
	pages, err := Pages(v.fsys)
	if err != nil {
		return err
	}
	for _, name := range pages {
		if _, err := v.lookup(name); err != nil {
			return err
		}
	}
	return nil
}

func (v *HTML) lookup(name string) (*template.Template, error) {
	if !v.dev {
		v.mu.RLock()
		t, ok := v.cache[name]
		v.mu.RUnlock()
		if ok {
			return t, nil
		}
	}
	t, err := v.parse(name)
	if err != nil {
		return nil, err
	}
	if !v.dev {
		v.mu.Lock()
		v.cache[name] = t
		v.mu.Unlock()
	}
	return t, nil
}

func (v *HTML) parse(name string) (*template.Template, error) {
	patterns := []string{"layout.html"}
	if partials, _ := fs.Glob(v.fsys, "partials/*.html"); len(partials) > 0 {
		patterns = append(patterns, partials...)
	}
	patterns = append(patterns, name)
	t, err := template.New(path.Base(name)).Funcs(Funcs()).ParseFS(v.fsys, patterns...)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return t, nil
}

// Pages lists every page template in fsys, excluding the layout and partials.
func Pages(fsys fs.FS) ([]string, error) {
	var pages []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".html") || p == "layout.html" || strings.HasPrefix(p, "partials/") {
			return nil
		}
		pages = append(pages, p)
		return nil
	})
	return pages, err
}

// Funcs returns the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"rupiah": Rupiah,
		"upload": func(ref string) string { return "/uploads/" + strings.TrimPrefix(ref, "/") },
		"asset":  func(rel string) string { return "/static/" + strings.TrimPrefix(rel, "/") },
		"date": func(t any) string {
			switch v := t.(type) {
			case time.Time:
				return v.Format("02 Jan 2006")
			case *time.Time:
				if v == nil {
					return ""
				}
				return v.Format("02 Jan 2006")
			}
			return ""
		},
		"isoDate": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format("2006-01-02")
		},
		// dict creates a map from key-value pairs for passing to sub-templates.
		// Usage: {{ template "partial" (dict "Key1" val1 "Key2" val2) }}
		"dict": func(values ...any) map[string]any {
			if len(values)%2 != 0 {
				return nil
			}
			m := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					continue
				}
				m[key] = values[i+1]
			}
			return m
		},
	}
}

// Rupiah formats an amount as Rp1.234.567. Fractions are rounded.
func Rupiah(v any) string {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int64:
		n = x
	case uint:
		n = int64(x)
	case float64:
		if x < 0 {
			n = int64(x - 0.5)
		} else {
			n = int64(x + 0.5)
		}
	default:
		return fmt.Sprint(v)
	}
	neg := n < 0
	if neg {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	if neg {
		return "-Rp" + b.String()
	}
	return "Rp" + b.String()
}
