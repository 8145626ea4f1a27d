package web

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"
)

//go:embed templates
var embedded embed.FS

// Templates returns the templates bundled into the binary.
func Templates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// TemplateEngine handles HTML template rendering
type TemplateEngine struct {
	fsys   fs.FS
	reload bool // dev mode: reload on each request

	mu        sync.RWMutex
	templates *template.Template
}

// NewTemplateEngine creates an engine reading layouts and partials from the
// root of fsys and page templates from pages/.
func NewTemplateEngine(fsys fs.FS, reload bool) *TemplateEngine {
	return &TemplateEngine{
		fsys:   fsys,
		reload: reload,
	}
}

var errDictArgs = errors.New("dict expects key/value pairs with string keys")

func funcs() template.FuncMap {
	return template.FuncMap{
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, errDictArgs
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, errDictArgs
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"lower": strings.ToLower,
	}
}

// Load parses every template outside pages/.
func (te *TemplateEngine) Load() error {
	tmpl := template.New("").Funcs(funcs())

	err := fs.WalkDir(te.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// pages are parsed per render
		if d.IsDir() && d.Name() == "pages" {
			return fs.SkipDir
		}

		if !d.IsDir() && path.Ext(p) == ".html" {
			_, err = tmpl.ParseFS(te.fsys, p)
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	te.mu.Lock()
	te.templates = tmpl
	te.mu.Unlock()
	return nil
}

// Render renders a page inside the layout.
func (te *TemplateEngine) Render(w io.Writer, name string, data interface{}) error {
	tmpl, err := te.page(name)
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

// RenderContent renders only the content template without layout (for HTMX)
func (te *TemplateEngine) RenderContent(w io.Writer, name string, data interface{}) error {
	tmpl, err := te.page(name)
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, "content", data)
}

// RenderPartial renders a named template (partial)
func (te *TemplateEngine) RenderPartial(w io.Writer, name string, data interface{}) error {
	base, err := te.base()
	if err != nil {
		return err
	}
	return base.ExecuteTemplate(w, name, data)
}

func (te *TemplateEngine) base() (*template.Template, error) {
	if te.reload {
		if err := te.Load(); err != nil {
			return nil, err
		}
	}

	te.mu.RLock()
	defer te.mu.RUnlock()
	if te.templates == nil {
		return nil, errors.New("templates not loaded")
	}
	return te.templates, nil
}

func (te *TemplateEngine) page(name string) (*template.Template, error) {
	base, err := te.base()
	if err != nil {
		return nil, err
	}

	tmpl, err := base.Clone()
	if err != nil {
		return nil, err
	}
	return tmpl.ParseFS(te.fsys, path.Join("pages", name+".html"))
}
