package util

import (
	"bytes"
	"html/template"
	"net/http"
	"sync"

	"clonerp/web"
)

var (
	mu    sync.Mutex
	cache = map[string]*template.Template{}
)

// Render executes templates/<name> inside the shared layout. Output is
// buffered so a failing template never leaves a half written page.
func Render(w http.ResponseWriter, name string, data any) {
	t, err := lookup(name)
	if err != nil {
		http.Error(w, "template: "+err.Error(), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		http.Error(w, "template: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func lookup(name string) (*template.Template, error) {
	mu.Lock()
	defer mu.Unlock()
	if t, ok := cache[name]; ok {
		return t, nil
	}
	t, err := template.ParseFS(web.Templates, "templates/layout.html", "templates/"+name)
	if err != nil {
		return nil, err
	}
	cache[name] = t
	return t, nil
}
