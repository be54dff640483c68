// Package static serves directories of asset files under a URL prefix.
package static

import (
	"net/http"
	"strings"
)

// Mount binds a URL prefix such as /static/ to a directory on disk.
type Mount struct {
	Prefix string
	Root   string
}

func New(prefix, root string) Mount {
	prefix = "/" + strings.Trim(prefix, "/") + "/"
	return Mount{Prefix: prefix, Root: root}
}

// Handler serves files below Root and lists directories that have no index.html.
// Paths with a ".." segment are rejected before the file system is consulted.
func (m Mount) Handler() http.Handler {
	files := http.StripPrefix(m.Prefix, http.FileServer(http.Dir(m.Root)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if escapesRoot(r.URL.Path) {
			http.Error(w, "invalid URL path", http.StatusBadRequest)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func escapesRoot(path string) bool {
	if !strings.Contains(path, "..") {
		return false
	}
	for _, segment := range strings.FieldsFunc(path, isSlash) {
		if segment == ".." {
			return true
		}
	}
	return false
}

func isSlash(r rune) bool {
	return r == '/' || r == '\\'
}
