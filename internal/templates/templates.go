// Package templates loads a directory of html/template files into a registry
// that is built once at startup and only read afterwards.
package templates

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Extension of the files picked up by Load.
const Extension = ".html"

var (
	ErrNoTemplates     = errors.New("no templates found")
	ErrMissingTemplate = errors.New("template not registered")
)

// LoadError is returned when the template directory or one of its files cannot
// be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load templates %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Registry is a set of compiled templates keyed by file name without the extension.
// Files in subdirectories are keyed by their slash separated relative path.
// All templates share one namespace, so any of them may {{template}} another.
type Registry struct {
	set   *template.Template
	names []string
}

// Load walks dir recursively and compiles every file ending in ext. Any failure
// aborts the whole load and no registry is returned.
func Load(dir, ext string) (*Registry, error) {
	set := template.New("")
	var names []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &LoadError{Path: path, Err: err}
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ext) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return &LoadError{Path: path, Err: err}
		}
		name := strings.TrimSuffix(filepath.ToSlash(rel), ext)
		if name == "" || strings.HasSuffix(name, "/") {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return &LoadError{Path: path, Err: err}
		}
		if _, err := set.New(name).Parse(string(content)); err != nil {
			return &LoadError{Path: path, Err: err}
		}
		names = append(names, name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, &LoadError{Path: dir, Err: ErrNoTemplates}
	}

	sort.Strings(names)
	return &Registry{set: set, names: names}, nil
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

func (r *Registry) Len() int {
	return len(r.names)
}

func (r *Registry) Has(name string) bool {
	i := sort.SearchStrings(r.names, name)
	return i < len(r.names) && r.names[i] == name
}

// Require reports every name in names that has no template file behind it.
func (r *Registry) Require(names ...string) error {
	var missing []string
	for _, name := range names {
		if !r.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingTemplate, strings.Join(missing, ", "))
	}
	return nil
}

// Render executes the named template. Output is buffered, so nothing reaches w
// when execution fails.
func (r *Registry) Render(w io.Writer, name string, data any) error {
	if !r.Has(name) {
		return fmt.Errorf("%w: %s", ErrMissingTemplate, name)
	}
	var buf bytes.Buffer
	if err := r.set.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}
