package pages

import (
	"errors"
	"github.com/sathiyaIbe/websurfx/internal/templates"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
)

// RequiredTemplates must all be present in the registry handed to New.
var RequiredTemplates = []string{"index", "search", "about", "settings", "404"}

type PageData struct {
	Title string
}

type SearchData struct {
	PageData
	Query   string
	Page    int
	Results []Result
}

type Pages struct {
	templates  *templates.Registry
	searcher   Searcher
	robotsPath string
}

func New(reg *templates.Registry, searcher Searcher, robotsPath string) *Pages {
	if searcher == nil {
		searcher = NoResults{}
	}
	return &Pages{templates: reg, searcher: searcher, robotsPath: robotsPath}
}

func (p *Pages) Index(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusOK, "index", PageData{Title: "Websurfx"})
}

func (p *Pages) About(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusOK, "about", PageData{Title: "About - Websurfx"})
}

func (p *Pages) Settings(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusOK, "settings", PageData{Title: "Settings - Websurfx"})
}

// NotFound renders the 404 page with a 200 status.
func (p *Pages) NotFound(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusOK, "404", PageData{Title: "404 - Websurfx"})
}

// Search renders results for the q parameter. An empty query goes back to the index.
func (p *Pages) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	query := strings.TrimSpace(params.Get("q"))
	if query == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	page := parsePage(params.Get("page"))

	results, err := p.searcher.Search(r.Context(), query, page)
	if err != nil {
		serverError(w, r, "Search failed", err, slog.String("query", query), slog.Int("page", page))
		return
	}

	p.render(w, r, http.StatusOK, "search", SearchData{
		PageData: PageData{Title: query + " - Websurfx"},
		Query:    query,
		Page:     page,
		Results:  results,
	})
}

func (p *Pages) Robots(w http.ResponseWriter, r *http.Request) {
	file, err := os.Open(p.robotsPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Error("Open robots file", slog.String("error", err.Error()))
		}
		http.Error(w, "robots.txt not found", http.StatusNotFound)
		return
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil || fileInfo.IsDir() {
		http.Error(w, "robots.txt not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	http.ServeContent(w, r, fileInfo.Name(), fileInfo.ModTime(), file)
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	sw := &statusWriter{ResponseWriter: w, status: status}
	err := p.templates.Render(sw, name, data)
	switch {
	case err == nil:
		sw.writeHeader()
	case sw.wroteHeader:
		slog.Error("Write response",
			slog.String("template", name),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	default:
		serverError(w, r, "Render template", err, slog.String("template", name))
	}
}

// serverError logs err and answers with the 500 error content shared by every page.
func serverError(w http.ResponseWriter, r *http.Request, msg string, err error, attrs ...any) {
	attrs = append(attrs, slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	slog.Error(msg, attrs...)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// statusWriter sends status together with the first write, so a template that
// fails before producing output can still be answered with a 500.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) writeHeader() {
	if !sw.wroteHeader {
		sw.wroteHeader = true
		sw.ResponseWriter.WriteHeader(sw.status)
	}
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.writeHeader()
	return sw.ResponseWriter.Write(b)
}

func parsePage(s string) int {
	page, err := strconv.ParseUint(s, 10, 31)
	if err != nil || page == 0 {
		return 1
	}
	return int(page)
}
