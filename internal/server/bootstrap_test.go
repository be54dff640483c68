package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/sathiyaIbe/websurfx/internal/config"
	"github.com/sathiyaIbe/websurfx/internal/templates"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

var publicFiles = map[string]string{
	"public/templates/index.html":           `{{template "partials/header" .}}<h1>websurfx index</h1>`,
	"public/templates/search.html":          `search {{.Query}}`,
	"public/templates/about.html":           `about websurfx`,
	"public/templates/settings.html":        `settings`,
	"public/templates/404.html":             `oops, page not found`,
	"public/templates/partials/header.html": `<title>{{.Title}}</title>`,
	"public/static/app.css":                 `body { margin: 0; }`,
	"public/images/logo.svg":                `<svg/>`,
	"public/robots.txt":                     "User-agent: *\n",
	"public/secret":                         `top secret`,
}

// setupRoot writes a public/ tree into a temporary ROOT_PATH. Entries with an
// empty value are removed from the default tree.
func setupRoot(t *testing.T, overrides map[string]string) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{}
	for k, v := range publicFiles {
		files[k] = v
	}
	for k, v := range overrides {
		if v == "" {
			delete(files, k)
			continue
		}
		files[k] = v
	}
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("ROOT_PATH", root)
	return root
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	if port < config.MinPort {
		t.Skipf("ephemeral port %d is below %d", port, config.MinPort)
	}
	return port
}

type stageRecorder struct {
	mu      sync.Mutex
	stages  []Stage
	running chan struct{}
}

func newStageRecorder() *stageRecorder {
	return &stageRecorder{running: make(chan struct{})}
}

func (s *stageRecorder) record(stage Stage) {
	s.mu.Lock()
	s.stages = append(s.stages, stage)
	s.mu.Unlock()
	if stage == Running {
		close(s.running)
	}
}

func (s *stageRecorder) reached(stage Stage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.stages {
		if st == stage {
			return true
		}
	}
	return false
}

func TestRunConfigurationErrors(t *testing.T) {
	setupRoot(t, nil)

	testCases := []struct {
		args []string
		want error
	}{
		{[]string{"--port", "80"}, config.ErrOutOfRange},
		{[]string{"-p", "99999"}, config.ErrOutOfRange},
		{[]string{"--port", "abc"}, config.ErrInvalidFormat},
	}

	for _, tc := range testCases {
		t.Run(strings.Join(tc.args, " "), func(t *testing.T) {
			rec := newStageRecorder()
			err := Run(context.Background(), tc.args, OnStage(rec.record))

			var startupErr *StartupError
			if !errors.As(err, &startupErr) || startupErr.Stage != Configured {
				t.Fatalf("error = %v, want StartupError at %s", err, Configured)
			}
			if !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
			if len(rec.stages) != 0 {
				t.Errorf("stages reached: %v", rec.stages)
			}
		})
	}
}

func TestRunTemplateErrors(t *testing.T) {
	testCases := []struct {
		name      string
		overrides map[string]string
		want      error
	}{
		{
			name:      "malformed template",
			overrides: map[string]string{"public/templates/about.html": `{{ range .Items }}`},
		},
		{
			name:      "missing page template",
			overrides: map[string]string{"public/templates/404.html": ""},
			want:      templates.ErrMissingTemplate,
		},
		{
			name: "no templates",
			overrides: map[string]string{
				"public/templates/index.html":           "",
				"public/templates/search.html":          "",
				"public/templates/about.html":           "",
				"public/templates/settings.html":        "",
				"public/templates/404.html":             "",
				"public/templates/partials/header.html": "",
				"public/templates/README":               "templates go here",
			},
			want: templates.ErrNoTemplates,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setupRoot(t, tc.overrides)
			rec := newStageRecorder()

			err := Run(context.Background(), []string{"-p", strconv.Itoa(freePort(t))}, OnStage(rec.record))

			var startupErr *StartupError
			if !errors.As(err, &startupErr) || startupErr.Stage != TemplatesLoaded {
				t.Fatalf("error = %v, want StartupError at %s", err, TemplatesLoaded)
			}
			var loadErr *templates.LoadError
			if tc.want == nil && !errors.As(err, &loadErr) {
				t.Errorf("error = %v, want *templates.LoadError", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
			if rec.reached(Listening) {
				t.Error("listener bound after a template failure")
			}
		})
	}
}

func TestRunMissingTemplateDirectory(t *testing.T) {
	root := setupRoot(t, nil)
	if err := os.RemoveAll(filepath.Join(root, "public/templates")); err != nil {
		t.Fatal(err)
	}

	err := Run(context.Background(), []string{"-p", strconv.Itoa(freePort(t))})
	var startupErr *StartupError
	if !errors.As(err, &startupErr) || startupErr.Stage != TemplatesLoaded {
		t.Fatalf("error = %v, want StartupError at %s", err, TemplatesLoaded)
	}
}

func TestRunBindError(t *testing.T) {
	setupRoot(t, nil)
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer taken.Close()
	port := taken.Addr().(*net.TCPAddr).Port
	if port < config.MinPort {
		t.Skipf("ephemeral port %d is below %d", port, config.MinPort)
	}

	rec := newStageRecorder()
	err = Run(context.Background(), []string{"--port", strconv.Itoa(port)}, OnStage(rec.record))

	var startupErr *StartupError
	if !errors.As(err, &startupErr) || startupErr.Stage != Listening {
		t.Fatalf("error = %v, want StartupError at %s", err, Listening)
	}
	var bindErr *BindError
	if !errors.As(err, &bindErr) {
		t.Errorf("error = %v, want *BindError", err)
	}
	if !rec.reached(Assembled) || rec.reached(Running) {
		t.Errorf("stages = %v", rec.stages)
	}
}

func TestRunEndToEnd(t *testing.T) {
	setupRoot(t, nil)
	port := freePort(t)
	base := fmt.Sprintf("http://127.0.0.1:%d", port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := newStageRecorder()
	done := make(chan error, 1)
	go func() { done <- Run(ctx, []string{"-p", strconv.Itoa(port)}, OnStage(rec.record)) }()

	select {
	case <-rec.running:
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	client := &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	get := func(path string) (int, string) {
		t.Helper()
		resp, err := client.Get(base + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	testCases := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/", http.StatusOK, "websurfx index"},
		{"/about", http.StatusOK, "about websurfx"},
		{"/settings", http.StatusOK, "settings"},
		{"/search?q=gophers", http.StatusOK, "search gophers"},
		{"/robots.txt", http.StatusOK, "User-agent: *"},
		{"/nope", http.StatusOK, "oops, page not found"},
		{"/static/app.css", http.StatusOK, "body { margin: 0; }"},
		{"/images/", http.StatusOK, "logo.svg"},
	}
	for _, tc := range testCases {
		status, body := get(tc.path)
		if status != tc.wantStatus || !strings.Contains(body, tc.wantBody) {
			t.Errorf("GET %s = %d %q, want %d containing %q", tc.path, status, body, tc.wantStatus, tc.wantBody)
		}
	}

	status, body := get("/static/../secret")
	if status == http.StatusOK || strings.Contains(body, "top secret") {
		t.Errorf("GET /static/../secret = %d %q", status, body)
	}

	status, _ = get("/search")
	if status != http.StatusFound {
		t.Errorf("GET /search without query = %d, want 302", status)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	if !rec.reached(Terminated) {
		t.Errorf("stages = %v", rec.stages)
	}
}

func TestStageString(t *testing.T) {
	want := []string{"unconfigured", "configured", "templates loaded", "assembled", "listening", "running", "terminated"}
	for i, name := range want {
		if got := Stage(i).String(); got != name {
			t.Errorf("Stage(%d) = %q, want %q", i, got, name)
		}
	}
	if got := Stage(42).String(); got != "Stage(42)" {
		t.Errorf("unknown stage = %q", got)
	}
}
