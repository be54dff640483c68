package server

import (
	"context"
	"fmt"
	"github.com/sathiyaIbe/websurfx/internal/config"
	"github.com/sathiyaIbe/websurfx/internal/logs"
	"github.com/sathiyaIbe/websurfx/internal/pages"
	"github.com/sathiyaIbe/websurfx/internal/static"
	"github.com/sathiyaIbe/websurfx/internal/templates"
	"log/slog"
)

// Stage is a step of the startup sequence. Stages are reached in declaration order.
type Stage int

const (
	Unconfigured Stage = iota
	Configured
	TemplatesLoaded
	Assembled
	Listening
	Running
	Terminated
)

var stageNames = [...]string{
	Unconfigured:    "unconfigured",
	Configured:      "configured",
	TemplatesLoaded: "templates loaded",
	Assembled:       "assembled",
	Listening:       "listening",
	Running:         "running",
	Terminated:      "terminated",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// StartupError reports the stage the server failed to reach.
type StartupError struct {
	Stage Stage
	Err   error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup failed before %s stage: %v", e.Stage, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

type options struct {
	searcher pages.Searcher
	onStage  func(Stage)
}

type Option func(*options)

// WithSearcher sets the search backend. Without it the search page shows no results.
func WithSearcher(s pages.Searcher) Option {
	return func(o *options) { o.searcher = s }
}

// OnStage registers a callback invoked every time a stage is reached.
func OnStage(fn func(Stage)) Option {
	return func(o *options) { o.onStage = fn }
}

// Run configures the server from args, loads templates, assembles the handler,
// binds the listener and serves until ctx is done. Failures before serving
// starts are returned as *StartupError.
func Run(ctx context.Context, args []string, opts ...Option) error {
	o := options{searcher: pages.NoResults{}}
	for _, opt := range opts {
		opt(&o)
	}
	reached := func(stage Stage) {
		slog.Debug("Startup stage reached", slog.String("stage", stage.String()))
		if o.onStage != nil {
			o.onStage(stage)
		}
	}

	cfg, err := config.Load(args)
	if err != nil {
		return &StartupError{Stage: Configured, Err: err}
	}
	logs.SetLevel(cfg.LogLevel)
	reached(Configured)

	slog.Info("Loading templates", slog.String("dir", cfg.Templates))
	reg, err := templates.Load(cfg.Templates, templates.Extension)
	if err == nil {
		err = reg.Require(pages.RequiredTemplates...)
	}
	if err != nil {
		return &StartupError{Stage: TemplatesLoaded, Err: err}
	}
	reached(TemplatesLoaded)

	router := NewRouter(
		pages.New(reg, o.searcher, cfg.Robots),
		static.New("/static", cfg.Static),
		static.New("/images", cfg.Images),
	)
	serv := NewStaticServer(cfg.ServerAddress(), NewHandler(cfg.Server, router), cfg.Server)
	reached(Assembled)

	ln, err := Listen(serv.Addr)
	if err != nil {
		return &StartupError{Stage: Listening, Err: err}
	}
	reached(Listening)

	slog.Info("Running static server", slog.String("addr", ln.Addr().String()))
	reached(Running)
	err = ServeServer(ctx, serv, ln, cfg.Server.ShutdownTimeout)
	reached(Terminated)
	return err
}
