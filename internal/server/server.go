package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/gorilla/mux"
	"github.com/sathiyaIbe/websurfx/internal/config"
	"github.com/sathiyaIbe/websurfx/internal/static"
	"golang.org/x/sync/errgroup"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Handlers renders the pages the router dispatches to.
type Handlers interface {
	Robots(w http.ResponseWriter, r *http.Request)
	Index(w http.ResponseWriter, r *http.Request)
	Search(w http.ResponseWriter, r *http.Request)
	About(w http.ResponseWriter, r *http.Request)
	Settings(w http.ResponseWriter, r *http.Request)
	NotFound(w http.ResponseWriter, r *http.Request)
}

type Route struct {
	Name    string
	Path    string
	Methods []string
	Handle  func(Handlers, http.ResponseWriter, *http.Request)
}

// Routes is matched in order; anything left over goes to Handlers.NotFound.
var Routes = []Route{
	{Name: "robots", Path: "/robots.txt", Methods: []string{http.MethodGet}, Handle: Handlers.Robots},
	{Name: "index", Path: "/", Methods: []string{http.MethodGet}, Handle: Handlers.Index},
	{Name: "search", Path: "/search", Methods: []string{http.MethodGet}, Handle: Handlers.Search},
	{Name: "about", Path: "/about", Methods: []string{http.MethodGet}, Handle: Handlers.About},
	{Name: "settings", Path: "/settings", Methods: []string{http.MethodGet}, Handle: Handlers.Settings},
}

// BindError is returned when the listen address cannot be bound.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

func NewRouter(h Handlers, mounts ...static.Mount) *mux.Router {
	router := mux.NewRouter()

	router.NotFoundHandler = http.HandlerFunc(h.NotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(h.NotFound)

	for _, m := range mounts {
		router.PathPrefix(m.Prefix).Methods(http.MethodGet, http.MethodHead).Handler(m.Handler())
	}

	for _, route := range Routes {
		handle := route.Handle
		router.HandleFunc(route.Path, func(w http.ResponseWriter, r *http.Request) {
			handle(h, w, r)
		}).Methods(route.Methods...).Name(route.Name)
	}

	return router
}

// NewHandler wraps the router with the middleware chain, outermost first:
// request id, request log, rate limit, panic recovery.
func NewHandler(conf config.ServerConfig, router http.Handler) http.Handler {
	return RequestIDMiddleware(LoggingMiddleware(RateLimitMiddleware(conf.RateLimit)(RecoveryMiddleware(router))))
}

func NewStaticServer(addr string, handler http.Handler, conf config.ServerConfig) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: conf.ReadHeaderTimeout,
	}
}

func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}
	return ln, nil
}

// ServeServer serves on ln until ctx is done, then drains in-flight requests for
// at most shutdownTimeout (no limit when it is zero).
func ServeServer(ctx context.Context, server *http.Server, ln net.Listener, shutdownTimeout time.Duration) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("Shutting down static server", slog.String("addr", ln.Addr().String()))

		shutdownCtx := context.Background()
		if shutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, shutdownTimeout)
			defer cancel()
		}
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
