package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/deno-adapter/internal/errors"
	"github.com/vango-dev/deno-adapter/pkg/app"
)

// Server serves an App and the client root. It is safe for concurrent use.
type Server struct {
	app  app.App
	opts Options

	clientFS     afero.Fs
	clientAnchor string

	trustedProxies trustedProxies
	registry       *prometheus.Registry
	metrics        *metrics
	router         chi.Router
	logger         *slog.Logger
	stderr         io.Writer

	tracerOnce sync.Once
	tracerVal  trace.Tracer

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	done       chan struct{}
}

// New returns a Server for a. Nothing is bound until Start.
func New(a app.App, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	s := &Server{
		app:            a,
		opts:           opts,
		clientFS:       clientFS(opts),
		clientAnchor:   clientAnchor(opts),
		trustedProxies: parseTrustedProxies(opts.TrustedProxies, logger),
		registry:       registry,
		metrics:        newMetrics(registry),
		logger:         logger,
		stderr:         stderr,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if opts.MetricsPath != "" {
		r.Handle(opts.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	}
	r.Handle("/*", http.HandlerFunc(s.handle))
	s.router = r

	return s
}

// Registry returns the registry the request metrics are recorded in.
func (s *Server) Registry() *prometheus.Registry { return s.registry }

// ServeHTTP runs the decision chain for one request.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	source := s.resolve(w, r)
	s.metrics.observe(source, time.Since(start))
}

// resolve answers r and reports which step did.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) string {
	if rd, ok := s.app.Match(r); ok {
		ctx, span, end := s.routeSpan(r.Context(), r.Method, rd)
		defer end()

		ctx = app.WithClientAddress(ctx, s.clientAddress(r))
		resp, err := s.app.Render(ctx, r, rd)
		if err != nil {
			recordSpanError(span, err)
			s.renderError(w, r, err)
			return sourceError
		}
		s.send(w, r, resp)
		return sourceRoute
	}

	if s.serveStatic(w, r) {
		return sourceStatic
	}

	served, err := s.serveIndex(w, r)
	if err != nil {
		s.logger.Error("enumerate prerendered pages", "error", err, "path", r.URL.Path)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return sourceError
	}
	if served {
		return sourceIndex
	}

	resp, err := s.app.Render(r.Context(), r, nil)
	if err != nil {
		s.renderError(w, r, err)
		return sourceError
	}
	s.send(w, r, resp)
	return sourceFallback
}

func (s *Server) send(w http.ResponseWriter, r *http.Request, resp *app.Response) {
	var cookies []string
	if cs, ok := s.app.(app.CookieSource); ok {
		cookies = cs.SetCookieHeaders(resp)
	}
	if err := resp.Write(w, r, cookies); err != nil {
		s.logger.Debug("write response", "error", err, "path", r.URL.Path)
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("render failed", "error", errors.New("E182").Wrap(err), "path", r.URL.Path)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Handle renders r with the application directly, bypassing static files.
// It needs no listener.
func (s *Server) Handle(r *http.Request) (*app.Response, error) {
	rd, _ := s.app.Match(r)
	return s.app.Render(r.Context(), r, rd)
}

// Start binds the listener and serves in the background. It is a no-op when
// starting is disabled or the server is already running.
func (s *Server) Start() error {
	if !s.opts.startEnabled() {
		s.logger.Debug("start disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer != nil {
		return nil
	}

	host, port := s.opts.address()
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	listen := s.opts.Listen
	if listen == nil {
		listen = net.Listen
	}
	ln, err := listen("tcp", addr)
	if err != nil {
		return errors.New("E180").WithDetail("address " + addr).Wrap(err)
	}

	readHeaderTimeout := s.opts.ReadHeaderTimeout
	if readHeaderTimeout == 0 {
		readHeaderTimeout = 10 * time.Second
	}
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve failed", "error", err)
		}
	}()

	s.httpServer, s.listener, s.done = srv, ln, done

	if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}
	fmt.Fprintf(s.stderr, "Server running on port %d\n", port)
	s.logger.Info("server started", "address", ln.Addr().String())
	return nil
}

// Stop shuts the listener down and waits for the serve loop to exit. It is
// a no-op when the server is not running.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.httpServer, s.done
	s.httpServer, s.listener, s.done = nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	if s.opts.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ShutdownTimeout)
		defer cancel()
	}

	err := srv.Shutdown(ctx)
	if err != nil {
		_ = srv.Close()
	}
	<-done

	if err != nil {
		return errors.New("E181").Wrap(err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Running reports whether a listener is active.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.httpServer != nil
}

// Addr returns the bound address, or nil when not running.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
