package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/afero"

	"github.com/vango-dev/deno-adapter/pkg/manifest"
)

// Headers added to requests forwarded to the upstream renderer.
const (
	HeaderRoute    = "X-Deno-Adapter-Route"
	HeaderNotFound = "X-Deno-Adapter-Not-Found"
)

// NotFoundPage is the client-root file served when no upstream renders the
// not-found page.
const NotFoundPage = "404.html"

// paramRe matches chi parameters; patterns differing only in parameter
// names collide in the router.
var paramRe = regexp.MustCompile(`\{[^}]*\}`)

var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// ManifestAppOptions configures NewManifestApp.
type ManifestAppOptions struct {
	// Upstream is the base URL of the renderer requests are forwarded to.
	// Empty means every render produces the not-found page.
	Upstream string

	// Client defaults to an http.Client with a 30s timeout.
	Client *http.Client

	// ClientFS is the client root the not-found page is read from.
	ClientFS afero.Fs

	Logger *slog.Logger
}

// ManifestApp is an App backed by the build manifest.
type ManifestApp struct {
	base     string
	mux      *chi.Mux
	routes   map[string]manifest.Route
	upstream *url.URL
	client   *http.Client
	clientFS afero.Fs
	logger   *slog.Logger
}

var _ App = (*ManifestApp)(nil)
var _ CookieSource = (*ManifestApp)(nil)

// NewManifestApp builds the route table from m. Prerendered routes are left
// out since their output is served from the client root. Routes whose
// pattern cannot be expressed, or that collide with an earlier route, are
// skipped with a warning.
func NewManifestApp(m *manifest.Manifest, opts ManifestAppOptions) (*ManifestApp, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &ManifestApp{
		base:     manifest.NormalizeBase(m.Base),
		mux:      chi.NewMux(),
		routes:   make(map[string]manifest.Route),
		client:   opts.Client,
		clientFS: opts.ClientFS,
		logger:   logger.With("component", "app"),
	}
	if a.client == nil {
		a.client = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Upstream != "" {
		u, err := url.Parse(opts.Upstream)
		if err != nil {
			return nil, fmt.Errorf("parse upstream: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("upstream %q: scheme must be http or https", opts.Upstream)
		}
		a.upstream = u
	}

	shapes := make(map[string]bool)
	for _, r := range m.Dynamic() {
		pattern, err := r.Pattern()
		if err != nil {
			a.logger.Warn("skipping route", "route", r.Route, "error", err)
			continue
		}
		shape := paramRe.ReplaceAllString(pattern, "{}")
		if shapes[shape] {
			a.logger.Warn("skipping duplicate route", "route", r.Route, "pattern", pattern)
			continue
		}
		if err := a.register(pattern); err != nil {
			a.logger.Warn("skipping route", "route", r.Route, "error", err)
			continue
		}
		shapes[shape] = true
		a.routes[pattern] = r
	}
	return a, nil
}

// register adds pattern to the mux; chi panics on conflicting patterns.
func (a *ManifestApp) register(pattern string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%v", rec)
		}
	}()
	a.mux.Handle(pattern, http.NotFoundHandler())
	return nil
}

// Routes returns the number of routes that can be matched.
func (a *ManifestApp) Routes() int { return len(a.routes) }

// RemoveBase strips the base path. Paths outside the base are returned
// unchanged.
func (a *ManifestApp) RemoveBase(pathname string) string {
	if a.base == "/" {
		return pathname
	}
	if pathname == a.base {
		return "/"
	}
	if rest, ok := strings.CutPrefix(pathname, a.base+"/"); ok {
		return "/" + rest
	}
	return pathname
}

// Match matches the request path, with the base removed, against the route
// table. A trailing slash is ignored.
func (a *ManifestApp) Match(r *http.Request) (*RouteData, bool) {
	path := a.RemoveBase(r.URL.Path)
	if path == "" {
		path = "/"
	}

	rctx := chi.NewRouteContext()
	if !a.mux.Match(rctx, http.MethodGet, path) {
		trimmed := strings.TrimSuffix(path, "/")
		if trimmed == path || trimmed == "" {
			return nil, false
		}
		rctx = chi.NewRouteContext()
		if !a.mux.Match(rctx, http.MethodGet, trimmed) {
			return nil, false
		}
	}

	pattern := rctx.RoutePattern()
	route, ok := a.routes[pattern]
	if !ok {
		return nil, false
	}

	rd := &RouteData{
		Route:     route.Route,
		Pattern:   pattern,
		Type:      route.Type,
		Prerender: route.Prerender,
		Component: route.Component,
		Params:    make(map[string]string, len(rctx.URLParams.Keys)),
	}
	rest, _ := route.RestParam()
	for i, k := range rctx.URLParams.Keys {
		if k == "*" {
			k = rest
		}
		rd.Params[k] = rctx.URLParams.Values[i]
	}
	return rd, true
}

// Render forwards the request to the upstream renderer. Without an upstream
// it produces the not-found page.
func (a *ManifestApp) Render(ctx context.Context, r *http.Request, route *RouteData) (*Response, error) {
	if a.upstream == nil {
		return a.notFound(), nil
	}

	target := *a.upstream
	target.Path = strings.TrimSuffix(a.upstream.Path, "/") + r.URL.Path
	target.RawPath = ""
	target.RawQuery = r.URL.RawQuery

	req, err := http.NewRequestWithContext(ctx, r.Method, target.String(), r.Body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.ContentLength = r.ContentLength
	req.Header = r.Header.Clone()
	for _, h := range hopHeaders {
		req.Header.Del(h)
	}
	req.Header.Set("X-Forwarded-Host", r.Host)
	if r.TLS != nil {
		req.Header.Set("X-Forwarded-Proto", "https")
	} else {
		req.Header.Set("X-Forwarded-Proto", "http")
	}
	if addr, ok := ClientAddress(ctx); ok {
		req.Header.Set("X-Forwarded-For", addr)
	}
	if route != nil {
		req.Header.Set(HeaderRoute, route.Route)
	} else {
		req.Header.Set(HeaderNotFound, "1")
	}

	res, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}

	header := res.Header.Clone()
	for _, h := range hopHeaders {
		header.Del(h)
	}
	header.Del("Content-Length")
	cookies := header.Values("Set-Cookie")
	header.Del("Set-Cookie")

	return &Response{Status: res.StatusCode, Header: header, Body: body, cookies: cookies}, nil
}

// SetCookieHeaders returns the cookies the renderer set on resp.
func (a *ManifestApp) SetCookieHeaders(resp *Response) []string {
	if resp == nil {
		return nil
	}
	return resp.cookies
}

func (a *ManifestApp) notFound() *Response {
	if a.clientFS != nil {
		if page, err := afero.ReadFile(a.clientFS, NotFoundPage); err == nil {
			return NewResponse(http.StatusNotFound, "text/html; charset=utf-8", page)
		}
	}
	return NewResponse(http.StatusNotFound, "text/plain; charset=utf-8", []byte("Not Found"))
}
