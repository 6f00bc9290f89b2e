package app

import (
	"context"
	"net/http"
)

// RouteData describes a matched route.
type RouteData struct {
	// Route is the route in the framework's notation ("/blog/[slug]").
	Route string

	// Pattern is the chi pattern the request matched ("/blog/{slug}").
	Pattern string

	// Type is the route type (page, endpoint, redirect, fallback).
	Type string

	Prerender bool
	Component string

	// Params holds the matched route parameters. A trailing rest parameter
	// is stored under its own name.
	Params map[string]string
}

// App is the framework application the request handler drives.
type App interface {
	// Match returns the route for r, if any.
	Match(r *http.Request) (*RouteData, bool)

	// Render produces the response for r. A nil route renders the
	// framework's not-found page.
	Render(ctx context.Context, r *http.Request, route *RouteData) (*Response, error)

	// RemoveBase strips the configured base path from pathname.
	RemoveBase(pathname string) string
}

// CookieSource is implemented by apps that keep cookies set during
// rendering outside the response headers.
type CookieSource interface {
	SetCookieHeaders(resp *Response) []string
}

type clientAddressKey struct{}

// WithClientAddress stores the client address in ctx.
func WithClientAddress(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, clientAddressKey{}, addr)
}

// ClientAddress returns the address stored by WithClientAddress.
func ClientAddress(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	addr, ok := ctx.Value(clientAddressKey{}).(string)
	return addr, ok && addr != ""
}
