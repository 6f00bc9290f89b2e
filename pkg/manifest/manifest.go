// Package manifest loads the server-rendering manifest the framework build
// writes next to the server entry.
//
// The manifest is a JSON document:
//
//	{
//	  "base": "/docs",
//	  "routes": [
//	    {"route": "/blog/[slug]", "type": "page", "prerender": false, "component": "src/pages/blog/[slug].astro"},
//	    {"route": "/about", "type": "page", "prerender": true}
//	  ]
//	}
//
// Route patterns use the framework's bracket notation and are converted to
// chi patterns with Route.Pattern.
package manifest

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

// FileName is the manifest file name inside the server output directory.
const FileName = "manifest.json"

// Route types.
const (
	TypePage     = "page"
	TypeEndpoint = "endpoint"
	TypeRedirect = "redirect"
	TypeFallback = "fallback"
)

// Route is one entry of the route table.
type Route struct {
	Route     string `json:"route"`
	Type      string `json:"type"`
	Prerender bool   `json:"prerender"`
	Component string `json:"component,omitempty"`
}

// Manifest is the decoded manifest file.
type Manifest struct {
	Base   string  `json:"base"`
	Routes []Route `json:"routes"`
}

// Load reads and decodes the manifest at path.
func Load(fsys afero.Fs, path string) (*Manifest, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a manifest and normalises its base path.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	m.Base = NormalizeBase(m.Base)
	for i, r := range m.Routes {
		if r.Type == "" {
			m.Routes[i].Type = TypePage
		}
	}
	return &m, nil
}

// NormalizeBase returns base with a leading slash and no trailing slash.
// The root base is "/".
func NormalizeBase(base string) string {
	base = strings.Trim(base, "/")
	if base == "" {
		return "/"
	}
	return "/" + base
}

// Dynamic returns the routes rendered on demand, in manifest order.
func (m *Manifest) Dynamic() []Route {
	var out []Route
	for _, r := range m.Routes {
		if !r.Prerender {
			out = append(out, r)
		}
	}
	return out
}

var bracketRe = regexp.MustCompile(`\[([.\w-]+)\]`)

// Pattern converts the route's bracket notation to a chi pattern:
//
//	/blog/[slug]      → /blog/{slug}
//	/docs/[...path]   → /docs/*
//	/[lang]-[page]    → /{lang}-{page}
//
// A rest parameter is only allowed as the final segment.
func (r Route) Pattern() (string, error) {
	p := "/" + strings.Trim(r.Route, "/")

	var restErr error
	out := bracketRe.ReplaceAllStringFunc(p, func(match string) string {
		inner := match[1 : len(match)-1]
		if name, ok := strings.CutPrefix(inner, "..."); ok {
			if !strings.HasSuffix(p, match) || !strings.HasSuffix(strings.TrimSuffix(p, match), "/") {
				restErr = fmt.Errorf("route %q: rest parameter %q must be the last segment", r.Route, name)
			}
			return "*"
		}
		return "{" + inner + "}"
	})
	if restErr != nil {
		return "", restErr
	}
	return out, nil
}

// RestParam returns the name of the route's trailing rest parameter, if any.
func (r Route) RestParam() (string, bool) {
	for _, m := range bracketRe.FindAllStringSubmatch(r.Route, -1) {
		if name, ok := strings.CutPrefix(m[1], "..."); ok {
			return name, true
		}
	}
	return "", false
}
