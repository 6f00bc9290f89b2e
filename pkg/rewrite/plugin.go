package rewrite

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Chunk describes one emitted output file.
type Chunk struct {
	// FileName is the chunk's output name relative to the output directory.
	FileName string

	// Imports lists the module specifiers the chunk imports.
	Imports []string
}

// ChunkPlugin rewrites emitted chunk code after bundling.
type ChunkPlugin interface {
	Name() string
	RenderChunk(code string, chunk Chunk) (string, error)
}

// ApplyPlugins runs every plugin over code in order.
func ApplyPlugins(plugins []ChunkPlugin, code string, chunk Chunk) (string, error) {
	for _, p := range plugins {
		out, err := p.RenderChunk(code, chunk)
		if err != nil {
			return code, fmt.Errorf("plugin %s: chunk %s: %w", p.Name(), chunk.FileName, err)
		}
		code = out
	}
	return code, nil
}

// NpmPrefixPluginName is the name reported by NpmPrefix.
const NpmPrefixPluginName = "npm-prefix-resolver"

var singleQuoted = regexp.MustCompile(`'([^']+)'`)

// NpmPrefix rewrites bare package imports to the "npm:" scheme.
//
// Package specifiers are collected from the import list of every chunk the
// plugin renders, so a specifier seen in an earlier chunk is also rewritten
// in later ones. Within a chunk, every single-quoted string literal whose
// contents is a collected specifier becomes 'npm:<specifier>'.
type NpmPrefix struct {
	mu       sync.Mutex
	packages map[string]struct{}
}

// NewNpmPrefix creates an npm prefix plugin with an empty specifier set.
func NewNpmPrefix() *NpmPrefix {
	return &NpmPrefix{packages: make(map[string]struct{})}
}

// Name implements ChunkPlugin.
func (p *NpmPrefix) Name() string { return NpmPrefixPluginName }

// RenderChunk implements ChunkPlugin.
func (p *NpmPrefix) RenderChunk(code string, chunk Chunk) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.packages == nil {
		p.packages = make(map[string]struct{})
	}
	for _, spec := range chunk.Imports {
		if IsPackageSpecifier(spec) {
			p.packages[spec] = struct{}{}
		}
	}
	if len(p.packages) == 0 {
		return code, nil
	}

	return singleQuoted.ReplaceAllStringFunc(code, func(match string) string {
		word := match[1 : len(match)-1]
		if _, ok := p.packages[word]; ok {
			return "'npm:" + word + "'"
		}
		return match
	}), nil
}

// Packages returns the specifiers collected so far.
func (p *NpmPrefix) Packages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.packages))
	for spec := range p.packages {
		out = append(out, spec)
	}
	return out
}

var compiledSuffixes = []string{".mjs", ".js", ".ts"}

// IsPackageSpecifier reports whether spec names a package rather than a
// relative path, an absolute path, a compiled output file or a
// scheme-qualified module (node:, jsr:, npm:, https:).
func IsPackageSpecifier(spec string) bool {
	if spec == "" {
		return false
	}
	if strings.HasPrefix(spec, ".") || strings.HasPrefix(spec, "/") {
		return false
	}
	for _, suffix := range compiledSuffixes {
		if strings.HasSuffix(spec, suffix) {
			return false
		}
	}
	if i := strings.Index(spec, ":"); i > 0 && !strings.HasPrefix(spec, "@") {
		return false
	}
	return true
}

var importSpecifier = regexp.MustCompile(`(?:\bfrom\s*|\bimport\s*\(?\s*)["']([^"']+)["']`)

// ChunkImports extracts the static and dynamic import specifiers of a
// compiled chunk, in order of first appearance. It is used when no bundler
// metadata is available for the chunk.
func ChunkImports(code string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range importSpecifier.FindAllStringSubmatch(code, -1) {
		spec := m[1]
		if _, ok := seen[spec]; ok {
			continue
		}
		seen[spec] = struct{}{}
		out = append(out, spec)
	}
	return out
}
