package alias

import (
	"github.com/vango-dev/deno-adapter/pkg/rewrite"
)

// BundlerConfig is the subset of the framework's bundler configuration the
// adapter touches during build setup.
type BundlerConfig struct {
	Resolve *ResolveConfig
	Build   *BuildOptions
}

// ResolveConfig holds module resolution aliases. The framework stores them
// either as an ordered list or as a map; Alias takes precedence when it is
// non-nil.
type ResolveConfig struct {
	Alias    []Alias
	AliasMap map[string]string
}

// BuildOptions holds the externals and chunk plugins of the server build.
type BuildOptions struct {
	// External lists module specifiers left unbundled.
	External []string

	// ExternalFunc, when set, replaces the External list. The adapter
	// leaves a function-valued external untouched.
	ExternalFunc func(id string) bool

	// Plugins run over every emitted chunk.
	Plugins []rewrite.ChunkPlugin
}

// Options controls Apply.
type Options struct {
	// PrefixNpm adds the npm-prefix chunk plugin.
	PrefixNpm bool
}

// Apply installs the alias table, marks the marker import external and,
// optionally, registers the npm-prefix plugin. Applying it repeatedly leaves
// the configuration unchanged after the first call.
func Apply(cfg *BundlerConfig, opts Options) {
	if cfg.Resolve == nil {
		cfg.Resolve = &ResolveConfig{}
	}
	if cfg.Build == nil {
		cfg.Build = &BuildOptions{}
	}

	applyAliases(cfg.Resolve, Table())

	if cfg.Build.ExternalFunc == nil && !contains(cfg.Build.External, rewrite.MarkerPath) {
		cfg.Build.External = append(cfg.Build.External, rewrite.MarkerPath)
	}

	if opts.PrefixNpm && !hasPlugin(cfg.Build.Plugins, rewrite.NpmPrefixPluginName) {
		cfg.Build.Plugins = append(cfg.Build.Plugins, rewrite.NewNpmPrefix())
	}
}

func applyAliases(rc *ResolveConfig, aliases []Alias) {
	if rc.Alias != nil {
		present := make(map[string]struct{}, len(rc.Alias))
		for _, a := range rc.Alias {
			present[a.Find] = struct{}{}
		}
		for _, a := range aliases {
			if _, ok := present[a.Find]; ok {
				continue
			}
			rc.Alias = append(rc.Alias, a)
			present[a.Find] = struct{}{}
		}
		return
	}

	if rc.AliasMap == nil {
		rc.AliasMap = make(map[string]string, len(aliases))
	}
	for _, a := range aliases {
		rc.AliasMap[a.Find] = a.Replacement
	}
}

// ResolveAlias returns the configured replacement for spec, if any.
func (c *BundlerConfig) ResolveAlias(spec string) (string, bool) {
	if c == nil || c.Resolve == nil {
		return "", false
	}
	if c.Resolve.Alias != nil {
		for _, a := range c.Resolve.Alias {
			if a.Find == spec {
				return a.Replacement, true
			}
		}
		return "", false
	}
	r, ok := c.Resolve.AliasMap[spec]
	return r, ok
}

// IsExternal reports whether spec is left unbundled.
func (c *BundlerConfig) IsExternal(spec string) bool {
	if c == nil || c.Build == nil {
		return false
	}
	if c.Build.ExternalFunc != nil {
		return c.Build.ExternalFunc(spec)
	}
	return contains(c.Build.External, spec)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func hasPlugin(plugins []rewrite.ChunkPlugin, name string) bool {
	for _, p := range plugins {
		if p != nil && p.Name() == name {
			return true
		}
	}
	return false
}
