package bundle

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/vango-dev/deno-adapter/pkg/alias"
	"github.com/vango-dev/deno-adapter/pkg/rewrite"
)

const (
	shimNamespace = "deno-imports"

	// shimPath names the shim module inside shimNamespace. esbuild writes it
	// into the output as a source comment.
	shimPath = "runtime-shim"
)

// ShimSource is the synthetic module served in place of the marker import.
var ShimSource = fmt.Sprintf("export { serveFile } from %q;\nexport { fromFileUrl } from %q;\n",
	rewrite.FileServerImport, rewrite.PathImport)

// shimPlugin resolves the marker import into its own namespace and loads it
// as ShimSource.
func shimPlugin(resolveDir string) api.Plugin {
	return api.Plugin{
		Name: "deno-imports-shim",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: "^" + regexp.QuoteMeta(rewrite.MarkerPath) + "$"},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{Path: shimPath, Namespace: shimNamespace}, nil
				})
			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: shimNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					contents := ShimSource
					return api.OnLoadResult{
						Contents:   &contents,
						ResolveDir: resolveDir,
						Loader:     api.LoaderJS,
					}, nil
				})
		},
	}
}

// aliasPlugin redirects aliased specifiers. Runtime-native replacements stay
// external; anything else is resolved by esbuild from the importer.
func aliasPlugin(aliases []alias.Alias) api.Plugin {
	index := make(map[string]string, len(aliases))
	names := make([]string, 0, len(aliases))
	for _, a := range aliases {
		if _, dup := index[a.Find]; dup {
			continue
		}
		index[a.Find] = a.Replacement
		names = append(names, regexp.QuoteMeta(a.Find))
	}
	sort.Strings(names)

	return api.Plugin{
		Name: "deno-adapter-alias",
		Setup: func(build api.PluginBuild) {
			if len(names) == 0 {
				return
			}
			build.OnResolve(api.OnResolveOptions{Filter: "^(" + strings.Join(names, "|") + ")$"},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					target, ok := index[args.Path]
					if !ok {
						return api.OnResolveResult{}, nil
					}
					if alias.IsRuntimeNative(target) {
						return api.OnResolveResult{Path: target, External: true}, nil
					}
					res := build.Resolve(target, api.ResolveOptions{
						Importer:   args.Importer,
						ResolveDir: args.ResolveDir,
						Kind:       args.Kind,
					})
					if len(res.Errors) > 0 {
						// Let esbuild report the original specifier.
						return api.OnResolveResult{}, nil
					}
					return api.OnResolveResult{
						Path:      res.Path,
						External:  res.External,
						Namespace: res.Namespace,
					}, nil
				})
		},
	}
}

// runtimeExternalPlugin keeps every runtime-native specifier external,
// including the ones imported from the shim namespace.
func runtimeExternalPlugin() api.Plugin {
	return api.Plugin{
		Name: "deno-runtime-external",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `^(node|jsr|npm|https?):`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{Path: args.Path, External: true}, nil
				})
		},
	}
}

// npmExternalPlugin rewrites user-declared bare package externals to npm:
// specifiers and records them.
func npmExternalPlugin(externals []string, record func(string)) api.Plugin {
	pkgs := make(map[string]bool)
	var names []string
	for _, e := range externals {
		if strings.Contains(e, "*") || !rewrite.IsPackageSpecifier(e) || pkgs[e] {
			continue
		}
		pkgs[e] = true
		names = append(names, regexp.QuoteMeta(e))
	}
	sort.Strings(names)

	return api.Plugin{
		Name: rewrite.NpmPrefixPluginName,
		Setup: func(build api.PluginBuild) {
			if len(names) == 0 {
				return
			}
			build.OnResolve(api.OnResolveOptions{Filter: "^(" + strings.Join(names, "|") + ")(/.*)?$"},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					record(args.Path)
					return api.OnResolveResult{Path: "npm:" + args.Path, External: true}, nil
				})
		},
	}
}
