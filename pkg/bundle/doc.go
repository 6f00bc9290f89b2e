// Package bundle produces a single self-contained server entry file with
// esbuild.
//
// The bundle step is the alternative to leaving the marker import external
// and patching chunks afterwards: the marker module is intercepted while
// bundling and replaced by a synthetic module that re-exports the runtime's
// file-serving primitives, every runtime-native specifier (node:, jsr:, npm:,
// http(s):) passes through as an external import, and a banner installs a
// process global for dependencies that expect one.
//
//	res, err := bundle.Bundle(ctx, bundle.Options{
//	    Entry:     "dist/server/entry.mjs",
//	    Overrides: map[string]any{"minify": true},
//	})
//
// Overrides are deep-merged over the defaults with package merge, so list
// options such as "external" extend the defaults instead of replacing them.
package bundle
