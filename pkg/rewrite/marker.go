package rewrite

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// StdVersion is the version of the runtime standard library the generated
// imports point at.
const StdVersion = "1.0"

// MarkerPath is the placeholder module the server entry imports the
// runtime-native primitives from.
const MarkerPath = "@deno/astro-adapter/__deno_imports.ts"

const markerImportBase = "import { serveFile, fromFileUrl } from"

var (
	// FileServerImport is the runtime import that provides serveFile.
	FileServerImport = fmt.Sprintf("jsr:@std/http@%s/file-server", StdVersion)

	// PathImport is the runtime import that provides fromFileUrl.
	PathImport = fmt.Sprintf("jsr:@std/path@%s", StdVersion)

	// MarkerImport is the canonical (double-quoted) marker import statement.
	MarkerImport = fmt.Sprintf(`%s "%s";`, markerImportBase, MarkerPath)

	// LegacyMarkerImport is the single-quoted marker import statement emitted
	// by older bundler versions.
	LegacyMarkerImport = fmt.Sprintf(`%s '%s';`, markerImportBase, MarkerPath)

	// RuntimeImports replaces either marker statement.
	RuntimeImports = fmt.Sprintf("import { serveFile } from %q;\nimport { fromFileUrl } from %q;", FileServerImport, PathImport)
)

// HasMarker reports whether src contains either form of the marker import.
func HasMarker(src string) bool {
	return strings.Contains(src, LegacyMarkerImport) || strings.Contains(src, MarkerImport)
}

// RewriteChunk replaces the marker import statement in src with the runtime
// imports. The second result is false, and src is returned unchanged, when
// neither marker form is present.
func RewriteChunk(src string) (string, bool) {
	if !HasMarker(src) {
		return src, false
	}
	out := strings.Replace(src, LegacyMarkerImport, RuntimeImports, 1)
	out = strings.Replace(out, MarkerImport, RuntimeImports, 1)
	return out, true
}

// RewriteChunks rewrites every ".mjs" file directly inside dir that contains
// the marker import. It returns the names of the rewritten files in lexical
// order. A missing dir is an error.
func RewriteChunks(fsys afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read chunks dir: %w", err)
	}

	var rewritten []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mjs") {
			continue
		}
		p := filepath.Join(dir, entry.Name())
		data, err := afero.ReadFile(fsys, p)
		if err != nil {
			return rewritten, fmt.Errorf("read chunk %s: %w", entry.Name(), err)
		}
		out, changed := RewriteChunk(string(data))
		if !changed {
			continue
		}
		if err := afero.WriteFile(fsys, p, []byte(out), entry.Mode().Perm()); err != nil {
			return rewritten, fmt.Errorf("write chunk %s: %w", entry.Name(), err)
		}
		rewritten = append(rewritten, entry.Name())
	}
	sort.Strings(rewritten)
	return rewritten, nil
}
