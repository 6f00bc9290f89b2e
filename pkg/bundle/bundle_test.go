package bundle

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adaptererrors "github.com/vango-dev/deno-adapter/internal/errors"
	"github.com/vango-dev/deno-adapter/pkg/rewrite"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

const entrySource = `import { serveFile, fromFileUrl } from "@deno/astro-adapter/__deno_imports.ts";
import { readFileSync } from "fs";
import { greet } from "./util.mjs";

export function handle(req) {
  return [serveFile, fromFileUrl, readFileSync, greet(req)];
}
`

func setupEntry(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "util.mjs"), `export function greet(n) { return "hello " + n; }`)
	entry := filepath.Join(dir, "entry.mjs")
	writeFile(t, entry, entrySource)
	return entry
}

func TestBundle_ReplacesEntryInPlace(t *testing.T) {
	entry := setupEntry(t)

	res, err := Bundle(context.Background(), Options{Entry: entry})
	require.NoError(t, err)
	require.Equal(t, []string{entry}, res.Files)

	out := readFile(t, entry)
	assert.True(t, strings.HasPrefix(out, ProcessBanner), "banner must lead the output")
	assert.Contains(t, out, `"jsr:@std/http@1.0/file-server"`)
	assert.Contains(t, out, `"jsr:@std/path@1.0"`)
	assert.Contains(t, out, `"node:fs"`)
	assert.Contains(t, out, "hello ")
	assert.NotContains(t, out, rewrite.MarkerPath)
	assert.Contains(t, out, shimNamespace+":"+shimPath)
	assert.NotContains(t, out, "./util.mjs")
}

func TestBundle_SeparateOutfile(t *testing.T) {
	entry := setupEntry(t)
	out := filepath.Join(filepath.Dir(entry), "out", "server.mjs")

	res, err := Bundle(context.Background(), Options{Entry: entry, Outfile: out})
	require.NoError(t, err)
	assert.Equal(t, []string{out}, res.Files)
	assert.Equal(t, entrySource, readFile(t, entry))
	assert.Contains(t, readFile(t, out), `"node:fs"`)
}

func TestBundle_OverridesExtendExternals(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "entry.mjs")
	writeFile(t, entry, `import { h } from "preact";
export const v = h;
`)

	res, err := Bundle(context.Background(), Options{
		Entry:     entry,
		PrefixNpm: true,
		Overrides: map[string]any{"external": []any{"preact"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"preact"}, res.NpmPackages)

	out := readFile(t, entry)
	assert.Contains(t, out, `"npm:preact"`)
}

func TestBundle_ExternalWithoutPrefix(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "entry.mjs")
	writeFile(t, entry, `import { h } from "preact";
export const v = h;
`)

	res, err := Bundle(context.Background(), Options{
		Entry:     entry,
		Overrides: map[string]any{"external": []any{"preact"}},
	})
	require.NoError(t, err)
	assert.Empty(t, res.NpmPackages)
	out := readFile(t, entry)
	assert.Contains(t, out, `"preact"`)
	assert.NotContains(t, out, "npm:preact")
}

func TestBundle_RunsChunkPlugins(t *testing.T) {
	entry := setupEntry(t)

	var seen rewrite.Chunk
	p := recordingPlugin{seen: &seen}
	_, err := Bundle(context.Background(), Options{Entry: entry, Plugins: []rewrite.ChunkPlugin{p}})
	require.NoError(t, err)

	assert.Equal(t, "entry.mjs", seen.FileName)
	assert.Contains(t, seen.Imports, "node:fs")
	assert.True(t, strings.HasSuffix(readFile(t, entry), "// recorded\n"))
}

func TestBundle_ResolveErrorIsReported(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "entry.mjs")
	writeFile(t, entry, `import "./missing.mjs";`)

	_, err := Bundle(context.Background(), Options{Entry: entry})
	require.Error(t, err)
	assert.True(t, adaptererrors.HasCode(err, "E163"))
	assert.Equal(t, `import "./missing.mjs";`, readFile(t, entry), "entry must be untouched on failure")
}

func TestBundle_InvalidOverrides(t *testing.T) {
	entry := setupEntry(t)

	_, err := Bundle(context.Background(), Options{Entry: entry, Overrides: map[string]any{"format": "amd"}})
	require.Error(t, err)
	assert.True(t, adaptererrors.HasCode(err, "E123"))

	_, err = Bundle(context.Background(), Options{Entry: entry, Overrides: map[string]any{"noSuchOption": true}})
	require.Error(t, err)
	assert.True(t, adaptererrors.HasCode(err, "E123"))
}

func TestBundle_CanceledContext(t *testing.T) {
	entry := setupEntry(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Bundle(ctx, Options{Entry: entry})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, entrySource, readFile(t, entry))
}

func TestResolveSpec_MergesOverDefaults(t *testing.T) {
	spec, err := resolveSpec("/a/entry.mjs", "/a/out.mjs", map[string]any{
		"external": []any{"left-pad"},
		"banner":   map[string]any{"css": "/* x */"},
		"minify":   true,
	})
	require.NoError(t, err)

	assert.Equal(t, append(append([]string{}, DefaultExternals...), "left-pad"), spec.External)
	assert.Equal(t, ProcessBanner, spec.Banner["js"])
	assert.Equal(t, "/* x */", spec.Banner["css"])
	assert.True(t, spec.Minify)
	assert.Equal(t, "esm", spec.Format)
	assert.Equal(t, []string{"/a/entry.mjs"}, spec.EntryPoints)
}

type recordingPlugin struct{ seen *rewrite.Chunk }

func (recordingPlugin) Name() string { return "recording" }

func (p recordingPlugin) RenderChunk(code string, chunk rewrite.Chunk) (string, error) {
	*p.seen = chunk
	return code + "// recorded\n", nil
}
