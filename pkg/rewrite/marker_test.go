package rewrite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chunkTail = "\nexport function start() { return serveFile; }\n"

func TestMarkerStatements(t *testing.T) {
	assert.Equal(t, `import { serveFile, fromFileUrl } from "@deno/astro-adapter/__deno_imports.ts";`, MarkerImport)
	assert.Equal(t, `import { serveFile, fromFileUrl } from '@deno/astro-adapter/__deno_imports.ts';`, LegacyMarkerImport)
	assert.Equal(t, "import { serveFile } from \"jsr:@std/http@1.0/file-server\";\nimport { fromFileUrl } from \"jsr:@std/path@1.0\";", RuntimeImports)
}

func TestRewriteChunk_Legacy(t *testing.T) {
	out, changed := RewriteChunk(LegacyMarkerImport + chunkTail)

	require.True(t, changed)
	assert.Equal(t, RuntimeImports+chunkTail, out)
}

func TestRewriteChunk_Canonical(t *testing.T) {
	out, changed := RewriteChunk(MarkerImport + chunkTail)

	require.True(t, changed)
	assert.Equal(t, RuntimeImports+chunkTail, out)
}

func TestRewriteChunk_NoMarkerIsByteIdentical(t *testing.T) {
	src := "import { x } from './x.mjs';\n" + chunkTail

	out, changed := RewriteChunk(src)

	assert.False(t, changed)
	assert.Equal(t, src, out)
}

func TestRewriteChunk_Idempotent(t *testing.T) {
	once, _ := RewriteChunk(MarkerImport + chunkTail)
	twice, changed := RewriteChunk(once)

	assert.False(t, changed)
	assert.Equal(t, once, twice)
	assert.False(t, HasMarker(twice))
}

func TestRewriteChunks_InMemory(t *testing.T) {
	fsys := afero.NewMemMapFs()
	dir := "/dist/server/chunks"
	require.NoError(t, afero.WriteFile(fsys, dir+"/a.mjs", []byte(MarkerImport+chunkTail), 0o644))
	require.NoError(t, afero.WriteFile(fsys, dir+"/b.mjs", []byte(LegacyMarkerImport+chunkTail), 0o644))
	require.NoError(t, afero.WriteFile(fsys, dir+"/c.mjs", []byte("export const c = 1;\n"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, dir+"/d.js", []byte(MarkerImport), 0o644))
	require.NoError(t, fsys.MkdirAll(dir+"/nested.mjs", 0o755))

	rewritten, err := RewriteChunks(fsys, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.mjs", "b.mjs"}, rewritten)

	for _, name := range []string{"a.mjs", "b.mjs"} {
		data, err := afero.ReadFile(fsys, dir+"/"+name)
		require.NoError(t, err)
		assert.Equal(t, RuntimeImports+chunkTail, string(data), name)
	}

	c, _ := afero.ReadFile(fsys, dir+"/c.mjs")
	assert.Equal(t, "export const c = 1;\n", string(c))
	d, _ := afero.ReadFile(fsys, dir+"/d.js")
	assert.Equal(t, MarkerImport, string(d), "only .mjs chunks are rewritten")

	again, err := RewriteChunks(fsys, dir)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestRewriteChunks_OnDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chunks")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "entry_abc.mjs"), []byte(MarkerImport+chunkTail), 0o644))

	rewritten, err := RewriteChunks(afero.NewOsFs(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"entry_abc.mjs"}, rewritten)

	data, err := os.ReadFile(filepath.Join(dir, "entry_abc.mjs"))
	require.NoError(t, err)
	assert.Contains(t, string(data), FileServerImport)
	assert.Contains(t, string(data), PathImport)
}

func TestRewriteChunks_MissingDir(t *testing.T) {
	_, err := RewriteChunks(afero.NewMemMapFs(), "/nope/chunks")
	assert.Error(t, err)
}
