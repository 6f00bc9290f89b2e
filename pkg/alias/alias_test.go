package alias

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/deno-adapter/pkg/rewrite"
)

func TestTable_EveryNodeModuleMapsToRuntimePrefix(t *testing.T) {
	table := Table()
	require.Len(t, table, len(NodeModules)+1)

	for _, mod := range NodeModules {
		got, ok := Lookup(mod)
		require.True(t, ok, mod)
		assert.Equal(t, "node:"+mod, got)
	}

	got, ok := Lookup("react-dom/server")
	require.True(t, ok)
	assert.Equal(t, "react-dom/server.browser", got)
}

func TestLookup_ExactMatchOnly(t *testing.T) {
	for _, spec := range []string{"fs/promises/extra", "node:fs", "f", "fs/", "react-dom"} {
		_, ok := Lookup(spec)
		assert.False(t, ok, spec)
	}
}

func TestApply_NilConfigDefaultsToMap(t *testing.T) {
	cfg := &BundlerConfig{}

	Apply(cfg, Options{})

	require.NotNil(t, cfg.Resolve)
	require.NotNil(t, cfg.Build)
	assert.Nil(t, cfg.Resolve.Alias)
	assert.Len(t, cfg.Resolve.AliasMap, len(NodeModules)+1)
	assert.Equal(t, "node:fs", cfg.Resolve.AliasMap["fs"])
	assert.Equal(t, []string{rewrite.MarkerPath}, cfg.Build.External)
	assert.Empty(t, cfg.Build.Plugins)
}

func TestApply_ListStoreIsIdempotent(t *testing.T) {
	cfg := &BundlerConfig{
		Resolve: &ResolveConfig{Alias: []Alias{{Find: "~", Replacement: "/src"}}},
		Build:   &BuildOptions{External: []string{"sharp"}},
	}

	Apply(cfg, Options{PrefixNpm: true})
	first := append([]Alias(nil), cfg.Resolve.Alias...)
	Apply(cfg, Options{PrefixNpm: true})

	assert.Equal(t, first, cfg.Resolve.Alias)
	assert.Len(t, cfg.Resolve.Alias, len(NodeModules)+2)
	assert.Equal(t, Alias{Find: "~", Replacement: "/src"}, cfg.Resolve.Alias[0])
	assert.Equal(t, []string{"sharp", rewrite.MarkerPath}, cfg.Build.External)
	require.Len(t, cfg.Build.Plugins, 1)
	assert.Equal(t, rewrite.NpmPrefixPluginName, cfg.Build.Plugins[0].Name())
}

func TestApply_ListStoreKeepsUserAlias(t *testing.T) {
	cfg := &BundlerConfig{
		Resolve: &ResolveConfig{Alias: []Alias{{Find: "fs", Replacement: "memfs"}}},
	}

	Apply(cfg, Options{})

	got, ok := cfg.ResolveAlias("fs")
	require.True(t, ok)
	assert.Equal(t, "memfs", got)
	got, _ = cfg.ResolveAlias("path")
	assert.Equal(t, "node:path", got)
}

func TestApply_MapStoreOverwritesHarmlessly(t *testing.T) {
	cfg := &BundlerConfig{
		Resolve: &ResolveConfig{AliasMap: map[string]string{"fs": "memfs", "@": "/src"}},
	}

	Apply(cfg, Options{})
	Apply(cfg, Options{})

	assert.Equal(t, "node:fs", cfg.Resolve.AliasMap["fs"])
	assert.Equal(t, "/src", cfg.Resolve.AliasMap["@"])
	assert.Len(t, cfg.Resolve.AliasMap, len(NodeModules)+2)
	assert.Equal(t, []string{rewrite.MarkerPath}, cfg.Build.External)
}

func TestApply_ExternalFuncLeftUntouched(t *testing.T) {
	fn := func(id string) bool { return strings.HasPrefix(id, "virtual:") }
	cfg := &BundlerConfig{Build: &BuildOptions{ExternalFunc: fn}}

	Apply(cfg, Options{})

	assert.Nil(t, cfg.Build.External)
	assert.True(t, cfg.IsExternal("virtual:x"))
	assert.False(t, cfg.IsExternal(rewrite.MarkerPath))
}

func TestIsExternal(t *testing.T) {
	cfg := &BundlerConfig{}
	assert.False(t, cfg.IsExternal(rewrite.MarkerPath))
	Apply(cfg, Options{})
	assert.True(t, cfg.IsExternal(rewrite.MarkerPath))

	var nilCfg *BundlerConfig
	assert.False(t, nilCfg.IsExternal("x"))
	_, ok := nilCfg.ResolveAlias("fs")
	assert.False(t, ok)
}

func TestIsRuntimeNative(t *testing.T) {
	assert.True(t, IsRuntimeNative("node:fs"))
	assert.True(t, IsRuntimeNative("jsr:@std/path@1.0"))
	assert.True(t, IsRuntimeNative("npm:react"))
	assert.False(t, IsRuntimeNative("react"))
	assert.False(t, IsRuntimeNative("./local.mjs"))
}
