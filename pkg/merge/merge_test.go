package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjects_ConcatenatesArraysAndMergesObjects(t *testing.T) {
	src := map[string]any{
		"a": 1,
		"b": []any{1, 2, 3},
		"c": map[string]any{"d": 1},
	}
	other := map[string]any{
		"b": []any{4, 5, 6},
		"c": map[string]any{"e": 2},
	}

	got := Objects(src, other)

	assert.Equal(t, map[string]any{
		"a": 1,
		"b": []any{1, 2, 3, 4, 5, 6},
		"c": map[string]any{"d": 1, "e": 2},
	}, got)
}

func TestObjects_ScalarOverrideWins(t *testing.T) {
	got := Objects(
		map[string]any{"format": "esm", "minify": false, "nested": map[string]any{"x": 1}},
		map[string]any{"format": "cjs", "minify": true, "nested": map[string]any{"x": 2}},
	)

	assert.Equal(t, "cjs", got["format"])
	assert.Equal(t, true, got["minify"])
	assert.Equal(t, map[string]any{"x": 2}, got["nested"])
}

func TestObjects_NoOverridesReturnsBase(t *testing.T) {
	base := map[string]any{"a": 1, "b": []any{"x"}}

	got := Objects(base)

	assert.Equal(t, map[string]any{"a": 1, "b": []any{"x"}}, got)
	got["z"] = true
	assert.Equal(t, true, base["z"], "base is accumulated in place")
}

func TestObjects_NilBase(t *testing.T) {
	got := Objects(nil, map[string]any{"a": 1})
	assert.Equal(t, map[string]any{"a": 1}, got)
}

func TestObjects_MultipleOverridesApplyInOrder(t *testing.T) {
	got := Objects(
		map[string]any{"external": []any{"node:*"}, "target": "es2020"},
		map[string]any{"external": []any{"jsr:*"}, "target": "es2022"},
		map[string]any{"external": []any{"npm:*"}},
	)

	assert.Equal(t, []any{"node:*", "jsr:*", "npm:*"}, got["external"])
	assert.Equal(t, "es2022", got["target"])
}

func TestObjects_TypedSlices(t *testing.T) {
	got := Objects(
		map[string]any{"entryPoints": []string{"a.mjs"}},
		map[string]any{"entryPoints": []string{"b.mjs"}},
	)
	assert.Equal(t, []string{"a.mjs", "b.mjs"}, got["entryPoints"])

	mixed := Objects(
		map[string]any{"external": []string{"node:*"}},
		map[string]any{"external": []any{"jsr:*"}},
	)
	assert.Equal(t, []any{"node:*", "jsr:*"}, mixed["external"])
}

func TestObjects_DoesNotMutateOverride(t *testing.T) {
	nested := map[string]any{"js": "banner"}
	list := []any{"x"}
	other := map[string]any{"banner": nested, "external": list}

	got := Objects(map[string]any{}, other)
	got["banner"].(map[string]any)["css"] = "added"
	Objects(got, map[string]any{"external": []any{"y"}})

	assert.Equal(t, map[string]any{"js": "banner"}, nested)
	assert.Equal(t, []any{"x"}, list)
	assert.Equal(t, map[string]any{"banner": nested, "external": list}, other)
}

func TestObjects_ObjectReplacedByScalar(t *testing.T) {
	got := Objects(
		map[string]any{"sourcemap": map[string]any{"mode": "linked"}},
		map[string]any{"sourcemap": "inline"},
	)
	assert.Equal(t, "inline", got["sourcemap"])
}

func TestObjects_ArrayAppendsScalar(t *testing.T) {
	got := Objects(
		map[string]any{"external": []any{"node:*"}},
		map[string]any{"external": "jsr:*"},
	)
	assert.Equal(t, []any{"node:*", "jsr:*"}, got["external"])
}

func TestObjects_DeeplyNested(t *testing.T) {
	got := Objects(
		map[string]any{"a": map[string]any{"b": map[string]any{"c": []any{1}}}},
		map[string]any{"a": map[string]any{"b": map[string]any{"c": []any{2}, "d": "x"}}},
	)
	assert.Equal(t, map[string]any{"a": map[string]any{"b": map[string]any{"c": []any{1, 2}, "d": "x"}}}, got)
}

func TestClone(t *testing.T) {
	orig := map[string]any{"list": []any{map[string]any{"k": "v"}}, "names": []string{"a"}}

	cp := Clone(orig).(map[string]any)
	cp["list"].([]any)[0].(map[string]any)["k"] = "changed"
	cp["names"].([]string)[0] = "b"

	require.Equal(t, "v", orig["list"].([]any)[0].(map[string]any)["k"])
	require.Equal(t, "a", orig["names"].([]string)[0])
	assert.Equal(t, 5, Clone(5))
	assert.Nil(t, Clone(nil))
}
