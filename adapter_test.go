package adapter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAdapter(t *testing.T) {
	opts := Options{Port: 9000, PrefixNpmForDenoDeploy: true}
	a := GetAdapter(opts, FrameworkConfig{Build: BuildConfig{
		Client:      "/app/dist/client/",
		Server:      "/app/dist/server/",
		ServerEntry: "entry.mjs",
	}})

	assert.Equal(t, "@deno/astro-adapter", a.Name)
	assert.Equal(t, "@deno/astro-adapter/server.ts", a.ServerEntrypoint)
	assert.Equal(t, []string{"stop", "handle", "start", "running"}, a.Exports)
	assert.Equal(t, 9000, a.Args.Port)
	assert.True(t, a.Args.PrefixNpmForDenoDeploy)
	assert.Equal(t, "../../client/", a.Args.RelativeClientPath)
	assert.Equal(t, Stable, a.SupportedFeatures.SharpImageService)
	assert.Equal(t, Stable, a.AdapterFeatures.EnvGetSecret)

	// Exports are copied per descriptor.
	a.Exports[0] = "changed"
	assert.Equal(t, "stop", Exports[0])
}

func TestAdapterJSON(t *testing.T) {
	a := GetAdapter(Options{Hostname: "127.0.0.1"}, FrameworkConfig{Build: BuildConfig{
		Client: "dist/client", Server: "dist/server", ServerEntry: "entry.mjs",
	}})
	data, err := json.Marshal(a)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	args := decoded["args"].(map[string]any)
	assert.Equal(t, "127.0.0.1", args["hostname"])
	assert.Equal(t, "../../client/", args["relativeClientPath"])
	features := decoded["supportedAstroFeatures"].(map[string]any)
	assert.Equal(t, "stable", features["hybridOutput"])
}

func TestRelativeClientPath(t *testing.T) {
	tests := []struct {
		b    BuildConfig
		want string
	}{
		{BuildConfig{Client: "dist/client", Server: "dist/server", ServerEntry: "entry.mjs"}, "../../client/"},
		{BuildConfig{Client: "/out/client/", Server: "/out/server/", ServerEntry: "index.mjs"}, "../../client/"},
		{BuildConfig{Client: "/srv/public", Server: "/srv", ServerEntry: "entry.mjs"}, "../public/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RelativeClientPath(tt.b))
	}
}

func TestOptions(t *testing.T) {
	assert.True(t, Options{}.StartEnabled())
	f := false
	assert.False(t, Options{Start: &f}.StartEnabled())

	env := func(v string) func(string) (string, bool) {
		return func(k string) (string, bool) {
			if k == BundleEnv && v != "" {
				return v, true
			}
			return "", false
		}
	}
	assert.False(t, Options{}.bundleRequested(env("")))
	assert.True(t, Options{}.bundleRequested(env("true")))
	assert.True(t, Options{}.bundleRequested(env(" 1 ")))
	assert.False(t, Options{}.bundleRequested(env("nope")))
	assert.True(t, Options{Bundle: true}.bundleRequested(env("")))

	so := Options{Port: 1, Hostname: "h", Start: &f, MetricsPath: "/m"}.ServerOptions("/c")
	assert.Equal(t, 1, so.Port)
	assert.Equal(t, "h", so.Hostname)
	assert.Equal(t, "/c", so.ClientDir)
	assert.Equal(t, "/m", so.MetricsPath)
	assert.False(t, *so.Start)
}
