package adapter

import (
	"path/filepath"
)

const (
	// Name identifies the adapter and the integration.
	Name = "@deno/astro-adapter"

	// ServerEntrypoint is the module the framework builds the server from.
	ServerEntrypoint = "@deno/astro-adapter/server.ts"
)

// Exports are the names the server entrypoint exports to the runtime.
var Exports = []string{"stop", "handle", "start", "running"}

// Support is the support level of a framework feature.
type Support string

const (
	Stable       Support = "stable"
	Experimental Support = "experimental"
	Unsupported  Support = "unsupported"
)

// SupportedFeatures lists output modes and services the adapter supports.
type SupportedFeatures struct {
	HybridOutput      Support `json:"hybridOutput"`
	StaticOutput      Support `json:"staticOutput"`
	ServerOutput      Support `json:"serverOutput"`
	SharpImageService Support `json:"sharpImageService"`
}

// AdapterFeatures lists adapter-level capabilities.
type AdapterFeatures struct {
	EnvGetSecret Support `json:"envGetSecret"`
}

// Args are the options handed to the server entrypoint at runtime.
type Args struct {
	Options

	// RelativeClientPath locates the client directory from the server
	// entry file. It always ends with "/".
	RelativeClientPath string `json:"relativeClientPath"`
}

// Adapter is the descriptor registered with the framework.
type Adapter struct {
	Name              string            `json:"name"`
	ServerEntrypoint  string            `json:"serverEntrypoint"`
	Args              Args              `json:"args"`
	Exports           []string          `json:"exports"`
	SupportedFeatures SupportedFeatures `json:"supportedAstroFeatures"`
	AdapterFeatures   AdapterFeatures   `json:"adapterFeatures"`
}

// GetAdapter builds the adapter descriptor for opts and the finalized
// framework configuration.
func GetAdapter(opts Options, cfg FrameworkConfig) Adapter {
	return Adapter{
		Name:             Name,
		ServerEntrypoint: ServerEntrypoint,
		Args: Args{
			Options:            opts,
			RelativeClientPath: RelativeClientPath(cfg.Build),
		},
		Exports: append([]string(nil), Exports...),
		SupportedFeatures: SupportedFeatures{
			HybridOutput:      Stable,
			StaticOutput:      Stable,
			ServerOutput:      Stable,
			SharpImageService: Stable,
		},
		AdapterFeatures: AdapterFeatures{
			EnvGetSecret: Stable,
		},
	}
}

// RelativeClientPath returns the client directory relative to the server
// entry file, with a trailing slash:
//
//	server dist/server, entry entry.mjs, client dist/client → ../../client/
func RelativeClientPath(b BuildConfig) string {
	serverPath := filepath.Join(b.Server, b.ServerEntry)
	rel, err := filepath.Rel(serverPath, filepath.Clean(b.Client))
	if err != nil {
		rel = filepath.Clean(b.Client)
	}
	return filepath.ToSlash(rel) + "/"
}
