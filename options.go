package adapter

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/deno-adapter/pkg/server"
)

// BundleEnv selects the bundled strategy when set to a true value.
const BundleEnv = "DENO_ADAPTER_BUNDLE"

// Options are the user-facing adapter options.
type Options struct {
	// Port defaults to 8085.
	Port int `json:"port,omitempty"`

	// Hostname defaults to 0.0.0.0.
	Hostname string `json:"hostname,omitempty"`

	// Start, when explicitly false, keeps the server from listening on
	// import. Defaults to true.
	Start *bool `json:"start,omitempty"`

	// PrefixNpmForDenoDeploy rewrites bare package imports left in the
	// server output to npm: specifiers.
	PrefixNpmForDenoDeploy bool `json:"prefixNpmForDenoDeploy,omitempty"`

	// Bundle produces a single self-contained server entry with esbuild
	// instead of patching the emitted chunks.
	Bundle bool `json:"bundle,omitempty"`

	// Esbuild options are deep-merged over the bundler defaults.
	Esbuild map[string]any `json:"esbuild,omitempty"`

	// Publish uploads the client output to S3 after the build.
	Publish *PublishOptions `json:"publish,omitempty"`

	// TrustedProxies, Upstream and MetricsPath configure the runtime server.
	TrustedProxies  []string      `json:"trustedProxies,omitempty"`
	Upstream        string        `json:"upstream,omitempty"`
	MetricsPath     string        `json:"metricsPath,omitempty"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout,omitempty"`
}

// PublishOptions configure the client asset upload.
type PublishOptions struct {
	Enabled      bool   `json:"enabled"`
	Bucket       string `json:"bucket"`
	Prefix       string `json:"prefix,omitempty"`
	Region       string `json:"region,omitempty"`
	Endpoint     string `json:"endpoint,omitempty"`
	Concurrency  int    `json:"concurrency,omitempty"`
	CacheControl string `json:"cacheControl,omitempty"`
	SkipHTML     bool   `json:"skipHTML,omitempty"`
}

// StartEnabled reports whether the server starts on import.
func (o Options) StartEnabled() bool {
	return o.Start == nil || *o.Start
}

// bundleRequested reports whether the bundled strategy is selected, by
// option or by environment.
func (o Options) bundleRequested(lookup func(string) (string, bool)) bool {
	if o.Bundle {
		return true
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, ok := lookup(BundleEnv)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}

// ServerOptions converts o into request handler options for the given
// client directory.
func (o Options) ServerOptions(clientDir string) server.Options {
	return server.Options{
		Port:            o.Port,
		Hostname:        o.Hostname,
		Start:           o.Start,
		ClientDir:       clientDir,
		TrustedProxies:  o.TrustedProxies,
		MetricsPath:     o.MetricsPath,
		ShutdownTimeout: o.ShutdownTimeout,
	}
}

// FrameworkConfig is the part of the finalized framework configuration the
// adapter reads.
type FrameworkConfig struct {
	Build BuildConfig
}

// BuildConfig locates the build output. Client and Server are directories;
// ServerEntry is a file name inside Server.
type BuildConfig struct {
	Client      string
	Server      string
	ServerEntry string
	Assets      string
}
