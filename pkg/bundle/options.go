package bundle

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/go-viper/mapstructure/v2"

	"github.com/vango-dev/deno-adapter/pkg/merge"
)

// ProcessBanner is prepended to the bundled output. It installs the runtime's
// process object as a global for bundled code written against Node.
const ProcessBanner = `import __denoAdapterProcess from "node:process";
globalThis.process ??= __denoAdapterProcess;`

// DefaultExternals are the runtime-native specifier patterns left unbundled.
var DefaultExternals = []string{"node:*", "jsr:*", "npm:*", "https:*", "http:*"}

// buildSpec is the decoded form of the merged option map.
type buildSpec struct {
	EntryPoints []string          `mapstructure:"entryPoints"`
	Outfile     string            `mapstructure:"outfile"`
	Format      string            `mapstructure:"format"`
	Platform    string            `mapstructure:"platform"`
	Target      string            `mapstructure:"target"`
	External    []string          `mapstructure:"external"`
	Banner      map[string]string `mapstructure:"banner"`
	Footer      map[string]string `mapstructure:"footer"`
	Define      map[string]string `mapstructure:"define"`
	Loader      map[string]string `mapstructure:"loader"`
	Conditions  []string          `mapstructure:"conditions"`
	MainFields  []string          `mapstructure:"mainFields"`
	Minify      bool              `mapstructure:"minify"`
	Sourcemap   string            `mapstructure:"sourcemap"`
	LogLevel    string            `mapstructure:"logLevel"`
	Tsconfig    string            `mapstructure:"tsconfig"`
}

// defaultOptions returns the option map the overrides are merged over.
func defaultOptions(entry, outfile string) map[string]any {
	external := make([]any, 0, len(DefaultExternals))
	for _, e := range DefaultExternals {
		external = append(external, e)
	}
	return map[string]any{
		"entryPoints": []any{entry},
		"outfile":     outfile,
		"format":      "esm",
		"platform":    "neutral",
		"target":      "esnext",
		"external":    external,
		"banner":      map[string]any{"js": ProcessBanner},
		"mainFields":  []any{"module", "main"},
		"logLevel":    "silent",
	}
}

// resolveSpec merges overrides over the defaults and decodes the result.
func resolveSpec(entry, outfile string, overrides map[string]any) (buildSpec, error) {
	merged := merge.Objects(defaultOptions(entry, outfile), overrides)

	var spec buildSpec
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &spec,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return spec, err
	}
	if err := dec.Decode(merged); err != nil {
		return spec, fmt.Errorf("decode bundler options: %w", err)
	}
	return spec, nil
}

func parseFormat(f string) (api.Format, error) {
	switch strings.ToLower(f) {
	case "", "esm":
		return api.FormatESModule, nil
	case "cjs":
		return api.FormatCommonJS, nil
	case "iife":
		return api.FormatIIFE, nil
	}
	return api.FormatDefault, fmt.Errorf("unknown format %q", f)
}

func parsePlatform(p string) (api.Platform, error) {
	switch strings.ToLower(p) {
	case "", "neutral":
		return api.PlatformNeutral, nil
	case "node":
		return api.PlatformNode, nil
	case "browser":
		return api.PlatformBrowser, nil
	}
	return api.PlatformNeutral, fmt.Errorf("unknown platform %q", p)
}

var targets = map[string]api.Target{
	"esnext": api.ESNext,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
}

func parseTarget(t string) (api.Target, error) {
	if t == "" {
		return api.ESNext, nil
	}
	if target, ok := targets[strings.ToLower(t)]; ok {
		return target, nil
	}
	return api.ESNext, fmt.Errorf("unknown target %q", t)
}

func parseSourcemap(s string) (api.SourceMap, error) {
	switch strings.ToLower(s) {
	case "", "none", "false":
		return api.SourceMapNone, nil
	case "linked", "true":
		return api.SourceMapLinked, nil
	case "inline":
		return api.SourceMapInline, nil
	case "external":
		return api.SourceMapExternal, nil
	case "both":
		return api.SourceMapInlineAndExternal, nil
	}
	return api.SourceMapNone, fmt.Errorf("unknown sourcemap mode %q", s)
}

func parseLogLevel(l string) (api.LogLevel, error) {
	switch strings.ToLower(l) {
	case "", "silent":
		return api.LogLevelSilent, nil
	case "error":
		return api.LogLevelError, nil
	case "warning":
		return api.LogLevelWarning, nil
	case "info":
		return api.LogLevelInfo, nil
	case "debug":
		return api.LogLevelDebug, nil
	case "verbose":
		return api.LogLevelVerbose, nil
	}
	return api.LogLevelSilent, fmt.Errorf("unknown log level %q", l)
}

var loaders = map[string]api.Loader{
	"js":      api.LoaderJS,
	"jsx":     api.LoaderJSX,
	"ts":      api.LoaderTS,
	"tsx":     api.LoaderTSX,
	"json":    api.LoaderJSON,
	"css":     api.LoaderCSS,
	"text":    api.LoaderText,
	"file":    api.LoaderFile,
	"base64":  api.LoaderBase64,
	"dataurl": api.LoaderDataURL,
	"binary":  api.LoaderBinary,
	"copy":    api.LoaderCopy,
	"empty":   api.LoaderEmpty,
}

func parseLoaders(m map[string]string) (map[string]api.Loader, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[string]api.Loader, len(m))
	for ext, name := range m {
		l, ok := loaders[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown loader %q for %q", name, ext)
		}
		out[ext] = l
	}
	return out, nil
}

// toBuildOptions converts the decoded spec into esbuild options.
func (s buildSpec) toBuildOptions() (api.BuildOptions, error) {
	var opts api.BuildOptions
	var err error

	if opts.Format, err = parseFormat(s.Format); err != nil {
		return opts, err
	}
	if opts.Platform, err = parsePlatform(s.Platform); err != nil {
		return opts, err
	}
	if opts.Target, err = parseTarget(s.Target); err != nil {
		return opts, err
	}
	if opts.Sourcemap, err = parseSourcemap(s.Sourcemap); err != nil {
		return opts, err
	}
	if opts.LogLevel, err = parseLogLevel(s.LogLevel); err != nil {
		return opts, err
	}
	if opts.Loader, err = parseLoaders(s.Loader); err != nil {
		return opts, err
	}

	opts.EntryPoints = s.EntryPoints
	opts.Outfile = s.Outfile
	opts.External = s.External
	opts.Banner = s.Banner
	opts.Footer = s.Footer
	opts.Define = s.Define
	opts.Conditions = s.Conditions
	opts.MainFields = s.MainFields
	opts.Tsconfig = s.Tsconfig
	opts.MinifySyntax = s.Minify
	opts.MinifyWhitespace = s.Minify
	opts.MinifyIdentifiers = s.Minify
	return opts, nil
}
