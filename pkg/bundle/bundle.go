package bundle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/afero"

	"github.com/vango-dev/deno-adapter/internal/errors"
	"github.com/vango-dev/deno-adapter/pkg/alias"
	"github.com/vango-dev/deno-adapter/pkg/rewrite"
)

// Options configures Bundle.
type Options struct {
	// Entry is the server entry file. Required.
	Entry string

	// Outfile defaults to Entry, replacing it in place.
	Outfile string

	// WorkDir anchors relative paths and the metafile. Defaults to the
	// directory of Entry.
	WorkDir string

	// Aliases defaults to alias.Table().
	Aliases []alias.Alias

	// PrefixNpm rewrites user-declared bare package externals to npm:
	// specifiers.
	PrefixNpm bool

	// Plugins run over each output file before it is written.
	Plugins []rewrite.ChunkPlugin

	// Overrides are deep-merged over the default bundler options.
	Overrides map[string]any

	// Fs receives the output files. Defaults to the OS filesystem.
	Fs afero.Fs

	Logger *slog.Logger
}

// Result describes a completed bundle.
type Result struct {
	// Files are the absolute paths written.
	Files []string

	// Warnings are esbuild's formatted warnings.
	Warnings []string

	// NpmPackages lists the specifiers rewritten to npm:.
	NpmPackages []string
}

type metafile struct {
	Outputs map[string]struct {
		Imports []struct {
			Path     string `json:"path"`
			Kind     string `json:"kind"`
			External bool   `json:"external"`
		} `json:"imports"`
	} `json:"outputs"`
}

// Bundle bundles the server entry into a single file. A bundle either
// completes or fails; ctx is only checked before esbuild starts.
func Bundle(ctx context.Context, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Entry == "" {
		return nil, errors.New("E163").WithDetail("no entry file given")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "bundle")

	entry, err := filepath.Abs(opts.Entry)
	if err != nil {
		return nil, errors.New("E163").Wrap(err)
	}
	outfile := opts.Outfile
	if outfile == "" {
		outfile = entry
	}
	if outfile, err = filepath.Abs(outfile); err != nil {
		return nil, errors.New("E163").Wrap(err)
	}
	workDir := opts.WorkDir
	if workDir == "" {
		workDir = filepath.Dir(entry)
	}
	if workDir, err = filepath.Abs(workDir); err != nil {
		return nil, errors.New("E163").Wrap(err)
	}
	aliases := opts.Aliases
	if aliases == nil {
		aliases = alias.Table()
	}
	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	spec, err := resolveSpec(entry, outfile, opts.Overrides)
	if err != nil {
		return nil, errors.New("E123").WithDetail("invalid bundler options").Wrap(err)
	}
	buildOpts, err := spec.toBuildOptions()
	if err != nil {
		return nil, errors.New("E123").WithDetail("invalid bundler options").Wrap(err)
	}

	var (
		mu      sync.Mutex
		npmSeen = make(map[string]bool)
	)
	record := func(p string) {
		mu.Lock()
		npmSeen[p] = true
		mu.Unlock()
	}

	plugins := []api.Plugin{shimPlugin(workDir), aliasPlugin(aliases)}
	if opts.PrefixNpm {
		plugins = append(plugins, npmExternalPlugin(spec.External, record))
	}
	plugins = append(plugins, runtimeExternalPlugin())

	buildOpts.Bundle = true
	buildOpts.Write = false
	buildOpts.Metafile = true
	buildOpts.AllowOverwrite = true
	buildOpts.AbsWorkingDir = workDir
	buildOpts.Plugins = plugins

	logger.Info("bundling server entry", "entry", entry, "outfile", outfile)
	result := api.Build(buildOpts)

	res := &Result{}
	if len(result.Warnings) > 0 {
		res.Warnings = api.FormatMessages(result.Warnings, api.FormatMessagesOptions{Kind: api.WarningMessage})
		for _, w := range res.Warnings {
			logger.Warn("esbuild warning", "message", strings.TrimSpace(w))
		}
	}
	if len(result.Errors) > 0 {
		msgs := api.FormatMessages(result.Errors, api.FormatMessagesOptions{Kind: api.ErrorMessage})
		return nil, errors.New("E163").
			WithPath(entry).
			WithDetail(strings.TrimSpace(strings.Join(msgs, ""))).
			Wrap(fmt.Errorf("esbuild reported %d error(s)", len(result.Errors)))
	}

	var meta metafile
	if result.Metafile != "" {
		if err := json.Unmarshal([]byte(result.Metafile), &meta); err != nil {
			return nil, errors.New("E163").WithDetail("unreadable metafile").Wrap(err)
		}
	}

	for _, of := range result.OutputFiles {
		code := string(of.Contents)
		if len(opts.Plugins) > 0 {
			chunk := rewrite.Chunk{FileName: filepath.Base(of.Path)}
			if rel, err := filepath.Rel(workDir, of.Path); err == nil {
				for _, imp := range meta.Outputs[filepath.ToSlash(rel)].Imports {
					chunk.Imports = append(chunk.Imports, imp.Path)
				}
			}
			if code, err = rewrite.ApplyPlugins(opts.Plugins, code, chunk); err != nil {
				return nil, errors.New("E163").WithPath(of.Path).Wrap(err)
			}
		}
		if err := fsys.MkdirAll(filepath.Dir(of.Path), 0o755); err != nil {
			return nil, errors.New("E164").WithPath(of.Path).Wrap(err)
		}
		if err := afero.WriteFile(fsys, of.Path, []byte(code), os.FileMode(0o644)); err != nil {
			return nil, errors.New("E164").WithPath(of.Path).Wrap(err)
		}
		res.Files = append(res.Files, of.Path)
	}

	for p := range npmSeen {
		res.NpmPackages = append(res.NpmPackages, p)
	}
	sort.Strings(res.NpmPackages)

	logger.Info("bundle written", "files", len(res.Files), "warnings", len(res.Warnings))
	return res, nil
}
