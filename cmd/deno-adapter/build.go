package main

import (
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	adapter "github.com/vango-dev/deno-adapter"
	"github.com/vango-dev/deno-adapter/internal/errors"
	"github.com/vango-dev/deno-adapter/pkg/alias"
	"github.com/vango-dev/deno-adapter/pkg/rewrite"
)

type buildFlags struct {
	bundle    bool
	prefixNpm bool
	publish   bool
}

func buildCmd(g *globalFlags) *cobra.Command {
	f := buildFlags{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Finalise a framework build for the Deno runtime",
		Long: `Finalise the framework's server output for the Deno runtime.

This command:
  • Applies the module alias table to the server build
  • Prefixes bare package imports with npm: (--prefix-npm)
  • Replaces the runtime marker import in the server chunks, or
    bundles the server entry into one file (--bundle)
  • Uploads the client assets to S3 (if publish is enabled)

Examples:
  deno-adapter build
  deno-adapter build --bundle
  DENO_ADAPTER_BUNDLE=true deno-adapter build`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runBuild(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), g, f, cmd.Flags().Changed)
		},
	}

	cmd.Flags().BoolVar(&f.bundle, "bundle", false, "Bundle the server entry with esbuild")
	cmd.Flags().BoolVar(&f.prefixNpm, "prefix-npm", false, "Prefix bare package imports with npm:")
	cmd.Flags().BoolVar(&f.publish, "publish", false, "Upload the client assets to S3")

	return cmd
}

func runBuild(ctx context.Context, out, logOut io.Writer, g *globalFlags, f buildFlags, changed func(string) bool) error {
	cfg, logger, err := loadConfig(g, logOut)
	if err != nil {
		return err
	}
	if changed("bundle") {
		cfg.Build.Bundle = f.bundle
	}
	if changed("prefix-npm") {
		cfg.Build.PrefixNpmForDenoDeploy = f.prefixNpm
	}
	if changed("publish") {
		cfg.Publish.Enabled = f.publish
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	if st, err := os.Stat(cfg.Build.Server); err != nil || !st.IsDir() {
		return errors.New("E140").WithPath(cfg.Build.Server)
	}

	start := time.Now()
	fsys := afero.NewOsFs()
	integration := adapter.New(cfg.AdapterOptions(), adapter.WithFs(fsys), adapter.WithLogger(logger))

	var descriptor adapter.Adapter
	if err := integration.ConfigDone(adapter.ConfigDoneParams{
		Config:     cfg.FrameworkConfig(),
		SetAdapter: func(a adapter.Adapter) { descriptor = a },
	}); err != nil {
		return err
	}

	bundler := &alias.BundlerConfig{}
	if err := integration.BuildSetup(adapter.BuildSetupParams{Target: adapter.TargetServer, Bundler: bundler}); err != nil {
		return err
	}
	rendered, err := renderChunks(fsys, cfg.Build.Server, bundler.Build.Plugins)
	if err != nil {
		return errors.New("E162").WithPath(cfg.Build.Server).Wrap(err)
	}

	if err := integration.BuildDone(ctx); err != nil {
		return err
	}

	mode := "chunks patched"
	if cfg.Build.Bundle {
		mode = "bundled"
	}
	success(out, "Build finalised in %s (%s)", time.Since(start).Round(time.Millisecond), mode)
	info(out, "Adapter:     %s", descriptor.Name)
	info(out, "Entrypoint:  %s", cfg.ServerEntryPath())
	info(out, "Client:      %s (%s from the entry)", cfg.Build.Client, descriptor.Args.RelativeClientPath)
	if rendered > 0 {
		info(out, "Rewritten:   %d chunks", rendered)
	}
	return nil
}

// renderChunks runs the chunk plugins the build setup registered over every
// compiled module under serverDir, the way the framework's bundler would
// while emitting them. It returns the number of modules that changed.
func renderChunks(fsys afero.Fs, serverDir string, plugins []rewrite.ChunkPlugin) (int, error) {
	if len(plugins) == 0 {
		return 0, nil
	}
	changed := 0
	err := afero.Walk(fsys, serverDir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(p, ".mjs") {
			return nil
		}
		data, err := afero.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(serverDir, p)
		if err != nil {
			return err
		}
		code := string(data)
		out, err := rewrite.ApplyPlugins(plugins, code, rewrite.Chunk{
			FileName: filepath.ToSlash(rel),
			Imports:  rewrite.ChunkImports(code),
		})
		if err != nil {
			return err
		}
		if out == code {
			return nil
		}
		changed++
		return afero.WriteFile(fsys, p, []byte(out), info.Mode().Perm())
	})
	if err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return changed, err
	}
	return changed, nil
}
