package main

import (
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	adapter "github.com/vango-dev/deno-adapter"
	"github.com/vango-dev/deno-adapter/internal/errors"
	"github.com/vango-dev/deno-adapter/pkg/app"
	"github.com/vango-dev/deno-adapter/pkg/manifest"
	"github.com/vango-dev/deno-adapter/pkg/server"
)

type serveFlags struct {
	port     int
	hostname string
	upstream string
}

func serveCmd(g *globalFlags) *cobra.Command {
	f := serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the build output",
		Long: `Serve the build output with the runtime request handler.

Requests are answered, in order, by a matching dynamic route (forwarded
to --upstream), an exact file in the client directory, a prerendered
index.html for the path, or the framework's not-found page.

Examples:
  deno-adapter serve
  deno-adapter serve --port=3000
  deno-adapter serve --upstream=http://127.0.0.1:8000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd.ErrOrStderr(), g, f, nil)
		},
	}

	cmd.Flags().IntVarP(&f.port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVarP(&f.hostname, "hostname", "H", "", "Address to bind (default from config)")
	cmd.Flags().StringVar(&f.upstream, "upstream", "", "Renderer dynamic routes are forwarded to")

	return cmd
}

// runServe serves until ctx is done. ready, when set, is called once the
// listener is bound.
func runServe(ctx context.Context, stderr io.Writer, g *globalFlags, f serveFlags, ready func(*server.Server), extra ...func(*server.Options)) error {
	cfg, logger, err := loadConfig(g, stderr)
	if err != nil {
		return err
	}
	if f.port > 0 {
		cfg.Server.Port = f.port
	}
	if f.hostname != "" {
		cfg.Server.Hostname = f.hostname
	}
	if f.upstream != "" {
		cfg.Server.Upstream = f.upstream
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	osFs := afero.NewOsFs()
	manifestPath := filepath.Join(cfg.Build.Server, manifest.FileName)
	m, err := manifest.Load(osFs, manifestPath)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return errors.New("E141").WithPath(manifestPath).Wrap(err)
		}
		return errors.New("E142").WithPath(manifestPath).Wrap(err)
	}

	opts := cfg.AdapterOptions()
	// The command exists to listen, whatever the entrypoint default is.
	opts.Start = server.Bool(true)

	a, err := app.NewManifestApp(m, app.ManifestAppOptions{
		Upstream: opts.Upstream,
		ClientFS: afero.NewBasePathFs(osFs, cfg.Build.Client),
		Logger:   logger,
	})
	if err != nil {
		return errors.New("E121").WithDetail("server.upstream").Wrap(err)
	}

	args := adapter.Args{
		Options:            opts,
		RelativeClientPath: adapter.RelativeClientPath(cfg.FrameworkConfig().Build),
	}
	options := append([]func(*server.Options){func(o *server.Options) {
		o.Logger = logger
		o.Stderr = stderr
	}}, extra...)

	exports, srv := adapter.CreateExports(a, args, cfg.ServerEntryPath(), options...)
	if err := exports.Start(); err != nil {
		return err
	}
	logger.Info("serving build", "routes", a.Routes(), "client", cfg.Build.Client, "upstream", opts.Upstream)
	if ready != nil {
		ready(srv)
	}

	<-ctx.Done()
	return exports.Stop(context.Background())
}
