// Command deno-adapter drives the adapter outside the framework: it
// finalises a framework build for the Deno runtime and serves the result.
package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vango-dev/deno-adapter/internal/config"
	"github.com/vango-dev/deno-adapter/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	dir      string
	envFile  string
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "deno-adapter",
		Short: "Run framework builds on the Deno runtime",
		Long: `deno-adapter prepares a framework build for the Deno runtime.

It rewrites the server chunks to import runtime-native modules (or
bundles the server entry into a single file), optionally publishes the
client assets to S3, and serves the output with the static file and
prerendered page fallbacks the runtime entrypoint uses.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.dir, "dir", "C", ".", "Project directory")
	rootCmd.PersistentFlags().StringVar(&g.envFile, "env-file", "", "Environment file to load (default <dir>/.env if present)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		buildCmd(g),
		serveCmd(g),
		aliasesCmd(),
		versionCmd(),
	)
	return rootCmd
}

// loadConfig loads the environment file and the project configuration, and
// resolves the build paths against the project directory.
func loadConfig(g *globalFlags, logOut io.Writer) (*config.Config, *slog.Logger, error) {
	envFile := g.envFile
	if envFile == "" {
		envFile = filepath.Join(g.dir, ".env")
	}
	if err := godotenv.Load(envFile); err != nil {
		if g.envFile != "" || !stderrors.Is(err, fs.ErrNotExist) {
			return nil, nil, errors.New("E124").WithPath(envFile).Wrap(err)
		}
	}

	cfg, err := config.Load(g.dir)
	if err != nil {
		return nil, nil, err
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	for _, p := range []*string{&cfg.Build.Client, &cfg.Build.Server} {
		if !filepath.IsAbs(*p) {
			*p = filepath.Join(g.dir, *p)
		}
	}
	return cfg, cfg.Logging.NewLogger(logOut), nil
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
