package adapter

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/vango-dev/deno-adapter/internal/errors"
	"github.com/vango-dev/deno-adapter/pkg/alias"
	"github.com/vango-dev/deno-adapter/pkg/bundle"
	"github.com/vango-dev/deno-adapter/pkg/publish"
	"github.com/vango-dev/deno-adapter/pkg/rewrite"
)

// Target is the build the setup hook is called for.
type Target string

const (
	TargetClient Target = "client"
	TargetServer Target = "server"
)

// ConfigDoneParams are passed to ConfigDone.
type ConfigDoneParams struct {
	Config     FrameworkConfig
	SetAdapter func(Adapter)
}

// BuildSetupParams are passed to BuildSetup.
type BuildSetupParams struct {
	Target  Target
	Bundler *alias.BundlerConfig
}

// Integration is the set of lifecycle hooks the framework calls.
type Integration interface {
	Name() string
	ConfigDone(p ConfigDoneParams) error
	BuildSetup(p BuildSetupParams) error
	BuildDone(ctx context.Context) error
}

// Publisher uploads a directory tree.
type Publisher interface {
	Publish(ctx context.Context, fsys afero.Fs, root string) (*publish.Result, error)
}

// Option customises the integration.
type Option func(*integration)

// WithFs sets the filesystem chunks are rewritten on.
func WithFs(fs afero.Fs) Option {
	return func(i *integration) { i.fs = fs }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *integration) { i.logger = l }
}

// WithEnv replaces the environment lookup.
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(i *integration) { i.lookupEnv = lookup }
}

// WithPublisher replaces the S3 publisher built from PublishOptions.
func WithPublisher(newPublisher func(ctx context.Context, opts PublishOptions) (Publisher, error)) Option {
	return func(i *integration) { i.newPublisher = newPublisher }
}

type integration struct {
	opts Options

	fs           afero.Fs
	logger       *slog.Logger
	lookupEnv    func(string) (string, bool)
	newPublisher func(ctx context.Context, opts PublishOptions) (Publisher, error)

	mu        sync.Mutex
	build     *BuildConfig
	buildDone bool
}

// New returns the integration for opts.
func New(opts Options, options ...Option) Integration {
	i := &integration{
		opts:         opts,
		fs:           afero.NewOsFs(),
		logger:       slog.Default(),
		newPublisher: defaultPublisher,
	}
	for _, o := range options {
		o(i)
	}
	i.logger = i.logger.With("component", "adapter")
	return i
}

func defaultPublisher(ctx context.Context, opts PublishOptions) (Publisher, error) {
	return publish.NewFromConfig(ctx, publish.Options{
		Bucket:       opts.Bucket,
		Prefix:       opts.Prefix,
		Region:       opts.Region,
		Endpoint:     opts.Endpoint,
		Concurrency:  opts.Concurrency,
		CacheControl: opts.CacheControl,
		SkipHTML:     opts.SkipHTML,
	})
}

func (i *integration) Name() string { return Name }

// ConfigDone registers the adapter and captures the build configuration.
func (i *integration) ConfigDone(p ConfigDoneParams) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.build != nil {
		return errors.New("E161").WithDetail("config-done was already called")
	}
	if p.SetAdapter != nil {
		p.SetAdapter(GetAdapter(i.opts, p.Config))
	}
	b := p.Config.Build
	i.build = &b
	i.logger.Debug("config captured", "server", b.Server, "client", b.Client)
	return nil
}

// BuildSetup installs the alias table for the server build. The client
// build is left untouched. Repeated calls leave the configuration as the
// first call did.
func (i *integration) BuildSetup(p BuildSetupParams) error {
	if p.Target != TargetServer {
		return nil
	}
	if p.Bundler == nil {
		return errors.Newf(errors.CategoryBuild, "build setup called without a bundler configuration")
	}
	alias.Apply(p.Bundler, alias.Options{PrefixNpm: i.opts.PrefixNpmForDenoDeploy})
	i.logger.Debug("server build configured", "aliases", len(alias.Table()), "prefix_npm", i.opts.PrefixNpmForDenoDeploy)
	return nil
}

// BuildDone finalises the server output and optionally publishes the
// client assets.
func (i *integration) BuildDone(ctx context.Context) error {
	i.mu.Lock()
	b := i.build
	if b == nil {
		i.mu.Unlock()
		return errors.New("E160")
	}
	if i.buildDone {
		i.mu.Unlock()
		return errors.New("E161").WithDetail("build-done was already called")
	}
	i.buildDone = true
	i.mu.Unlock()

	if i.opts.bundleRequested(i.lookupEnv) {
		entry := filepath.Join(b.Server, b.ServerEntry)
		res, err := bundle.Bundle(ctx, bundle.Options{
			Entry:     entry,
			WorkDir:   b.Server,
			PrefixNpm: i.opts.PrefixNpmForDenoDeploy,
			Overrides: i.opts.Esbuild,
			Fs:        i.fs,
			Logger:    i.logger,
		})
		if err != nil {
			return err
		}
		i.logger.Info("server entry bundled", "entry", entry, "files", len(res.Files))
	} else {
		chunks := filepath.Join(b.Server, "chunks")
		rewritten, err := rewrite.RewriteChunks(i.fs, chunks)
		if err != nil {
			return errors.New("E162").WithPath(chunks).Wrap(err)
		}
		i.logger.Info("runtime imports injected", "chunks", len(rewritten))
	}

	if p := i.opts.Publish; p != nil && p.Enabled {
		pub, err := i.newPublisher(ctx, *p)
		if err != nil {
			return errors.FromError(err, "E165")
		}
		res, err := pub.Publish(ctx, i.fs, b.Client)
		if err != nil {
			return errors.FromError(err, "E165")
		}
		i.logger.Info("client assets published", "bucket", p.Bucket, "objects", len(res.Keys))
	}
	return nil
}
