// Package publish uploads the client build output to an S3 bucket so static
// assets can be served from object storage or a CDN in front of it.
package publish

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"mime"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/deno-adapter/internal/errors"
)

// Cache-Control values used when Options.CacheControl is empty.
const (
	ImmutableCacheControl = "public, max-age=31536000, immutable"
	DefaultCacheControl   = "public, max-age=0, must-revalidate"
)

// HashedAssetDir is the client directory holding fingerprinted assets.
const HashedAssetDir = "_astro"

// DefaultConcurrency bounds parallel uploads.
const DefaultConcurrency = 8

// PutObjectAPI is the part of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options configures a Publisher.
type Options struct {
	Bucket string

	// Prefix is prepended to every object key.
	Prefix string

	// Region and Endpoint configure the client built by NewFromConfig.
	// A custom endpoint switches to path-style addressing.
	Region   string
	Endpoint string

	// Concurrency defaults to DefaultConcurrency.
	Concurrency int

	// CacheControl overrides the per-file default.
	CacheControl string

	// SkipHTML leaves prerendered pages out of the upload.
	SkipHTML bool

	Logger *slog.Logger
}

// Result summarises a publish run.
type Result struct {
	// Keys are the uploaded object keys, sorted.
	Keys  []string
	Bytes int64
}

// Publisher uploads a directory tree.
type Publisher struct {
	client PutObjectAPI
	opts   Options
	logger *slog.Logger
}

// New returns a Publisher using client.
func New(client PutObjectAPI, opts Options) *Publisher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Publisher{client: client, opts: opts, logger: logger.With("component", "publish")}
}

// NewFromConfig builds an S3 client from the default AWS configuration
// chain (environment, shared config, instance role).
func NewFromConfig(ctx context.Context, opts Options) (*Publisher, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.New("E165").WithDetail("loading AWS configuration").Wrap(err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return New(client, opts), nil
}

// Key returns the object key for a root-relative slash path.
func (p *Publisher) Key(rel string) string {
	prefix := strings.Trim(p.opts.Prefix, "/")
	if prefix == "" {
		return rel
	}
	return prefix + "/" + rel
}

// CacheControl returns the Cache-Control header for rel.
func (p *Publisher) CacheControl(rel string) string {
	if p.opts.CacheControl != "" {
		return p.opts.CacheControl
	}
	if strings.HasPrefix(rel, HashedAssetDir+"/") {
		return ImmutableCacheControl
	}
	return DefaultCacheControl
}

// ContentType guesses the content type from the file extension.
func ContentType(rel string) string {
	if ct := mime.TypeByExtension(path.Ext(rel)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Publish uploads every regular file under root. The first failed upload
// cancels the rest.
func (p *Publisher) Publish(ctx context.Context, fsys afero.Fs, root string) (*Result, error) {
	if p.opts.Bucket == "" {
		return nil, errors.New("E165").WithDetail("no bucket configured")
	}

	var files []string
	err := afero.Walk(fsys, root, func(name string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if p.opts.SkipHTML && strings.HasSuffix(info.Name(), ".html") {
			return nil
		}
		files = append(files, name)
		return nil
	})
	if err != nil {
		return nil, errors.New("E165").WithPath(root).Wrap(err)
	}

	var (
		mu    sync.Mutex
		keys  []string
		total atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for _, name := range files {
		g.Go(func() error {
			rel, err := filepath.Rel(root, name)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)

			data, err := afero.ReadFile(fsys, name)
			if err != nil {
				return err
			}

			key := p.Key(rel)
			_, err = p.client.PutObject(gctx, &s3.PutObjectInput{
				Bucket:        aws.String(p.opts.Bucket),
				Key:           aws.String(key),
				Body:          bytes.NewReader(data),
				ContentLength: aws.Int64(int64(len(data))),
				ContentType:   aws.String(ContentType(rel)),
				CacheControl:  aws.String(p.CacheControl(rel)),
			})
			if err != nil {
				return errors.New("E165").WithPath(key).Wrap(err)
			}

			total.Add(int64(len(data)))
			mu.Lock()
			keys = append(keys, key)
			mu.Unlock()
			p.logger.Debug("uploaded", "key", key, "bytes", len(data))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.FromError(err, "E165")
	}

	sort.Strings(keys)
	p.logger.Info("published client assets", "bucket", p.opts.Bucket, "objects", len(keys), "bytes", total.Load())
	return &Result{Keys: keys, Bytes: total.Load()}, nil
}
