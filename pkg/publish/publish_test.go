package publish

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adaptererrors "github.com/vango-dev/deno-adapter/internal/errors"
)

type putCall struct {
	bucket       string
	key          string
	contentType  string
	cacheControl string
	body         string
}

type fakeS3 struct {
	mu    sync.Mutex
	calls map[string]putCall
	fail  string
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	if key == f.fail {
		return nil, errors.New("access denied")
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]putCall)
	}
	f.calls[key] = putCall{
		bucket:       aws.ToString(in.Bucket),
		key:          key,
		contentType:  aws.ToString(in.ContentType),
		cacheControl: aws.ToString(in.CacheControl),
		body:         string(body),
	}
	return &s3.PutObjectOutput{}, nil
}

func clientTree(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/dist/client/index.html":         "<h1>home</h1>",
		"/dist/client/about/index.html":   "<h1>about</h1>",
		"/dist/client/_astro/app.1a2b.js": "console.log(1)",
		"/dist/client/favicon.svg":        "<svg/>",
	}
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func TestPublish(t *testing.T) {
	client := &fakeS3{}
	p := New(client, Options{Bucket: "assets", Prefix: "/site/", Concurrency: 2})

	res, err := p.Publish(context.Background(), clientTree(t), "/dist/client")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"site/_astro/app.1a2b.js",
		"site/about/index.html",
		"site/favicon.svg",
		"site/index.html",
	}, res.Keys)
	assert.Equal(t, int64(len("<h1>home</h1>")+len("<h1>about</h1>")+len("console.log(1)")+len("<svg/>")), res.Bytes)

	js := client.calls["site/_astro/app.1a2b.js"]
	assert.Equal(t, "assets", js.bucket)
	assert.Equal(t, "console.log(1)", js.body)
	assert.Equal(t, ImmutableCacheControl, js.cacheControl)
	assert.Contains(t, js.contentType, "javascript")

	html := client.calls["site/index.html"]
	assert.Equal(t, DefaultCacheControl, html.cacheControl)
	assert.Contains(t, html.contentType, "text/html")
}

func TestPublish_SkipHTMLAndCacheOverride(t *testing.T) {
	client := &fakeS3{}
	p := New(client, Options{Bucket: "assets", SkipHTML: true, CacheControl: "no-store"})

	res, err := p.Publish(context.Background(), clientTree(t), "/dist/client")
	require.NoError(t, err)
	assert.Equal(t, []string{"_astro/app.1a2b.js", "favicon.svg"}, res.Keys)
	assert.Equal(t, "no-store", client.calls["favicon.svg"].cacheControl)
}

func TestPublish_UploadFailure(t *testing.T) {
	client := &fakeS3{fail: "favicon.svg"}
	p := New(client, Options{Bucket: "assets"})

	_, err := p.Publish(context.Background(), clientTree(t), "/dist/client")
	require.Error(t, err)
	assert.True(t, adaptererrors.HasCode(err, "E165"))
	assert.ErrorContains(t, err, "access denied")
}

func TestPublish_MissingRootAndBucket(t *testing.T) {
	p := New(&fakeS3{}, Options{Bucket: "assets"})
	_, err := p.Publish(context.Background(), afero.NewMemMapFs(), "/nope")
	assert.True(t, adaptererrors.HasCode(err, "E165"))

	p = New(&fakeS3{}, Options{})
	_, err = p.Publish(context.Background(), clientTree(t), "/dist/client")
	assert.True(t, adaptererrors.HasCode(err, "E165"))
}

func TestContentType(t *testing.T) {
	assert.Contains(t, ContentType("a/b.css"), "text/css")
	assert.Equal(t, "application/octet-stream", ContentType("LICENSE"))
}
