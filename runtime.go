package adapter

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/vango-dev/deno-adapter/pkg/app"
	"github.com/vango-dev/deno-adapter/pkg/server"
)

// RuntimeExports are the functions the server entrypoint exports.
type RuntimeExports struct {
	Start   func() error
	Stop    func(ctx context.Context) error
	Running func() bool
	Handle  func(r *http.Request) (*app.Response, error)
}

// ClientDir resolves the client directory from the server entry file and
// the RelativeClientPath argument.
func ClientDir(serverEntry string, args Args) string {
	return filepath.Join(serverEntry, filepath.FromSlash(args.RelativeClientPath))
}

// CreateExports wraps a in a request handler session. The returned Start
// honours Options.Start.
func CreateExports(a app.App, args Args, serverEntry string, extra ...func(*server.Options)) (RuntimeExports, *server.Server) {
	opts := args.ServerOptions(ClientDir(serverEntry, args))
	for _, f := range extra {
		f(&opts)
	}
	srv := server.New(a, opts)
	return RuntimeExports{
		Start:   srv.Start,
		Stop:    srv.Stop,
		Running: srv.Running,
		Handle:  srv.Handle,
	}, srv
}

// Start creates the session and starts it unless starting is disabled.
func Start(a app.App, args Args, serverEntry string, extra ...func(*server.Options)) (*server.Server, error) {
	exports, srv := CreateExports(a, args, serverEntry, extra...)
	if err := exports.Start(); err != nil {
		return nil, err
	}
	return srv, nil
}
