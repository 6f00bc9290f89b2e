// Package server is the runtime request handler of the adapter.
//
// Every request walks a fixed decision chain:
//
//  1. a route known to the application is rendered by it;
//  2. otherwise a file in the client root at the request path is served
//     verbatim;
//  3. otherwise a prerendered page whose logical path ends the request path
//     is served (about/index.html answers /about);
//  4. otherwise the application renders its not-found page.
//
// A Server also owns the listener session exported to the runtime:
//
//	srv := server.New(application, server.Options{Port: 8085})
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Stop(context.Background())
//
// Start prints "Server running on port <port>" to stderr once bound.
package server
