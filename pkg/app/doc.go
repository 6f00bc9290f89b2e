// Package app defines the contract between the request handler and the
// framework application that renders dynamic routes.
//
// An App matches requests against its route table, renders a matched route
// (or, with a nil route, the not-found page) and strips the configured base
// path. ManifestApp is the implementation backed by the framework's build
// manifest: route matching happens in process with chi, while rendering is
// forwarded to an upstream renderer.
package app
