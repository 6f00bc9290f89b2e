// Package adapter runs a web meta-framework's server-rendered output on the
// Deno runtime.
//
// The integration plugs into the framework's build through three hooks:
//
//   - ConfigDone registers the adapter descriptor and remembers where the
//     build writes its output.
//   - BuildSetup rewrites module resolution for the server build: Node
//     built-ins resolve to their node: specifiers and the marker import that
//     carries the runtime's file-serving primitives stays external.
//   - BuildDone replaces the marker import in the emitted chunks with the
//     runtime-native imports, or bundles the server entry into a single file
//     when bundling is enabled, and optionally publishes the client assets.
//
// At runtime, CreateExports wraps the rendered application in the request
// handler of package server and exposes the start, stop, running and handle
// entry points the runtime calls.
package adapter
