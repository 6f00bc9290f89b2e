// Package rewrite performs the narrow, textual post-build passes over compiled
// server chunks.
//
// # Marker import
//
// During the framework build the server code imports the runtime-native file
// serving primitives from a placeholder module:
//
//	import { serveFile, fromFileUrl } from "@deno/astro-adapter/__deno_imports.ts";
//
// The placeholder is kept external, and once the build finishes every chunk
// that still contains the statement (in its canonical double-quoted or its
// legacy single-quoted form) has it replaced with the two real imports:
//
//	import { serveFile } from "jsr:@std/http@1.0/file-server";
//	import { fromFileUrl } from "jsr:@std/path@1.0";
//
// The match is an exact string contract. No source parsing is attempted.
//
// # Chunk plugins
//
// A ChunkPlugin sees every emitted chunk together with its import list and
// may return rewritten code. NpmPrefix is the one shipped here: it prefixes
// bare package imports with "npm:" for deployment targets that resolve
// packages through that scheme.
package rewrite
