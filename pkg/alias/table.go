// Package alias holds the module substitution table for the server bundle and
// applies it to the framework's in-progress bundler configuration.
//
// Every Node-compatible built-in the runtime implements natively is aliased
// to its "node:" specifier, and react-dom/server is pointed at its browser
// build, which does not depend on Node streams.
package alias

import "strings"

// RuntimePrefix is the scheme under which the runtime exposes its
// Node-compatible built-ins.
const RuntimePrefix = "node:"

// NodeModules lists the Node built-in modules the runtime provides natively.
var NodeModules = []string{
	"assert",
	"assert/strict",
	"async_hooks",
	"buffer",
	"child_process",
	"cluster",
	"console",
	"constants",
	"crypto",
	"dgram",
	"diagnostics_channel",
	"dns",
	"events",
	"fs",
	"fs/promises",
	"http",
	"http2",
	"https",
	"inspector",
	"module",
	"net",
	"os",
	"path",
	"path/posix",
	"path/win32",
	"perf_hooks",
	"process",
	"punycode",
	"querystring",
	"readline",
	"repl",
	"stream",
	"stream/promises",
	"stream/web",
	"string_decoder",
	"sys",
	"timers",
	"timers/promises",
	"tls",
	"trace_events",
	"tty",
	"url",
	"util",
	"util/types",
	"v8",
	"vm",
	"wasi",
	"worker_threads",
	"zlib",
}

// Alias maps an exact module specifier to its replacement.
type Alias struct {
	Find        string `json:"find"`
	Replacement string `json:"replacement"`
}

// Table returns the fixed alias table in application order.
func Table() []Alias {
	out := make([]Alias, 0, len(NodeModules)+1)
	out = append(out, Alias{Find: "react-dom/server", Replacement: "react-dom/server.browser"})
	for _, mod := range NodeModules {
		out = append(out, Alias{Find: mod, Replacement: RuntimePrefix + mod})
	}
	return out
}

var tableIndex = func() map[string]string {
	m := make(map[string]string)
	for _, a := range Table() {
		m[a.Find] = a.Replacement
	}
	return m
}()

// Lookup returns the replacement for an exact specifier.
func Lookup(spec string) (string, bool) {
	r, ok := tableIndex[spec]
	return r, ok
}

// IsRuntimeNative reports whether spec already uses a runtime-native scheme.
func IsRuntimeNative(spec string) bool {
	for _, prefix := range []string{RuntimePrefix, "jsr:", "npm:", "https:", "http:"} {
		if strings.HasPrefix(spec, prefix) {
			return true
		}
	}
	return false
}
