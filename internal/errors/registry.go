package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://github.com/vango-dev/deno-adapter/blob/main/docs/errors.md#"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The adapter configuration file could not be read or parsed.",
		DocURL:   docBase + "e120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "One or more configuration values failed validation.",
		DocURL:   docBase + "e121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid port",
		Detail:   "The server port must be between 0 and 65535.",
		DocURL:   docBase + "e122",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Invalid bundler options",
		Detail:   "The pass-through esbuild options could not be decoded.",
		DocURL:   docBase + "e123",
	},
	"E124": {
		Category: CategoryConfig,
		Message:  "Environment file could not be loaded",
		Detail:   "A .env file exists but could not be parsed.",
		DocURL:   docBase + "e124",
	},

	// ============================================
	// Project Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Build output not found",
		Detail:   "The framework build output directory does not exist. Run the framework build first.",
		DocURL:   docBase + "e140",
	},
	"E141": {
		Category: CategoryCLI,
		Message:  "Manifest not found",
		Detail:   "The SSR manifest could not be read from the build output.",
		DocURL:   docBase + "e141",
	},
	"E142": {
		Category: CategoryCLI,
		Message:  "Invalid manifest",
		Detail:   "The SSR manifest is not valid JSON or contains an invalid route pattern.",
		DocURL:   docBase + "e142",
	},

	// ============================================
	// Build Hook Errors (E160-E179)
	// ============================================

	"E160": {
		Category: CategoryBuild,
		Message:  "Build configuration not captured",
		Detail:   "The build-completion hook ran before the configuration-finalization hook.",
		DocURL:   docBase + "e160",
	},
	"E161": {
		Category: CategoryBuild,
		Message:  "Hook called more than once",
		Detail:   "Each lifecycle hook fires at most once per build.",
		DocURL:   docBase + "e161",
	},
	"E162": {
		Category: CategoryBuild,
		Message:  "Chunk rewrite failed",
		Detail:   "The compiled server chunks could not be read or rewritten.",
		DocURL:   docBase + "e162",
	},
	"E163": {
		Category: CategoryBundle,
		Message:  "Bundling failed",
		Detail:   "esbuild reported errors while bundling the server entry.",
		DocURL:   docBase + "e163",
	},
	"E164": {
		Category: CategoryBundle,
		Message:  "Bundle output could not be written",
		Detail:   "The bundled server entry could not be written to disk.",
		DocURL:   docBase + "e164",
	},
	"E165": {
		Category: CategoryPublish,
		Message:  "Asset publish failed",
		Detail:   "Uploading the client asset directory to the object store failed.",
		DocURL:   docBase + "e165",
	},

	// ============================================
	// Server Errors (E180-E199)
	// ============================================

	"E180": {
		Category: CategoryServer,
		Message:  "Listener could not be started",
		Detail:   "The server could not bind the configured host and port.",
		DocURL:   docBase + "e180",
	},
	"E181": {
		Category: CategoryServer,
		Message:  "Listener shutdown failed",
		Detail:   "The server did not shut down cleanly before the deadline.",
		DocURL:   docBase + "e181",
	},
	"E182": {
		Category: CategoryServer,
		Message:  "Render failed",
		Detail:   "The application failed to produce a response.",
		DocURL:   docBase + "e182",
	},
}

// Lookup returns the template for an error code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Codes returns all registered error codes.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
