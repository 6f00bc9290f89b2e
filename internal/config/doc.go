// Package config loads the adapter configuration.
//
// Configuration comes from an optional deno-adapter.{json,yaml,toml} file in
// the project root, overridden by DENO_ADAPTER_* environment variables:
//
//	{
//	  "server": {
//	    "port": 8085,
//	    "hostname": "0.0.0.0",
//	    "trusted_proxies": ["10.0.0.0/8"],
//	    "upstream": "http://127.0.0.1:4321"
//	  },
//	  "build": {
//	    "out_dir": "dist",
//	    "bundle": true,
//	    "prefix_npm_for_deno_deploy": false,
//	    "esbuild": {"minify": true}
//	  },
//	  "publish": {
//	    "enabled": true,
//	    "bucket": "my-assets",
//	    "prefix": "site"
//	  },
//	  "logging": {"level": "info", "format": "text"}
//	}
//
// Nested keys map to environment variables with dots replaced by
// underscores (DENO_ADAPTER_SERVER_PORT). DENO_ADAPTER_BUNDLE,
// DENO_ADAPTER_PORT and DENO_ADAPTER_HOSTNAME are accepted as short forms.
package config
