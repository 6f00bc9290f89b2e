package config

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	adapter "github.com/vango-dev/deno-adapter"
	"github.com/vango-dev/deno-adapter/internal/errors"
)

const (
	// ConfigName is the configuration file name without extension.
	ConfigName = "deno-adapter"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "DENO_ADAPTER"

	// DefaultPort is the listener port.
	DefaultPort = 8085

	// DefaultHostname is the listener address.
	DefaultHostname = "0.0.0.0"

	// DefaultOutDir is the framework build output directory.
	DefaultOutDir = "dist"
)

// Config is the complete adapter configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Build   BuildConfig   `mapstructure:"build"`
	Publish PublishConfig `mapstructure:"publish"`
	Logging LoggingConfig `mapstructure:"logging"`

	// configPath is the file the configuration was read from, if any.
	configPath string
}

// ServerConfig configures the runtime listener.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	Hostname string `mapstructure:"hostname"`

	// Start, when false, leaves the listener unbound.
	Start bool `mapstructure:"start"`

	TrustedProxies []string `mapstructure:"trusted_proxies"`

	// Upstream is the renderer dynamic routes are forwarded to.
	Upstream string `mapstructure:"upstream"`

	MetricsPath     string        `mapstructure:"metrics_path"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// BuildConfig locates the framework build output and selects the server
// entry strategy.
type BuildConfig struct {
	OutDir string `mapstructure:"out_dir"`

	// Client, Server and ServerEntry default to <out_dir>/client,
	// <out_dir>/server and entry.mjs.
	Client      string `mapstructure:"client"`
	Server      string `mapstructure:"server"`
	ServerEntry string `mapstructure:"server_entry"`

	Bundle                 bool           `mapstructure:"bundle"`
	PrefixNpmForDenoDeploy bool           `mapstructure:"prefix_npm_for_deno_deploy"`
	Esbuild                map[string]any `mapstructure:"esbuild"`
}

// PublishConfig configures the optional client asset upload.
type PublishConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	Concurrency  int    `mapstructure:"concurrency"`
	CacheControl string `mapstructure:"cache_control"`
	SkipHTML     bool   `mapstructure:"skip_html"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Log levels and formats.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	LogFormatText = "text"
	LogFormatJSON = "json"
)

// shortEnv maps config keys to additional environment variable names.
var shortEnv = map[string]string{
	"build.bundle":    EnvPrefix + "_BUNDLE",
	"server.port":     EnvPrefix + "_PORT",
	"server.hostname": EnvPrefix + "_HOSTNAME",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.hostname", DefaultHostname)
	v.SetDefault("server.start", true)
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("server.upstream", "")
	v.SetDefault("server.metrics_path", "")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("build.out_dir", DefaultOutDir)
	v.SetDefault("build.client", "")
	v.SetDefault("build.server", "")
	v.SetDefault("build.server_entry", "entry.mjs")
	v.SetDefault("build.bundle", false)
	v.SetDefault("build.prefix_npm_for_deno_deploy", false)

	v.SetDefault("publish.enabled", false)
	v.SetDefault("publish.bucket", "")
	v.SetDefault("publish.prefix", "")
	v.SetDefault("publish.region", "")
	v.SetDefault("publish.endpoint", "")
	v.SetDefault("publish.concurrency", 8)
	v.SetDefault("publish.cache_control", "")
	v.SetDefault("publish.skip_html", false)

	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.format", LogFormatText)
}

// New returns the default configuration.
func New() *Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	// Defaults always decode.
	_ = v.Unmarshal(&c)
	c.applyDefaults()
	return &c
}

// Load reads the configuration file from dir, if present, and applies
// environment overrides. The result is validated.
func Load(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(ConfigName)
	v.AddConfigPath(dir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range shortEnv {
		full := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, full, env); err != nil {
			return nil, errors.New("E120").Wrap(err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, errors.New("E120").Wrap(err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.New("E120").WithPath(v.ConfigFileUsed()).Wrap(err)
	}
	c.configPath = v.ConfigFileUsed()
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Path returns the file the configuration was read from, or "".
func (c *Config) Path() string {
	return c.configPath
}

func (c *Config) applyDefaults() {
	if c.Build.OutDir == "" {
		c.Build.OutDir = DefaultOutDir
	}
	if c.Build.Client == "" {
		c.Build.Client = filepath.Join(c.Build.OutDir, "client")
	}
	if c.Build.Server == "" {
		c.Build.Server = filepath.Join(c.Build.OutDir, "server")
	}
	if c.Build.ServerEntry == "" {
		c.Build.ServerEntry = "entry.mjs"
	}
	if c.Server.Hostname == "" {
		c.Server.Hostname = DefaultHostname
	}
	if c.Logging.Level == "" {
		c.Logging.Level = LogLevelInfo
	}
	if c.Logging.Format == "" {
		c.Logging.Format = LogFormatText
	}
}

var pathRule = validation.Match(regexp.MustCompile(`^/`)).Error("must start with /")

func ipOrCIDR(value any) error {
	s, _ := value.(string)
	if strings.Contains(s, "/") {
		if _, _, err := net.ParseCIDR(s); err != nil {
			return validation.NewError("validation_cidr", "must be a valid CIDR")
		}
		return nil
	}
	if net.ParseIP(s) == nil {
		return validation.NewError("validation_ip", "must be a valid IP address")
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E122").
			WithDetail(fmt.Sprintf("Port must be between 0 and 65535, got %d", c.Server.Port))
	}

	err := validation.Errors{
		"server": validation.ValidateStruct(&c.Server,
			validation.Field(&c.Server.Hostname, validation.Required, is.Host),
			validation.Field(&c.Server.TrustedProxies, validation.Each(validation.By(ipOrCIDR))),
			validation.Field(&c.Server.Upstream, is.URL),
			validation.Field(&c.Server.MetricsPath, pathRule),
			validation.Field(&c.Server.ShutdownTimeout, validation.Min(time.Duration(0))),
		),
		"build": validation.ValidateStruct(&c.Build,
			validation.Field(&c.Build.OutDir, validation.Required),
			validation.Field(&c.Build.ServerEntry, validation.Required),
		),
		"publish": validation.ValidateStruct(&c.Publish,
			validation.Field(&c.Publish.Bucket, validation.When(c.Publish.Enabled, validation.Required)),
			validation.Field(&c.Publish.Endpoint, is.URL),
			validation.Field(&c.Publish.Concurrency, validation.Min(0)),
		),
		"logging": validation.ValidateStruct(&c.Logging,
			validation.Field(&c.Logging.Level, validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError)),
			validation.Field(&c.Logging.Format, validation.In(LogFormatText, LogFormatJSON)),
		),
	}.Filter()
	if err != nil {
		return errors.New("E121").WithPath(c.configPath).Wrap(err)
	}
	return nil
}

// Address returns the listener address.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Hostname, fmt.Sprint(c.Server.Port))
}

// ServerEntryPath returns the server entry file inside the server directory.
func (c *Config) ServerEntryPath() string {
	if filepath.IsAbs(c.Build.ServerEntry) {
		return c.Build.ServerEntry
	}
	return filepath.Join(c.Build.Server, c.Build.ServerEntry)
}

// SlogLevel returns the slog level for Level.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch l.Level {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger builds a logger writing to w in the configured format.
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if l.Format == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// AdapterOptions converts the configuration into adapter options.
func (c *Config) AdapterOptions() adapter.Options {
	start := c.Server.Start
	opts := adapter.Options{
		Port:                   c.Server.Port,
		Hostname:               c.Server.Hostname,
		Start:                  &start,
		PrefixNpmForDenoDeploy: c.Build.PrefixNpmForDenoDeploy,
		Bundle:                 c.Build.Bundle,
		Esbuild:                c.Build.Esbuild,
		TrustedProxies:         c.Server.TrustedProxies,
		Upstream:               c.Server.Upstream,
		MetricsPath:            c.Server.MetricsPath,
		ShutdownTimeout:        c.Server.ShutdownTimeout,
	}
	if c.Publish.Enabled {
		opts.Publish = &adapter.PublishOptions{
			Enabled:      true,
			Bucket:       c.Publish.Bucket,
			Prefix:       c.Publish.Prefix,
			Region:       c.Publish.Region,
			Endpoint:     c.Publish.Endpoint,
			Concurrency:  c.Publish.Concurrency,
			CacheControl: c.Publish.CacheControl,
			SkipHTML:     c.Publish.SkipHTML,
		}
	}
	return opts
}

// FrameworkConfig returns the build locations in the form the adapter hooks
// receive them.
func (c *Config) FrameworkConfig() adapter.FrameworkConfig {
	return adapter.FrameworkConfig{Build: adapter.BuildConfig{
		Client:      c.Build.Client,
		Server:      c.Build.Server,
		ServerEntry: c.Build.ServerEntry,
	}}
}
