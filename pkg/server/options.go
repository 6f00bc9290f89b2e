package server

import (
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/trace"
)

// Defaults for the listener.
const (
	DefaultPort     = 8085
	DefaultHostname = "0.0.0.0"
)

// Options configures a Server.
type Options struct {
	// Port defaults to DefaultPort.
	Port int

	// Hostname defaults to DefaultHostname.
	Hostname string

	// Start, when explicitly false, turns Start into a no-op.
	Start *bool

	// ClientDir is the directory of the client build output.
	ClientDir string

	// ClientFS overrides the filesystem the client root is read from.
	// Defaults to ClientDir on the OS filesystem. Prerendered pages are
	// suffix-matched against the request path anchored on the absolute
	// ClientDir; without a ClientDir the anchor is a name no request path
	// can end in.
	ClientFS afero.Fs

	// TrustedProxies lists IPs and CIDRs whose forwarded headers are
	// honoured when resolving the client address.
	TrustedProxies []string

	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider

	// Registry receives the request metrics. Defaults to a fresh registry.
	Registry *prometheus.Registry

	// MetricsPath, when set, exposes Registry on that path.
	MetricsPath string

	// ShutdownTimeout bounds Stop. Zero means the caller's context only.
	ShutdownTimeout time.Duration

	// ReadHeaderTimeout defaults to 10s.
	ReadHeaderTimeout time.Duration

	// Stderr receives the startup line. Defaults to os.Stderr.
	Stderr io.Writer

	// Listen opens the listener. Defaults to net.Listen.
	Listen func(network, address string) (net.Listener, error)

	Logger *slog.Logger
}

// Bool returns a pointer to b, for Options.Start.
func Bool(b bool) *bool { return &b }

func (o Options) startEnabled() bool {
	return o.Start == nil || *o.Start
}

func (o Options) address() (host string, port int) {
	host, port = o.Hostname, o.Port
	if host == "" {
		host = DefaultHostname
	}
	if port == 0 {
		port = DefaultPort
	}
	return host, port
}
