package server

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// trustedProxies holds the peers whose X-Forwarded-For header is believed.
// A single address is stored as a full-length prefix.
type trustedProxies []netip.Prefix

// parseTrustedProxies accepts addresses and CIDRs. Invalid entries are
// logged and skipped.
func parseTrustedProxies(entries []string, logger *slog.Logger) trustedProxies {
	var out trustedProxies
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				logger.Warn("ignoring trusted proxy", "entry", entry, "error", err)
				continue
			}
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			logger.Warn("ignoring trusted proxy", "entry", entry, "error", err)
			continue
		}
		addr = addr.Unmap().WithZone("")
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out
}

func (t trustedProxies) contains(addr netip.Addr) bool {
	for _, prefix := range t {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// clientAddress is the address handed to the framework for routed requests.
// It is the TCP peer unless the peer is a trusted proxy, in which case it is
// the right-most X-Forwarded-For hop that is not itself a trusted proxy.
func (s *Server) clientAddress(r *http.Request) string {
	addr, ok := resolveClientAddr(r, s.trustedProxies)
	if !ok {
		return ""
	}
	return addr.String()
}

func resolveClientAddr(r *http.Request, trusted trustedProxies) (netip.Addr, bool) {
	peer, ok := peerAddr(r.RemoteAddr)
	if !ok || !trusted.contains(peer) {
		return peer, ok
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, ok := parseAddr(hops[i])
		if !ok {
			// A malformed hop ends the chain we can vouch for.
			return peer, true
		}
		if !trusted.contains(hop) {
			return hop, true
		}
		peer = hop
	}
	return peer, true
}

// peerAddr parses a RemoteAddr of the form "host:port" or a bare host.
func peerAddr(remote string) (netip.Addr, bool) {
	remote = strings.TrimSpace(remote)
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	return parseAddr(remote)
}

func parseAddr(s string) (netip.Addr, bool) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return netip.Addr{}, false
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap().WithZone(""), true
}
