package daemon

import (
	"context"
	"net"
	"net/url"
	"time"
)

// probeTimeout bounds a single connectivity check.
const probeTimeout = 3 * time.Second

// ProbeURL returns a connectivity probe that dials the host of the given
// remote URL. Intended for Config.Probe.
//
// libsql:// and https:// URLs default to port 443 when none is given.
// An unparseable URL yields a probe that always reports offline.
func ProbeURL(rawURL string) func(ctx context.Context) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return func(context.Context) bool { return false }
	}

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "443"
	}
	addr := net.JoinHostPort(host, port)

	return func(ctx context.Context) bool {
		dialCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()

		var d net.Dialer
		conn, err := d.DialContext(dialCtx, "tcp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}
}
