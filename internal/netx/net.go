// Package netx contains network reachability helpers.
package netx

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// HostPort extracts a dialable host:port from a base URL or a bare address.
// Missing ports default from the scheme (80 for http, 443 for https).
func HostPort(addr string) (string, error) {
	if !strings.Contains(addr, "://") {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return "", fmt.Errorf("invalid address %q: %w", addr, err)
		}
		return addr, nil
	}

	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", addr, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid url %q: missing host", addr)
	}
	if u.Port() != "" {
		return u.Host, nil
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

// Reachable dials addr over TCP and reports whether a connection could be
// established before ctx expired.
func Reachable(ctx context.Context, addr string) error {
	hp, err := HostPort(addr)
	if err != nil {
		return err
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", hp)
	if err != nil {
		return fmt.Errorf("dial %s: %w", hp, err)
	}
	return conn.Close()
}
