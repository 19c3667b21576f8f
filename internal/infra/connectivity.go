package infra

import (
	"context"
	"net"
	"time"
)

// Connectivity reports whether the upstream is reachable right now.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// StaticConnectivity always answers with its own value.
type StaticConnectivity bool

// Online implements Connectivity.
func (s StaticConnectivity) Online(context.Context) bool { return bool(s) }

// DialProbe treats a successful TCP dial to Addr as being online.
type DialProbe struct {
	Addr    string // host:port
	Timeout time.Duration
	Dialer  *net.Dialer
}

// Online implements Connectivity.
func (p DialProbe) Online(ctx context.Context) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	d := p.Dialer
	if d == nil {
		d = &net.Dialer{}
	}
	conn, err := d.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
