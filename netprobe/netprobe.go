// Package netprobe checks network reachability with a bounded TCP dial.
package netprobe

import (
	"context"
	"net"
	"time"
)

const (
	DefaultAddress = "1.1.1.1:53"
	DefaultTimeout = 2 * time.Second
)

// Probe reports whether the network is currently reachable.
type Probe interface {
	IsReachable(ctx context.Context) bool
}

// DialFunc matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// TCP dials a fixed address and reports success. The connection is closed immediately.
type TCP struct {
	Address string
	Timeout time.Duration
	Dial    DialFunc
}

// NewTCP creates a probe, substituting defaults for empty arguments.
func NewTCP(address string, timeout time.Duration) *TCP {
	if address == "" {
		address = DefaultAddress
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &TCP{
		Address: address,
		Timeout: timeout,
		Dial:    (&net.Dialer{}).DialContext,
	}
}

func (p *TCP) IsReachable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	conn, err := p.Dial(ctx, "tcp", p.Address)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Always is a probe with a fixed answer.
type Always bool

func (a Always) IsReachable(context.Context) bool {
	return bool(a)
}
