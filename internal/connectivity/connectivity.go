// Package connectivity reports whether the network is usable before the client
// attempts remote calls.
package connectivity

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
)

// Checker reports network availability.
type Checker interface {
	Online(ctx context.Context) bool
}

// Static is a Checker with a fixed answer.
type Static bool

// Compile-time checks that the checkers implement Checker.
var (
	_ Checker = Static(true)
	_ Checker = (*Probe)(nil)
)

// Online returns the fixed answer.
func (s Static) Online(context.Context) bool {
	return bool(s)
}

// DefaultProbeAddr is a well-known anycast DNS resolver.
const DefaultProbeAddr = "1.1.1.1:53"

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 2 * time.Second

// Probe checks connectivity by opening a TCP connection.
type Probe struct {
	addr    string
	timeout time.Duration
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)
	logger  *zap.Logger
}

// Option configures a Probe.
type Option func(*Probe)

// WithAddr sets the host:port dialed by the probe.
func WithAddr(addr string) Option {
	return func(p *Probe) {
		if addr != "" {
			p.addr = addr
		}
	}
}

// WithTimeout bounds each probe.
func WithTimeout(d time.Duration) Option {
	return func(p *Probe) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Probe) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProbe creates a TCP probe.
func NewProbe(opts ...Option) *Probe {
	p := &Probe{
		addr:    DefaultProbeAddr,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.dial == nil {
		d := &net.Dialer{}
		p.dial = d.DialContext
	}
	return p
}

// Online dials the probe address and reports whether it succeeded.
func (p *Probe) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dial(ctx, "tcp", p.addr)
	if err != nil {
		p.logger.Debug("connectivity probe failed",
			zap.String("addr", p.addr),
			zap.Error(err),
		)
		return false
	}
	conn.Close()
	return true
}
