package ipc

import (
	"context"
	"io"
	"log/slog"
	"net"

	"gcm/internal/endpoint"
	"gcm/internal/fault"
	"gcm/internal/logging"
)

// DialFunc opens a stream connection to the daemon endpoint.
type DialFunc func(ctx context.Context, path endpoint.Path) (net.Conn, error)

// Bootstrapper starts the daemon after a failed dial. It reports nothing: a
// failed bootstrap shows up as a failed redial.
type Bootstrapper interface {
	EnsureRunning(ctx context.Context, path endpoint.Path)
}

// DialUnix connects to path with no timeout.
func DialUnix(ctx context.Context, path endpoint.Path) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", path.String())
}

// Client opens sessions against one daemon endpoint.
type Client struct {
	path      endpoint.Path
	dial      DialFunc
	bootstrap Bootstrapper
	logger    *slog.Logger
	state     State
}

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces DialUnix.
func WithDialer(dial DialFunc) Option {
	return func(c *Client) {
		if dial != nil {
			c.dial = dial
		}
	}
}

// WithBootstrapper sets the daemon launcher used after a failed first dial.
func WithBootstrapper(b Bootstrapper) Option {
	return func(c *Client) { c.bootstrap = b }
}

// WithLogger sets the trace logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient returns a Client for path.
func NewClient(path endpoint.Path, opts ...Option) *Client {
	c := &Client{
		path:   path,
		dial:   DialUnix,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State reports the client's connection state.
func (c *Client) State() State { return c.state }

// Connect dials the endpoint. When the first dial fails and a Bootstrapper is
// configured, the daemon is started and the endpoint dialled exactly once
// more. Failure of the last attempt is a fault.KindConnection error.
func (c *Client) Connect(ctx context.Context) (*Session, error) {
	c.state = StateConnecting
	c.logger.Debug("connecting to daemon", logging.String(logging.FieldSocket, c.path.String()))

	conn, err := c.dial(ctx, c.path)
	if err != nil && c.bootstrap != nil {
		c.logger.Debug("daemon unreachable", logging.Error(err))
		c.state = StateBootstrapping
		c.bootstrap.EnsureRunning(ctx, c.path)

		c.state = StateConnecting
		conn, err = c.dial(ctx, c.path)
	}
	if err != nil {
		c.state = StateClosed
		return nil, fault.Connection("connect", err)
	}

	c.state = StateConnected
	return NewSession(conn, c.logger), nil
}

// Exchange runs one complete request/response cycle: connect, send verb,
// stream request lines from in, and relay the reply to out. The connection is
// closed on every return path once established.
func (c *Client) Exchange(ctx context.Context, verb string, in io.Reader, out io.Writer) error {
	session, err := c.Connect(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.SendVerb(verb); err != nil {
		return err
	}
	if err := session.Stream(in); err != nil {
		return err
	}
	return session.Drain(out)
}
