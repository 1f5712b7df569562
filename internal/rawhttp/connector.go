package rawhttp

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strconv"
	"time"
)

// Connector opens one stream socket per request. It never retries.
type Connector struct {
	tlsConfig *tls.Config
	dialer    *net.Dialer
}

// NewConnector returns a connector. tlsConfig may be nil, in which case the
// system trust store is used and the server name is taken from the host.
func NewConnector(tlsConfig *tls.Config) *Connector {
	return &Connector{
		tlsConfig: tlsConfig,
		dialer:    &net.Dialer{},
	}
}

// Dial connects to host:port within timeout and, when useTLS is set, completes
// a TLS client handshake with SNI equal to host. The returned connection
// carries no deadline; callers set their own.
func (c *Connector) Dial(ctx context.Context, host string, port int, useTLS bool, timeout time.Duration) (net.Conn, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		op := "dial"
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			op = "resolve"
		}
		return nil, &ConnectError{Op: op, Addr: addr, Err: err}
	}
	if !useTLS {
		return conn, nil
	}

	tlsConn := tls.Client(conn, c.clientConfig(host))
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, &ConnectError{Op: "tls", Addr: addr, Err: err}
	}
	return tlsConn, nil
}

func (c *Connector) clientConfig(host string) *tls.Config {
	var cfg *tls.Config
	if c.tlsConfig != nil {
		cfg = c.tlsConfig.Clone()
	} else {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	return cfg
}
