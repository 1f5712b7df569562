package rawhttp

import (
	"errors"
	"fmt"
	"net"
	"os"
)

// ErrEmptyResponse is reported when the server closes the connection
// without sending a single byte.
var ErrEmptyResponse = errors.New("empty response")

// ConnectError reports a failure to resolve, dial or complete the TLS
// handshake with the target.
type ConnectError struct {
	Op   string // "resolve", "dial" or "tls"
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// TransferError reports a fault while writing the request or reading the
// response on an established connection.
type TransferError struct {
	Op  string // "write" or "read"
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s: %v", e.Op, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// IsTimeout reports whether err was caused by a deadline or dial timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Kind classifies err into a short label suitable for breakdown tables.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var connErr *ConnectError
	if errors.As(err, &connErr) {
		if IsTimeout(err) {
			return "connect timeout"
		}
		return "connect " + connErr.Op
	}
	var xferErr *TransferError
	if errors.As(err, &xferErr) {
		switch {
		case errors.Is(err, ErrEmptyResponse):
			return "empty response"
		case IsTimeout(err):
			return xferErr.Op + " timeout"
		default:
			return xferErr.Op + " error"
		}
	}
	return "other"
}
