package rawhttp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const readChunkSize = 4096

// Outcome is the result of one request. Err is nil on success.
type Outcome struct {
	Response []byte
	Size     int
	Latency  time.Duration
	Err      error
}

// Success reports whether the request completed and returned bytes.
func (o Outcome) Success() bool { return o.Err == nil }

// Reason returns a short diagnostic for failed outcomes.
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Dialer opens the connection a request is sent over.
type Dialer interface {
	Dial(ctx context.Context, host string, port int, useTLS bool, timeout time.Duration) (net.Conn, error)
}

// Executor sends one request per call over a fresh connection.
type Executor struct {
	dialer  Dialer
	encoder *Encoder
	logger  zerolog.Logger
}

// NewExecutor composes a dialer and an encoder. Nil arguments fall back to
// NewConnector(nil) and NewEncoder(nil, nil).
func NewExecutor(dialer Dialer, encoder *Encoder) *Executor {
	if dialer == nil {
		dialer = NewConnector(nil)
	}
	if encoder == nil {
		encoder = NewEncoder(nil, nil)
	}
	return &Executor{dialer: dialer, encoder: encoder, logger: zerolog.Nop()}
}

// WithLogger returns a copy of the executor that logs request heads at debug level.
func (e *Executor) WithLogger(logger zerolog.Logger) *Executor {
	clone := *e
	clone.logger = logger
	return &clone
}

// Execute performs one request against t. The whole exchange (connect,
// handshake, write and read) shares one deadline, timeout after the call
// starts; a non-positive timeout fails the request at once. The connection
// is always closed before returning.
func (e *Executor) Execute(ctx context.Context, t Target, timeout time.Duration) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	fail := func(err error) Outcome {
		return Outcome{Err: err, Latency: time.Since(start)}
	}

	conn, err := e.dialer.Dial(ctx, t.Host, t.Port, t.UseTLS, timeout)
	if err != nil {
		var connErr *ConnectError
		if !errors.As(err, &connErr) {
			err = &ConnectError{Op: "dial", Addr: net.JoinHostPort(t.Host, strconv.Itoa(t.Port)), Err: err}
		}
		return fail(err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(start.Add(timeout)); err != nil {
		return fail(&TransferError{Op: "write", Err: err})
	}
	// Unblock pending I/O when the caller gives up.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	payload := e.encoder.Encode(t)
	if e.logger.GetLevel() <= zerolog.DebugLevel {
		head := payload
		if idx := bytes.Index(head, []byte("\r\n\r\n")); idx >= 0 {
			head = head[:idx]
		}
		e.logger.Debug().Str("host", t.Host).Int("port", t.Port).Msgf("request headers\n%s", head)
	}

	if _, err := conn.Write(payload); err != nil {
		return fail(&TransferError{Op: "write", Err: err})
	}

	response, err := drain(conn)
	if err != nil {
		return fail(&TransferError{Op: "read", Err: err})
	}
	if len(response) == 0 {
		return fail(&TransferError{Op: "read", Err: ErrEmptyResponse})
	}

	return Outcome{
		Response: response,
		Size:     len(response),
		Latency:  time.Since(start),
	}
}

// drain reads until the peer closes the stream.
func drain(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, readChunkSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return buf.Bytes(), nil
			}
			return nil, err
		}
	}
}
