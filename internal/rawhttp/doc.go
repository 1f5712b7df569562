// Package rawhttp sends hand-built HTTP/1.1 requests over plain or TLS sockets.
//
// The package deliberately avoids net/http: every request opens a fresh
// connection, writes a request head produced by [Encoder], and drains the raw
// response bytes until the server closes the connection.
//
// # Encoding
//
// [Encoder.Encode] renders a [Target] into the wire format:
//
//	GET /x HTTP/1.1
//	Host: h
//	User-Agent: <random pick from the pool>
//	<caller headers, sorted by key>
//	Content-Length: <len(body)>   (only when a body is present)
//	Connection: close
//
// Header values are written verbatim. Callers are responsible for rejecting
// values containing CR or LF.
//
// # Execution
//
// [Executor.Execute] composes a [Connector] and an [Encoder]. It never
// returns an error: connect faults surface as [*ConnectError] and write/read
// faults as [*TransferError] inside the returned [Outcome].
//
//	exec := rawhttp.NewExecutor(rawhttp.NewConnector(nil), rawhttp.NewEncoder(nil, nil))
//	out := exec.Execute(ctx, target, 5*time.Second)
//	if !out.Success() {
//		log.Printf("request failed: %s", out.Reason())
//	}
//
// A response of zero bytes is reported as a failure ([ErrEmptyResponse]).
package rawhttp
