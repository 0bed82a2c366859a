// Package mirror implements the relay's ordered upstream fallback
// client: given a ranked list of mirror base URLs, it tries each in
// turn over whichever transport scheme that mirror advertises
// (plaintext, TLS with the system trust store, or TLS accepting any
// certificate) until one answers with a 2xx response.
//
// Every call opens a fresh connection — no pooling, no client reuse —
// because fallback order and transport scheme are decided per path, per
// hop. Every failure mode (bad scheme, unparseable URL, dial failure,
// handshake failure, protocol failure, non-2xx status) collapses to
// the same "this mirror did not serve" outcome from TryGet's point of
// view; only exhausting every mirror is visible to the caller.
package mirror

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
)

// Result is a successful response from a specific mirror.
type Result struct {
	Response *http.Response
	Index    int
}

// ErrUnsupportedScheme is returned by Get (never by TryGet, which
// swallows it and moves on) when a mirror URL names a scheme other
// than http, https, or https+insecure.
var ErrUnsupportedScheme = errors.New("mirror: unsupported URL scheme")

// TryGet tries mirrors[i]+path in order and returns the first 2xx
// response along with the index of the mirror that served it. It never
// fails outright: when every mirror is exhausted without a 2xx, ok is
// false.
func TryGet(ctx context.Context, mirrors []string, path string) (Result, bool) {
	for i, base := range mirrors {
		u, err := url.Parse(base + path)
		if err != nil || !u.IsAbs() {
			continue
		}

		resp, err := Get(ctx, u)
		if err != nil {
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			continue
		}

		return Result{Response: resp, Index: i}, true
	}
	return Result{}, false
}

// Get performs a single HTTP/1 GET against u, selecting the transport
// by u's scheme:
//
//   - "http" or "" — plaintext TCP, default port 80.
//   - "https"      — TLS with the system-trusted root store, default port 443.
//   - "https+insecure" — TLS that accepts any server certificate and any
//     signature scheme the Go crypto provider supports, default port 443.
//
// Any other scheme is a hard error. The returned response's body owns
// the underlying connection: closing the body closes the connection.
func Get(ctx context.Context, u *url.URL) (*http.Response, error) {
	host, port, tlsCfg, err := dialParams(u)
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, fmt.Errorf("mirror: dial %s: %w", u.Host, err)
	}

	if tlsCfg != nil {
		tlsCfg = tlsCfg.Clone()
		tlsCfg.ServerName = host
		tc := tls.Client(conn, tlsCfg)
		if err := tc.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("mirror: tls handshake %s: %w", u.Host, err)
		}
		conn = tc
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	authority := net.JoinHostPort(host, port)
	requestTarget := u.EscapedPath()
	if requestTarget == "" {
		requestTarget = "/"
	}

	reqLine := fmt.Sprintf("GET %s HTTP/1.1\r\nHost: %s\r\nConnection: close\r\n\r\n", requestTarget, authority)
	if _, err := conn.Write([]byte(reqLine)); err != nil {
		stop()
		_ = conn.Close()
		return nil, fmt.Errorf("mirror: write request %s: %w", u.Host, err)
	}

	reader := bufio.NewReader(conn)
	resp, err := http.ReadResponse(reader, &http.Request{Method: http.MethodGet})
	if err != nil {
		stop()
		_ = conn.Close()
		return nil, fmt.Errorf("mirror: read response %s: %w", u.Host, err)
	}

	resp.Body = &ownedBody{body: resp.Body, conn: conn, stop: stop}
	return resp, nil
}

// dialParams resolves a mirror URL's host, port, and (nil for
// plaintext) TLS configuration.
func dialParams(u *url.URL) (host, port string, tlsCfg *tls.Config, err error) {
	host = u.Hostname()
	port = u.Port()

	switch u.Scheme {
	case "", "http":
		if port == "" {
			port = "80"
		}
		return host, port, nil, nil
	case "https":
		if port == "" {
			port = "443"
		}
		return host, port, &tls.Config{}, nil
	case "https+insecure":
		if port == "" {
			port = "443"
		}
		return host, port, &tls.Config{
			InsecureSkipVerify: true,
			VerifyConnection:   func(tls.ConnectionState) error { return nil },
		}, nil
	default:
		return "", "", nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

// ownedBody ties the response body's lifetime to the connection it was
// read from, per "body owns transport": closing it stops the
// context-cancellation watcher and closes the socket.
type ownedBody struct {
	body io.ReadCloser
	conn net.Conn
	stop func() bool
}

func (b *ownedBody) Read(p []byte) (int, error) { return b.body.Read(p) }

func (b *ownedBody) Close() error {
	b.stop()
	bodyErr := b.body.Close()
	connErr := b.conn.Close()
	if bodyErr != nil {
		return bodyErr
	}
	return connErr
}
