// Package middleware provides the http.RoundTripper chaining
// primitive the server wraps the relay handler in.
package middleware

import "net/http"

// Middleware is handler middleware.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc is an adapter to allow the use of ordinary
// functions as an HTTP RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip calls f(req).
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Chain returns a Middleware that applies m in order, innermost last:
// Chain(a, b)(next) == a(b(next)).
func Chain(m ...Middleware) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		for i := len(m) - 1; i >= 0; i-- {
			next = m[i](next)
		}
		return next
	}
}
