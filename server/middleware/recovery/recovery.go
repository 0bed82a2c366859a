// Package recovery provides a RoundTripper middleware that converts a
// panic from the inner tripper into a logged error instead of crashing
// the accepting goroutine.
package recovery

import (
	"net/http"
	"runtime/debug"

	"github.com/omalloc/tcrelay/contrib/log"
	"github.com/omalloc/tcrelay/server/middleware"
)

// New returns a middleware that recovers a panic raised by the wrapped
// tripper, logs it, and responds with 500.
func New() middleware.Middleware {
	return func(origin http.RoundTripper) http.RoundTripper {
		return middleware.RoundTripperFunc(func(req *http.Request) (resp *http.Response, err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Context(req.Context()).Errorf("middleware recovery: %v\n%s", r, debug.Stack())
					err = errPanicked
				}
			}()

			return origin.RoundTrip(req)
		})
	}
}

var errPanicked = panicError{}

type panicError struct{}

func (panicError) Error() string { return "recovered from panic in request handling" }
