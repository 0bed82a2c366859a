// Package relay implements the request handler that orchestrates the
// admission filter, cache store, mirror client, and fan-out body into
// the relay's per-request algorithm.
//
// Handler is an http.RoundTripper, the same shape the teacher's server
// package uses for its middleware chain: server.buildHandler drives any
// http.RoundTripper and streams its *http.Response back to the client,
// so Handler slots in as the innermost tripper with no change to that
// plumbing.
package relay

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/omalloc/tcrelay/internal/admission"
	"github.com/omalloc/tcrelay/internal/cachestore"
	"github.com/omalloc/tcrelay/internal/fanout"
	"github.com/omalloc/tcrelay/internal/metrics"
	"github.com/omalloc/tcrelay/internal/mirror"
	"github.com/omalloc/tcrelay/internal/rangeparse"
)

// MetricsPath is the reserved path serving the plain-text counter
// exposition.
const MetricsPath = "/_tcrelay/metrics"

const (
	deletedBody       = "nom nom\n"
	notFoundBody      = "knot found\n"
	unsatisfiableBody = "U WOT M8\n"
)

// Handler wires together the admission filter, cache store, counters,
// and mirror list behind the per-request algorithm of §4.7.
type Handler struct {
	Filter   *admission.Filter
	Store    *cachestore.Store
	Counters *metrics.Counters
	Rate     *metrics.RateTracker
	Mirrors  []string
	Skip     int
}

// New returns a Handler ready to serve requests. rate may be nil; when
// set, every request is recorded into its sliding window for log
// annotation only — it never influences a handler decision.
func New(filter *admission.Filter, store *cachestore.Store, counters *metrics.Counters, rate *metrics.RateTracker, mirrors []string, skip int) *Handler {
	return &Handler{Filter: filter, Store: store, Counters: counters, Rate: rate, Mirrors: mirrors, Skip: skip}
}

// RoundTrip implements http.RoundTripper.
func (h *Handler) RoundTrip(req *http.Request) (*http.Response, error) {
	h.Counters.IncRequests()
	if h.Rate != nil {
		h.Rate.Hit()
	}

	path := req.URL.Path

	if req.Method == http.MethodDelete {
		h.Counters.IncDeletes()
		if _, ok := h.Store.Remove(path); ok {
			return textResponse(req, http.StatusOK, deletedBody), nil
		}
		return textResponse(req, http.StatusNotFound, notFoundBody), nil
	}

	if path == MetricsPath {
		return textResponse(req, http.StatusOK, h.Counters.Render()), nil
	}

	pathBytes := []byte(path)
	seen := h.Filter.Check(pathBytes)

	if seen {
		if buf, ok := h.Store.Get(path); ok {
			h.Counters.IncHits()
			return h.serveCached(req, buf), nil
		}
	}

	result, ok := mirror.TryGet(req.Context(), h.Mirrors, path)
	if !ok {
		h.Counters.IncNotFound()
		return textResponse(req, http.StatusNotFound, notFoundBody), nil
	}

	h.Counters.IncMisses()

	cacheThis := seen && result.Index >= h.Skip
	if cacheThis {
		h.Counters.IncCached()
		result.Response.Body = fanout.New(result.Response.Body, path, h.Store)
	} else {
		h.Filter.Add(pathBytes)
	}

	return result.Response, nil
}

// serveCached builds the response for an admission-filter hit backed by
// a cache-store entry, honoring a Range request header per §4.8.
func (h *Handler) serveCached(req *http.Request, buf []byte) *http.Response {
	header := http.Header{}
	header.Set("Accept-Ranges", "bytes")

	rangeHeader := req.Header.Get("Range")
	if rangeHeader == "" {
		header.Set("Content-Length", strconv.Itoa(len(buf)))
		return newResponse(req, http.StatusOK, header, io.NopCloser(bytes.NewReader(buf)), int64(len(buf)))
	}

	iv, ok := rangeparse.Parse(rangeHeader, uint64(len(buf)))
	if !ok {
		header.Set("Content-Length", strconv.Itoa(len(unsatisfiableBody)))
		return newResponse(req, http.StatusRequestedRangeNotSatisfiable, header, io.NopCloser(strings.NewReader(unsatisfiableBody)), int64(len(unsatisfiableBody)))
	}

	slice := buf[iv.Start : iv.End+1]
	header.Set("Content-Range", fmt.Sprintf("%d-%d/%d", iv.Start, iv.End, len(buf)))
	header.Set("Content-Length", strconv.Itoa(len(slice)))
	return newResponse(req, http.StatusPartialContent, header, io.NopCloser(bytes.NewReader(slice)), int64(len(slice)))
}

// textResponse builds a plain-text response with a Content-Length
// matching body exactly.
func textResponse(req *http.Request, status int, body string) *http.Response {
	header := http.Header{}
	header.Set("Content-Type", "text/plain; charset=utf-8")
	header.Set("Content-Length", strconv.Itoa(len(body)))
	return newResponse(req, status, header, io.NopCloser(strings.NewReader(body)), int64(len(body)))
}

func newResponse(req *http.Request, status int, header http.Header, body io.ReadCloser, length int64) *http.Response {
	return &http.Response{
		Status:        http.StatusText(status),
		StatusCode:    status,
		Proto:         req.Proto,
		ProtoMajor:    req.ProtoMajor,
		ProtoMinor:    req.ProtoMinor,
		Header:        header,
		Body:          body,
		ContentLength: length,
		Request:       req,
	}
}
