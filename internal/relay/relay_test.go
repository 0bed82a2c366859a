package relay

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omalloc/tcrelay/internal/admission"
	"github.com/omalloc/tcrelay/internal/cachestore"
	"github.com/omalloc/tcrelay/internal/metrics"
)

func newHandler(mirrors []string, skip int) *Handler {
	return New(admission.New(), cachestore.New(), metrics.New(), nil, mirrors, skip)
}

func roundTrip(t *testing.T, h *Handler, method, path string, header http.Header) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if header != nil {
		req.Header = header
	}
	resp, err := h.RoundTrip(req)
	require.NoError(t, err)
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

// S1 — exhaustion past unreachable/malformed mirrors to a working one.
func TestScenarioExhaustionFallsToLastMirror(t *testing.T) {
	want := "this is exactly forty two bytes of text!!!"
	require.Len(t, want, 42)

	last := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/10.x/x86/tcz/sed.tcz.md5.txt", r.URL.Path)
		_, _ = w.Write([]byte(want))
	}))
	defer last.Close()

	mirrors := []string{
		"http://127.0.0.1:1",
		"://owo: whats this!",
		last.URL,
	}
	h := newHandler(mirrors, 0)

	resp := roundTrip(t, h, http.MethodGet, "/10.x/x86/tcz/sed.tcz.md5.txt", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, strconv.Itoa(42), resp.Header.Get("Content-Length"))
	assert.Equal(t, want, readBody(t, resp))
}

// S2 — range on an already-cached entry.
func TestScenarioRangeOnCached(t *testing.T) {
	h := newHandler(nil, 0)
	h.Store.Insert("/x", []byte("beep boop"))
	h.Filter.Add([]byte("/x"))

	header := http.Header{"Range": []string{"bytes=3-5"}}
	resp := roundTrip(t, h, http.MethodGet, "/x", header)

	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, "3-5/9", resp.Header.Get("Content-Range"))
	body := readBody(t, resp)
	assert.Len(t, body, 3)
	assert.Equal(t, "p b", body)
}

// S3 — malformed Range header against a cached entry.
func TestScenarioBadRange(t *testing.T) {
	h := newHandler(nil, 0)
	h.Store.Insert("/x", []byte("beep boop"))
	h.Filter.Add([]byte("/x"))

	header := http.Header{"Range": []string{"bytes=meow"}}
	resp := roundTrip(t, h, http.MethodGet, "/x", header)

	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, resp.StatusCode)
	assert.Equal(t, unsatisfiableBody, readBody(t, resp))
}

// S4 — no mirrors configured at all.
func TestScenarioNoMirrors(t *testing.T) {
	h := newHandler(nil, 0)

	resp := roundTrip(t, h, http.MethodGet, "/meow", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, notFoundBody, readBody(t, resp))
}

// S5/S6 — seen/skip interaction followed by delete.
func TestScenarioSeenSkipThenDelete(t *testing.T) {
	const body0 = "from m0"
	const body1 = "from m1"

	m0up := true
	m0 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m0up {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(body0))
	}))
	defer m0.Close()

	m1 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body1))
	}))
	defer m1.Close()

	h := newHandler([]string{m0.URL, m1.URL}, 1)

	// First GET /p: serves from m0 (index 0), not cached, filter now seen.
	resp := roundTrip(t, h, http.MethodGet, "/p", nil)
	assert.Equal(t, body0, readBody(t, resp))
	_, cached := h.Store.Get("/p")
	assert.False(t, cached)
	assert.True(t, h.Filter.Check([]byte("/p")))

	// Second GET /p: still m0, still i=0 < skip, still not cached.
	resp = roundTrip(t, h, http.MethodGet, "/p", nil)
	assert.Equal(t, body0, readBody(t, resp))
	_, cached = h.Store.Get("/p")
	assert.False(t, cached)

	// Retire m0.
	m0up = false

	// Third GET /p: falls to m1 (index 1 >= skip), seen, now cached.
	resp = roundTrip(t, h, http.MethodGet, "/p", nil)
	assert.Equal(t, body1, readBody(t, resp))

	buf, cached := h.Store.Get("/p")
	assert.True(t, cached)
	assert.Equal(t, []byte(body1), buf)

	// Fourth GET /p: served from cache, no upstream needed.
	resp = roundTrip(t, h, http.MethodGet, "/p", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, body1, readBody(t, resp))

	// S6: delete, then GET with m1 down too.
	resp = roundTrip(t, h, http.MethodDelete, "/p", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, deletedBody, readBody(t, resp))

	m1.Close()
	resp = roundTrip(t, h, http.MethodGet, "/p", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, notFoundBody, readBody(t, resp))
}

func TestDeleteMissingIsNotFound(t *testing.T) {
	h := newHandler(nil, 0)
	resp := roundTrip(t, h, http.MethodDelete, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, notFoundBody, readBody(t, resp))
}

func TestMetricsPathRendersCounters(t *testing.T) {
	h := newHandler(nil, 0)
	_ = roundTrip(t, h, http.MethodGet, MetricsPath, nil)

	resp := roundTrip(t, h, http.MethodGet, MetricsPath, nil)
	body := readBody(t, resp)
	assert.Contains(t, body, "requests 2\n")
}

func TestUnseenFirstMissNeverCachesRegardlessOfSkip(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("v"))
	}))
	defer up.Close()

	h := newHandler([]string{up.URL}, 0)
	_ = roundTrip(t, h, http.MethodGet, "/q", nil)

	_, cached := h.Store.Get("/q")
	assert.False(t, cached)
	assert.True(t, h.Filter.Check([]byte("/q")))
}
