package mirror

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryGetFirstMirrorServes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/x/y.txt", r.URL.Path)
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	res, ok := TryGet(context.Background(), []string{srv.URL}, "/x/y.txt")
	require.True(t, ok)
	assert.Equal(t, 0, res.Index)
	defer res.Response.Body.Close()

	body, err := io.ReadAll(res.Response.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestTryGetFallsPastBadMirrors(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer good.Close()

	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer notFound.Close()

	mirrors := []string{
		"://not-a-url",
		"http://127.0.0.1:1", // nothing listening
		notFound.URL,
		good.URL,
	}

	res, ok := TryGet(context.Background(), mirrors, "/p")
	require.True(t, ok)
	assert.Equal(t, 3, res.Index)
	defer res.Response.Body.Close()

	body, err := io.ReadAll(res.Response.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestTryGetExhaustionReturnsFalse(t *testing.T) {
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer notFound.Close()

	_, ok := TryGet(context.Background(), []string{notFound.URL, "http://127.0.0.1:1"}, "/p")
	assert.False(t, ok)
}

func TestGetInsecureAcceptsSelfSignedCert(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("secure"))
	}))
	defer srv.Close()

	insecureURL := "https+insecure" + srv.URL[len("https"):]

	res, ok := TryGet(context.Background(), []string{insecureURL}, "/p")
	require.True(t, ok)
	defer res.Response.Body.Close()

	body, err := io.ReadAll(res.Response.Body)
	require.NoError(t, err)
	assert.Equal(t, "secure", string(body))
}

func TestGetPlainHTTPSRejectsSelfSignedCert(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("secure"))
	}))
	defer srv.Close()

	_, ok := TryGet(context.Background(), []string{srv.URL}, "/p")
	assert.False(t, ok)
}

func TestGetUnsupportedSchemeIsError(t *testing.T) {
	u, err := url.Parse("ftp://example.com/p")
	require.NoError(t, err)

	_, err = Get(context.Background(), u)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}
