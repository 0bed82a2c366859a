// Package reqctx carries a per-request metric record through a
// request's context, populated at accept time and read back by the
// access-log middleware once the response has been written.
package reqctx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/omalloc/tcrelay/internal/constants"
)

type requestMetricKey struct{}

type RequestMetric struct {
	StartAt           time.Time
	RequestID         string
	RecvReq           uint64
	SentResp          uint64
	CacheStatus       string
	RemoteAddr        string
	FirstResponseTime time.Time
}

func WithRequestMetric(req *http.Request) (*http.Request, *RequestMetric) {
	metric := &RequestMetric{
		StartAt:   time.Now(),
		RequestID: MustParseRequestID(req.Header),
	}
	return req.WithContext(newContext(req.Context(), metric)), metric
}

func FromContext(ctx context.Context) *RequestMetric {
	if v, ok := ctx.Value(requestMetricKey{}).(*RequestMetric); ok {
		return v
	}
	return &RequestMetric{}
}

func newContext(ctx context.Context, metric *RequestMetric) context.Context {
	return context.WithValue(ctx, requestMetricKey{}, metric)
}

func MustParseRequestID(h http.Header) string {
	id := h.Get(constants.ProtocolRequestIDKey)
	if id == "" {
		return generateRequestID()
	}
	return id
}

func generateRequestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return hex.EncodeToString(b)
}
