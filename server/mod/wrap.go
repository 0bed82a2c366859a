package mod

import (
	"net/http"

	"github.com/omalloc/tcrelay/reqctx"
	xhttp "github.com/omalloc/tcrelay/pkg/x/http"
)

func fillRequest(req *http.Request) {
	if req.URL.Scheme == "" {
		req.URL.Scheme = xhttp.Scheme(req)
	}
	if req.URL.Host == "" {
		req.URL.Host = req.Host
	}
}

func wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {

		fillRequest(req)

		req, metric := reqctx.WithRequestMetric(req)

		rw := xhttp.NewResponseRecorder(w)
		defer func() {
			metric.SentResp = rw.SentBytes()
		}()

		next(rw, req)
	}
}
