// Package server wires the relay's request handler into a
// tableflip-upgradable *http.Server. A single listener serves both the
// client-facing relay traffic and, for loopback-style hosts only, the
// admin mux (metrics, version, health probes, pprof) — the same split
// the example corpus's HTTPServer makes with its localMatcher gate.
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/cloudflare/tableflip"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omalloc/tcrelay/conf"
	"github.com/omalloc/tcrelay/contrib/log"
	"github.com/omalloc/tcrelay/contrib/transport"
	xhttp "github.com/omalloc/tcrelay/pkg/x/http"
	"github.com/omalloc/tcrelay/pkg/x/runtime"
	"github.com/omalloc/tcrelay/server/middleware"
	"github.com/omalloc/tcrelay/server/middleware/recovery"
	"github.com/omalloc/tcrelay/server/mod"
)

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 32*1024)
		return &b
	},
}

// localMatcher names the hosts that are allowed to reach the admin mux
// instead of the relay handler.
var localMatcher = map[string]struct{}{
	"localhost": {},
	"127.1":     {},
	"127.0.0.1": {},
}

var (
	metricRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tr_tcrelay_http_requests_total",
		Help: "Total HTTP requests served by the relay, by protocol and status code.",
	}, []string{"proto", "status"})

	metricRequestUnexpectedClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tr_tcrelay_http_response_aborted_total",
		Help: "Responses whose body copy to the client failed before completion.",
	}, []string{"proto", "method"})
)

// HTTPServer serves the relay's business handler and its admin mux
// behind one listener, dispatched by request host.
type HTTPServer struct {
	*http.Server

	flip         *tableflip.Upgrader
	config       *conf.Bootstrap
	serverConfig *conf.Server
	listener     net.Listener
}

// NewServer builds the relay's HTTP server around tripper, the
// request handler that implements the relay's core algorithm.
func NewServer(flip *tableflip.Upgrader, config *conf.Bootstrap, tripper http.RoundTripper) transport.Server {
	servConfig := config.Server

	s := &HTTPServer{
		Server: &http.Server{
			Addr:              config.Bind,
			ReadTimeout:       servConfig.ReadTimeout,
			WriteTimeout:      servConfig.WriteTimeout,
			IdleTimeout:       servConfig.IdleTimeout,
			ReadHeaderTimeout: servConfig.ReadHeaderTimeout,
			MaxHeaderBytes:    servConfig.MaxHeaderBytes,
		},
		flip:         flip,
		config:       config,
		serverConfig: servConfig,
	}

	chain := middleware.Chain(recovery.New())
	business := s.buildHandler(chain(tripper))
	business = mod.HandleAccessLog(servConfig.AccessLog, business)

	admin := s.newAdminMux()

	s.Handler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		host := req.URL.Hostname()
		if host == "" {
			host, _, _ = net.SplitHostPort(req.Host)
		}
		if host == "" {
			host = req.Host
		}
		if _, ok := localMatcher[host]; ok {
			admin.ServeHTTP(w, req)
			return
		}
		business(w, req)
	})

	return s
}

func (s *HTTPServer) Start(ctx context.Context) error {
	s.BaseContext = func(net.Listener) context.Context { return ctx }

	if err := s.listen(); err != nil {
		return err
	}

	if err := s.flip.Ready(); err != nil {
		return err
	}

	log.Infof("relay listening on %s", s.config.Bind)

	if err := s.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	return s.Shutdown(ctx)
}

func (s *HTTPServer) listen() error {
	ln, err := s.flip.Fds.Listen("tcp", s.config.Bind)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

func (s *HTTPServer) newAdminMux() *http.ServeMux {
	mux := http.NewServeMux()

	if p := s.serverConfig.PProf; p != nil && (p.Username != "" || p.Password != "") {
		mod.HandlePProf(p, mux)
	}

	mux.Handle("/favicon.ico", http.NotFoundHandler())

	mux.Handle("/version", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := json.Marshal(runtime.BuildInfo)
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
	}))

	mux.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	mux.Handle("/healthz/startup-probe", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := []byte("ok")
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
	}))
	mux.Handle("/healthz/liveness-probe", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	mux.Handle("/healthz/readiness-probe", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	return mux
}

// buildHandler drives tripper and streams its *http.Response back to
// the client, pooling the copy buffer and recording an ambient
// Prometheus counter alongside the relay's own exact metrics (the
// metrics.Counters in tcrelay's RoundTripper are the ones §4.3 defines
// — this one is observability sugar, not part of that contract).
func (s *HTTPServer) buildHandler(tripper http.RoundTripper) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		clog := log.Context(req.Context())

		resp, err := tripper.RoundTrip(req)
		if err != nil {
			clog.Errorf("request %s %s failed: %s", req.Method, req.URL.Path, err)

			body := []byte("internal error\n")
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write(body)

			metricRequestsTotal.WithLabelValues(req.Proto, strconv.Itoa(http.StatusInternalServerError)).Inc()
			return
		}
		defer func() {
			if resp.Body != nil {
				_ = resp.Body.Close()
			}
		}()

		xhttp.RemoveHopByHopHeaders(resp.Header)

		headers := w.Header()
		xhttp.CopyHeader(headers, resp.Header)
		xhttp.CopyTrailer(headers, resp.Trailer)

		w.WriteHeader(resp.StatusCode)

		if resp.Body == nil || req.Method == http.MethodHead {
			metricRequestsTotal.WithLabelValues(req.Proto, strconv.Itoa(resp.StatusCode)).Inc()
			return
		}

		buf := bufPool.Get().(*[]byte)
		defer bufPool.Put(buf)
		defer metricRequestsTotal.WithLabelValues(req.Proto, strconv.Itoa(resp.StatusCode)).Inc()

		want := resp.Header.Get("Content-Length")

		sent, err := io.CopyBuffer(w, resp.Body, *buf)
		if err != nil && !errors.Is(err, io.EOF) {
			clog.Errorf("failed to copy response body to client: [%s] %s %s sent=%d want=%s err=%s", req.Proto, req.Method, req.URL.Path, sent, want, err)
			metricRequestUnexpectedClosed.WithLabelValues(req.Proto, req.Method).Inc()
			return
		}

		if xhttp.IsChunked(resp.Header) || want == "" {
			clog.Debugf("copied %d response body bytes chunked from upstream to client", sent)
			return
		}

		want1, _ := strconv.ParseInt(want, 10, 64)
		if sent != want1 {
			clog.Warnf("copied %d response body bytes to client, conflict Content-Length %s bytes", sent, want)
			return
		}

		clog.Debugf("copied %d response body bytes to client, Content-Length %s bytes", sent, want)
	}
}
