package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"dario.cat/mergo"
	"github.com/cloudflare/tableflip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/omalloc/tcrelay/conf"
	"github.com/omalloc/tcrelay/contrib/config"
	"github.com/omalloc/tcrelay/contrib/config/provider/file"
	"github.com/omalloc/tcrelay/contrib/log"
	"github.com/omalloc/tcrelay/internal/admission"
	"github.com/omalloc/tcrelay/internal/cachestore"
	"github.com/omalloc/tcrelay/internal/metrics"
	"github.com/omalloc/tcrelay/internal/relay"
	"github.com/omalloc/tcrelay/server"
)

var (
	// flagBind is the client-facing listen address, overridable by the
	// BIND environment variable.
	flagBind string
	// flagSkip is the cache-eligibility skip threshold.
	flagSkip int
	// flagConf is the optional ambient-settings config file path.
	flagConf string
	// flagPidFile is written by the graceful-restart upgrader.
	flagPidFile string
	// flagVerbose enables debug-level logging.
	flagVerbose bool

	// Version is the version of the app.
	Version string = "no-set"
	GitHash string = "no-set"
	Built   string = "0"
)

func init() {
	bind := os.Getenv("BIND")
	if bind == "" {
		bind = "[::]:8060"
	}

	flag.StringVar(&flagBind, "b", bind, "listen address (env BIND)")
	flag.IntVar(&flagSkip, "s", 0, "cache-eligibility skip threshold")
	flag.StringVar(&flagConf, "c", "", "optional config file path (yaml/json)")
	flag.StringVar(&flagPidFile, "pidfile", "", "pidfile path for graceful restart")
	flag.BoolVar(&flagVerbose, "v", false, "enable verbose log")

	registerer := prometheus.WrapRegistererWithPrefix("tr_tcrelay_", prometheus.DefaultRegisterer)
	registerer.MustRegister(collectors.NewGoCollector(collectors.WithGoCollectorMemStatsMetricsDisabled()))
}

func main() {
	flag.Parse()

	mirrors := flag.Args()
	if len(mirrors) == 0 {
		log.Fatal("at least one mirror base URL is required")
	}

	bc := &conf.Bootstrap{
		Bind:    flagBind,
		Skip:    flagSkip,
		Mirrors: mirrors,
		PidFile: flagPidFile,
		Logger: &conf.Logger{
			Level: "info",
		},
		Server: &conf.Server{
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			MaxHeaderBytes:    1 << 20,
			PProf:             &conf.ServerPProf{},
			AccessLog:         &conf.ServerAccessLog{},
		},
	}

	if flagVerbose {
		bc.Logger.Level = "debug"
	}

	if flagConf != "" {
		c := config.New[conf.Bootstrap](config.WithSource(file.New(flagConf)))
		defer c.Close()

		overlay := &conf.Bootstrap{}
		if err := c.Scan(overlay); err != nil {
			log.Warnf("failed to load config %s: %v", flagConf, err)
		} else if err := mergo.Merge(bc, overlay, mergo.WithOverride); err != nil {
			log.Warnf("failed to merge config %s onto defaults: %v", flagConf, err)
		}

		// flags win over file values for the fields flags also control.
		bc.Bind = flagBind
		bc.Skip = flagSkip
		bc.Mirrors = mirrors
	}

	log.SetLogger(log.With(newProcessLogger(bc.Logger), "ts", log.Timestamp(time.RFC3339), "pid", os.Getpid()))

	if err := run(bc); err != nil {
		log.Fatal(err)
	}
}

// newProcessLogger builds the process-wide logger from bc.Logger: a
// rotating file sink via lumberjack when Path is set, matching
// server/mod's access-log sink, or stderr otherwise.
func newProcessLogger(c *conf.Logger) log.Logger {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = ""
	encoder := zapcore.NewConsoleEncoder(encoderCfg)

	var sink zapcore.WriteSyncer
	if c.Path != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   c.Path,
			MaxSize:    c.MaxSize,
			MaxAge:     c.MaxAge,
			MaxBackups: c.MaxBackups,
			Compress:   c.Compress,
			LocalTime:  true,
		})
	} else {
		sink = zapcore.Lock(os.Stderr)
	}

	core := zapcore.NewCore(encoder, sink, level)

	var opts []zap.Option
	if c.Caller {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	return log.NewZapLogger(zap.New(core, opts...))
}

func run(bc *conf.Bootstrap) error {
	stopTimeout := 30 * time.Second

	flip, err := tableflip.New(tableflip.Options{
		PIDFile:        bc.PidFile,
		UpgradeTimeout: stopTimeout,
	})
	if err != nil {
		return err
	}
	defer flip.Stop()

	if !flip.HasParent() {
		if strings.HasSuffix(bc.Bind, ".sock") {
			_ = os.Remove(bc.Bind)
		}
	}

	filter := admission.New()
	store := cachestore.New()
	counters := metrics.New()
	rate := metrics.NewRateTracker()

	handler := relay.New(filter, store, counters, rate, bc.Mirrors, bc.Skip)

	srv := server.NewServer(flip, bc, handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()
	go logThroughput(ctx, rate)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGUSR2)

	for {
		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGUSR2:
				log.Info("received SIGUSR2, starting graceful upgrade")
				if err := flip.Upgrade(); err != nil {
					log.Errorf("upgrade failed: %v", err)
				}
			default:
				log.Infof("received %s, shutting down", sig)
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), stopTimeout)
				err := srv.Stop(shutdownCtx)
				shutdownCancel()
				cancel()
				return err
			}
		}
	}
}

// logThroughput logs the relay's sliding-window request rate every 30
// seconds until ctx is cancelled. Purely observational; the rate never
// feeds back into any handler decision.
func logThroughput(ctx context.Context, rate *metrics.RateTracker) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Debugf("throughput: %d req/s", rate.RequestsPerSecond())
		}
	}
}
