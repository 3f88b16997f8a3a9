// Command kek-server runs the key-value store's TCP front end: open
// (or create) a table of shard files at --path, listen on --port, and
// serve Put/Get requests until interrupted.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/theflywheel/kek/internal/server"
	"github.com/theflywheel/kek/internal/store"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, errOut *os.File) int {
	flagSet := flag.NewFlagSet("kek-server", flag.ContinueOnError)
	flagSet.SetOutput(errOut)

	port := flagSet.Uint16("port", 0, "TCP port to listen on (required)")
	path := flagSet.String("path", "./storage", "base directory for shard files")
	metricsAddr := flagSet.String("metrics-addr", "", "address to serve Prometheus metrics on (disabled if empty)")
	logLevel := flagSet.String("log-level", "info", "log level: debug, info, warn, error")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintf(errOut, "kek-server: %v\n", err)
		return 2
	}

	if !flagSet.Changed("port") {
		fmt.Fprintf(errOut, "kek-server: --port is required\n")
		return 2
	}

	log, err := newLogger(*logLevel)
	if err != nil {
		fmt.Fprintf(errOut, "kek-server: %v\n", err)
		return 2
	}
	defer log.Sync()

	registry := prometheus.NewRegistry()
	tableOpts := []store.Option{store.WithLogger(log)}
	if *metricsAddr != "" {
		tableOpts = append(tableOpts, store.WithMetrics(registry))
	}

	table, err := store.Open(*path, tableOpts...)
	if err != nil {
		log.Error("failed to open table", zap.String("path", *path), zap.Error(err))
		return 1
	}
	defer func() {
		if err := table.Close(); err != nil {
			log.Error("error closing table", zap.Error(err))
		}
	}()

	log.Info("table opened",
		zap.String("path", *path),
		zap.Uint64("shards", store.NumShards),
		zap.String("shard_capacity", humanize.Bytes(uint64(store.FileSize))),
	)

	if *metricsAddr != "" {
		startMetricsServer(log, *metricsAddr, registry)
	}

	addr := net.JoinHostPort("", strconv.Itoa(int(*port)))
	srv, err := server.New(addr, table, log)
	if err != nil {
		log.Error("failed to start listener", zap.String("addr", addr), zap.Error(err))
		return 1
	}
	log.Info("listening", zap.Stringer("addr", srv.Addr()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := srv.Serve(ctx); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		return 1
	}
	log.Info("shutdown complete")
	return 0
}

// newLogger builds a zap.Logger at the requested level, formatted for
// interactive use (console encoding rather than JSON).
func newLogger(level string) (*zap.Logger, error) {
	var lvl zap.AtomicLevel
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = "ts"
	return cfg.Build()
}

// startMetricsServer serves registry's metrics over HTTP on addr in
// the background. Failures are logged, not fatal: metrics are an
// operational aid, not required for the store to function.
func startMetricsServer(log *zap.Logger, addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
}
