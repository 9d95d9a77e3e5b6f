// Command stormkvd is the StormKV server: a RESP2-compatible in-memory
// key-value store with list types, TTLs, pub/sub, append-only durability,
// and primary/replica streaming.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/stormkv/stormkv/internal/aof"
	"github.com/stormkv/stormkv/internal/config"
	"github.com/stormkv/stormkv/internal/logging"
	"github.com/stormkv/stormkv/internal/metrics"
	"github.com/stormkv/stormkv/internal/obs"
	"github.com/stormkv/stormkv/internal/replica"
	"github.com/stormkv/stormkv/internal/server"
	"github.com/stormkv/stormkv/internal/store"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("stormkvd", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "stormkvd — a RESP2-compatible in-memory key-value store\n\nUsage:\n  stormkvd [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n  STORMKV_LOG    log level: debug, info, warn, error (default info)\n")
	}

	configPath := fs.String("config", "", "path to a YAML config file")
	host := fs.String("host", "", "bind host (default 127.0.0.1)")
	port := fs.Int("port", 0, "bind port (default 6399)")
	maxConnections := fs.Int("max-connections", 0, "maximum concurrent client connections (default 1024)")
	aofPath := fs.String("aof", "", "path to the append-only file (disabled if empty)")
	fsyncFlag := fs.String("fsync", "", "fsync policy: always, everysec, no (default everysec)")
	replicaOf := fs.String("replicaof", "", "stream from a primary at host:port instead of serving as one")
	metricsAddr := fs.String("metrics-addr", "", "address for the /healthz and /metrics HTTP endpoint (disabled if empty)")
	logFormat := fs.String("log-format", "", "log format: json, text (default json)")
	showVersion := fs.Bool("version", false, "show version and exit")
	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("stormkvd %s\n", version)
		return
	}

	_ = godotenv.Load()

	fileCfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg := config.Merge(config.Defaults(), fileCfg)
	cfg = applyFlagOverrides(cfg, *host, *port, *maxConnections, *aofPath, *fsyncFlag, *replicaOf, *metricsAddr, *logFormat, fs)

	logger := logging.NewFromEnv(cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Error("stormkvd exited with error", "error", err)
		os.Exit(1)
	}
}

func applyFlagOverrides(cfg config.Config, host string, port, maxConnections int, aofPath, fsyncFlag, replicaOf, metricsAddr, logFormat string, fs *flag.FlagSet) config.Config {
	override := config.Config{
		Host:           host,
		Port:           port,
		MaxConnections: maxConnections,
		AOFPath:        aofPath,
		FsyncPolicy:    fsyncFlag,
		MetricsAddr:    metricsAddr,
		LogFormat:      logFormat,
	}
	if replicaOf != "" {
		h, p, err := splitHostPort(replicaOf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --replicaof %q: %v\n", replicaOf, err)
			fs.Usage()
			os.Exit(1)
		}
		override.ReplicaOf = &config.ReplicaOf{Host: h, Port: p}
	}
	return config.Merge(cfg, override)
}

func splitHostPort(s string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("port must be numeric: %w", err)
	}
	return host, port, nil
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := store.New()
	defer st.Close()

	m := metrics.New()

	var aofWriter *aof.Writer
	if cfg.AOFPath != "" {
		policy, ok := aof.ParseFsyncPolicy(cfg.FsyncPolicy)
		if !ok {
			return fmt.Errorf("invalid fsync policy %q", cfg.FsyncPolicy)
		}
		n, err := aof.Replay(cfg.AOFPath, st)
		if err != nil {
			return fmt.Errorf("replaying aof: %w", err)
		}
		logger.Info("aof replay complete", "commands_restored", n)

		aofWriter, err = aof.NewWriter(cfg.AOFPath, policy, logger)
		if err != nil {
			return fmt.Errorf("opening aof: %w", err)
		}
		aofWriter.SetMetrics(m)
		defer aofWriter.Close()
	}

	if cfg.MetricsAddr != "" {
		httpSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: obs.NewRouter(m.Registry)}
		go func() {
			logger.Info("observability endpoint listening", "address", cfg.MetricsAddr)
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("observability server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()
	}

	if cfg.ReplicaOf != nil {
		client := &replica.Client{
			Addr:   net.JoinHostPort(cfg.ReplicaOf.Host, strconv.Itoa(cfg.ReplicaOf.Port)),
			Store:  st,
			Logger: logger,
		}
		go client.Run(ctx)
		logger.Info("running as replica", "primary", client.Addr)
	}

	srv := server.New(server.Config{MaxConnections: cfg.MaxConnections}, st, aofWriter, logger, m)

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	defer ln.Close()

	logger.Info("stormkvd listening", "address", addr, "aof", cfg.AOFPath != "", "replica_of", cfg.ReplicaOf != nil)

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		srv.Shutdown()
	}()

	return srv.Serve(ctx, ln)
}
