// Package server implements the TCP front end: the accept loop, the
// per-connection request/response and subscribed-mode handlers, and the
// primary side of replication streaming.
package server

import (
	"log/slog"

	"github.com/stormkv/stormkv/internal/aof"
	"github.com/stormkv/stormkv/internal/metrics"
	"github.com/stormkv/stormkv/internal/store"
)

// Config holds the knobs that shape a Server's runtime behavior, matching
// the CLI/config surface layered on top of it.
type Config struct {
	MaxConnections int
}

// Server owns the store, the optional AOF writer, and the replication
// fan-out registry shared by every connection handler goroutine.
type Server struct {
	cfg    Config
	store  *store.Store
	aof    *aof.Writer // nil when AOF is disabled
	logger *slog.Logger
	metric *metrics.Metrics

	replBroadcast *replicaBroadcast
	sem           chan struct{}
	shutdown      chan struct{}
}

// New constructs a Server. aofWriter may be nil to disable durability.
func New(cfg Config, st *store.Store, aofWriter *aof.Writer, logger *slog.Logger, m *metrics.Metrics) *Server {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 1024
	}
	return &Server{
		cfg:           cfg,
		store:         st,
		aof:           aofWriter,
		logger:        logger,
		metric:        m,
		replBroadcast: newReplicaBroadcast(m),
		sem:           make(chan struct{}, cfg.MaxConnections),
		shutdown:      make(chan struct{}),
	}
}

// Shutdown signals every connection handler and the accept loop to stop.
// It does not block waiting for them to finish.
func (s *Server) Shutdown() {
	close(s.shutdown)
}
