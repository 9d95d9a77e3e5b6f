package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/stormkv/stormkv/internal/command"
	"github.com/stormkv/stormkv/internal/metrics"
)

const replicaQueueCapacity = 1024

// Dropped writes below this rate are routine hiccups; a replica that drops
// this many within the window is falling behind badly enough to call out
// above the routine per-drop warning.
const (
	lagAlertThreshold = 5
	lagAlertWindow    = 10 * time.Second
	lagAlertCooldown  = 30 * time.Second
)

// replicaBroadcast fans out executed write commands to every currently
// streaming replica connection. Delivery is best-effort: a replica that
// falls behind has its queue drop the command and the event is logged, but
// the primary never blocks on a slow or wedged replica.
type replicaBroadcast struct {
	mu     sync.Mutex
	subs   map[int64]chan command.Command
	nextID int64
	lag    *lagDetector
	metric *metrics.Metrics
}

func newReplicaBroadcast(m *metrics.Metrics) *replicaBroadcast {
	return &replicaBroadcast{
		subs:   make(map[int64]chan command.Command),
		lag:    newLagDetector(lagAlertThreshold, lagAlertWindow, lagAlertCooldown),
		metric: m,
	}
}

func (b *replicaBroadcast) register() (int64, <-chan command.Command) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan command.Command, replicaQueueCapacity)
	b.subs[id] = ch
	return id, ch
}

func (b *replicaBroadcast) unregister(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

func (b *replicaBroadcast) broadcast(cmd command.Command, logger *slog.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- cmd:
		default:
			if b.metric != nil {
				b.metric.ReplicationLagHits.Inc()
			}
			if b.lag.record(id, time.Now()) {
				logger.Error("replica stream sustained lag, commands are being dropped repeatedly", "replica_id", id)
			} else {
				logger.Warn("replica stream lagged, dropping command", "replica_id", id)
			}
		}
	}
}

// streamReplica upgrades conn into a one-way push stream: every write
// command executed on the primary from here on is forwarded verbatim
// until the replica disconnects or the server shuts down. It never reads
// from conn again — REPLICA_HANDSHAKE is a terminal transition.
func (s *Server) streamReplica(ctx context.Context, c *conn) {
	id, ch := s.replBroadcast.register()
	defer s.replBroadcast.unregister(id)
	s.logger.Info("replica connected", "replica_id", id, "remote", c.nc.RemoteAddr())
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case cmd := <-ch:
			if err := c.WriteFrame(cmd.Encode()); err != nil {
				s.logger.Info("replica disconnected", "replica_id", id, "error", err)
				return
			}
		}
	}
}
