package server

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/stormkv/stormkv/internal/command"
	"github.com/stormkv/stormkv/internal/engine"
	"github.com/stormkv/stormkv/internal/resp"
)

// replicaHandshake is the literal PING payload a replica sends to upgrade
// its connection into a one-way replication stream.
const replicaHandshake = "REPLICA_HANDSHAKE"

// handleConnection runs a connection's Normal-mode request/response loop
// until it errors, the client disconnects, SUBSCRIBE or the replication
// handshake moves it to one of the two terminal modes, or the server
// shuts down.
func (s *Server) handleConnection(ctx context.Context, nc net.Conn) {
	defer nc.Close()
	c := newConn(nc)
	s.logger.Debug("connection accepted", "conn_id", c.id, "remote", nc.RemoteAddr())
	defer s.logger.Debug("connection closed", "conn_id", c.id)

	for {
		select {
		case <-s.shutdown:
			return
		case <-ctx.Done():
			return
		default:
		}

		frame, err := c.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("connection read error", "conn_id", c.id, "remote", nc.RemoteAddr(), "error", err)
			}
			return
		}

		cmd, err := command.Decode(frame)
		if err != nil {
			if werr := c.WriteFrame(resp.Err("ERR " + err.Error())); werr != nil {
				return
			}
			continue
		}

		if ping, ok := cmd.(command.Ping); ok && ping.HasMessage && ping.Message == replicaHandshake {
			if err := c.WriteFrame(resp.Simple("OK")); err != nil {
				return
			}
			s.streamReplica(ctx, c)
			return
		}

		if sub, ok := cmd.(command.Subscribe); ok {
			s.handleSubscribe(ctx, c, sub.Channels)
			return
		}

		if _, ok := cmd.(command.Unsubscribe); ok {
			if err := c.WriteFrame(resp.Array()); err != nil {
				return
			}
			continue
		}

		if s.metric != nil {
			s.metric.CommandsTotal.WithLabelValues(commandName(cmd)).Inc()
		}

		reply := engine.Apply(s.store, cmd)

		if command.IsWrite(cmd) && commandSucceeded(cmd, reply) {
			if s.aof != nil {
				if err := s.aof.Append(ctx, cmd); err != nil {
					s.logger.Error("aof append failed", "error", err)
				}
			}
			s.replBroadcast.broadcast(cmd, s.logger)
		}

		if err := c.WriteFrame(reply); err != nil {
			return
		}
	}
}

// commandSucceeded reports whether a write command actually mutated the
// keyspace and so should be persisted to the AOF and streamed to
// replicas: an error frame means the command was rejected outright, and a
// Null reply from SET means an NX/XX precondition blocked the write.
func commandSucceeded(cmd command.Command, reply resp.Frame) bool {
	if reply.Kind == resp.KindError {
		return false
	}
	if _, ok := cmd.(command.Set); ok && reply.IsNull() {
		return false
	}
	return true
}

func commandName(cmd command.Command) string {
	switch cmd.(type) {
	case command.Ping:
		return "PING"
	case command.Echo:
		return "ECHO"
	case command.Get:
		return "GET"
	case command.Set:
		return "SET"
	case command.Del:
		return "DEL"
	case command.Exists:
		return "EXISTS"
	case command.Incr:
		return "INCR"
	case command.Decr:
		return "DECR"
	case command.LPush:
		return "LPUSH"
	case command.RPush:
		return "RPUSH"
	case command.LPop:
		return "LPOP"
	case command.RPop:
		return "RPOP"
	case command.LRange:
		return "LRANGE"
	case command.Publish:
		return "PUBLISH"
	case command.DBSize:
		return "DBSIZE"
	default:
		return "UNKNOWN"
	}
}
