// Package engine executes decoded commands against a store.Store and
// produces the RESP2 response frame for each, independent of how the
// command arrived (a live connection, AOF replay, or a replicated write).
package engine

import (
	"errors"
	"time"

	"github.com/stormkv/stormkv/internal/command"
	"github.com/stormkv/stormkv/internal/resp"
	"github.com/stormkv/stormkv/internal/store"
)

// Apply executes cmd against s and returns the response frame a client (or
// AOF/replication consumer, which typically discards it) would receive.
// Domain failures — wrong type, non-integer value — are rendered as RESP
// error frames rather than returned as Go errors, matching the protocol's
// "never abort the connection on a command error" policy.
func Apply(s *store.Store, cmd command.Command) resp.Frame {
	switch c := cmd.(type) {
	case command.Ping:
		if c.HasMessage {
			return resp.BulkString(c.Message)
		}
		return resp.Simple("PONG")
	case command.Echo:
		return resp.BulkString(c.Message)
	case command.Get:
		v, ok, err := s.Get(c.Key)
		if err != nil {
			return errFrame(err)
		}
		if !ok {
			return resp.Null()
		}
		return resp.Bulk(v)
	case command.Set:
		cond := toStoreCondition(c.Condition)
		var ttl time.Duration
		if c.HasTTL {
			ttl = time.Duration(c.TTLMillis) * time.Millisecond
		}
		if applied := s.Set(c.Key, c.Value, cond, ttl); !applied {
			return resp.Null()
		}
		return resp.Simple("OK")
	case command.Del:
		return resp.Integer(s.Del(c.Keys))
	case command.Exists:
		return resp.Integer(s.Exists(c.Keys))
	case command.Incr:
		n, err := s.Incr(c.Key)
		if err != nil {
			return errFrame(err)
		}
		return resp.Integer(n)
	case command.Decr:
		n, err := s.Decr(c.Key)
		if err != nil {
			return errFrame(err)
		}
		return resp.Integer(n)
	case command.LPush:
		n, err := s.LPush(c.Key, c.Values)
		if err != nil {
			return errFrame(err)
		}
		return resp.Integer(n)
	case command.RPush:
		n, err := s.RPush(c.Key, c.Values)
		if err != nil {
			return errFrame(err)
		}
		return resp.Integer(n)
	case command.LPop:
		vals, err := s.LPop(c.Key, c.Count, c.HasCount)
		return popResponse(vals, c.HasCount, err)
	case command.RPop:
		vals, err := s.RPop(c.Key, c.Count, c.HasCount)
		return popResponse(vals, c.HasCount, err)
	case command.LRange:
		vals, err := s.LRange(c.Key, c.Start, c.Stop)
		if err != nil {
			return errFrame(err)
		}
		items := make([]resp.Frame, len(vals))
		for i, v := range vals {
			items[i] = resp.Bulk(v)
		}
		return resp.Array(items...)
	case command.Publish:
		return resp.Integer(s.Publish(c.Channel, c.Message))
	case command.DBSize:
		return resp.Integer(s.DBSize())
	case command.Unknown:
		return resp.Err("ERR unknown command '" + c.Name + "'")
	default:
		// Subscribe/Unsubscribe never reach Apply: the connection handler
		// intercepts them to switch the connection into subscribed mode
		// before any command would be executed through this path.
		return resp.Err("ERR command cannot be executed in this context")
	}
}

// popResponse renders LPOP/RPOP's result per §4.4: without a count, a bare
// bulk (or null if nothing was popped); with a count, an array, or null if
// the array would be empty.
func popResponse(vals [][]byte, hasCount bool, err error) resp.Frame {
	if err != nil {
		return errFrame(err)
	}
	if !hasCount {
		if len(vals) == 0 {
			return resp.Null()
		}
		return resp.Bulk(vals[0])
	}
	if len(vals) == 0 {
		return resp.Null()
	}
	items := make([]resp.Frame, len(vals))
	for i, v := range vals {
		items[i] = resp.Bulk(v)
	}
	return resp.Array(items...)
}

func toStoreCondition(c command.SetCondition) store.SetCondition {
	switch c {
	case command.SetIfNotExists:
		return store.SetIfNotExists
	case command.SetIfExists:
		return store.SetIfExists
	default:
		return store.SetAlways
	}
}

func errFrame(err error) resp.Frame {
	switch {
	case errors.Is(err, store.ErrWrongType):
		return resp.Err("WRONGTYPE " + err.Error())
	case errors.Is(err, store.ErrNotAnInteger):
		return resp.Err("ERR " + err.Error())
	default:
		return resp.Err("ERR " + err.Error())
	}
}
