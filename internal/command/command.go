// Package command decodes RESP2 request frames into typed commands and
// re-encodes them into the canonical form persisted to the AOF and streamed
// to replicas.
package command

import (
	"strconv"
	"strings"

	"github.com/stormkv/stormkv/internal/resp"
)

// Command is the sealed set of requests the server understands. Every
// concrete type below implements it; a type switch in the executor and in
// IsWrite dispatches on the concrete type rather than a string name.
type Command interface {
	// Encode produces the canonical RESP2 array re-encoding of the command,
	// used for AOF persistence and replica streaming. SET always encodes
	// with PX (never EX), so each command has one deterministic encoding.
	// The TTL stays relative: a replayed or replicated SET counts it from
	// the moment it is applied.
	Encode() resp.Frame
	isCommand()
}

type Ping struct{ Message string; HasMessage bool }
type Echo struct{ Message string }
type Get struct{ Key string }

type SetCondition int

const (
	SetAlways SetCondition = iota
	SetIfNotExists
	SetIfExists
)

type Set struct {
	Key       string
	Value     []byte
	Condition SetCondition
	HasTTL    bool
	TTLMillis int64
}

type Del struct{ Keys []string }
type Exists struct{ Keys []string }
type Incr struct{ Key string }
type Decr struct{ Key string }
type LPush struct {
	Key    string
	Values [][]byte
}
type RPush struct {
	Key    string
	Values [][]byte
}
type LPop struct {
	Key      string
	Count    int64
	HasCount bool
}
type RPop struct {
	Key      string
	Count    int64
	HasCount bool
}
type LRange struct {
	Key         string
	Start, Stop int64
}
type Subscribe struct{ Channels []string }
type Unsubscribe struct{ Channels []string }
type Publish struct {
	Channel string
	Message []byte
}
type DBSize struct{}

// Unknown represents any command name not recognized by the decoder. The
// server responds with a protocol error but does not drop the connection.
type Unknown struct{ Name string }

func (Ping) isCommand()        {}
func (Echo) isCommand()        {}
func (Get) isCommand()         {}
func (Set) isCommand()         {}
func (Del) isCommand()         {}
func (Exists) isCommand()      {}
func (Incr) isCommand()        {}
func (Decr) isCommand()        {}
func (LPush) isCommand()       {}
func (RPush) isCommand()       {}
func (LPop) isCommand()        {}
func (RPop) isCommand()        {}
func (LRange) isCommand()      {}
func (Subscribe) isCommand()   {}
func (Unsubscribe) isCommand() {}
func (Publish) isCommand()     {}
func (DBSize) isCommand()      {}
func (Unknown) isCommand()     {}

// WrongArityError reports a command invoked with the wrong number of
// arguments.
type WrongArityError struct{ Name string }

func (e *WrongArityError) Error() string { return "wrong number of arguments for '" + e.Name + "'" }

// InvalidSetOptionError reports an unrecognized SET modifier token.
type InvalidSetOptionError struct{ Option string }

func (e *InvalidSetOptionError) Error() string { return "invalid SET option: " + e.Option }

// InvalidArgumentError reports a malformed argument, such as a non-integer
// count or TTL.
type InvalidArgumentError struct{ Reason string }

func (e *InvalidArgumentError) Error() string { return "invalid argument: " + e.Reason }

// Decode turns a RESP2 array-of-bulk-strings frame into a Command. The
// array must be non-empty; every element must be a bulk string.
func Decode(f resp.Frame) (Command, error) {
	if f.Kind != resp.KindArray || len(f.Array) == 0 {
		return nil, &InvalidArgumentError{Reason: "expected non-empty array of bulk strings"}
	}
	args := make([]string, len(f.Array))
	for i, item := range f.Array {
		if item.Kind != resp.KindBulk {
			return nil, &InvalidArgumentError{Reason: "command arguments must be bulk strings"}
		}
		args[i] = string(item.Bulk)
	}
	name := strings.ToUpper(args[0])
	rest := args[1:]

	switch name {
	case "PING":
		switch len(rest) {
		case 0:
			return Ping{}, nil
		case 1:
			return Ping{Message: rest[0], HasMessage: true}, nil
		default:
			return nil, &WrongArityError{Name: "PING"}
		}
	case "ECHO":
		if len(rest) != 1 {
			return nil, &WrongArityError{Name: "ECHO"}
		}
		return Echo{Message: rest[0]}, nil
	case "GET":
		if len(rest) != 1 {
			return nil, &WrongArityError{Name: "GET"}
		}
		return Get{Key: rest[0]}, nil
	case "SET":
		return parseSet(rest)
	case "DEL":
		if len(rest) < 1 {
			return nil, &WrongArityError{Name: "DEL"}
		}
		return Del{Keys: rest}, nil
	case "EXISTS":
		if len(rest) < 1 {
			return nil, &WrongArityError{Name: "EXISTS"}
		}
		return Exists{Keys: rest}, nil
	case "INCR":
		if len(rest) != 1 {
			return nil, &WrongArityError{Name: "INCR"}
		}
		return Incr{Key: rest[0]}, nil
	case "DECR":
		if len(rest) != 1 {
			return nil, &WrongArityError{Name: "DECR"}
		}
		return Decr{Key: rest[0]}, nil
	case "LPUSH":
		if len(rest) < 2 {
			return nil, &WrongArityError{Name: "LPUSH"}
		}
		return LPush{Key: rest[0], Values: toBytes(rest[1:])}, nil
	case "RPUSH":
		if len(rest) < 2 {
			return nil, &WrongArityError{Name: "RPUSH"}
		}
		return RPush{Key: rest[0], Values: toBytes(rest[1:])}, nil
	case "LPOP":
		return parsePop(rest, "LPOP", func(key string, count int64, has bool) Command {
			return LPop{Key: key, Count: count, HasCount: has}
		})
	case "RPOP":
		return parsePop(rest, "RPOP", func(key string, count int64, has bool) Command {
			return RPop{Key: key, Count: count, HasCount: has}
		})
	case "LRANGE":
		if len(rest) != 3 {
			return nil, &WrongArityError{Name: "LRANGE"}
		}
		start, err := strconv.ParseInt(rest[1], 10, 64)
		if err != nil {
			return nil, &InvalidArgumentError{Reason: "LRANGE start must be an integer"}
		}
		stop, err := strconv.ParseInt(rest[2], 10, 64)
		if err != nil {
			return nil, &InvalidArgumentError{Reason: "LRANGE stop must be an integer"}
		}
		return LRange{Key: rest[0], Start: start, Stop: stop}, nil
	case "SUBSCRIBE":
		if len(rest) < 1 {
			return nil, &WrongArityError{Name: "SUBSCRIBE"}
		}
		return Subscribe{Channels: rest}, nil
	case "UNSUBSCRIBE":
		return Unsubscribe{Channels: rest}, nil
	case "PUBLISH":
		if len(rest) != 2 {
			return nil, &WrongArityError{Name: "PUBLISH"}
		}
		return Publish{Channel: rest[0], Message: []byte(rest[1])}, nil
	case "DBSIZE":
		if len(rest) != 0 {
			return nil, &WrongArityError{Name: "DBSIZE"}
		}
		return DBSize{}, nil
	default:
		return Unknown{Name: args[0]}, nil
	}
}

func toBytes(ss []string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

func parsePop(rest []string, name string, build func(key string, count int64, has bool) Command) (Command, error) {
	switch len(rest) {
	case 1:
		return build(rest[0], 0, false), nil
	case 2:
		n, err := strconv.ParseInt(rest[1], 10, 64)
		if err != nil || n < 0 {
			return nil, &InvalidArgumentError{Reason: name + " count must be a non-negative integer"}
		}
		return build(rest[0], n, true), nil
	default:
		return nil, &WrongArityError{Name: name}
	}
}

// parseSet implements SET's modifier grammar. NX and XX are mutually
// exclusive flags (last one seen wins, matching redis's own permissive
// parsing); EX (seconds) and PX (milliseconds) are likewise last-wins when
// both are given, rather than an error — this mirrors the reference
// implementation's own parser exactly.
func parseSet(rest []string) (Command, error) {
	if len(rest) < 2 {
		return nil, &WrongArityError{Name: "SET"}
	}
	cmd := Set{Key: rest[0], Value: []byte(rest[1])}
	i := 2
	for i < len(rest) {
		switch strings.ToUpper(rest[i]) {
		case "NX":
			cmd.Condition = SetIfNotExists
			i++
		case "XX":
			cmd.Condition = SetIfExists
			i++
		case "EX":
			if i+1 >= len(rest) {
				return nil, &InvalidSetOptionError{Option: "EX"}
			}
			secs, err := strconv.ParseInt(rest[i+1], 10, 64)
			if err != nil || secs <= 0 {
				return nil, &InvalidArgumentError{Reason: "EX must be a positive integer"}
			}
			cmd.HasTTL = true
			cmd.TTLMillis = secs * 1000
			i += 2
		case "PX":
			if i+1 >= len(rest) {
				return nil, &InvalidSetOptionError{Option: "PX"}
			}
			ms, err := strconv.ParseInt(rest[i+1], 10, 64)
			if err != nil || ms <= 0 {
				return nil, &InvalidArgumentError{Reason: "PX must be a positive integer"}
			}
			cmd.HasTTL = true
			cmd.TTLMillis = ms
			i += 2
		default:
			return nil, &InvalidSetOptionError{Option: rest[i]}
		}
	}
	return cmd, nil
}

// IsWrite reports whether cmd mutates the keyspace and therefore must be
// appended to the AOF and streamed to replicas. PUBLISH is deliberately
// excluded: it has no durable state to recover.
func IsWrite(cmd Command) bool {
	switch cmd.(type) {
	case Set, Del, Incr, Decr, LPush, RPush, LPop, RPop:
		return true
	default:
		return false
	}
}
