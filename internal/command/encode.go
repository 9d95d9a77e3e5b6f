package command

import (
	"strconv"

	"github.com/stormkv/stormkv/internal/resp"
)

func bulkArray(parts ...string) resp.Frame {
	items := make([]resp.Frame, len(parts))
	for i, p := range parts {
		items[i] = resp.BulkString(p)
	}
	return resp.Array(items...)
}

func bulkArrayBytes(name string, rest ...[]byte) resp.Frame {
	items := make([]resp.Frame, 0, len(rest)+1)
	items = append(items, resp.BulkString(name))
	for _, b := range rest {
		items = append(items, resp.Bulk(b))
	}
	return resp.Array(items...)
}

func (c Ping) Encode() resp.Frame {
	if c.HasMessage {
		return bulkArray("PING", c.Message)
	}
	return bulkArray("PING")
}

func (c Echo) Encode() resp.Frame { return bulkArray("ECHO", c.Message) }
func (c Get) Encode() resp.Frame  { return bulkArray("GET", c.Key) }

// Encode always re-emits SET with PX (never EX), so a SET decoded from
// either form re-encodes to the same bytes. The duration is relative: a
// command replayed from the AOF or applied on a replica starts its TTL
// when it is applied there.
func (c Set) Encode() resp.Frame {
	items := []resp.Frame{resp.BulkString("SET"), resp.BulkString(c.Key), resp.Bulk(c.Value)}
	switch c.Condition {
	case SetIfNotExists:
		items = append(items, resp.BulkString("NX"))
	case SetIfExists:
		items = append(items, resp.BulkString("XX"))
	}
	if c.HasTTL {
		items = append(items, resp.BulkString("PX"), resp.BulkString(itoa(c.TTLMillis)))
	}
	return resp.Array(items...)
}

func (c Del) Encode() resp.Frame    { return bulkArray(append([]string{"DEL"}, c.Keys...)...) }
func (c Exists) Encode() resp.Frame { return bulkArray(append([]string{"EXISTS"}, c.Keys...)...) }
func (c Incr) Encode() resp.Frame   { return bulkArray("INCR", c.Key) }
func (c Decr) Encode() resp.Frame   { return bulkArray("DECR", c.Key) }

func (c LPush) Encode() resp.Frame {
	items := []resp.Frame{resp.BulkString("LPUSH"), resp.BulkString(c.Key)}
	for _, v := range c.Values {
		items = append(items, resp.Bulk(v))
	}
	return resp.Array(items...)
}

func (c RPush) Encode() resp.Frame {
	items := []resp.Frame{resp.BulkString("RPUSH"), resp.BulkString(c.Key)}
	for _, v := range c.Values {
		items = append(items, resp.Bulk(v))
	}
	return resp.Array(items...)
}

func (c LPop) Encode() resp.Frame {
	if c.HasCount {
		return bulkArray("LPOP", c.Key, itoa(c.Count))
	}
	return bulkArray("LPOP", c.Key)
}

func (c RPop) Encode() resp.Frame {
	if c.HasCount {
		return bulkArray("RPOP", c.Key, itoa(c.Count))
	}
	return bulkArray("RPOP", c.Key)
}

func (c LRange) Encode() resp.Frame {
	return bulkArray("LRANGE", c.Key, itoa(c.Start), itoa(c.Stop))
}

func (c Subscribe) Encode() resp.Frame {
	return bulkArray(append([]string{"SUBSCRIBE"}, c.Channels...)...)
}

func (c Unsubscribe) Encode() resp.Frame {
	return bulkArray(append([]string{"UNSUBSCRIBE"}, c.Channels...)...)
}

func (c Publish) Encode() resp.Frame {
	return bulkArrayBytes("PUBLISH", []byte(c.Channel), c.Message)
}

func (c DBSize) Encode() resp.Frame  { return bulkArray("DBSIZE") }
func (c Unknown) Encode() resp.Frame { return bulkArray(c.Name) }

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
