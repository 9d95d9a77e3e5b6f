// Package replica implements the replica side of replication: dialing a
// primary, completing the handshake, and blindly applying every write
// command the primary streams back.
package replica

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/stormkv/stormkv/internal/command"
	"github.com/stormkv/stormkv/internal/engine"
	"github.com/stormkv/stormkv/internal/resp"
	"github.com/stormkv/stormkv/internal/store"
)

const replicaHandshake = "REPLICA_HANDSHAKE"

// Client dials a primary at Addr and keeps the local store in sync for as
// long as Run's context stays alive.
type Client struct {
	Addr   string
	Store  *store.Store
	Logger *slog.Logger
}

// Run connects to the primary and applies its replication stream,
// reconnecting at a fixed one-per-second pace (paced with a token bucket
// rather than a raw time.Sleep, so a burst of rapid failures doesn't
// itself become a busy loop) whenever the connection drops. It returns
// only when ctx is canceled.
func (c *Client) Run(ctx context.Context) {
	limiter := rate.NewLimiter(rate.Every(time.Second), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		if err := c.connectAndApply(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.Logger.Warn("replica connection lost, retrying", "primary", c.Addr, "error", err)
		}
	}
}

func (c *Client) connectAndApply(ctx context.Context) error {
	nc, err := net.Dial("tcp", c.Addr)
	if err != nil {
		return err
	}
	defer nc.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			nc.Close()
		case <-stop:
		}
	}()

	handshake := resp.Array(resp.BulkString("PING"), resp.BulkString(replicaHandshake))
	if _, err := nc.Write(resp.Encode(nil, handshake)); err != nil {
		return err
	}

	r := newFrameReader(nc)
	reply, err := r.next()
	if err != nil {
		return err
	}
	if reply.Kind != resp.KindSimple || reply.Str != "OK" {
		return errors.New("replica: primary rejected handshake")
	}
	c.Logger.Info("replica handshake complete", "primary", c.Addr)

	for {
		f, err := r.next()
		if err != nil {
			return err
		}
		cmd, err := command.Decode(f)
		if err != nil {
			c.Logger.Warn("replica: dropping malformed command from primary", "error", err)
			continue
		}
		// Reads and administrative commands never reach this stream in
		// practice (the primary only forwards writes), but applying
		// blindly through engine.Apply means a non-write slipping in is
		// harmless rather than a protocol violation.
		engine.Apply(c.Store, cmd)
	}
}

// frameReader adapts a net.Conn to the RESP2 Check/Parse pair, buffering
// partial reads the same way the server's connection handler does.
type frameReader struct {
	nc  net.Conn
	buf []byte
}

func newFrameReader(nc net.Conn) *frameReader { return &frameReader{nc: nc} }

func (r *frameReader) next() (resp.Frame, error) {
	for {
		if n, err := resp.Check(r.buf); err == nil {
			f, _, perr := resp.Parse(r.buf[:n])
			rest := make([]byte, len(r.buf)-n)
			copy(rest, r.buf[n:])
			r.buf = rest
			return f, perr
		} else if !errors.Is(err, resp.ErrIncomplete) {
			return resp.Frame{}, err
		}
		chunk := make([]byte, 4096)
		n, err := r.nc.Read(chunk)
		if n > 0 {
			r.buf = append(r.buf, chunk[:n]...)
		}
		if err != nil {
			return resp.Frame{}, err
		}
	}
}
