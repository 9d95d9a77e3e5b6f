package server_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stormkv/stormkv/internal/aof"
	"github.com/stormkv/stormkv/internal/resp"
	"github.com/stormkv/stormkv/internal/server"
	"github.com/stormkv/stormkv/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startTestServer(t *testing.T) (addr string, shutdown func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	st := store.New()
	srv := server.New(server.Config{MaxConnections: 16}, st, nil, testLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Serve(ctx, ln)
	return ln.Addr().String(), func() {
		cancel()
		srv.Shutdown()
		st.Close()
	}
}

func sendAndRecv(t *testing.T, nc net.Conn, f resp.Frame) resp.Frame {
	t.Helper()
	if _, err := nc.Write(resp.Encode(nil, f)); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		if n, err := resp.Check(buf); err == nil {
			got, _, err := resp.Parse(buf[:n])
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			return got
		}
		nc.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, err := nc.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if err != nil {
			t.Fatalf("read: %v", err)
		}
	}
}

func cmdFrame(args ...string) resp.Frame {
	items := make([]resp.Frame, len(args))
	for i, a := range args {
		items[i] = resp.BulkString(a)
	}
	return resp.Array(items...)
}

func TestPingOverTheWire(t *testing.T) {
	t.Parallel()
	addr, shutdown := startTestServer(t)
	defer shutdown()
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer nc.Close()

	got := sendAndRecv(t, nc, cmdFrame("PING"))
	if got.Kind != resp.KindSimple || got.Str != "PONG" {
		t.Fatalf("got %+v", got)
	}
}

func TestSetGetOverTheWire(t *testing.T) {
	t.Parallel()
	addr, shutdown := startTestServer(t)
	defer shutdown()
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer nc.Close()

	set := sendAndRecv(t, nc, cmdFrame("SET", "k", "v"))
	if set.Str != "OK" {
		t.Fatalf("SET = %+v", set)
	}
	get := sendAndRecv(t, nc, cmdFrame("GET", "k"))
	if string(get.Bulk) != "v" {
		t.Fatalf("GET = %+v", get)
	}
}

// TestFailedSetNXIsNotPersisted exercises the "only a command that actually
// succeeded is appended to the AOF" rule: a SET NX against an existing key
// returns Null without applying, so it must not show up in the log a
// replay would later restore from.
func TestFailedSetNXIsNotPersisted(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "stormkv.aof")
	aofWriter, err := aof.NewWriter(path, aof.FsyncAlways, testLogger())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	defer aofWriter.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	st := store.New()
	defer st.Close()
	srv := server.New(server.Config{MaxConnections: 16}, st, aofWriter, testLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx, ln)
	defer srv.Shutdown()

	nc, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer nc.Close()

	set := sendAndRecv(t, nc, cmdFrame("SET", "k", "v1"))
	if set.Str != "OK" {
		t.Fatalf("initial SET = %+v", set)
	}
	nx := sendAndRecv(t, nc, cmdFrame("SET", "k", "v2", "NX"))
	if !nx.IsNull() {
		t.Fatalf("SET NX over existing key = %+v, want null", nx)
	}

	replay := store.New()
	defer replay.Close()
	n, err := aof.Replay(path, replay)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if n != 1 {
		t.Fatalf("aof restored %d commands, want 1 (the failed NX must not be logged)", n)
	}
	v, _, _ := replay.Get("k")
	if string(v) != "v1" {
		t.Fatalf("replayed value = %q, want v1", v)
	}
}

func TestPubSubOverTheWire(t *testing.T) {
	t.Parallel()
	addr, shutdown := startTestServer(t)
	defer shutdown()

	sub, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial sub: %v", err)
	}
	defer sub.Close()
	ack := sendAndRecv(t, sub, cmdFrame("SUBSCRIBE", "room"))
	if len(ack.Array) != 3 || string(ack.Array[0].Bulk) != "subscribe" {
		t.Fatalf("subscribe ack = %+v", ack)
	}

	// Give the subscription a moment to register before publishing.
	time.Sleep(50 * time.Millisecond)

	pub, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial pub: %v", err)
	}
	defer pub.Close()
	n := sendAndRecv(t, pub, cmdFrame("PUBLISH", "room", "hello"))
	if n.Int != 1 {
		t.Fatalf("PUBLISH receiver count = %d, want 1", n.Int)
	}

	sub.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	var msg resp.Frame
	for {
		if k, err := resp.Check(buf); err == nil {
			msg, _, _ = resp.Parse(buf[:k])
			break
		}
		r, err := sub.Read(tmp)
		if r > 0 {
			buf = append(buf, tmp[:r]...)
		}
		if err != nil {
			t.Fatalf("read message: %v", err)
		}
	}
	if len(msg.Array) != 3 || string(msg.Array[0].Bulk) != "message" || string(msg.Array[2].Bulk) != "hello" {
		t.Fatalf("message = %+v", msg)
	}
}
