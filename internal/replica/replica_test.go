package replica_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stormkv/stormkv/internal/replica"
	"github.com/stormkv/stormkv/internal/resp"
	"github.com/stormkv/stormkv/internal/server"
	"github.com/stormkv/stormkv/internal/store"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func cmdFrame(args ...string) resp.Frame {
	items := make([]resp.Frame, len(args))
	for i, a := range args {
		items[i] = resp.BulkString(a)
	}
	return resp.Array(items...)
}

func TestReplicaAppliesPrimaryWrites(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	primaryStore := store.New()
	defer primaryStore.Close()
	srv := server.New(server.Config{MaxConnections: 16}, primaryStore, nil, testLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx, ln)

	replicaStore := store.New()
	defer replicaStore.Close()
	client := &replica.Client{Addr: ln.Addr().String(), Store: replicaStore, Logger: testLogger()}
	replicaCtx, replicaCancel := context.WithCancel(context.Background())
	defer replicaCancel()
	go client.Run(replicaCtx)

	time.Sleep(100 * time.Millisecond)

	nc, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer nc.Close()
	if _, err := nc.Write(resp.Encode(nil, cmdFrame("SET", "k", "v"))); err != nil {
		t.Fatalf("write: %v", err)
	}
	// Drain the SET response.
	buf := make([]byte, 4096)
	nc.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := nc.Read(buf); err != nil {
		t.Fatalf("read reply: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v, ok, _ := replicaStore.Get("k"); ok && string(v) == "v" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("replica never observed the primary's SET")
}
