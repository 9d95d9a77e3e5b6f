package engine_test

import (
	"testing"

	"github.com/stormkv/stormkv/internal/command"
	"github.com/stormkv/stormkv/internal/engine"
	"github.com/stormkv/stormkv/internal/resp"
	"github.com/stormkv/stormkv/internal/store"
)

// These mirror spec.md's literal request/response scenarios: a fresh
// client sends a command, gets back exactly this frame.

func TestPingWithNoArgument(t *testing.T) {
	t.Parallel()
	s := store.New()
	defer s.Close()
	got := engine.Apply(s, command.Ping{})
	if got.Kind != resp.KindSimple || got.Str != "PONG" {
		t.Fatalf("got %+v", got)
	}
}

func TestSetThenGetRoundTrip(t *testing.T) {
	t.Parallel()
	s := store.New()
	defer s.Close()
	set := engine.Apply(s, command.Set{Key: "k", Value: []byte("v")})
	if set.Kind != resp.KindSimple || set.Str != "OK" {
		t.Fatalf("SET = %+v", set)
	}
	got := engine.Apply(s, command.Get{Key: "k"})
	if got.Kind != resp.KindBulk || string(got.Bulk) != "v" {
		t.Fatalf("GET = %+v", got)
	}
}

func TestGetMissingReturnsNull(t *testing.T) {
	t.Parallel()
	s := store.New()
	defer s.Close()
	got := engine.Apply(s, command.Get{Key: "missing"})
	if !got.IsNull() {
		t.Fatalf("got %+v, want null", got)
	}
}

func TestSetNXOnExistingReturnsNull(t *testing.T) {
	t.Parallel()
	s := store.New()
	defer s.Close()
	engine.Apply(s, command.Set{Key: "k", Value: []byte("v1")})
	got := engine.Apply(s, command.Set{Key: "k", Value: []byte("v2"), Condition: command.SetIfNotExists})
	if !got.IsNull() {
		t.Fatalf("got %+v, want null", got)
	}
}

func TestDelReturnsCount(t *testing.T) {
	t.Parallel()
	s := store.New()
	defer s.Close()
	engine.Apply(s, command.Set{Key: "a", Value: []byte("1")})
	got := engine.Apply(s, command.Del{Keys: []string{"a", "b"}})
	if got.Kind != resp.KindInteger || got.Int != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestIncrOnWrongTypeReturnsWrongTypeError(t *testing.T) {
	t.Parallel()
	s := store.New()
	defer s.Close()
	engine.Apply(s, command.LPush{Key: "k", Values: [][]byte{[]byte("x")}})
	got := engine.Apply(s, command.Incr{Key: "k"})
	if got.Kind != resp.KindError || got.Str[:9] != "WRONGTYPE" {
		t.Fatalf("got %+v", got)
	}
}

func TestLPushLRangeRoundTrip(t *testing.T) {
	t.Parallel()
	s := store.New()
	defer s.Close()
	engine.Apply(s, command.RPush{Key: "list", Values: [][]byte{[]byte("a"), []byte("b"), []byte("c")}})
	got := engine.Apply(s, command.LRange{Key: "list", Start: 0, Stop: -1})
	if got.Kind != resp.KindArray || len(got.Array) != 3 {
		t.Fatalf("got %+v", got)
	}
	if string(got.Array[0].Bulk) != "a" || string(got.Array[2].Bulk) != "c" {
		t.Fatalf("got %+v", got)
	}
}

func TestLPopWithoutCountReturnsBareBulk(t *testing.T) {
	t.Parallel()
	s := store.New()
	defer s.Close()
	engine.Apply(s, command.RPush{Key: "list", Values: [][]byte{[]byte("z")}})
	got := engine.Apply(s, command.LPop{Key: "list"})
	if got.Kind != resp.KindBulk || string(got.Bulk) != "z" {
		t.Fatalf("got %+v, want bare bulk \"z\"", got)
	}
}

func TestLPopWithoutCountOnEmptyListReturnsNull(t *testing.T) {
	t.Parallel()
	s := store.New()
	defer s.Close()
	got := engine.Apply(s, command.LPop{Key: "missing"})
	if !got.IsNull() {
		t.Fatalf("got %+v, want null", got)
	}
}

func TestLPopWithCountOnEmptyListReturnsNull(t *testing.T) {
	t.Parallel()
	s := store.New()
	defer s.Close()
	got := engine.Apply(s, command.LPop{Key: "missing", Count: 2, HasCount: true})
	if !got.IsNull() {
		t.Fatalf("got %+v, want null, not an empty array", got)
	}
}

func TestLPopWithCountReturnsArray(t *testing.T) {
	t.Parallel()
	s := store.New()
	defer s.Close()
	engine.Apply(s, command.RPush{Key: "list", Values: [][]byte{[]byte("a"), []byte("b")}})
	got := engine.Apply(s, command.LPop{Key: "list", Count: 2, HasCount: true})
	if got.Kind != resp.KindArray || len(got.Array) != 2 {
		t.Fatalf("got %+v, want 2-element array", got)
	}
}

func TestUnknownCommandReturnsError(t *testing.T) {
	t.Parallel()
	s := store.New()
	defer s.Close()
	got := engine.Apply(s, command.Unknown{Name: "FROB"})
	if got.Kind != resp.KindError {
		t.Fatalf("got %+v, want error frame", got)
	}
}

func TestPublishWithNoSubscribersReturnsZero(t *testing.T) {
	t.Parallel()
	s := store.New()
	defer s.Close()
	got := engine.Apply(s, command.Publish{Channel: "room", Message: []byte("hi")})
	if got.Kind != resp.KindInteger || got.Int != 0 {
		t.Fatalf("got %+v", got)
	}
}
