package store_test

import (
	"errors"
	"testing"

	"github.com/stormkv/stormkv/internal/store"
)

func bs(ss ...string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

func strs(bss [][]byte) []string {
	out := make([]string, len(bss))
	for i, b := range bss {
		out[i] = string(b)
	}
	return out
}

func TestLPushOrdering(t *testing.T) {
	t.Parallel()
	s := store.New()
	defer s.Close()
	n, err := s.LPush("k", bs("a", "b", "c"))
	if err != nil || n != 3 {
		t.Fatalf("LPush = %d, %v", n, err)
	}
	got, err := s.LRange("k", 0, -1)
	if err != nil {
		t.Fatalf("LRange: %v", err)
	}
	want := []string{"c", "b", "a"}
	if got := strs(got); !equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRPushOrdering(t *testing.T) {
	t.Parallel()
	s := store.New()
	defer s.Close()
	s.RPush("k", bs("a", "b", "c"))
	got, _ := s.LRange("k", 0, -1)
	want := []string{"a", "b", "c"}
	if got := strs(got); !equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestLPopCount(t *testing.T) {
	t.Parallel()
	s := store.New()
	defer s.Close()
	s.RPush("k", bs("a", "b", "c"))
	got, err := s.LPop("k", 2, true)
	if err != nil {
		t.Fatalf("LPop: %v", err)
	}
	if want := []string{"a", "b"}; !equal(strs(got), want) {
		t.Fatalf("got %v, want %v", strs(got), want)
	}
	rest, _ := s.LRange("k", 0, -1)
	if want := []string{"c"}; !equal(strs(rest), want) {
		t.Fatalf("remaining = %v, want %v", strs(rest), want)
	}
}

func TestRPopWithoutCountReturnsOne(t *testing.T) {
	t.Parallel()
	s := store.New()
	defer s.Close()
	s.RPush("k", bs("a", "b", "c"))
	got, err := s.RPop("k", 0, false)
	if err != nil || len(got) != 1 || string(got[0]) != "c" {
		t.Fatalf("RPop = %v, %v", got, err)
	}
}

func TestPopOnMissingKeyIsNilNotError(t *testing.T) {
	t.Parallel()
	s := store.New()
	defer s.Close()
	got, err := s.LPop("missing", 0, false)
	if err != nil || got != nil {
		t.Fatalf("LPop on missing key = %v, %v", got, err)
	}
}

func TestListWrongType(t *testing.T) {
	t.Parallel()
	s := store.New()
	defer s.Close()
	s.Set("k", []byte("v"), store.SetAlways, 0)
	if _, err := s.LPush("k", bs("x")); !errors.Is(err, store.ErrWrongType) {
		t.Fatalf("LPush on string key: err = %v", err)
	}
	if _, err := s.LRange("k", 0, -1); !errors.Is(err, store.ErrWrongType) {
		t.Fatalf("LRange on string key: err = %v", err)
	}
}

func TestLRangeNegativeAndOutOfBoundsIndices(t *testing.T) {
	t.Parallel()
	s := store.New()
	defer s.Close()
	s.RPush("k", bs("a", "b", "c", "d", "e"))

	cases := []struct {
		start, stop int64
		want        []string
	}{
		{0, -1, []string{"a", "b", "c", "d", "e"}},
		{-2, -1, []string{"d", "e"}},
		{-100, 100, []string{"a", "b", "c", "d", "e"}},
		{3, 1, nil},
		{10, 20, nil},
	}
	for _, c := range cases {
		got, err := s.LRange("k", c.start, c.stop)
		if err != nil {
			t.Fatalf("LRange(%d,%d): %v", c.start, c.stop, err)
		}
		if !equal(strs(got), c.want) {
			t.Errorf("LRange(%d,%d) = %v, want %v", c.start, c.stop, strs(got), c.want)
		}
	}
}

func TestPopEmptiesListDeletesKey(t *testing.T) {
	t.Parallel()
	s := store.New()
	defer s.Close()
	s.RPush("k", bs("only"))
	s.LPop("k", 0, false)
	if n := s.Exists([]string{"k"}); n != 0 {
		t.Fatalf("key should be gone after popping its last element")
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
