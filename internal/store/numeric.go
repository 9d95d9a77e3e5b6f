package store

import (
	"strconv"
	"time"
)

func (s *Store) addDelta(key string, delta int64) (int64, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	now := time.Now()
	r, ok := sh.lookup(key, now)
	var cur int64
	if ok {
		if r.entry.Kind != KindString {
			return 0, ErrWrongType
		}
		n, err := strconv.ParseInt(string(r.entry.Str), 10, 64)
		if err != nil {
			return 0, ErrNotAnInteger
		}
		cur = n
	}
	next := cur + delta
	if (delta > 0 && next < cur) || (delta < 0 && next > cur) {
		return 0, ErrNotAnInteger
	}
	if ok {
		r.entry.Str = []byte(strconv.FormatInt(next, 10))
		return next, nil
	}
	sh.data[key] = &record{entry: Entry{Kind: KindString, Str: []byte(strconv.FormatInt(next, 10))}}
	return next, nil
}

// Incr increments the integer stored at key by 1, creating it at 0 first
// if absent, and returns the new value.
func (s *Store) Incr(key string) (int64, error) { return s.addDelta(key, 1) }

// Decr decrements the integer stored at key by 1, creating it at 0 first
// if absent, and returns the new value.
func (s *Store) Decr(key string) (int64, error) { return s.addDelta(key, -1) }
