package store

import "time"

func (s *Store) pushFront(key string, values [][]byte) (int64, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	r, ok := sh.lookup(key, time.Now())
	if !ok {
		r = &record{entry: Entry{Kind: KindList}}
		sh.data[key] = r
	} else if r.entry.Kind != KindList {
		return 0, ErrWrongType
	}
	for _, v := range values {
		r.entry.List = append([][]byte{v}, r.entry.List...)
	}
	return int64(len(r.entry.List)), nil
}

func (s *Store) pushBack(key string, values [][]byte) (int64, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	r, ok := sh.lookup(key, time.Now())
	if !ok {
		r = &record{entry: Entry{Kind: KindList}}
		sh.data[key] = r
	} else if r.entry.Kind != KindList {
		return 0, ErrWrongType
	}
	r.entry.List = append(r.entry.List, values...)
	return int64(len(r.entry.List)), nil
}

// LPush prepends values to the list at key, one at a time in the order
// given (so the last value ends up at the head), creating the list if
// absent, and returns the resulting length.
func (s *Store) LPush(key string, values [][]byte) (int64, error) { return s.pushFront(key, values) }

// RPush appends values to the list at key in order, creating the list if
// absent, and returns the resulting length.
func (s *Store) RPush(key string, values [][]byte) (int64, error) { return s.pushBack(key, values) }

func (s *Store) pop(key string, count int64, hasCount bool, front bool) ([][]byte, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	r, ok := sh.lookup(key, time.Now())
	if !ok {
		return nil, nil
	}
	if r.entry.Kind != KindList {
		return nil, ErrWrongType
	}
	n := int64(1)
	if hasCount {
		n = count
	}
	if n > int64(len(r.entry.List)) {
		n = int64(len(r.entry.List))
	}
	if n <= 0 {
		if hasCount {
			return [][]byte{}, nil
		}
		return nil, nil
	}
	var out [][]byte
	if front {
		out = r.entry.List[:n]
		r.entry.List = r.entry.List[n:]
	} else {
		l := int64(len(r.entry.List))
		out = r.entry.List[l-n:]
		r.entry.List = r.entry.List[:l-n]
		out = reversed(out)
	}
	if len(r.entry.List) == 0 {
		delete(sh.data, key)
	}
	if !hasCount {
		return out[:1], nil
	}
	return out, nil
}

func reversed(b [][]byte) [][]byte {
	out := make([][]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// LPop removes and returns up to count elements from the head of the list
// at key. If hasCount is false, at most one element is removed and, when
// present, returned as a single-element slice (callers render that as a
// bulk string rather than an array). A missing key yields (nil, nil).
func (s *Store) LPop(key string, count int64, hasCount bool) ([][]byte, error) {
	return s.pop(key, count, hasCount, true)
}

// RPop is LPop's mirror image, removing from the tail of the list.
func (s *Store) RPop(key string, count int64, hasCount bool) ([][]byte, error) {
	return s.pop(key, count, hasCount, false)
}

// LRange returns the elements between start and stop inclusive, with
// Python-style negative indices counting from the end of the list and
// out-of-range bounds clipped rather than erroring.
func (s *Store) LRange(key string, start, stop int64) ([][]byte, error) {
	sh := s.shardFor(key)
	// lookup may delete an expired record; see Store.Get's comment.
	sh.mu.Lock()
	defer sh.mu.Unlock()
	r, ok := sh.lookup(key, time.Now())
	if !ok {
		return [][]byte{}, nil
	}
	if r.entry.Kind != KindList {
		return nil, ErrWrongType
	}
	l := int64(len(r.entry.List))
	start = normalizeIndex(start, l)
	stop = normalizeIndex(stop, l)
	if start < 0 {
		start = 0
	}
	if stop >= l {
		stop = l - 1
	}
	if start > stop || start >= l || l == 0 {
		return [][]byte{}, nil
	}
	out := make([][]byte, stop-start+1)
	copy(out, r.entry.List[start:stop+1])
	return out, nil
}

func normalizeIndex(i, length int64) int64 {
	if i < 0 {
		return length + i
	}
	return i
}
