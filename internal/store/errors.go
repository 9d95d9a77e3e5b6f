package store

import "errors"

// ErrWrongType is returned when a command targets a key whose stored value
// is not the shape the command expects (e.g. LPUSH against a string key).
var ErrWrongType = errors.New("storage: operation against a key holding the wrong kind of value")

// ErrNotAnInteger is returned by INCR/DECR when the stored string is not a
// valid base-10 64-bit integer, or would overflow on this operation.
var ErrNotAnInteger = errors.New("storage: value is not an integer or is out of range")
