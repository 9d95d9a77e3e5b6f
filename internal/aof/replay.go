package aof

import (
	"errors"
	"os"

	"github.com/stormkv/stormkv/internal/command"
	"github.com/stormkv/stormkv/internal/engine"
	"github.com/stormkv/stormkv/internal/resp"
	"github.com/stormkv/stormkv/internal/store"
)

// Replay reads path front to back, applying every write command it
// contains to s through the same engine.Apply entrypoint live traffic
// uses. It stops — without error — at the first frame it cannot fully
// parse, on the assumption that a half-written trailing frame means the
// process crashed mid-append rather than that the file is corrupt. It
// returns os.ErrNotExist wrapped as a clean "nothing to replay" (0, nil)
// rather than an error, since a fresh server has no AOF yet.
func Replay(path string, s *store.Store) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	count := 0
	buf := data
	for len(buf) > 0 {
		n, err := resp.Check(buf)
		if err != nil {
			break
		}
		frame, _, err := resp.Parse(buf[:n])
		if err != nil {
			break
		}
		cmd, err := command.Decode(frame)
		if err != nil {
			break
		}
		if command.IsWrite(cmd) {
			engine.Apply(s, cmd)
			count++
		}
		buf = buf[n:]
	}
	return count, nil
}
