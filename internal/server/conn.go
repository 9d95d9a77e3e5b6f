package server

import (
	"bufio"
	"errors"
	"io"
	"net"

	"github.com/google/uuid"

	"github.com/stormkv/stormkv/internal/resp"
)

// conn wraps a net.Conn with the incremental RESP2 read loop: frames may
// arrive split across several TCP reads, so an unparsed prefix is carried
// between calls to ReadFrame the same way the protocol's Check/Parse pair
// is meant to be driven. Each connection gets its own id so log lines and
// metrics from the same client can be correlated without relying on the
// remote address, which a NATed or proxied client can share with others.
type conn struct {
	id  uuid.UUID
	nc  net.Conn
	buf []byte
	w   *bufio.Writer
}

func newConn(nc net.Conn) *conn {
	return &conn{id: uuid.New(), nc: nc, w: bufio.NewWriter(nc)}
}

// ReadFrame returns the next complete frame on the connection, reading
// more bytes from the socket as needed. It returns io.EOF (unwrapped) when
// the peer closes cleanly with no partial frame pending, and
// io.ErrUnexpectedEOF when the peer closes mid-frame.
func (c *conn) ReadFrame() (resp.Frame, error) {
	for {
		if n, err := resp.Check(c.buf); err == nil {
			f, _, perr := resp.Parse(c.buf[:n])
			rest := make([]byte, len(c.buf)-n)
			copy(rest, c.buf[n:])
			c.buf = rest
			return f, perr
		} else if !errors.Is(err, resp.ErrIncomplete) {
			return resp.Frame{}, err
		}

		chunk := make([]byte, 4096)
		n, err := c.nc.Read(chunk)
		if n > 0 {
			c.buf = append(c.buf, chunk[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) && len(c.buf) > 0 {
				return resp.Frame{}, io.ErrUnexpectedEOF
			}
			return resp.Frame{}, err
		}
	}
}

// WriteFrame encodes and flushes f to the peer.
func (c *conn) WriteFrame(f resp.Frame) error {
	if _, err := c.w.Write(resp.Encode(nil, f)); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c *conn) Close() error { return c.nc.Close() }
