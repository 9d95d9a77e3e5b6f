// Command stormkv-cli is a minimal interactive client for a stormkvd
// instance: it connects to an address, reads one line of input at a time,
// sends it as a RESP command, and prints the reply.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/stormkv/stormkv/internal/resp"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("stormkv-cli", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "stormkv-cli — talk to a stormkvd instance\n\nUsage:\n  stormkv-cli [flags] <addr>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	showVersion := fs.Bool("version", false, "show version and exit")
	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("stormkv-cli %s\n", version)
		return
	}
	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	if err := repl(fs.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func repl(addr string) error {
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer nc.Close()

	fmt.Printf("connected to %s\n", addr)

	in := bufio.NewScanner(os.Stdin)
	readBuf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)

	for {
		fmt.Print("> ")
		if !in.Scan() {
			return nil
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}

		frame := encodeLine(line)
		wire := resp.Encode(nil, frame)
		if _, err := nc.Write(wire); err != nil {
			return fmt.Errorf("writing command: %w", err)
		}

		reply, _, err := readFrame(nc, readBuf, tmp)
		if err != nil {
			return fmt.Errorf("reading reply: %w", err)
		}
		readBuf = readBuf[:0]
		fmt.Println(formatFrame(reply))
	}
}

// encodeLine splits a line of whitespace-separated words into the RESP
// array-of-bulk-strings wire commands expect, the same request shape
// stormkvd's command.Decode parses.
func encodeLine(line string) resp.Frame {
	words := strings.Fields(line)
	parts := make([]resp.Frame, len(words))
	for i, w := range words {
		parts[i] = resp.BulkString(w)
	}
	return resp.Array(parts...)
}

func readFrame(nc net.Conn, buf, tmp []byte) (resp.Frame, int, error) {
	for {
		if n, err := resp.Check(buf); err == nil {
			f, _, perr := resp.Parse(buf[:n])
			return f, n, perr
		} else if err != resp.ErrIncomplete {
			return resp.Frame{}, 0, err
		}
		n, err := nc.Read(tmp)
		if err != nil {
			return resp.Frame{}, 0, err
		}
		buf = append(buf, tmp[:n]...)
	}
}

func formatFrame(f resp.Frame) string {
	switch f.Kind {
	case resp.KindSimple:
		return "+" + f.Str
	case resp.KindError:
		return "(error) " + f.Str
	case resp.KindInteger:
		return fmt.Sprintf("(integer) %d", f.Int)
	case resp.KindNull:
		return "(nil)"
	case resp.KindBulk:
		return fmt.Sprintf("%q", string(f.Bulk))
	case resp.KindArray:
		if f.IsNull() {
			return "(nil)"
		}
		lines := make([]string, len(f.Array))
		for i, item := range f.Array {
			lines[i] = fmt.Sprintf("%d) %s", i+1, formatFrame(item))
		}
		if len(lines) == 0 {
			return "(empty array)"
		}
		return strings.Join(lines, "\n")
	default:
		return "(unknown)"
	}
}
