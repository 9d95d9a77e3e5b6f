package server

import (
	"context"

	"github.com/stormkv/stormkv/internal/command"
	"github.com/stormkv/stormkv/internal/resp"
	"github.com/stormkv/stormkv/internal/store"
)

type subEvent struct {
	channel string
	data    []byte
	lagged  bool
}

type liveSub struct {
	sub    *store.Subscription
	cancel context.CancelFunc
}

// handleSubscribe moves the connection into Subscribed mode: a one-time,
// terminal transition (there is no path back to Normal mode). Only
// SUBSCRIBE and UNSUBSCRIBE are accepted from the client from here on;
// every published message on an active channel is pushed to the client as
// it arrives, interleaved with those confirmations.
func (s *Server) handleSubscribe(ctx context.Context, c *conn, channels []string) {
	live := make(map[string]*liveSub)
	msgCh := make(chan subEvent, 64)
	defer func() {
		for _, l := range live {
			l.cancel()
			l.sub.Unsubscribe()
		}
	}()

	addChannel := func(name string) {
		subCtx, cancel := context.WithCancel(ctx)
		sub := s.store.Subscribe(name)
		live[name] = &liveSub{sub: sub, cancel: cancel}
		go forwardSub(subCtx, name, sub, msgCh)
	}
	removeChannel := func(name string) {
		l, ok := live[name]
		if !ok {
			return
		}
		l.cancel()
		l.sub.Unsubscribe()
		delete(live, name)
	}

	for _, ch := range channels {
		addChannel(ch)
		if err := c.WriteFrame(subscribeAck("subscribe", ch, len(live))); err != nil {
			return
		}
	}

	cmdCh := make(chan readResult, 1)
	go readLoop(c, cmdCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case ev := <-msgCh:
			if ev.lagged {
				s.logger.Warn("subscriber lagged", "channel", ev.channel)
				continue
			}
			msg := resp.Array(resp.BulkString("message"), resp.BulkString(ev.channel), resp.Bulk(ev.data))
			if err := c.WriteFrame(msg); err != nil {
				return
			}
		case r := <-cmdCh:
			if r.err != nil {
				return
			}
			cmd, err := command.Decode(r.frame)
			if err != nil {
				if werr := c.WriteFrame(resp.Err("ERR " + err.Error())); werr != nil {
					return
				}
				continue
			}
			switch tc := cmd.(type) {
			case command.Subscribe:
				for _, ch := range tc.Channels {
					if _, already := live[ch]; !already {
						addChannel(ch)
					}
					if err := c.WriteFrame(subscribeAck("subscribe", ch, len(live))); err != nil {
						return
					}
				}
			case command.Unsubscribe:
				targets := tc.Channels
				if len(targets) == 0 {
					for ch := range live {
						targets = append(targets, ch)
					}
				}
				for _, ch := range targets {
					removeChannel(ch)
					if err := c.WriteFrame(subscribeAck("unsubscribe", ch, len(live))); err != nil {
						return
					}
				}
				if len(live) == 0 {
					return
				}
			default:
				if werr := c.WriteFrame(resp.Err("ERR only (UN)SUBSCRIBE allowed while subscribed")); werr != nil {
					return
				}
			}
		}
	}
}

func subscribeAck(kind, channel string, count int) resp.Frame {
	return resp.Array(resp.BulkString(kind), resp.BulkString(channel), resp.Integer(int64(count)))
}

func forwardSub(ctx context.Context, channel string, sub *store.Subscription, out chan<- subEvent) {
	for {
		data, lagged, err := sub.Recv(ctx)
		if err != nil {
			return
		}
		select {
		case out <- subEvent{channel: channel, data: data, lagged: lagged}:
		case <-ctx.Done():
			return
		}
	}
}

type readResult struct {
	frame resp.Frame
	err   error
}

func readLoop(c *conn, out chan<- readResult) {
	for {
		f, err := c.ReadFrame()
		out <- readResult{frame: f, err: err}
		if err != nil {
			return
		}
	}
}
