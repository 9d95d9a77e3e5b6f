package store

import (
	"context"
	"sync"
)

// channelCapacity is the per-subscriber buffered message capacity. A
// subscriber that falls behind by more than this many messages misses the
// messages published while its buffer is full (the buffered ones are kept)
// rather than stalling the publisher.
const channelCapacity = 128

type subscriberState struct {
	id      int64
	ch      chan []byte
	mu      sync.Mutex
	lagged  bool
}

// topic is the fan-out point for one channel name.
type topic struct {
	mu     sync.Mutex
	subs   map[int64]*subscriberState
	nextID int64
}

type pubSub struct {
	mu       sync.Mutex
	channels map[string]*topic
}

func newPubSub() *pubSub {
	return &pubSub{channels: make(map[string]*topic)}
}

// Subscription is a handle returned by Subscribe. Callers must call
// Unsubscribe when done to free the channel's resources and, if they were
// the last subscriber, remove the channel entry from the registry.
type Subscription struct {
	channel string
	state   *subscriberState
	ps      *pubSub
}

// Subscribe registers a new subscriber on channel, creating the channel's
// topic on first use.
func (s *Store) Subscribe(channel string) *Subscription {
	return s.pubsub.subscribe(channel)
}

func (p *pubSub) subscribe(channel string) *Subscription {
	p.mu.Lock()
	t, ok := p.channels[channel]
	if !ok {
		t = &topic{subs: make(map[int64]*subscriberState)}
		p.channels[channel] = t
	}
	p.mu.Unlock()

	t.mu.Lock()
	id := t.nextID
	t.nextID++
	st := &subscriberState{id: id, ch: make(chan []byte, channelCapacity)}
	t.subs[id] = st
	t.mu.Unlock()

	return &Subscription{channel: channel, state: st, ps: p}
}

// Unsubscribe removes the subscription from its channel's topic and, if it
// was the last remaining subscriber, deletes the topic entirely so a later
// Subscribe starts fresh rather than replaying a stale receiver.
func (sub *Subscription) Unsubscribe() {
	p := sub.ps
	p.mu.Lock()
	t, ok := p.channels[sub.channel]
	p.mu.Unlock()
	if !ok {
		return
	}
	t.mu.Lock()
	delete(t.subs, sub.state.id)
	empty := len(t.subs) == 0
	t.mu.Unlock()
	if empty {
		p.mu.Lock()
		if cur, ok := p.channels[sub.channel]; ok && cur == t {
			delete(p.channels, sub.channel)
		}
		p.mu.Unlock()
	}
}

// Recv blocks until a message arrives, the subscription lags (lagged is
// true and no message is returned for this call), or ctx is done.
func (sub *Subscription) Recv(ctx context.Context) (msg []byte, lagged bool, err error) {
	sub.state.mu.Lock()
	if sub.state.lagged {
		sub.state.lagged = false
		sub.state.mu.Unlock()
		return nil, true, nil
	}
	sub.state.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case m := <-sub.state.ch:
		return m, false, nil
	}
}

// Publish delivers msg to every current subscriber of channel and returns
// how many subscribers there were (zero if the channel has none). A
// subscriber whose buffer is already full is marked lagged instead of
// blocking the publisher or displacing the message for faster readers.
func (s *Store) Publish(channel string, msg []byte) int64 {
	return s.pubsub.publish(channel, msg)
}

func (p *pubSub) publish(channel string, msg []byte) int64 {
	p.mu.Lock()
	t, ok := p.channels[channel]
	p.mu.Unlock()
	if !ok {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, st := range t.subs {
		select {
		case st.ch <- msg:
		default:
			st.mu.Lock()
			st.lagged = true
			st.mu.Unlock()
		}
	}
	return int64(len(t.subs))
}
