package remote

import "sync"

// ChannelFeed is a ChangeFeed fed by an in-process publisher. Transport
// adapters (a realtime websocket bridge, tests) push decoded events into it;
// the reconciler consumes them.
type ChannelFeed struct {
	mu     sync.Mutex
	ch     chan ChangeEvent
	closed bool
}

// NewChannelFeed creates a feed with the given buffer size.
func NewChannelFeed(buffer int) *ChannelFeed {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelFeed{ch: make(chan ChangeEvent, buffer)}
}

// Publish delivers an event to the consumer. Events published after Close
// are dropped.
func (f *ChannelFeed) Publish(ev ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.ch <- ev
}

// Events returns the consumer channel. It is closed by Close.
func (f *ChannelFeed) Events() <-chan ChangeEvent {
	return f.ch
}

// Close ends the feed. Safe to call more than once.
func (f *ChannelFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
	return nil
}
