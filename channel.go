package scenelink

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// ErrClosed is returned when posting on a closed channel or bridge.
var ErrClosed = errors.New("scenelink: channel closed")

// Envelope is the unit of cross-boundary communication.
type Envelope struct {
	EventName string          `json:"eventName"`
	Data      json.RawMessage `json:"data,omitempty"`
	// RequestID correlates a response with the request that awaited it.
	RequestID string `json:"requestId,omitempty"`
	// Error carries a handler failure back to the requester.
	Error string `json:"error,omitempty"`
}

// Channel is the transport under a Bridge. Post delivers envelopes in call
// order; Inbox yields inbound envelopes and is closed when the peer goes away.
type Channel interface {
	Post(ctx context.Context, env Envelope) error
	Inbox() <-chan Envelope
	Close() error
}

const pipeBuffer = 256

// PipeChannel is one end of an in-process channel pair created by NewPipe.
type PipeChannel struct {
	in   chan Envelope
	done chan struct{}
	peer *PipeChannel

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

// NewPipe creates two connected in-process channel ends. Envelopes posted on
// one arrive on the other's Inbox in order.
func NewPipe() (*PipeChannel, *PipeChannel) {
	a := &PipeChannel{in: make(chan Envelope, pipeBuffer), done: make(chan struct{})}
	b := &PipeChannel{in: make(chan Envelope, pipeBuffer), done: make(chan struct{})}
	a.peer, b.peer = b, a
	return a, b
}

// Post delivers env to the peer. It blocks while the peer's buffer is full
// unless ctx is done.
func (p *PipeChannel) Post(ctx context.Context, env Envelope) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	peer := p.peer
	peer.mu.RLock()
	defer peer.mu.RUnlock()
	if peer.closed {
		return ErrClosed
	}
	select {
	case peer.in <- env:
		return nil
	case <-peer.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inbox returns the inbound envelope stream.
func (p *PipeChannel) Inbox() <-chan Envelope {
	return p.in
}

// Close closes this end. The local inbox is closed and later posts from
// either side fail with ErrClosed.
func (p *PipeChannel) Close() error {
	p.once.Do(func() {
		// Wake blocked posters first so they release the read lock.
		close(p.done)
		p.mu.Lock()
		p.closed = true
		close(p.in)
		p.mu.Unlock()
	})
	return nil
}
