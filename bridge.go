package scenelink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Handler handles one inbound envelope. A non-nil result is posted back as
// the response; a non-nil error is posted back in the response's error field.
type Handler func(ctx context.Context, data json.RawMessage) (any, error)

// RemoteError is returned by Request when the peer's handler failed.
type RemoteError struct {
	Event   string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("scenelink: %s failed remotely: %s", e.Event, e.Message)
}

type handlerEntry struct {
	id uint64
	fn Handler
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithLogger sets the bridge logger. The default discards everything.
func WithLogger(l *zap.Logger) BridgeOption {
	return func(b *Bridge) { b.log = l }
}

// WithTestMode makes handlers that return nil still post an explicit
// response, so tests can await every request deterministically.
func WithTestMode(on bool) BridgeOption {
	return func(b *Bridge) { b.testMode = on }
}

// WithIDGenerator sets the request id generator. The default is UUIDv7.
func WithIDGenerator(g Generator) BridgeOption {
	return func(b *Bridge) { b.newID = g }
}

// Bridge delivers one-way notifications and request/response pairs over a
// Channel. Responses are matched to requests by an explicit request id, so
// concurrent requests on the same event name never cross-resolve.
//
// Inbound handlers run sequentially on the goroutine calling Run, in arrival
// order. There is no timeout: a Request whose response never arrives stays
// pending until its context is done or the bridge closes.
type Bridge struct {
	ch       Channel
	log      *zap.Logger
	newID    Generator
	testMode bool

	mu          sync.Mutex
	handlers    map[string][]handlerEntry
	nextHandler uint64
	pending     map[string]chan Envelope
	closed      bool
}

// NewBridge creates a bridge over ch. Call Run to start dispatching.
func NewBridge(ch Channel, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		ch:       ch,
		log:      zap.NewNop(),
		newID:    UUIDv7(),
		handlers: make(map[string][]handlerEntry),
		pending:  make(map[string]chan Envelope),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run dispatches inbound envelopes until ctx is done or the channel's inbox
// closes. Pending requests fail with ErrClosed when the inbox closes.
func (b *Bridge) Run(ctx context.Context) error {
	inbox := b.ch.Inbox()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-inbox:
			if !ok {
				b.shutdown()
				return ErrClosed
			}
			b.dispatch(ctx, env)
		}
	}
}

// dispatch routes one inbound envelope.
func (b *Bridge) dispatch(ctx context.Context, env Envelope) {
	if env.RequestID != "" && strings.HasSuffix(env.EventName, ResponseSuffix) {
		b.mu.Lock()
		waiter, ok := b.pending[env.RequestID]
		if ok {
			delete(b.pending, env.RequestID) // one-shot
		}
		b.mu.Unlock()
		if ok {
			waiter <- env
			return
		}
	}

	b.mu.Lock()
	entries := append([]handlerEntry(nil), b.handlers[env.EventName]...)
	b.mu.Unlock()

	if len(entries) == 0 {
		b.log.Debug("unhandled envelope", zap.String("event", env.EventName), zap.String("request", env.RequestID))
		return
	}

	for _, e := range entries {
		result, err := e.fn(ctx, env.Data)
		if err != nil {
			b.log.Debug("handler failed", zap.String("event", env.EventName), zap.Error(err))
			b.respond(ctx, env, nil, err.Error())
			continue
		}
		if result == nil && !b.testMode {
			continue
		}
		data, mErr := json.Marshal(result)
		if mErr != nil {
			b.respond(ctx, env, nil, mErr.Error())
			continue
		}
		b.respond(ctx, env, data, "")
	}
}

func (b *Bridge) respond(ctx context.Context, req Envelope, data json.RawMessage, errMsg string) {
	if req.RequestID == "" {
		return
	}
	resp := Envelope{
		EventName: ResponseName(req.EventName),
		Data:      data,
		RequestID: req.RequestID,
		Error:     errMsg,
	}
	if err := b.ch.Post(ctx, resp); err != nil {
		b.log.Debug("post response failed", zap.String("event", resp.EventName), zap.Error(err))
	}
}

func marshalPayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	}
	return json.Marshal(payload)
}

// Send posts a one-way notification immediately. Nothing is buffered or
// queued by the bridge itself.
func (b *Bridge) Send(ctx context.Context, event string, payload any) error {
	data, err := marshalPayload(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	return b.ch.Post(ctx, Envelope{EventName: event, Data: data})
}

// Request posts event and waits for its response. The one-shot waiter is
// registered under a fresh request id before the envelope is posted. It
// returns the response data, a *RemoteError if the handler failed, ctx.Err()
// if ctx ends first, or ErrClosed if the bridge shuts down.
func (b *Bridge) Request(ctx context.Context, event string, payload any) (json.RawMessage, error) {
	data, err := marshalPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}

	id := b.newID()
	waiter := make(chan Envelope, 1)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.pending[id] = waiter
	b.mu.Unlock()

	if err := b.ch.Post(ctx, Envelope{EventName: event, Data: data, RequestID: id}); err != nil {
		b.forget(id)
		return nil, err
	}

	select {
	case env, ok := <-waiter:
		if !ok {
			return nil, ErrClosed
		}
		if env.Error != "" {
			return nil, &RemoteError{Event: event, Message: env.Error}
		}
		return env.Data, nil
	case <-ctx.Done():
		b.forget(id)
		return nil, ctx.Err()
	}
}

// Call is Request with the response decoded into R. A null or empty
// response decodes to the zero value.
func Call[R any](ctx context.Context, b *Bridge, event string, payload any) (R, error) {
	var out R
	data, err := b.Request(ctx, event, payload)
	if err != nil {
		return out, err
	}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", ResponseName(event), err)
	}
	return out, nil
}

func (b *Bridge) forget(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

// Pending returns the number of requests still awaiting a response.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// On registers h for inbound envelopes named event and returns a function
// that unregisters it. Calling the returned function more than once is safe.
func (b *Bridge) On(event string, h Handler) func() {
	b.mu.Lock()
	b.nextHandler++
	id := b.nextHandler
	b.handlers[event] = append(b.handlers[event], handlerEntry{id: id, fn: h})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.handlers[event]
		for i := range list {
			if list[i].id == id {
				copy(list[i:], list[i+1:])
				list[len(list)-1] = handlerEntry{}
				list = list[:len(list)-1]
				break
			}
		}
		if len(list) == 0 {
			delete(b.handlers, event)
		} else {
			b.handlers[event] = list
		}
	}
}

// Compose returns a function that invokes every unsubscribe in order. Used to
// tear down a lifecycle-scoped listener set at once.
func Compose(unsubs ...func()) func() {
	return func() {
		for _, u := range unsubs {
			if u != nil {
				u()
			}
		}
	}
}

// Close closes the underlying channel and fails every pending request.
func (b *Bridge) Close() error {
	b.shutdown()
	return b.ch.Close()
}

func (b *Bridge) shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, waiter := range b.pending {
		close(waiter)
		delete(b.pending, id)
	}
}
