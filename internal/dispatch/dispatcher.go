// Package dispatch asks the fleet a question and aggregates whatever answers
// arrive. A call is published on the bus, every server runs its local handlers
// for the call's kind, and servers that set a value or mark the call completed
// reply to the origin. Nobody answering is not an error: the caller sees an
// empty or unfinished ResultSet after the deadline.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"gamefleet/internal/bus"
	"gamefleet/internal/id"

	"github.com/rs/zerolog/log"
)

const DefaultTimeout = 2 * time.Second

type handlerEntry struct {
	priority Priority
	fn       HandlerFunc
}

type Dispatcher struct {
	server    string
	transport bus.Transport
	timeout   time.Duration

	mu       sync.RWMutex
	handlers map[string][]handlerEntry
	pending  map[string]*ResultSet

	inflight sync.WaitGroup
}

func New(server string, transport bus.Transport, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		server:    server,
		transport: transport,
		timeout:   timeout,
		handlers:  map[string][]handlerEntry{},
		pending:   map[string]*ResultSet{},
	}
}

func (d *Dispatcher) Server() string { return d.server }

// Handle registers fn for one event kind. High priority handlers run before
// Low ones; handlers of equal priority run in registration order.
func (d *Dispatcher) Handle(p Priority, kind string, fn HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	entries := append(slices.Clone(d.handlers[kind]), handlerEntry{priority: p, fn: fn})
	slices.SortStableFunc(entries, func(a, b handlerEntry) int { return int(b.priority) - int(a.priority) })
	d.handlers[kind] = entries
}

// Dispatch publishes call and returns its ResultSet without waiting. The
// error is non-nil only when the call could not be encoded or published.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) (*ResultSet, error) {
	payload, err := encodePayload(call.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", call.Kind, err)
	}
	timeout := call.Timeout
	if timeout <= 0 {
		timeout = d.timeout
	}
	reqID := id.NewPrefixed("req")
	rs := newResultSet(call.Expected, call.Shape.final(), func() { d.forget(reqID) })

	d.mu.Lock()
	d.pending[reqID] = rs
	d.mu.Unlock()
	metricPendingActive.Add(1)
	// the deadline may fire at once; forget must find the entry
	rs.startTimer(timeout)

	env := bus.Envelope{
		Type:        bus.TypeEvent,
		ID:          reqID,
		Kind:        call.Kind,
		Origin:      d.server,
		ExpectReply: true,
		Payload:     payload,
	}
	if err := d.transport.Publish(ctx, env); err != nil {
		rs.Complete()
		return nil, fmt.Errorf("publish %s: %w", call.Kind, err)
	}
	metricRequestsTotal.Add(1)
	log.Debug().Str("request_id", reqID).Str("event_kind", call.Kind).Str("shape", call.Shape.String()).Msg("dispatch sent")
	return rs, nil
}

// Request dispatches call and blocks until its set finishes or ctx is done.
func (d *Dispatcher) Request(ctx context.Context, call Call) (*ResultSet, error) {
	rs, err := d.Dispatch(ctx, call)
	if err != nil {
		return nil, err
	}
	return rs.WaitForComplete(ctx), nil
}

// Broadcast announces an event that nobody answers.
func (d *Dispatcher) Broadcast(ctx context.Context, kind string, payload any) error {
	b, err := encodePayload(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	env := bus.Envelope{
		Type:    bus.TypeEvent,
		ID:      id.NewPrefixed("evt"),
		Kind:    kind,
		Origin:  d.server,
		Payload: b,
	}
	if err := d.transport.Publish(ctx, env); err != nil {
		return fmt.Errorf("publish %s: %w", kind, err)
	}
	metricBroadcastsTotal.Add(1)
	return nil
}

// Run consumes the bus until ctx is done, then waits for running handlers.
func (d *Dispatcher) Run(ctx context.Context) error {
	err := d.transport.Receive(ctx, func(env bus.Envelope) { d.deliver(ctx, env) })
	d.inflight.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, bus.ErrClosed) {
		return nil
	}
	return err
}

func (d *Dispatcher) deliver(ctx context.Context, env bus.Envelope) {
	switch env.Type {
	case bus.TypeReply:
		if env.IsReplyFor(d.server) {
			d.collect(env)
		}
	case bus.TypeEvent:
		d.mu.RLock()
		entries := d.handlers[env.Kind]
		d.mu.RUnlock()
		if len(entries) == 0 {
			return
		}
		d.inflight.Add(1)
		go func() {
			defer d.inflight.Done()
			d.handle(ctx, env, entries)
		}()
	}
}

func (d *Dispatcher) handle(ctx context.Context, env bus.Envelope, entries []handlerEntry) {
	ev := &Event{ID: env.ID, Kind: env.Kind, Origin: env.Origin, payload: env.Payload}
	for _, h := range entries {
		if err := h.fn(ctx, ev); err != nil {
			metricHandlerErrorsTotal.Add(1)
			log.Error().Err(err).Str("event_kind", env.Kind).Str("request_id", env.ID).Str("origin", env.Origin).Msg("event handler failed")
		}
	}
	if !env.ExpectReply {
		return
	}
	r, ok := ev.reply(d.server)
	if !ok {
		return
	}
	out := bus.Envelope{
		Type:      bus.TypeReply,
		ID:        env.ID,
		Kind:      env.Kind,
		Origin:    d.server,
		Target:    env.Origin,
		Responder: d.server,
		Completed: r.Completed,
		Settable:  r.Settable,
		Value:     r.Value,
	}
	if err := d.transport.Publish(ctx, out); err != nil && ctx.Err() == nil {
		log.Warn().Err(err).Str("event_kind", env.Kind).Str("request_id", env.ID).Msg("reply publish failed")
	}
}

func (d *Dispatcher) collect(env bus.Envelope) {
	d.mu.RLock()
	rs := d.pending[env.ID]
	d.mu.RUnlock()
	if rs == nil || !rs.Add(Reply{Responder: env.Responder, Completed: env.Completed, Settable: env.Settable, Value: env.Value}) {
		metricLateRepliesTotal.Add(1)
		log.Debug().Str("request_id", env.ID).Str("responder", env.Responder).Msg("late reply dropped")
		return
	}
	metricRepliesTotal.Add(1)
}

func (d *Dispatcher) forget(reqID string) {
	d.mu.Lock()
	rs, ok := d.pending[reqID]
	delete(d.pending, reqID)
	d.mu.Unlock()
	if !ok {
		return
	}
	metricPendingActive.Add(-1)
	if rs.TimedOut() {
		metricTimeoutsTotal.Add(1)
	}
}

// Pending returns the number of calls still waiting for replies.
func (d *Dispatcher) Pending() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.pending)
}

func encodePayload(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(v)
}
