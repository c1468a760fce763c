package dispatch

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type Priority int

const (
	Low Priority = iota
	High
)

// Shape decides which reply, if any, finishes a call before its deadline.
type Shape int

const (
	// Gather collects every reply until the deadline or the expected count.
	Gather Shape = iota
	// Settable finishes on the first reply that carries a value.
	Settable
	// Completable finishes on the first reply marked completed.
	Completable
)

func (s Shape) String() string {
	switch s {
	case Settable:
		return "settable"
	case Completable:
		return "completable"
	default:
		return "gather"
	}
}

func (s Shape) final() func(Reply) bool {
	switch s {
	case Settable:
		return func(r Reply) bool { return r.Settable }
	case Completable:
		return func(r Reply) bool { return r.Completed }
	default:
		return nil
	}
}

type Call struct {
	Kind     string
	Payload  any
	Shape    Shape
	Expected int
	// Timeout overrides the dispatcher default when positive.
	Timeout time.Duration
}

// Event is one incoming call or announcement as seen by local handlers.
type Event struct {
	ID     string
	Kind   string
	Origin string

	payload json.RawMessage

	mu        sync.Mutex
	value     json.RawMessage
	settable  bool
	completed bool
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v any) error {
	if len(e.payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.payload, v)
}

// Set records the answer this server gives. A later Set overwrites it.
func (e *Event) Set(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.value = b
	e.settable = true
	e.mu.Unlock()
	return nil
}

func (e *Event) MarkCompleted() {
	e.mu.Lock()
	e.completed = true
	e.mu.Unlock()
}

func (e *Event) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settable
}

func (e *Event) Completed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completed
}

func (e *Event) reply(server string) (Reply, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.settable && !e.completed {
		return Reply{}, false
	}
	return Reply{Responder: server, Completed: e.completed, Settable: e.settable, Value: e.value}, true
}

// HandlerFunc reacts to one event. Handlers that are not responsible for the
// event's subject return nil without touching it.
type HandlerFunc func(ctx context.Context, ev *Event) error
