package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Unbounded collects replies until the deadline.
const Unbounded = 0

// Reply is one server's answer to a dispatched call.
type Reply struct {
	Responder string          `json:"responder"`
	Completed bool            `json:"completed"`
	Settable  bool            `json:"settable"`
	Value     json.RawMessage `json:"value,omitempty"`
}

// ResultSet aggregates the replies to one call. It finishes when the expected
// number of replies has arrived, when the call's shape says a reply is final,
// on Complete, or at the deadline. A finished set accepts no more replies.
type ResultSet struct {
	mu       sync.Mutex
	expected int
	final    func(Reply) bool
	replies  []Reply
	finished bool
	timedOut bool
	done     chan struct{}
	timer    *time.Timer
	onFinish func()
}

func newResultSet(expected int, final func(Reply) bool, onFinish func()) *ResultSet {
	return &ResultSet{
		expected: expected,
		final:    final,
		done:     make(chan struct{}),
		onFinish: onFinish,
	}
}

// startTimer arms the deadline. A non-positive timeout means none.
func (rs *ResultSet) startTimer(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if !rs.finished {
		rs.timer = time.AfterFunc(timeout, rs.expire)
	}
}

// NewResultSet returns a standalone set, for callers that aggregate answers
// outside a Dispatcher. A non-positive timeout means no deadline.
func NewResultSet(expected int, timeout time.Duration) *ResultSet {
	rs := newResultSet(expected, nil, nil)
	rs.startTimer(timeout)
	return rs
}

// Add appends a reply and reports whether it was accepted.
func (rs *ResultSet) Add(r Reply) bool {
	rs.mu.Lock()
	if rs.finished {
		rs.mu.Unlock()
		return false
	}
	rs.replies = append(rs.replies, r)
	last := (rs.expected > 0 && len(rs.replies) >= rs.expected) || (rs.final != nil && rs.final(r))
	rs.mu.Unlock()
	if last {
		rs.finish(false)
	}
	return true
}

// Complete finishes the set early with whatever has been collected.
func (rs *ResultSet) Complete() {
	rs.finish(false)
}

func (rs *ResultSet) expire() {
	rs.finish(true)
}

func (rs *ResultSet) finish(timedOut bool) {
	rs.mu.Lock()
	if rs.finished {
		rs.mu.Unlock()
		return
	}
	rs.finished = true
	rs.timedOut = timedOut
	if rs.timer != nil {
		rs.timer.Stop()
	}
	onFinish := rs.onFinish
	rs.mu.Unlock()
	// waiters wake only after the set is forgotten
	if onFinish != nil {
		onFinish()
	}
	close(rs.done)
}

// Done is closed once the set is finished.
func (rs *ResultSet) Done() <-chan struct{} {
	return rs.done
}

// Wait blocks until the set finishes or ctx is done and returns the replies
// collected so far.
func (rs *ResultSet) Wait(ctx context.Context) []Reply {
	select {
	case <-rs.done:
	case <-ctx.Done():
	}
	return rs.Replies()
}

// WaitForComplete is Wait returning the set itself.
func (rs *ResultSet) WaitForComplete(ctx context.Context) *ResultSet {
	rs.Wait(ctx)
	return rs
}

func (rs *ResultSet) Replies() []Reply {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]Reply, len(rs.replies))
	copy(out, rs.replies)
	return out
}

func (rs *ResultSet) Finished() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.finished
}

// TimedOut reports whether the deadline finished the set.
func (rs *ResultSet) TimedOut() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.timedOut
}

// ContainsCompleted reports whether any responder marked the call done.
func (rs *ResultSet) ContainsCompleted() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, r := range rs.replies {
		if r.Completed {
			return true
		}
	}
	return false
}

// ContainsSettable reports whether any responder set exactly v.
func (rs *ResultSet) ContainsSettable(v any) bool {
	want, err := json.Marshal(v)
	if err != nil {
		return false
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, r := range rs.replies {
		if r.Settable && bytes.Equal(bytes.TrimSpace(r.Value), want) {
			return true
		}
	}
	return false
}

// FirstSettable decodes the first set value into out.
func (rs *ResultSet) FirstSettable(out any) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, r := range rs.replies {
		if r.Settable {
			return json.Unmarshal(r.Value, out) == nil
		}
	}
	return false
}
