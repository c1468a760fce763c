package bus

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub is an in-process broker. Each Connect returns a transport standing in
// for one server; published envelopes reach every connected transport,
// including the publisher's.
type Hub struct {
	mu      sync.Mutex
	members map[*MemoryTransport]struct{}
}

func NewHub() *Hub {
	return &Hub{members: map[*MemoryTransport]struct{}{}}
}

func (h *Hub) Connect() *MemoryTransport {
	t := &MemoryTransport{
		hub:  h,
		ch:   make(chan []byte, 256),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.members[t] = struct{}{}
	h.mu.Unlock()
	return t
}

func (h *Hub) snapshot() []*MemoryTransport {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*MemoryTransport, 0, len(h.members))
	for t := range h.members {
		out = append(out, t)
	}
	return out
}

func (h *Hub) remove(t *MemoryTransport) {
	h.mu.Lock()
	delete(h.members, t)
	h.mu.Unlock()
}

type MemoryTransport struct {
	hub       *Hub
	ch        chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

var _ Transport = (*MemoryTransport)(nil)

func (t *MemoryTransport) Publish(ctx context.Context, env Envelope) error {
	select {
	case <-t.done:
		return ErrClosed
	default:
	}
	// encode once so members never share payload memory
	b, err := Encode(env)
	if err != nil {
		return err
	}
	for _, m := range t.hub.snapshot() {
		select {
		case m.ch <- b:
		case <-m.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (t *MemoryTransport) Receive(ctx context.Context, handle func(Envelope)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.done:
			return ErrClosed
		case b := <-t.ch:
			env, err := Decode(b)
			if err != nil {
				log.Warn().Err(err).Msg("bus drop undecodable envelope")
				continue
			}
			handle(env)
		}
	}
}

func (t *MemoryTransport) Close() error {
	t.closeOnce.Do(func() {
		t.hub.remove(t)
		close(t.done)
	})
	return nil
}
