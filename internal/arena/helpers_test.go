package arena

import (
	"context"
	"sync"
	"testing"
	"time"

	"gamefleet/internal/bus"
	"gamefleet/internal/dispatch"
	"gamefleet/internal/store"
)

type testNode struct {
	disp     *dispatch.Dispatcher
	registry *Registry
	dir      *Directory
}

func startNode(t *testing.T, hub *bus.Hub, records store.Records, server string) *testNode {
	t.Helper()
	tr := hub.Connect()
	disp := dispatch.New(server, tr, 300*time.Millisecond)
	n := &testNode{disp: disp, registry: NewRegistry(records, disp), dir: NewDirectory(records)}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = disp.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = tr.Close()
	})
	return n
}

type recordingHooks struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (h *recordingHooks) Activate(_ context.Context, a Arena) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, "activate:"+a.RoomID)
	return h.err
}

func (h *recordingHooks) Deactivate(_ context.Context, a Arena) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, "deactivate")
	return h.err
}

func (h *recordingHooks) snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.calls))
	copy(out, h.calls)
	return out
}

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (o *recordingObserver) ArenaActivated(_ context.Context, a Arena) {
	o.mu.Lock()
	o.events = append(o.events, "up:"+a.ID+":"+a.RoomID)
	o.mu.Unlock()
}

func (o *recordingObserver) ArenaDeactivated(_ context.Context, a Arena) {
	o.mu.Lock()
	o.events = append(o.events, "down:"+a.ID)
	o.mu.Unlock()
}

func (o *recordingObserver) snapshot() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.events))
	copy(out, o.events)
	return out
}

func mustRegister(t *testing.T, r *Registry, a Arena, hooks Hooks) Arena {
	t.Helper()
	got, err := r.Register(context.Background(), a, hooks)
	if err != nil {
		t.Fatalf("register %s: %v", a.ID, err)
	}
	return got
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
