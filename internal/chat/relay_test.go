package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"gamefleet/internal/bus"
	"gamefleet/internal/dispatch"
	"gamefleet/internal/useraction"
)

func startDispatcher(t *testing.T, hub *bus.Hub, server string) *dispatch.Dispatcher {
	t.Helper()
	tr := hub.Connect()
	d := dispatch.New(server, tr, 100*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = tr.Close()
	})
	return d
}

func waitInbox(t *testing.T, h *useraction.MemoryHost, player string, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := h.Inbox(player); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("inbox of %s never reached %d messages: %v", player, n, h.Inbox(player))
	return nil
}

func TestRelayDeliversToWhitelistedServers(t *testing.T) {
	hub := bus.NewHub()
	lobbyHost, gameHost, otherHost := useraction.NewMemoryHost(), useraction.NewMemoryHost(), useraction.NewMemoryHost()
	lobbyHost.Connect("alice")
	gameHost.Connect("bob")
	otherHost.Connect("carol")

	lobby := NewRelay(startDispatcher(t, hub, "lobby"), lobbyHost)
	NewRelay(startDispatcher(t, hub, "game-1"), gameHost)
	NewRelay(startDispatcher(t, hub, "game-2"), otherHost)

	lobby.Use(func(_ context.Context, l *Line) error {
		l.Format.AddPrefix("<"+l.PlayerID+"> ", High).AddPrefix("[Lobby]", Low)
		return nil
	})

	out, err := lobby.Send(context.Background(), "alice", "gg", "game-1")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if out.Formatted != "[Lobby]<alice> gg" {
		t.Fatalf("unexpected format %q", out.Formatted)
	}
	if got := waitInbox(t, gameHost, "bob", 1); got[0] != out.Formatted {
		t.Fatalf("bob got %q", got)
	}
	waitInbox(t, lobbyHost, "alice", 1)

	time.Sleep(50 * time.Millisecond)
	if got := otherHost.Inbox("carol"); len(got) != 0 {
		t.Fatalf("server outside whitelist received chat: %v", got)
	}
}

func TestRelayFilterCancels(t *testing.T) {
	hub := bus.NewHub()
	host := useraction.NewMemoryHost()
	host.Connect("alice")
	r := NewRelay(startDispatcher(t, hub, "lobby"), host)
	r.Use(func(_ context.Context, l *Line) error {
		l.Cancelled = l.Message == "spam"
		return nil
	})

	if _, err := r.Send(context.Background(), "alice", "spam"); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := host.Inbox("alice"); len(got) != 0 {
		t.Fatalf("cancelled chat delivered: %v", got)
	}
}

func TestLineAddServersSkipsDuplicates(t *testing.T) {
	var l Line
	l.AddServers("a", "b")
	l.AddServers("b", "c")
	if len(l.Servers) != 3 {
		t.Fatalf("unexpected servers %v", l.Servers)
	}
}
