package node

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"gamefleet/internal/arena"
	"gamefleet/internal/bus"
	"gamefleet/internal/session"
	"gamefleet/internal/store"
	"gamefleet/internal/useraction"
)

type componentLog struct {
	mu     sync.Mutex
	events []string
}

func (l *componentLog) add(ev string) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *componentLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func scoreboardBuilder(log *componentLog) session.Builder {
	return func(ctx context.Context, a arena.Arena, s *session.Session) error {
		return s.Register(ctx, &session.Func{
			K: "scoreboard",
			OnStart: func(ctx context.Context) error {
				current, err := s.Arena(ctx)
				if err != nil {
					return err
				}
				log.add("start:" + current.ID + ":" + current.RoomID)
				return nil
			},
			OnStop: func(context.Context) error {
				log.add("stop:" + a.ID)
				return nil
			},
		})
	}
}

func startNode(t *testing.T, hub *bus.Hub, records store.Records, opts Options) *Node {
	t.Helper()
	opts.Records = records
	opts.Transport = hub.Connect()
	if opts.DispatchTimeout == 0 {
		opts.DispatchTimeout = 300 * time.Millisecond
	}
	n, err := New(opts)
	if err != nil {
		t.Fatalf("new node %s: %v", opts.Name, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("run %s: %v", opts.Name, err)
		}
		_ = opts.Transport.Close()
	})
	return n
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewValidatesOptions(t *testing.T) {
	hub := bus.NewHub()
	cases := []Options{
		{Records: store.NewMemory(), Transport: hub.Connect()},
		{Name: "s1", Transport: hub.Connect()},
		{Name: "s1", Records: store.NewMemory()},
	}
	for i, opts := range cases {
		if _, err := New(opts); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestLaunchStartsSessionOnHostingServer(t *testing.T) {
	hub := bus.NewHub()
	records := store.NewMemory()
	log := &componentLog{}
	game := startNode(t, hub, records, Options{Name: "game-1", Builder: scoreboardBuilder(log)})
	lobby := startNode(t, hub, records, Options{Name: "lobby"})
	ctx := context.Background()

	if _, err := game.Registry.Register(ctx, arena.Arena{ID: "a1", GameType: arena.Spleef, MinPlayers: 1, MaxPlayers: 4}, nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	room, err := lobby.Rooms.Create(ctx, "p1", arena.Spleef)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	got, err := lobby.Rooms.Launch(ctx, room.ID)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if got.ID != "a1" || got.ServerName != "game-1" {
		t.Fatalf("unexpected arena %+v", got)
	}
	if _, ok := game.Sessions.Get("a1"); !ok {
		t.Fatal("no session on hosting server")
	}
	if lobby.Sessions.Len() != 0 {
		t.Fatal("session created on a server that does not host the arena")
	}
	if events := log.snapshot(); len(events) != 1 || events[0] != "start:a1:"+room.ID {
		t.Fatalf("unexpected component events %v", events)
	}

	if err := lobby.Rooms.Disband(ctx, room.ID); err != nil {
		t.Fatalf("disband: %v", err)
	}
	if _, ok := game.Sessions.Get("a1"); ok {
		t.Fatal("session survived room disband")
	}
	if a, _ := game.Registry.Local("a1"); a.IsActivated() {
		t.Fatalf("arena still activated: %+v", a)
	}
}

func TestInviteNotifiesPlayerWhereverOnline(t *testing.T) {
	hub := bus.NewHub()
	records := store.NewMemory()
	host := useraction.NewMemoryHost()
	host.Connect("p2")
	lobby := startNode(t, hub, records, Options{Name: "lobby"})
	startNode(t, hub, records, Options{Name: "game-1", Host: host})
	ctx := context.Background()

	room, err := lobby.Rooms.Create(ctx, "p1", arena.BedWars)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := lobby.Rooms.SendInvite(ctx, room.ID, "p1", "p2"); err != nil {
		t.Fatalf("invite: %v", err)
	}
	waitFor(t, "invite notice", func() bool { return len(host.Inbox("p2")) == 1 })
	if msg := host.Inbox("p2")[0]; !strings.Contains(msg, "p1 invited you") {
		t.Fatalf("unexpected notice %q", msg)
	}

	online, err := lobby.Actions.For("p2").IsOnline(ctx)
	if err != nil || !online {
		t.Fatalf("p2 should be online through game-1: online=%v err=%v", online, err)
	}
}

func TestShutdownReleasesLocalArenas(t *testing.T) {
	hub := bus.NewHub()
	records := store.NewMemory()
	log := &componentLog{}
	game := startNode(t, hub, records, Options{Name: "game-1", Builder: scoreboardBuilder(log)})
	ctx := context.Background()

	if _, err := game.Registry.Register(ctx, arena.Arena{ID: "a1", GameType: arena.TNTRun, MinPlayers: 1, MaxPlayers: 8}, nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := game.Registry.Activate(ctx, "a1", "r1"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := game.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if game.Sessions.Len() != 0 {
		t.Fatalf("sessions left after shutdown: %d", game.Sessions.Len())
	}
	if _, err := game.Arenas.Get(ctx, "a1"); !errors.Is(err, arena.ErrArenaNotFound) {
		t.Fatalf("arena record not removed: %v", err)
	}
	events := log.snapshot()
	if len(events) != 2 || events[1] != "stop:a1" {
		t.Fatalf("unexpected component events %v", events)
	}
}

func TestSessionsSeeArenaWithStorageDisabled(t *testing.T) {
	hub := bus.NewHub()
	log := &componentLog{}
	game := startNode(t, hub, store.DisabledStore{}, Options{Name: "game-1", Builder: scoreboardBuilder(log)})
	ctx := context.Background()

	if _, err := game.Registry.Register(ctx, arena.Arena{ID: "a1", GameType: arena.HideAndSeek, MinPlayers: 2, MaxPlayers: 10}, nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := game.Registry.Activate(ctx, "a1", "r1"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if events := log.snapshot(); len(events) != 1 || events[0] != "start:a1:r1" {
		t.Fatalf("unexpected component events %v", events)
	}
}

func TestActivateOverBoundRoomReplacesSession(t *testing.T) {
	hub := bus.NewHub()
	log := &componentLog{}
	game := startNode(t, hub, store.NewMemory(), Options{Name: "game-1", Builder: scoreboardBuilder(log)})
	ctx := context.Background()

	if _, err := game.Registry.Register(ctx, arena.Arena{ID: "a1", GameType: arena.Spleef, MinPlayers: 1, MaxPlayers: 4}, nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := game.Registry.Activate(ctx, "a1", "r1"); err != nil {
		t.Fatalf("activate r1: %v", err)
	}
	if err := game.Registry.Activate(ctx, "a1", "r2"); err != nil {
		t.Fatalf("activate r2: %v", err)
	}
	want := []string{"start:a1:r1", "stop:a1", "start:a1:r2"}
	events := log.snapshot()
	if len(events) != len(want) {
		t.Fatalf("expected component events %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("expected component events %v, got %v", want, events)
		}
	}
	if _, ok := game.Sessions.Get("a1"); !ok {
		t.Fatal("no session for the new room")
	}
	if game.Sessions.Len() != 1 {
		t.Fatalf("expected one session, got %d", game.Sessions.Len())
	}
}

func TestAccountsAreSharedAcrossNodes(t *testing.T) {
	hub := bus.NewHub()
	records := store.NewMemory()
	lobby := startNode(t, hub, records, Options{Name: "lobby"})
	game := startNode(t, hub, records, Options{Name: "game-1"})
	ctx := context.Background()

	if _, err := lobby.Accounts.Ensure(ctx, "p1", "Steve"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := game.Accounts.AddPaws(ctx, "p1", 15); err != nil {
		t.Fatalf("add paws: %v", err)
	}
	u, err := lobby.Accounts.Get(ctx, "p1")
	if err != nil || u.Paws != 15 {
		t.Fatalf("lobby sees %+v %v", u, err)
	}
}
