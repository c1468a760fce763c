package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"gamefleet/internal/arena"
)

type journal struct {
	mu    sync.Mutex
	lines []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	j.lines = append(j.lines, s)
	j.mu.Unlock()
}

func (j *journal) String() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return strings.Join(j.lines, ",")
}

func recorded(j *journal, kind Kind, startErr error) *Func {
	return &Func{
		K: kind,
		OnStart: func(context.Context) error {
			j.add("start:" + string(kind))
			return startErr
		},
		OnStop: func(context.Context) error {
			j.add("stop:" + string(kind))
			return nil
		},
	}
}

type scoreboard struct {
	Func
	points int
}

func TestComponentLookup(t *testing.T) {
	s := New("a1", nil)
	ctx := context.Background()
	board := &scoreboard{Func: Func{K: "scoreboard"}, points: 7}
	if err := s.Register(ctx, board); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.Register(ctx, &Func{K: "timer"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := ComponentAs[*scoreboard](s, "scoreboard")
	if err != nil || got.points != 7 {
		t.Fatalf("typed lookup: %+v %v", got, err)
	}
	if _, err := ComponentAs[*scoreboard](s, "timer"); !errors.Is(err, ErrComponentType) {
		t.Fatalf("expected ErrComponentType, got %v", err)
	}
	if _, err := s.Component("missing"); !errors.Is(err, ErrComponentNotFound) {
		t.Fatalf("expected ErrComponentNotFound, got %v", err)
	}
	if err := s.Unregister(ctx, "timer"); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if err := s.Unregister(ctx, "timer"); !errors.Is(err, ErrComponentNotFound) {
		t.Fatalf("expected ErrComponentNotFound, got %v", err)
	}
	if kinds := s.Kinds(); len(kinds) != 1 || kinds[0] != "scoreboard" {
		t.Fatalf("unexpected kinds %v", kinds)
	}
}

func TestStartStopInRegistrationOrder(t *testing.T) {
	j := &journal{}
	s := New("a1", nil)
	ctx := context.Background()
	for _, k := range []Kind{"world", "timer", "scoreboard"} {
		if err := s.Register(ctx, recorded(j, k, nil)); err != nil {
			t.Fatalf("register %s: %v", k, err)
		}
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	want := "start:world,start:timer,start:scoreboard,stop:world,stop:timer,stop:scoreboard"
	if got := j.String(); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestFailedStartRollsBack(t *testing.T) {
	j := &journal{}
	s := New("a1", nil)
	ctx := context.Background()
	_ = s.Register(ctx, recorded(j, "world", nil))
	_ = s.Register(ctx, recorded(j, "timer", errors.New("no clock")))
	_ = s.Register(ctx, recorded(j, "scoreboard", nil))

	if err := s.Start(ctx); err == nil {
		t.Fatal("expected start error")
	}
	if s.Started() {
		t.Fatal("session should stay stopped")
	}
	if got := j.String(); got != "start:world,start:timer,stop:world" {
		t.Fatalf("unexpected journal %s", got)
	}
}

func TestRegisterOnStartedSessionStartsComponent(t *testing.T) {
	j := &journal{}
	s := New("a1", nil)
	ctx := context.Background()
	_ = s.Register(ctx, recorded(j, "world", nil))
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Register(ctx, recorded(j, "world", nil)); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got := j.String(); got != "start:world,stop:world,start:world" {
		t.Fatalf("unexpected journal %s", got)
	}
	if len(s.Kinds()) != 1 {
		t.Fatalf("replacement duplicated kind: %v", s.Kinds())
	}
}

func TestArenaResolvesThroughLookup(t *testing.T) {
	s := New("a1", func(_ context.Context, id string) (arena.Arena, error) {
		return arena.Arena{ID: id, RoomID: "r1"}, nil
	})
	a, err := s.Arena(context.Background())
	if err != nil || a.ID != "a1" || a.RoomID != "r1" {
		t.Fatalf("unexpected arena %+v %v", a, err)
	}
	if _, err := New("a2", nil).Arena(context.Background()); !errors.Is(err, arena.ErrArenaNotFound) {
		t.Fatalf("expected ErrArenaNotFound, got %v", err)
	}
}
