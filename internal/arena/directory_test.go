package arena

import (
	"context"
	"errors"
	"testing"

	"gamefleet/internal/store"
)

func seedArenas(t *testing.T, st store.Records, arenas ...Arena) {
	t.Helper()
	for _, a := range arenas {
		if err := st.UpsertArena(context.Background(), a.record()); err != nil {
			t.Fatalf("seed %s: %v", a.ID, err)
		}
	}
}

func TestActivationFlagsAreComplementary(t *testing.T) {
	for _, a := range []Arena{{ID: "a1"}, {ID: "a2", RoomID: "r1"}} {
		if a.IsActivated() == a.IsDeactivated() {
			t.Fatalf("activated and deactivated agree for %+v", a)
		}
	}
}

func TestAvailableExcludesActivated(t *testing.T) {
	st := store.NewMemory()
	seedArenas(t, st,
		Arena{ID: "a1", ServerName: "s1", GameType: Spleef, MinPlayers: 2, MaxPlayers: 4},
		Arena{ID: "a2", ServerName: "s1", GameType: Spleef, MinPlayers: 2, MaxPlayers: 4, RoomID: "r1"},
		Arena{ID: "a3", ServerName: "s2", GameType: TNTRun, MinPlayers: 2, MaxPlayers: 4},
	)
	dir := NewDirectory(st)
	ctx := context.Background()

	all, err := dir.Arenas(ctx, Spleef)
	if err != nil {
		t.Fatalf("arenas: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 spleef arenas, got %d", len(all))
	}
	avail, err := dir.Available(ctx, Spleef)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(avail) != 1 || avail[0].ID != "a1" {
		t.Fatalf("unexpected available arenas: %+v", avail)
	}
	for _, a := range avail {
		if a.IsActivated() {
			t.Fatalf("available list contains activated arena %s", a.ID)
		}
	}
}

func TestFirstAvailableMatchesBoundsInDirectoryOrder(t *testing.T) {
	st := store.NewMemory()
	seedArenas(t, st,
		Arena{ID: "a1", GameType: BedWars, MinPlayers: 4, MaxPlayers: 8},
		Arena{ID: "a2", GameType: BedWars, MinPlayers: 1, MaxPlayers: 4},
		Arena{ID: "a3", GameType: BedWars, MinPlayers: 2, MaxPlayers: 4},
	)
	dir := NewDirectory(st)

	got, ok, err := dir.FirstAvailable(context.Background(), BedWars, 3)
	if err != nil || !ok {
		t.Fatalf("first available: ok=%v err=%v", ok, err)
	}
	if got.ID != "a2" {
		t.Fatalf("expected a2, got %s", got.ID)
	}
	if _, ok, _ := dir.FirstAvailable(context.Background(), BedWars, 9); ok {
		t.Fatal("no arena holds 9 players")
	}
}

func TestAvailabilityBuckets(t *testing.T) {
	st := store.NewMemory()
	seedArenas(t, st,
		Arena{ID: "a1", GameType: TNTRun, MinPlayers: 2, MaxPlayers: 4, RoomID: "r1"},
		Arena{ID: "a2", GameType: TNTRun, MinPlayers: 2, MaxPlayers: 4},
		Arena{ID: "a3", GameType: TNTRun, MinPlayers: 4, MaxPlayers: 16},
	)
	buckets, err := NewDirectory(st).Availability(context.Background(), TNTRun)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %+v", buckets)
	}
	if b := buckets[0]; b.Range != "2-4" || b.Activated != 1 || b.Total != 2 || b.Available() != 1 {
		t.Fatalf("unexpected first bucket %+v", b)
	}
	if b := buckets[1]; b.Range != "4-16" || b.Activated != 0 || b.Total != 1 {
		t.Fatalf("unexpected second bucket %+v", b)
	}
}

func TestDirectoryNotFound(t *testing.T) {
	dir := NewDirectory(store.NewMemory())
	if _, err := dir.Get(context.Background(), "missing"); !errors.Is(err, ErrArenaNotFound) {
		t.Fatalf("expected ErrArenaNotFound, got %v", err)
	}
	if _, err := dir.ArenaForRoom(context.Background(), ""); !errors.Is(err, ErrArenaNotFound) {
		t.Fatalf("expected ErrArenaNotFound, got %v", err)
	}
}

func TestDisabledDirectoryIsEmpty(t *testing.T) {
	dir := NewDirectory(store.DisabledStore{})
	avail, err := dir.Available(context.Background(), Spleef)
	if err != nil || len(avail) != 0 {
		t.Fatalf("expected empty result, got %v %v", avail, err)
	}
	buckets, err := dir.Availability(context.Background(), Spleef)
	if err != nil || len(buckets) != 0 {
		t.Fatalf("expected no buckets, got %v %v", buckets, err)
	}
}

func TestParseGameType(t *testing.T) {
	g, err := ParseGameType(" tnt_run ")
	if err != nil || g != TNTRun {
		t.Fatalf("parse: %v %v", g, err)
	}
	if g.Title() != "Tnt Run" || g.DisplayItem() != "TNT" {
		t.Fatalf("unexpected metadata %q %q", g.Title(), g.DisplayItem())
	}
	if _, err := ParseGameType("chess"); !errors.Is(err, ErrUnknownGameType) {
		t.Fatalf("expected ErrUnknownGameType, got %v", err)
	}
}
