package dispatch

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestResultSetFinishesAtExpectedCount(t *testing.T) {
	rs := NewResultSet(2, time.Minute)
	rs.Add(Reply{Responder: "s1"})
	if rs.Finished() {
		t.Fatal("finished after one of two replies")
	}
	rs.Add(Reply{Responder: "s2"})
	select {
	case <-rs.Done():
	default:
		t.Fatal("expected finish after two replies")
	}
	if rs.Add(Reply{Responder: "s3"}) {
		t.Fatal("finished set accepted a reply")
	}
	if got := len(rs.Replies()); got != 2 {
		t.Fatalf("expected 2 replies, got %d", got)
	}
}

func TestResultSetCompleteStopsCollection(t *testing.T) {
	rs := NewResultSet(Unbounded, time.Minute)
	rs.Add(Reply{Responder: "s1", Settable: true, Value: json.RawMessage(`true`)})
	rs.Complete()
	rs.Complete()
	if rs.Add(Reply{Responder: "s2"}) {
		t.Fatal("completed set accepted a reply")
	}
	if rs.TimedOut() {
		t.Fatal("explicit completion reported as timeout")
	}
	if !rs.ContainsSettable(true) || rs.ContainsSettable(false) {
		t.Fatalf("unexpected settable match on %+v", rs.Replies())
	}
}

func TestResultSetDeadlineReturnsCollected(t *testing.T) {
	rs := NewResultSet(Unbounded, 30*time.Millisecond)
	rs.Add(Reply{Responder: "s1"})
	start := time.Now()
	replies := rs.Wait(context.Background())
	if time.Since(start) > time.Second {
		t.Fatal("wait overran the deadline")
	}
	if len(replies) != 1 || !rs.TimedOut() {
		t.Fatalf("expected 1 reply after timeout, got %d timedOut=%v", len(replies), rs.TimedOut())
	}
	if rs.ContainsCompleted() {
		t.Fatal("no reply was completed")
	}
}

func TestResultSetWaitHonoursContext(t *testing.T) {
	rs := NewResultSet(Unbounded, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	rs.Wait(ctx)
	if rs.Finished() {
		t.Fatal("caller cancellation must not finish the set")
	}
}

func TestFirstSettableDecodes(t *testing.T) {
	rs := NewResultSet(Unbounded, time.Minute)
	rs.Add(Reply{Responder: "s1", Completed: true})
	rs.Add(Reply{Responder: "s2", Settable: true, Value: json.RawMessage(`["p1","p2"]`)})
	var got []string
	if !rs.FirstSettable(&got) || len(got) != 2 || got[0] != "p1" {
		t.Fatalf("unexpected first settable: %v", got)
	}
}
