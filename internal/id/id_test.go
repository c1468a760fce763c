package id

import (
	"strings"
	"testing"
	"time"
)

func TestNewIsMonotonic(t *testing.T) {
	prev := New()
	for i := 0; i < 1000; i++ {
		next := New()
		if next <= prev {
			t.Fatalf("id %q not greater than %q", next, prev)
		}
		prev = next
	}
}

func TestNewPrefixedAndTime(t *testing.T) {
	before := time.Now().Add(-time.Second)
	v := NewPrefixed("req")
	if !strings.HasPrefix(v, "req_") {
		t.Fatalf("id %q missing prefix", v)
	}
	ts, ok := Time(v)
	if !ok {
		t.Fatalf("Time(%q) failed", v)
	}
	if ts.Before(before) || ts.After(time.Now().Add(time.Second)) {
		t.Fatalf("unexpected id time %v", ts)
	}
	if _, ok := Time("not-an-id"); ok {
		t.Fatal("Time should reject malformed ids")
	}
}
