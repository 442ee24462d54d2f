package cache

import (
	"testing"
	"time"
)

func TestGetMissesWhenEmpty(t *testing.T) {
	c := New()
	if _, ok := c.Get("nope"); ok {
		t.Fatal("expected miss on empty cache")
	}
}

func TestSetAndGetReturnsSameBytes(t *testing.T) {
	c := New()
	payload := []byte(`{"success":true}`)
	c.Set("k", payload, time.Minute)

	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit")
	}
	if string(got) != string(payload) {
		t.Fatalf("payload changed: got %q", got)
	}
}

func TestLazyExpiry(t *testing.T) {
	now := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	c := NewWithClock(clock)

	c.Set("k", []byte("v"), time.Minute)

	now = now.Add(59 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired early")
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after ttl")
	}
	// stale entry is removed by the access that observed it
	if c.Len() != 0 {
		t.Fatalf("stale entry not removed, len=%d", c.Len())
	}
}

func TestSetOverwrites(t *testing.T) {
	c := New()
	c.Set("k", []byte("old"), time.Minute)
	c.Set("k", []byte("new"), time.Minute)

	got, ok := c.Get("k")
	if !ok || string(got) != "new" {
		t.Fatalf("expected new, got %q (hit=%v)", got, ok)
	}
}
