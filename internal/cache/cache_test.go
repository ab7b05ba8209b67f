package cache

import (
	"testing"
	"time"
)

func TestIncrementCreatesAndCounts(t *testing.T) {
	now := time.Now()
	store := NewWithClock(func() time.Time { return now })

	if got := store.Increment("k", time.Hour); got != 1 {
		t.Errorf("first Increment = %d, want 1", got)
	}
	if got := store.Increment("k", time.Hour); got != 2 {
		t.Errorf("second Increment = %d, want 2", got)
	}
	if got := store.GetCount("k"); got != 2 {
		t.Errorf("GetCount = %d, want 2", got)
	}
}

func TestCounterExpires(t *testing.T) {
	now := time.Now()
	store := NewWithClock(func() time.Time { return now })

	store.Increment("k", time.Hour)
	now = now.Add(time.Hour + time.Second)

	if got := store.GetCount("k"); got != 0 {
		t.Errorf("GetCount after expiry = %d, want 0", got)
	}
	if got := store.Increment("k", time.Hour); got != 1 {
		t.Errorf("Increment after expiry = %d, want 1", got)
	}
}

func TestIncrementRefreshesTTL(t *testing.T) {
	now := time.Now()
	store := NewWithClock(func() time.Time { return now })

	store.Increment("k", time.Hour)
	now = now.Add(30 * time.Minute)
	store.Increment("k", time.Hour)
	now = now.Add(45 * time.Minute)

	// 75 minutes after the first increment, 45 after the refresh.
	if got := store.GetCount("k"); got != 2 {
		t.Errorf("GetCount = %d, want 2", got)
	}
}

func TestFlags(t *testing.T) {
	now := time.Now()
	store := NewWithClock(func() time.Time { return now })

	if store.GetFlag("blocked") {
		t.Error("GetFlag on missing key = true, want false")
	}

	store.SetFlag("blocked", true, time.Hour)
	if !store.GetFlag("blocked") {
		t.Error("GetFlag = false, want true")
	}

	now = now.Add(2 * time.Hour)
	if store.GetFlag("blocked") {
		t.Error("GetFlag after expiry = true, want false")
	}
}

func TestDelete(t *testing.T) {
	store := NewWithClock(time.Now)

	store.Increment("k", time.Hour)
	store.Delete("k")

	if got := store.GetCount("k"); got != 0 {
		t.Errorf("GetCount after Delete = %d, want 0", got)
	}
}
