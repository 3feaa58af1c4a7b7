package history

import (
	"context"
	"testing"
	"time"
)

// TestJanitorPrunes verifies the janitor removes rows past retention.
func TestJanitorPrunes(t *testing.T) {
	db := setupHistoryTestDB(t)
	recorder := NewRecorder(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	insertHistoryRow(t, db, "dev-1", "idle", nil, SourcePush, now.Add(-48*time.Hour))
	insertHistoryRow(t, db, "dev-1", "cooking", nil, SourcePush, now)

	janitor := NewJanitor(recorder, 24*time.Hour, 25*time.Millisecond)
	janitor.Start()
	defer janitor.Stop()

	// The startup prune should clear the stale row almost immediately.
	deadline := time.Now().Add(5 * time.Second)
	for {
		entries, err := recorder.History(ctx, "dev-1", 10)
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(entries) == 1 {
			if !entries[0].CreatedAt.Equal(now) {
				t.Errorf("remaining CreatedAt = %s, want %s", entries[0].CreatedAt, now)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for prune, %d entries remain", len(entries))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// TestJanitorStop verifies stop semantics.
func TestJanitorStop(t *testing.T) {
	db := setupHistoryTestDB(t)
	janitor := NewJanitor(NewRecorder(db), time.Hour, time.Hour)

	// Stop before Start is a no-op.
	janitor.Stop()

	janitor.Start()
	janitor.Stop()

	// Second Stop is idempotent.
	janitor.Stop()

	// Start after Stop is a no-op; Stop must still return promptly.
	janitor.Start()
	janitor.Stop()
}

// TestJanitorDefaults verifies non-positive settings fall back to defaults.
func TestJanitorDefaults(t *testing.T) {
	db := setupHistoryTestDB(t)
	janitor := NewJanitor(NewRecorder(db), 0, -time.Minute)

	if janitor.retention != defaultRetention {
		t.Errorf("retention = %v, want %v", janitor.retention, defaultRetention)
	}
	if janitor.interval != defaultPruneInterval {
		t.Errorf("interval = %v, want %v", janitor.interval, defaultPruneInterval)
	}
}
