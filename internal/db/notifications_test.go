package db

import (
	"testing"

	"github.com/hpungsan/nudge/internal/conversation"
)

func TestLogNotification_And_WasNotified(t *testing.T) {
	db := testDB(t)

	if _, err := UpsertConversation(db, testObservation("thread-1")); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	sent, err := WasNotified(db, "thread-1", conversation.TierImmediate)
	if err != nil {
		t.Fatalf("WasNotified() error = %v", err)
	}
	if sent {
		t.Error("WasNotified = true before any send")
	}

	if err := LogNotification(db, "thread-1", conversation.TierImmediate); err != nil {
		t.Fatalf("LogNotification() error = %v", err)
	}

	sent, err = WasNotified(db, "thread-1", conversation.TierImmediate)
	if err != nil {
		t.Fatalf("WasNotified() error = %v", err)
	}
	if !sent {
		t.Error("WasNotified = false after send")
	}

	// Different tier for the same conversation is independent
	sent, err = WasNotified(db, "thread-1", conversation.TierDaily)
	if err != nil {
		t.Fatalf("WasNotified() error = %v", err)
	}
	if sent {
		t.Error("WasNotified(daily) = true, want false")
	}

	// Different conversation is independent
	sent, err = WasNotified(db, "thread-2", conversation.TierImmediate)
	if err != nil {
		t.Fatalf("WasNotified() error = %v", err)
	}
	if sent {
		t.Error("WasNotified(thread-2) = true, want false")
	}
}

func TestNotificationHistory(t *testing.T) {
	db := testDB(t)

	tiers := []conversation.Tier{
		conversation.TierImmediate,
		conversation.TierFourHour,
		conversation.TierDaily,
	}
	for _, tier := range tiers {
		if err := LogNotification(db, "thread-1", tier); err != nil {
			t.Fatalf("LogNotification(%s): %v", tier, err)
		}
	}
	if err := LogNotification(db, "other", conversation.TierImmediate); err != nil {
		t.Fatalf("LogNotification(other): %v", err)
	}

	entries, err := NotificationHistory(db, "thread-1")
	if err != nil {
		t.Fatalf("NotificationHistory() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	for i, tier := range tiers {
		if entries[i].Tier != tier {
			t.Errorf("entries[%d].Tier = %q, want %q", i, entries[i].Tier, tier)
		}
		if entries[i].SentAt == 0 {
			t.Errorf("entries[%d].SentAt = 0", i)
		}
	}
}
