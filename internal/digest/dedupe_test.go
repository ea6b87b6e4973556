package digest

import (
	"fmt"
	"testing"
)

// mkItem builds an item directly, bypassing New, so tests control every field.
func mkItem(id, entityID, sourceURL string, priority Priority, observedAt int64) *Item {
	return &Item{
		ID: id,
		Fields: Fields{
			Collector:   "test",
			Observation: "obs " + id,
			Reason:      "r",
			Authority:   "a",
			Consequence: "c",
			SourceType:  "email",
			Category:    "response-needed",
			Priority:    priority,
			EntityID:    entityID,
			SourceURL:   sourceURL,
			ObservedAt:  observedAt,
		},
	}
}

func TestDeduplicate_HighestPriorityWins(t *testing.T) {
	items := []*Item{
		mkItem("a", "thread-1", "", PriorityNormal, 100),
		mkItem("b", "thread-1", "", PriorityHigh, 90),
		mkItem("c", "thread-1", "", PriorityNormal, 110),
	}

	out := Deduplicate(items)
	if len(out) != 1 {
		t.Fatalf("len = %d, want 1", len(out))
	}
	if out[0].ID != "b" {
		t.Errorf("survivor = %s, want b (high priority)", out[0].ID)
	}
	if out[0].Priority != PriorityHigh {
		t.Errorf("survivor priority = %q, want high", out[0].Priority)
	}
}

func TestDeduplicate_TieBrokenByObservedAt(t *testing.T) {
	items := []*Item{
		mkItem("older", "thread-1", "", PriorityNormal, 100),
		mkItem("newer", "thread-1", "", PriorityNormal, 200),
	}

	out := Deduplicate(items)
	if len(out) != 1 || out[0].ID != "newer" {
		t.Errorf("survivor = %s, want newer", out[0].ID)
	}
}

func TestDeduplicate_FullTie_FirstOccurrenceWins(t *testing.T) {
	items := []*Item{
		mkItem("first", "thread-1", "", PriorityNormal, 100),
		mkItem("second", "thread-1", "", PriorityNormal, 100),
	}

	out := Deduplicate(items)
	if len(out) != 1 || out[0].ID != "first" {
		t.Errorf("survivor = %s, want first (stable tie-break)", out[0].ID)
	}
}

func TestDeduplicate_DistinctEntitiesNeverMerged(t *testing.T) {
	var items []*Item
	for i := 0; i < 5; i++ {
		items = append(items, mkItem(fmt.Sprintf("i%d", i), fmt.Sprintf("e%d", i), "", PriorityNormal, 100))
	}

	out := Deduplicate(items)
	if len(out) != 5 {
		t.Errorf("len = %d, want 5 (no merging across entities)", len(out))
	}
}

func TestDeduplicate_SourceURLFallback(t *testing.T) {
	items := []*Item{
		mkItem("a", "", "https://x/1", PriorityLow, 100),
		mkItem("b", "", "https://x/1", PriorityHigh, 100),
		mkItem("c", "", "https://x/2", PriorityLow, 100),
	}

	out := Deduplicate(items)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].ID != "b" || out[1].ID != "c" {
		t.Errorf("survivors = [%s %s], want [b c]", out[0].ID, out[1].ID)
	}
}

func TestDeduplicate_NoKey_Singleton(t *testing.T) {
	// Items with neither entityId nor sourceUrl are never merged,
	// even when otherwise identical.
	items := []*Item{
		mkItem("a", "", "", PriorityNormal, 100),
		mkItem("b", "", "", PriorityNormal, 100),
	}

	out := Deduplicate(items)
	if len(out) != 2 {
		t.Errorf("len = %d, want 2 (keyless items stay singletons)", len(out))
	}
}

func TestDeduplicate_PreservesGroupOrder(t *testing.T) {
	items := []*Item{
		mkItem("g1-a", "e1", "", PriorityLow, 100),
		mkItem("g2-a", "e2", "", PriorityNormal, 100),
		mkItem("g1-b", "e1", "", PriorityHigh, 100), // upgrades group 1 in place
		mkItem("g3-a", "e3", "", PriorityLow, 100),
	}

	out := Deduplicate(items)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	want := []string{"g1-b", "g2-a", "g3-a"}
	for i, w := range want {
		if out[i].ID != w {
			t.Errorf("out[%d] = %s, want %s", i, out[i].ID, w)
		}
	}
}

func TestDeduplicate_EntityAndURLNamespacesDisjoint(t *testing.T) {
	// An entityId that happens to equal another item's sourceUrl must not
	// collide.
	items := []*Item{
		mkItem("a", "https://x/1", "", PriorityNormal, 100),
		mkItem("b", "", "https://x/1", PriorityNormal, 100),
	}

	out := Deduplicate(items)
	if len(out) != 2 {
		t.Errorf("len = %d, want 2 (distinct key namespaces)", len(out))
	}
}

func TestDeduplicate_EmptyAndSingle(t *testing.T) {
	if out := Deduplicate(nil); len(out) != 0 {
		t.Errorf("Deduplicate(nil) len = %d, want 0", len(out))
	}

	one := []*Item{mkItem("a", "e1", "", PriorityLow, 1)}
	out := Deduplicate(one)
	if len(out) != 1 || out[0].ID != "a" {
		t.Errorf("single item should pass through unchanged")
	}
}
