package digest

// dedupKey returns the grouping key for an item: entityId when present,
// else sourceUrl, else empty (the item is its own singleton group).
func dedupKey(it *Item) string {
	if it.EntityID != "" {
		return "entity:" + it.EntityID
	}
	if it.SourceURL != "" {
		return "url:" + it.SourceURL
	}
	return ""
}

// Deduplicate merges items that describe the same real-world event,
// keeping the highest-priority view of each. Within a group the survivor
// is the item with the highest priority; ties prefer the most recently
// observed item; remaining ties keep the first occurrence (deterministic,
// independent of map iteration order). Output preserves the relative
// order of groups as first encountered in the input.
//
// Specific, higher-confidence observations (a VIP-flagged unreplied email)
// suppress generic observations (a plain unreplied-email note) of the same
// underlying event rather than showing both.
func Deduplicate(items []*Item) []*Item {
	if len(items) <= 1 {
		return items
	}

	type slot struct {
		index int // position in the output (first-encounter order)
		item  *Item
	}

	result := make([]*Item, 0, len(items))
	groups := make(map[string]*slot)

	for _, it := range items {
		key := dedupKey(it)
		if key == "" {
			// No identity to merge on: never merged
			result = append(result, it)
			continue
		}

		existing, ok := groups[key]
		if !ok {
			result = append(result, it)
			groups[key] = &slot{index: len(result) - 1, item: it}
			continue
		}

		if beats(it, existing.item) {
			existing.item = it
			result[existing.index] = it
		}
	}

	return result
}

// beats reports whether challenger should replace incumbent as the
// surviving view of a dedup group.
func beats(challenger, incumbent *Item) bool {
	if challenger.Priority.rank() != incumbent.Priority.rank() {
		return challenger.Priority.rank() > incumbent.Priority.rank()
	}
	// Same priority: most recent observation wins; equal timestamps keep
	// the incumbent (first occurrence wins).
	return challenger.ObservedAt > incumbent.ObservedAt
}
