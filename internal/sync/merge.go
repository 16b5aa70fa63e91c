package sync

import "sort"

// The two merge rules are deliberately distinct per policy: rating-based
// sync keeps the latest occurrence of a key, membership-based sync keeps
// the earliest. Unifying them would change observable playlist contents.

// mergeEarliestAdded folds collected items into one entry per key, crediting
// the replica that added the item first. A timestamped occurrence always
// displaces an untimestamped one; among timestamped occurrences the earliest
// wins.
func mergeEarliestAdded(collected []collectedItem) []collectedItem {
	index := make(map[string]int, len(collected))
	merged := make([]collectedItem, 0, len(collected))

	for _, c := range collected {
		pos, seen := index[c.item.Key]
		if !seen {
			index[c.item.Key] = len(merged)
			merged = append(merged, c)
			continue
		}

		current := merged[pos]
		if c.at != nil && (current.at == nil || c.at.Before(*current.at)) {
			merged[pos] = c
		}
	}

	sortMerged(merged)
	return merged
}

// mergeLatestRated sorts collected items by timestamp descending, keeps the
// first occurrence of each key, and truncates to max entries. The latest
// rating instance of a track therefore decides its attribution and position.
func mergeLatestRated(collected []collectedItem, max int) []collectedItem {
	sorted := make([]collectedItem, len(collected))
	copy(sorted, collected)
	sortMerged(sorted)

	seen := make(map[string]struct{}, len(sorted))
	merged := make([]collectedItem, 0, len(sorted))
	for _, c := range sorted {
		if _, dup := seen[c.item.Key]; dup {
			continue
		}
		seen[c.item.Key] = struct{}{}
		merged = append(merged, c)
	}

	if max > 0 && len(merged) > max {
		merged = merged[:max]
	}

	return merged
}

// sortMerged orders items newest first. Untimestamped items sort last, and
// ties break on the canonical key so output order is deterministic.
func sortMerged(items []collectedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].at, items[j].at
		switch {
		case a == nil && b == nil:
			return items[i].item.Key < items[j].item.Key
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return items[i].item.Key < items[j].item.Key
		default:
			return a.After(*b)
		}
	})
}
