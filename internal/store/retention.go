package store

import (
	"sort"
	"time"
)

// SelectForDeletion picks runs to delete under a retention policy: runs
// older than olderThan (0 = no age limit) and all but the newest keepLast
// runs (0 = keep all). Each run appears at most once.
func SelectForDeletion(infos []RunInfo, keepLast int, olderThan time.Duration, now time.Time) []RunInfo {
	var toDelete []RunInfo
	seen := make(map[string]bool)

	if olderThan > 0 {
		cutoff := now.Add(-olderThan)
		for _, info := range infos {
			if info.Timestamp.Before(cutoff) {
				toDelete = append(toDelete, info)
				seen[info.RunID] = true
			}
		}
	}

	if keepLast > 0 && len(infos) > keepLast {
		sorted := make([]RunInfo, len(infos))
		copy(sorted, infos)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		})

		for _, info := range sorted[:len(sorted)-keepLast] {
			if !seen[info.RunID] {
				toDelete = append(toDelete, info)
				seen[info.RunID] = true
			}
		}
	}

	return toDelete
}
