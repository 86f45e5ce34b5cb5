package session

import "sort"

// ToNonOverlappingRows groups sessions into rows in which no two sessions overlap.
// Sessions are taken by start time and put in the first row whose last session
// ends before (or when) they start; a new row is opened otherwise.
func ToNonOverlappingRows(sessions []FixedSession) [][]FixedSession {
	sorted := make([]FixedSession, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].StartTime.Equal(sorted[j].StartTime) {
			return sorted[i].EndTime.Before(sorted[j].EndTime)
		}
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	rows := make([][]FixedSession, 0)
	for _, s := range sorted {
		placed := false
		for i, row := range rows {
			if !row[len(row)-1].EndTime.After(s.StartTime) {
				rows[i] = append(row, s)
				placed = true
				break
			}
		}
		if !placed {
			rows = append(rows, []FixedSession{s})
		}
	}
	return rows
}
