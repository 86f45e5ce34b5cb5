package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToNonOverlappingRows(t *testing.T) {
	base := time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)
	sess := func(id string, startH, endH float64) FixedSession {
		return FixedSession{
			ID:        id,
			StartTime: base.Add(time.Duration(startH * float64(time.Hour))),
			EndTime:   base.Add(time.Duration(endH * float64(time.Hour))),
		}
	}
	ids := func(rows [][]FixedSession) [][]string {
		res := make([][]string, 0, len(rows))
		for _, row := range rows {
			r := make([]string, 0, len(row))
			for _, s := range row {
				r = append(r, s.ID)
			}
			res = append(res, r)
		}
		return res
	}

	tests := []struct {
		name     string
		sessions []FixedSession
		want     [][]string
	}{
		{name: "empty", want: [][]string{}},
		{name: "single", sessions: []FixedSession{sess("a", 0, 1)}, want: [][]string{{"a"}}},
		{
			name:     "sequential stay on one row",
			sessions: []FixedSession{sess("b", 1, 2), sess("a", 0, 1), sess("c", 3, 4)},
			want:     [][]string{{"a", "b", "c"}},
		},
		{
			name:     "overlap opens a new row",
			sessions: []FixedSession{sess("a", 0, 2), sess("b", 1, 3), sess("c", 2, 4)},
			want:     [][]string{{"a", "c"}, {"b"}},
		},
		{
			name:     "first fitting row wins",
			sessions: []FixedSession{sess("a", 0, 5), sess("b", 0.5, 1), sess("c", 0.75, 2), sess("d", 1.5, 3)},
			want:     [][]string{{"a"}, {"b", "d"}, {"c"}},
		},
		{
			name:     "same start sorted by end",
			sessions: []FixedSession{sess("long", 0, 3), sess("short", 0, 1), sess("next", 1, 2)},
			want:     [][]string{{"short", "next"}, {"long"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(ToNonOverlappingRows(tt.sessions)))
		})
	}
}

func TestQueryFilterClean(t *testing.T) {
	qf := QueryFilter{TagMode: "lol", Limit: -1, Offset: -5}
	qf.Clean()
	assert.Equal(t, TagModeSome, qf.TagMode)
	assert.Equal(t, 0, qf.Limit)
	assert.Equal(t, 0, qf.Offset)
	assert.Len(t, qf.Ordering, 1)
	assert.Equal(t, "start_time", qf.Ordering[0].Field)
	assert.False(t, qf.Ordering[0].Ascending)
}
