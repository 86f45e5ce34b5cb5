package statistics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeStreak(t *testing.T) {
	now := time.Date(2024, time.March, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		dates []time.Time
		want  Streak
	}{
		{name: "no sessions", want: Streak{}},
		{name: "today only", dates: []time.Time{day(2024, 3, 10)}, want: Streak{Current: 1, Longest: 1}},
		{
			name:  "ends yesterday",
			dates: []time.Time{day(2024, 3, 9), day(2024, 3, 8), day(2024, 3, 7)},
			want:  Streak{Current: 3, Longest: 3},
		},
		{
			name:  "broken two days ago",
			dates: []time.Time{day(2024, 3, 8), day(2024, 3, 7)},
			want:  Streak{Current: 0, Longest: 2},
		},
		{
			name: "longest in the past",
			dates: []time.Time{
				day(2024, 3, 10), day(2024, 3, 9),
				day(2024, 3, 1), day(2024, 2, 29), day(2024, 2, 28), day(2024, 2, 27),
			},
			want: Streak{Current: 2, Longest: 4},
		},
		{
			name:  "month boundary",
			dates: []time.Time{day(2024, 3, 10), day(2024, 3, 9), day(2024, 3, 1), day(2024, 2, 29)},
			want:  Streak{Current: 2, Longest: 2},
		},
		{
			name:  "duplicate days are ignored",
			dates: []time.Time{day(2024, 3, 10), day(2024, 3, 10), day(2024, 3, 9)},
			want:  Streak{Current: 2, Longest: 2},
		},
		{
			name:  "future session scheduled",
			dates: []time.Time{day(2024, 3, 11), day(2024, 3, 10), day(2024, 3, 9), day(2024, 3, 8)},
			want:  Streak{Current: 3, Longest: 3},
		},
		{
			name:  "only future sessions",
			dates: []time.Time{day(2024, 3, 12), day(2024, 3, 11)},
			want:  Streak{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeStreak(tt.dates, now))
		})
	}
}

func TestFillDays(t *testing.T) {
	w := Window{From: day(2024, 2, 27), To: day(2024, 3, 2)}
	stats := []DailyStat{
		{Date: "2024-02-28", Minutes: 90, SessionCount: 2},
		{Date: "2024-03-01", Minutes: 30, SessionCount: 1},
	}

	got := FillDays(w, stats)
	assert.Equal(t, []DailyStat{
		{Date: "2024-02-27"},
		{Date: "2024-02-28", Minutes: 90, SessionCount: 2},
		{Date: "2024-02-29"},
		{Date: "2024-03-01", Minutes: 30, SessionCount: 1},
	}, got)
}

func TestWindowValidate(t *testing.T) {
	assert.NoError(t, Window{}.validate())
	assert.NoError(t, Window{From: day(2024, 1, 1)}.validate())
	assert.NoError(t, Window{From: day(2024, 1, 1), To: day(2024, 1, 2)}.validate())
	assert.Error(t, Window{From: day(2024, 1, 2), To: day(2024, 1, 2)}.validate())
	assert.Error(t, Window{From: day(2024, 1, 3), To: day(2024, 1, 2)}.validate())
}
