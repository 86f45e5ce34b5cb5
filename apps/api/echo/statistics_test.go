package echoapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/statistics"
)

// statsDay is a Wednesday.
var statsDay = time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)

// setupStatistics logs four sessions over a week, as Jane:
//
//	Fri 03-01 10:00  30m  Reading
//	Mon 03-04 10:00  90m  Coding
//	Tue 03-05 09:00  30m  Coding
//	Wed 03-06 08:00  60m  Reading #Fiction
func setupStatistics(t *testing.T) (*testEnv, string) {
	env := setup(t)
	token := env.getToken(env.createUser("Jane Doe", "jane"))
	otherToken := env.getToken(env.createUser("John Poe", "john"))
	freezeTime(t, statsDay)

	reading := env.createCategory(token, "Reading")
	coding := env.createCategory(token, "Coding")
	fiction := env.createTag(token, "Fiction")
	env.createTag(token, "Unused")

	env.createFixed(token, reading.ID, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), 30*time.Minute)
	env.createFixed(token, coding.ID, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC), 90*time.Minute)
	env.createFixed(token, coding.ID, time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC), 30*time.Minute)
	env.createFixed(token, reading.ID, time.Date(2024, 3, 6, 8, 0, 0, 0, time.UTC), time.Hour, fiction.ID)

	// someone else's time never counts
	env.createFixed(otherToken, env.createCategory(otherToken, "Cooking").ID, time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC), time.Hour)

	return env, token
}

func labelMinutes(stats []statistics.LabelStat) map[string]float64 {
	res := make(map[string]float64, len(stats))
	for _, st := range stats {
		res[st.Name] = st.Minutes
	}
	return res
}

func TestStatisticsAPI_dashboard(t *testing.T) {
	env, token := setupStatistics(t)

	env.runTests([]httpTest{
		{
			name:     "dashboard",
			path:     "/statistics/dashboard",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, statistics.Dashboard{
				SessionCount:    4,
				TotalMinutes:    210,
				Streak:          3,
				MinutesToday:    60,
				MinutesThisWeek: 180,
			}),
		},
		{
			name:     "streak",
			path:     "/statistics/streak",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, statistics.Streak{Current: 3, Longest: 3}),
		},
		{
			name:     "unauthenticated",
			path:     "/statistics/dashboard",
			wantCode: http.StatusUnauthorized,
		},
	})

	// a new user has nothing yet
	newbie := env.getToken(env.createUser("New Bie", "newbie"))
	var dash statistics.Dashboard
	env.doJSON(http.MethodGet, "/statistics/dashboard", newbie, nil, http.StatusOK, &dash)
	assert.Equal(t, statistics.Dashboard{}, dash)
}

func TestStatisticsAPI_scheduledSession(t *testing.T) {
	env, token := setupStatistics(t)
	// tomorrow 10:00, still this week
	planning := env.createCategory(token, "Planning")
	env.createFixed(token, planning.ID, statsDay.Add(22*time.Hour), time.Hour)

	env.runTests([]httpTest{
		{
			name:     "dashboard",
			path:     "/statistics/dashboard",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, statistics.Dashboard{
				SessionCount:    5,
				TotalMinutes:    270,
				Streak:          3,
				MinutesToday:    60,
				MinutesThisWeek: 180,
			}),
		},
		{
			name:     "streak",
			path:     "/statistics/streak",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, statistics.Streak{Current: 3, Longest: 3}),
		},
	})
}

func TestStatisticsAPI_streakBroken(t *testing.T) {
	env, token := setupStatistics(t)

	// two days without sessions end the current streak
	freezeTime(t, statsDay.AddDate(0, 0, 2))
	var streak statistics.Streak
	env.doJSON(http.MethodGet, "/statistics/streak", token, nil, http.StatusOK, &streak)
	assert.Equal(t, statistics.Streak{Current: 0, Longest: 3}, streak)
}

func TestStatisticsAPI_labels(t *testing.T) {
	env, token := setupStatistics(t)

	var stats []statistics.LabelStat
	env.doJSON(http.MethodGet, "/statistics/categories", token, nil, http.StatusOK, &stats)
	require.Len(t, stats, 2)
	assert.Equal(t, "Coding", stats[0].Name)
	assert.Equal(t, 2, stats[0].SessionCount)
	assert.Equal(t, map[string]float64{"Coding": 120, "Reading": 90}, labelMinutes(stats))

	env.doJSON(http.MethodGet, "/statistics/categories?from=2024-03-05T00:00:00Z", token, nil, http.StatusOK, &stats)
	assert.Equal(t, map[string]float64{"Reading": 60, "Coding": 30}, labelMinutes(stats))
	assert.Equal(t, "Reading", stats[0].Name)

	env.doJSON(http.MethodGet, "/statistics/categories?to=2024-03-02T00:00:00Z", token, nil, http.StatusOK, &stats)
	assert.Equal(t, map[string]float64{"Reading": 30}, labelMinutes(stats))

	env.doJSON(http.MethodGet, "/statistics/tags", token, nil, http.StatusOK, &stats)
	require.Len(t, stats, 1)
	assert.Equal(t, "Fiction", stats[0].Name)
	assert.Equal(t, 60.0, stats[0].Minutes)
	assert.Equal(t, 1, stats[0].SessionCount)

	env.runTests([]httpTest{
		{
			name:     "inverted window",
			path:     "/statistics/categories?from=2024-03-05T00:00:00Z&to=2024-03-01T00:00:00Z",
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"to": "to must be after from"}`),
		},
		{
			name:     "malformed bound",
			path:     "/statistics/tags?from=yesterday",
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"from": "must be an RFC3339 timestamp"}`),
		},
	})
}

func TestStatisticsAPI_daily(t *testing.T) {
	env, token := setupStatistics(t)

	var days []statistics.DailyStat
	env.doJSON(http.MethodGet, "/statistics/daily?from=2024-03-01T00:00:00Z&to=2024-03-07T00:00:00Z", token, nil, http.StatusOK, &days)
	assert.Equal(t, []statistics.DailyStat{
		{Date: "2024-03-01", Minutes: 30, SessionCount: 1},
		{Date: "2024-03-02"},
		{Date: "2024-03-03"},
		{Date: "2024-03-04", Minutes: 90, SessionCount: 1},
		{Date: "2024-03-05", Minutes: 30, SessionCount: 1},
		{Date: "2024-03-06", Minutes: 60, SessionCount: 1},
	}, days)

	// defaults to the last 30 days, today included
	env.doJSON(http.MethodGet, "/statistics/daily", token, nil, http.StatusOK, &days)
	require.Len(t, days, 30)
	assert.Equal(t, "2024-02-06", days[0].Date)
	assert.Equal(t, "2024-03-06", days[29].Date)
	assert.Equal(t, 60.0, days[29].Minutes)

	env.runTests([]httpTest{
		{
			name:     "window too wide",
			path:     "/statistics/daily?from=2023-01-01T00:00:00Z&to=2024-03-01T00:00:00Z",
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"from": "the time window cannot exceed 366 days"}`),
		},
	})
}
