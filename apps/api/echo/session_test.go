package echoapi

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/session"
)

var sessionBase = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

func sessionIDs(sessions []session.FixedSession) []string {
	ids := make([]string, 0, len(sessions))
	for _, fs := range sessions {
		ids = append(ids, fs.ID)
	}
	return ids
}

func TestSessionAPI_createFixed(t *testing.T) {
	env := setup(t)
	jane := env.createUser("Jane Doe", "jane")
	token := env.getToken(jane)
	johnToken := env.getToken(env.createUser("John Poe", "john"))

	reading := env.createCategory(token, "Reading")
	coding := env.createCategory(token, "Coding")
	fiction := env.createTag(token, "Fiction", reading.ID)
	focus := env.createTag(token, "Focus")
	johnsTag := env.createTag(johnToken, "Mine")

	var fs session.FixedSession
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	env.doJSON(http.MethodPost, "/sessions/fixed", token, session.NewFixedSession{
		CategoryID:  reading.ID,
		TagIDs:      []string{focus.ID, fiction.ID},
		StartTime:   start,
		EndTime:     start.Add(90 * time.Minute),
		Description: "  chapter 3 ",
	}, http.StatusCreated, &fs)
	assert.NotEmpty(t, fs.ID)
	assert.Equal(t, jane.ID, fs.UserID)
	assert.Equal(t, reading.ID, fs.Category.ID)
	assert.Equal(t, "chapter 3", fs.Description)
	assert.Equal(t, 90.0, fs.DurationMinutes)
	assert.Equal(t, time.UTC, fs.StartTime.Location())
	assert.True(t, fs.StartTime.Equal(start))
	require.Len(t, fs.Tags, 2)
	assert.Equal(t, "Fiction", fs.Tags[0].Label)
	assert.Equal(t, "Focus", fs.Tags[1].Label)

	newSession := func(categoryID string, tagIDs ...string) []byte {
		return marchallObj(t, session.NewFixedSession{
			CategoryID: categoryID,
			TagIDs:     tagIDs,
			StartTime:  sessionBase,
			EndTime:    sessionBase.Add(time.Hour),
		})
	}

	env.runTests([]httpTest{
		{
			name:     "missing fields",
			method:   http.MethodPost,
			path:     "/sessions/fixed",
			token:    token,
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{
				"category_id": "this field is required",
				"start_time": "this field is required",
				"end_time": "this field is required"
			}`),
		},
		{
			name:   "end before start",
			method: http.MethodPost,
			path:   "/sessions/fixed",
			token:  token,
			body: marchallObj(t, session.NewFixedSession{
				CategoryID: reading.ID,
				StartTime:  sessionBase,
				EndTime:    sessionBase.Add(-time.Minute),
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown category",
			method:   http.MethodPost,
			path:     "/sessions/fixed",
			token:    token,
			body:     newSession(unknownID),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"category_id": "category not found"}`),
		},
		{
			name:     "tag of another user",
			method:   http.MethodPost,
			path:     "/sessions/fixed",
			token:    token,
			body:     newSession(reading.ID, johnsTag.ID),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"tag_ids": "tag not found"}`),
		},
		{
			name:     "tag not allowed for the category",
			method:   http.MethodPost,
			path:     "/sessions/fixed",
			token:    token,
			body:     newSession(coding.ID, fiction.ID),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"tag_ids": "tag is not allowed for this category: Fiction"}`),
		},
		{
			name:     "unknown task",
			method:   http.MethodPost,
			path:     "/sessions/fixed",
			token:    token,
			body:     []byte(`{"category_id": "` + reading.ID + `", "start_time": "2024-03-04T08:00:00Z", "end_time": "2024-03-04T09:00:00Z", "task_id": "` + unknownID + `"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"task_id": "task not found"}`),
		},
	})
}

func TestSessionAPI_queryFixed(t *testing.T) {
	env := setup(t)
	token := env.getToken(env.createUser("Jane Doe", "jane"))
	johnToken := env.getToken(env.createUser("John Poe", "john"))

	reading := env.createCategory(token, "Reading")
	coding := env.createCategory(token, "Coding")
	fiction := env.createTag(token, "Fiction")
	focus := env.createTag(token, "Focus")

	s1 := env.createFixed(token, reading.ID, sessionBase, time.Hour, fiction.ID)
	s2 := env.createFixed(token, reading.ID, sessionBase.Add(2*time.Hour), time.Hour, fiction.ID, focus.ID)
	s3 := env.createFixed(token, coding.ID, sessionBase.Add(24*time.Hour), 30*time.Minute, focus.ID)
	s4 := env.createFixed(token, coding.ID, sessionBase.Add(48*time.Hour), 30*time.Minute)
	env.createFixed(johnToken, env.createCategory(johnToken, "Reading").ID, sessionBase, time.Hour)

	query := func(params url.Values) []string {
		t.Helper()
		var sessions []session.FixedSession
		env.doJSON(http.MethodGet, "/sessions/fixed?"+params.Encode(), token, nil, http.StatusOK, &sessions)
		return sessionIDs(sessions)
	}

	tests := []struct {
		name   string
		params url.Values
		want   []string
	}{
		{name: "all, newest first", params: url.Values{}, want: []string{s4.ID, s3.ID, s2.ID, s1.ID}},
		{name: "oldest first", params: url.Values{"ordering": {"start_time"}}, want: []string{s1.ID, s2.ID, s3.ID, s4.ID}},
		{name: "by category", params: url.Values{"category_id": {reading.ID}}, want: []string{s2.ID, s1.ID}},
		{name: "any tag", params: url.Values{"tag_id": {fiction.ID, focus.ID}}, want: []string{s3.ID, s2.ID, s1.ID}},
		{
			name:   "every tag",
			params: url.Values{"tag_id": {fiction.ID, focus.ID}, "tag_mode": {session.TagModeAll}},
			want:   []string{s2.ID},
		},
		{
			name: "start window",
			params: url.Values{
				"from_start_time": {sessionBase.Add(time.Hour).Format(time.RFC3339)},
				"to_start_time":   {sessionBase.Add(24 * time.Hour).Format(time.RFC3339)},
			},
			want: []string{s3.ID, s2.ID},
		},
		{name: "to end time", params: url.Values{"to_end_time": {sessionBase.Add(3 * time.Hour).Format(time.RFC3339)}}, want: []string{s2.ID, s1.ID}},
		{name: "paginated", params: url.Values{"limit": {"2"}, "offset": {"1"}}, want: []string{s3.ID, s2.ID}},
		{name: "unknown ordering ignored", params: url.Values{"ordering": {"-password"}}, want: []string{s4.ID, s3.ID, s2.ID, s1.ID}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, query(tt.params))
		})
	}

	env.runTests([]httpTest{
		{
			name:     "bad params",
			path:     "/sessions/fixed?from_start_time=yesterday&limit=ten",
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"from_start_time": "must be an RFC3339 timestamp", "limit": "must be an integer"}`),
		},
	})
}

func TestSessionAPI_fixedDetail(t *testing.T) {
	env := setup(t)
	token := env.getToken(env.createUser("Jane Doe", "jane"))
	johnToken := env.getToken(env.createUser("John Poe", "john"))

	reading := env.createCategory(token, "Reading")
	coding := env.createCategory(token, "Coding")
	fiction := env.createTag(token, "Fiction", reading.ID)
	fs := env.createFixed(token, reading.ID, sessionBase, time.Hour, fiction.ID)
	path := "/sessions/fixed/" + fs.ID

	env.runTests([]httpTest{
		{name: "retrieve", path: path, token: token, wantCode: http.StatusOK, wantData: marchallObj(t, fs)},
		{name: "not owner", path: path, token: johnToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "session not found"})},
		{
			name:     "end before start",
			method:   http.MethodPut,
			path:     path,
			token:    token,
			body:     marchallObj(t, session.UpdateFixedSession{EndTime: timePtr(sessionBase.Add(-time.Hour))}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"end_time": "end_time must be after start_time"}`),
		},
		{
			name:     "category change keeps tags in check",
			method:   http.MethodPut,
			path:     path,
			token:    token,
			body:     marchallObj(t, session.UpdateFixedSession{CategoryID: strPtr(coding.ID)}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"tag_ids": "tag is not allowed for this category: Fiction"}`),
		},
	})

	var updated session.FixedSession
	env.doJSON(http.MethodPut, path, token, session.UpdateFixedSession{
		CategoryID:  strPtr(coding.ID),
		TagIDs:      []string{},
		EndTime:     timePtr(sessionBase.Add(2 * time.Hour)),
		Description: strPtr("refactoring"),
	}, http.StatusOK, &updated)
	assert.Equal(t, coding.ID, updated.Category.ID)
	assert.Empty(t, updated.Tags)
	assert.Equal(t, 120.0, updated.DurationMinutes)
	assert.Equal(t, "refactoring", updated.Description)
	assert.True(t, updated.StartTime.Equal(sessionBase))

	env.doJSON(http.MethodDelete, path, johnToken, nil, http.StatusNotFound, nil)
	env.doJSON(http.MethodDelete, path, token, nil, http.StatusNoContent, nil)
	env.doJSON(http.MethodGet, path, token, nil, http.StatusNotFound, nil)
}

func TestSessionAPI_deleteMultiple(t *testing.T) {
	env := setup(t)
	token := env.getToken(env.createUser("Jane Doe", "jane"))
	johnToken := env.getToken(env.createUser("John Poe", "john"))

	reading := env.createCategory(token, "Reading")
	s1 := env.createFixed(token, reading.ID, sessionBase, time.Hour)
	s2 := env.createFixed(token, reading.ID, sessionBase.Add(time.Hour), time.Hour)
	s3 := env.createFixed(token, reading.ID, sessionBase.Add(2*time.Hour), time.Hour)
	johns := env.createFixed(johnToken, env.createCategory(johnToken, "Reading").ID, sessionBase, time.Hour)

	// sessions of other users are left alone
	env.doJSON(http.MethodDelete, "/sessions/fixed?id="+s1.ID+"&id="+s3.ID+"&id="+johns.ID, token, nil, http.StatusNoContent, nil)

	var sessions []session.FixedSession
	env.doJSON(http.MethodGet, "/sessions/fixed", token, nil, http.StatusOK, &sessions)
	assert.Equal(t, []string{s2.ID}, sessionIDs(sessions))
	env.doJSON(http.MethodGet, "/sessions/fixed", johnToken, nil, http.StatusOK, &sessions)
	assert.Equal(t, []string{johns.ID}, sessionIDs(sessions))

	env.doJSON(http.MethodDelete, "/sessions/fixed", token, nil, http.StatusNoContent, nil)
}

func TestSessionAPI_timeline(t *testing.T) {
	env := setup(t)
	token := env.getToken(env.createUser("Jane Doe", "jane"))
	reading := env.createCategory(token, "Reading")

	a := env.createFixed(token, reading.ID, sessionBase, 2*time.Hour)
	b := env.createFixed(token, reading.ID, sessionBase.Add(time.Hour), 2*time.Hour)
	c := env.createFixed(token, reading.ID, sessionBase.Add(2*time.Hour), time.Hour)
	env.createFixed(token, reading.ID, sessionBase.Add(72*time.Hour), time.Hour)

	var rows [][]session.FixedSession
	path := "/sessions/fixed/timeline?" + url.Values{
		"from": {sessionBase.Add(-time.Hour).Format(time.RFC3339)},
		"to":   {sessionBase.Add(24 * time.Hour).Format(time.RFC3339)},
	}.Encode()
	env.doJSON(http.MethodGet, path, token, nil, http.StatusOK, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{a.ID, c.ID}, sessionIDs(rows[0]))
	assert.Equal(t, []string{b.ID}, sessionIDs(rows[1]))

	env.runTests([]httpTest{
		{
			name:     "inverted window",
			path:     "/sessions/fixed/timeline?from=2024-03-05T00:00:00Z&to=2024-03-04T00:00:00Z",
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"to": "to must be after from"}`),
		},
	})
}

func TestSessionAPI_stopwatch(t *testing.T) {
	env := setup(t)
	token := env.getToken(env.createUser("Jane Doe", "jane"))
	reading := env.createCategory(token, "Reading")
	fiction := env.createTag(token, "Fiction")

	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	freezeTime(t, now)

	env.runTests([]httpTest{
		{
			name:     "none running",
			path:     "/sessions/stopwatch",
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "stopwatch session not found"}),
		},
		{name: "finish without stopwatch", method: http.MethodPost, path: "/sessions/stopwatch/finish", token: token, wantCode: http.StatusNotFound},
		{
			name:     "start in the future",
			method:   http.MethodPost,
			path:     "/sessions/stopwatch",
			token:    token,
			body:     marchallObj(t, session.StartStopwatch{StartTime: timePtr(now.Add(time.Minute))}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"start_time": "start_time cannot be in the future"}`),
		},
	})

	var sw session.StopwatchSession
	env.doJSON(http.MethodPost, "/sessions/stopwatch", token, session.StartStopwatch{TagIDs: []string{fiction.ID}}, http.StatusCreated, &sw)
	assert.True(t, sw.StartTime.Equal(now))
	assert.Nil(t, sw.Category)
	require.Len(t, sw.Tags, 1)

	env.runTests([]httpTest{
		{
			name:     "already running",
			method:   http.MethodPost,
			path:     "/sessions/stopwatch",
			token:    token,
			body:     []byte(`{}`),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "a stopwatch session is already running"}),
		},
		{
			name:     "finish without category",
			method:   http.MethodPost,
			path:     "/sessions/stopwatch/finish",
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"category_id": "a category is required to finish the session"}`),
		},
	})

	env.doJSON(http.MethodPut, "/sessions/stopwatch", token, session.UpdateStopwatch{
		StartTime:   timePtr(now.Add(-45 * time.Minute)),
		CategoryID:  strPtr(reading.ID),
		Description: strPtr("chapter 4"),
	}, http.StatusOK, &sw)
	require.NotNil(t, sw.Category)
	assert.Equal(t, reading.ID, sw.Category.ID)
	assert.Equal(t, "chapter 4", sw.Description)

	var got session.StopwatchSession
	env.doJSON(http.MethodGet, "/sessions/stopwatch", token, nil, http.StatusOK, &got)
	assert.Equal(t, sw.ID, got.ID)

	var fs session.FixedSession
	env.doJSON(http.MethodPost, "/sessions/stopwatch/finish", token, nil, http.StatusCreated, &fs)
	assert.Equal(t, reading.ID, fs.Category.ID)
	assert.Equal(t, 45.0, fs.DurationMinutes)
	assert.True(t, fs.EndTime.Equal(now))
	assert.Equal(t, "chapter 4", fs.Description)
	require.Len(t, fs.Tags, 1)
	assert.Equal(t, fiction.ID, fs.Tags[0].ID)

	env.doJSON(http.MethodGet, "/sessions/stopwatch", token, nil, http.StatusNotFound, nil)
	var sessions []session.FixedSession
	env.doJSON(http.MethodGet, "/sessions/fixed", token, nil, http.StatusOK, &sessions)
	assert.Equal(t, []string{fs.ID}, sessionIDs(sessions))
}

func TestSessionAPI_stopwatchDiscard(t *testing.T) {
	env := setup(t)
	token := env.getToken(env.createUser("Jane Doe", "jane"))
	reading := env.createCategory(token, "Reading")

	var sw session.StopwatchSession
	env.doJSON(http.MethodPost, "/sessions/stopwatch", token, session.StartStopwatch{CategoryID: reading.ID}, http.StatusCreated, &sw)
	require.NotNil(t, sw.Category)

	env.runTests([]httpTest{
		{
			name:     "finish before start",
			method:   http.MethodPost,
			path:     "/sessions/stopwatch/finish",
			token:    token,
			body:     marchallObj(t, session.FinishStopwatch{EndTime: timePtr(sw.StartTime.Add(-time.Minute))}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"end_time": "end_time must be after start_time"}`),
		},
	})

	env.doJSON(http.MethodDelete, "/sessions/stopwatch", token, nil, http.StatusNoContent, nil)
	env.doJSON(http.MethodDelete, "/sessions/stopwatch", token, nil, http.StatusNotFound, nil)

	var sessions []session.FixedSession
	env.doJSON(http.MethodGet, "/sessions/fixed", token, nil, http.StatusOK, &sessions)
	assert.Empty(t, sessions)
}

func timePtr(t time.Time) *time.Time { return &t }
