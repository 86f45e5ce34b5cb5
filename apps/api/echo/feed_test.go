package echoapi

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/feed"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/notification"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/user"
)

func eventIDs(events []feed.Event) []string {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return ids
}

type feedEnv struct {
	*testEnv
	janeToken    string
	johnToken    string
	malloryToken string
	// e1 and e3 are Jane's, e2 is John's
	e1, e2, e3 feed.Event
}

// setupFeed makes Jane and John friends, then logs a session for Jane (10:00), John (12:00) and Jane (14:00).
func setupFeed(t *testing.T) *feedEnv {
	env := &feedEnv{testEnv: setup(t)}
	env.janeToken = env.getToken(env.createUser("Jane Doe", "jane"))
	env.johnToken = env.getToken(env.createUser("John Poe", "john"))
	env.malloryToken = env.getToken(env.createUser("Mallory", "mallory"))
	env.befriend(env.janeToken, env.johnToken, "john")

	janeCat := env.createCategory(env.janeToken, "Reading")
	johnCat := env.createCategory(env.johnToken, "Running")

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	freezeTime(t, day.Add(10*time.Hour))
	env.createFixed(env.janeToken, janeCat.ID, day.Add(8*time.Hour), time.Hour)
	freezeTime(t, day.Add(12*time.Hour))
	env.createFixed(env.johnToken, johnCat.ID, day.Add(11*time.Hour), 30*time.Minute)
	freezeTime(t, day.Add(14*time.Hour))
	env.createFixed(env.janeToken, janeCat.ID, day.Add(13*time.Hour), 45*time.Minute)

	var events []feed.Event
	env.doJSON(http.MethodGet, "/feed", env.janeToken, nil, http.StatusOK, &events)
	require.Len(t, events, 3)
	env.e3, env.e2, env.e1 = events[0], events[1], events[2]
	return env
}

func TestFeedAPI_query(t *testing.T) {
	env := setupFeed(t)

	assert.Equal(t, feed.EventSessionFinished, env.e1.EventType)
	assert.Equal(t, "jane", env.e1.Source.Username)
	assert.Equal(t, "john", env.e2.Source.Username)
	assert.Empty(t, env.e1.Reactions)
	assert.Contains(t, string(env.e1.Data), "Reading")

	var events []feed.Event
	env.doJSON(http.MethodGet, "/feed", env.johnToken, nil, http.StatusOK, &events)
	assert.Equal(t, []string{env.e3.ID, env.e2.ID, env.e1.ID}, eventIDs(events))

	env.doJSON(http.MethodGet, "/feed?limit=2", env.janeToken, nil, http.StatusOK, &events)
	assert.Equal(t, []string{env.e3.ID, env.e2.ID}, eventIDs(events))

	cursor := url.QueryEscape(env.e2.CreatedAt.Format(time.RFC3339Nano))
	env.doJSON(http.MethodGet, "/feed?limit=2&cursor="+cursor, env.janeToken, nil, http.StatusOK, &events)
	assert.Equal(t, []string{env.e1.ID}, eventIDs(events))

	// not a friend: nothing to see
	env.runTests([]httpTest{
		{name: "outsider", path: "/feed", token: env.malloryToken, wantCode: http.StatusOK, wantData: marchallList(t)},
		{
			name:     "bad cursor",
			path:     "/feed?cursor=yesterday",
			token:    env.janeToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"cursor": "must be an RFC3339 timestamp"}`),
		},
		{name: "unauthenticated", path: "/feed", wantCode: http.StatusUnauthorized},
	})
}

func TestFeedAPI_visibility(t *testing.T) {
	env := setupFeed(t)

	env.doJSON(http.MethodPut, "/users/me", env.johnToken, user.UpdateMe{Visibility: user.VisibilityPrivate}, http.StatusOK, nil)

	var events []feed.Event
	env.doJSON(http.MethodGet, "/feed", env.janeToken, nil, http.StatusOK, &events)
	assert.Equal(t, []string{env.e3.ID, env.e1.ID}, eventIDs(events))

	// one's own events are always visible
	env.doJSON(http.MethodGet, "/feed", env.johnToken, nil, http.StatusOK, &events)
	assert.Len(t, events, 3)

	env.runTests([]httpTest{
		{
			name:     "react to a private event",
			method:   http.MethodPost,
			path:     "/feed/" + env.e2.ID + "/reactions",
			token:    env.janeToken,
			body:     []byte(`{"emoji": "🔥"}`),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "feed event not found"}),
		},
	})
}

func TestFeedAPI_reactions(t *testing.T) {
	env := setupFeed(t)
	path := "/feed/" + env.e1.ID + "/reactions"
	thumbsUp := "👍"

	var evt feed.Event
	env.doJSON(http.MethodPost, path, env.johnToken, feed.NewReaction{Emoji: thumbsUp}, http.StatusOK, &evt)
	assert.Equal(t, []feed.Reactions{{Emoji: thumbsUp, Count: 1, Reacted: true}}, evt.Reactions)

	// reacting twice with the same emoji is a no-op
	env.doJSON(http.MethodPost, path, env.johnToken, feed.NewReaction{Emoji: thumbsUp}, http.StatusOK, &evt)
	assert.Equal(t, []feed.Reactions{{Emoji: thumbsUp, Count: 1, Reacted: true}}, evt.Reactions)

	env.doJSON(http.MethodPost, path, env.janeToken, feed.NewReaction{Emoji: thumbsUp}, http.StatusOK, &evt)
	env.doJSON(http.MethodPost, path, env.janeToken, feed.NewReaction{Emoji: "🎉"}, http.StatusOK, &evt)
	assert.ElementsMatch(t, []feed.Reactions{
		{Emoji: thumbsUp, Count: 2, Reacted: true},
		{Emoji: "🎉", Count: 1, Reacted: true},
	}, evt.Reactions)

	// only the reaction of John notifies Jane
	var notifs []notification.Notification
	env.doJSON(http.MethodGet, "/notifications?seen=false", env.janeToken, nil, http.StatusOK, &notifs)
	var reactionNotifs int
	for _, n := range notifs {
		if n.Type == notification.TypeFeedNewReaction {
			reactionNotifs++
			assert.Contains(t, string(n.Data), env.e1.ID)
		}
	}
	assert.Equal(t, 1, reactionNotifs)

	env.runTests([]httpTest{
		{
			name:     "not an emoji",
			method:   http.MethodPost,
			path:     path,
			token:    env.johnToken,
			body:     []byte(`{"emoji": "lol"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"emoji": "must be a single emoji"}`),
		},
		{
			name:     "outsider",
			method:   http.MethodPost,
			path:     path,
			token:    env.malloryToken,
			body:     []byte(`{"emoji": "👀"}`),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "feed event not found"}),
		},
		{
			name:     "unknown event",
			method:   http.MethodPost,
			path:     "/feed/" + unknownID + "/reactions",
			token:    env.johnToken,
			body:     []byte(`{"emoji": "👀"}`),
			wantCode: http.StatusNotFound,
		},
	})

	unreact := path + "/" + url.PathEscape(thumbsUp)
	env.doJSON(http.MethodDelete, unreact, env.johnToken, nil, http.StatusOK, &evt)
	assert.ElementsMatch(t, []feed.Reactions{
		{Emoji: thumbsUp, Count: 1, Reacted: false},
		{Emoji: "🎉", Count: 1, Reacted: false},
	}, evt.Reactions)

	env.runTests([]httpTest{
		{
			name:     "remove twice",
			method:   http.MethodDelete,
			path:     unreact,
			token:    env.johnToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "reaction not found"}),
		},
	})
}
