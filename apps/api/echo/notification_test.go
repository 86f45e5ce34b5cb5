package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/notification"
)

func TestNotificationAPI(t *testing.T) {
	env := setup(t)
	janeToken := env.getToken(env.createUser("Jane Doe", "jane"))
	johnToken := env.getToken(env.createUser("John Poe", "john"))

	// three friend requests make three notifications for Jane
	for _, uname := range []string{"alice", "bob", "carol"} {
		env.sendFriendRequest(env.getToken(env.createUser(uname, uname)), "jane")
	}

	var notifs []notification.Notification
	env.doJSON(http.MethodGet, "/notifications", janeToken, nil, http.StatusOK, &notifs)
	require.Len(t, notifs, 3)
	for _, n := range notifs {
		assert.Equal(t, notification.TypeFriendNewRequest, n.Type)
		assert.False(t, n.Seen)
	}

	env.runTests([]httpTest{
		{name: "unseen", path: "/notifications/unseen-count", token: janeToken, wantCode: http.StatusOK, wantData: []byte(`{"count": 3}`)},
		{name: "nothing for John", path: "/notifications", token: johnToken, wantCode: http.StatusOK, wantData: marchallList(t)},
		{
			name:     "bad seen filter",
			path:     "/notifications?seen=maybe",
			token:    janeToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"seen": "must be a boolean"}`),
		},
		{
			name:     "mark seen with bad ids",
			method:   http.MethodPost,
			path:     "/notifications/seen",
			token:    janeToken,
			body:     []byte(`{"ids": ["abc"]}`),
			wantCode: http.StatusBadRequest,
		},
		{name: "unauthenticated", path: "/notifications", wantCode: http.StatusUnauthorized},
	})

	env.doJSON(http.MethodGet, "/notifications?limit=2", janeToken, nil, http.StatusOK, &notifs)
	assert.Len(t, notifs, 2)

	first := notifs[0]
	var marked MarkSeenResponse
	env.doJSON(http.MethodPost, "/notifications/seen", janeToken, notification.MarkSeen{IDs: []string{first.ID}}, http.StatusOK, &marked)
	assert.Equal(t, 1, marked.Count)

	// marking someone else's notification does nothing
	env.doJSON(http.MethodPost, "/notifications/seen", johnToken, notification.MarkSeen{IDs: []string{notifs[1].ID}}, http.StatusOK, &marked)
	assert.Equal(t, 0, marked.Count)

	env.doJSON(http.MethodGet, "/notifications?seen=true", janeToken, nil, http.StatusOK, &notifs)
	require.Len(t, notifs, 1)
	assert.Equal(t, first.ID, notifs[0].ID)
	env.doJSON(http.MethodGet, "/notifications?seen=false", janeToken, nil, http.StatusOK, &notifs)
	assert.Len(t, notifs, 2)

	// no ids: all of them
	env.doJSON(http.MethodPost, "/notifications/seen", janeToken, notification.MarkSeen{}, http.StatusOK, &marked)
	assert.Equal(t, 2, marked.Count)
	env.runTests([]httpTest{
		{name: "all seen", path: "/notifications/unseen-count", token: janeToken, wantCode: http.StatusOK, wantData: []byte(`{"count": 0}`)},
		{
			name:     "delete as other user",
			method:   http.MethodDelete,
			path:     "/notifications/" + first.ID,
			token:    johnToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "notification not found"}),
		},
	})

	env.doJSON(http.MethodDelete, "/notifications/"+first.ID, janeToken, nil, http.StatusNoContent, nil)
	env.doJSON(http.MethodGet, "/notifications", janeToken, nil, http.StatusOK, &notifs)
	assert.Len(t, notifs, 2)
}

func TestNotificationAPI_websocket(t *testing.T) {
	env := setup(t)
	token := env.getToken(env.createUser("Jane Doe", "jane"))

	env.runTests([]httpTest{
		{
			name:     "token in header only",
			path:     "/notifications/ws",
			token:    token,
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "live connections disabled",
			path:     "/notifications/ws?token=" + token,
			wantCode: http.StatusServiceUnavailable,
			wantData: marchallObj(t, httpErr{Error: "live notifications are disabled"}),
		},
	})
}
