package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/friend"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/notification"
)

func (env *testEnv) sendFriendRequest(token, recipient string) friend.Request {
	env.t.Helper()
	var req friend.Request
	env.doJSON(http.MethodPost, "/friends/requests", token, friend.NewRequest{RecipientUsername: recipient}, http.StatusCreated, &req)
	return req
}

func (env *testEnv) answerFriendRequest(token, id string, status friend.Status) friend.Request {
	env.t.Helper()
	var req friend.Request
	env.doJSON(http.MethodPut, "/friends/requests/"+id, token, friend.UpdateRequest{Status: status}, http.StatusOK, &req)
	return req
}

// befriend makes the two users friends.
func (env *testEnv) befriend(requestorToken, recipientToken, recipient string) {
	env.t.Helper()
	req := env.sendFriendRequest(requestorToken, recipient)
	env.answerFriendRequest(recipientToken, req.ID, friend.StatusAccepted)
}

func TestFriendAPI_requests(t *testing.T) {
	env := setup(t)
	jane := env.createUser("Jane Doe", "jane")
	john := env.createUser("John Poe", "john")
	janeToken := env.getToken(jane)
	johnToken := env.getToken(john)

	var req friend.Request
	env.doJSON(http.MethodPost, "/friends/requests", janeToken, friend.NewRequest{
		RecipientUsername:   " JOHN ",
		IntroductionMessage: "Hi John!",
	}, http.StatusCreated, &req)
	assert.Equal(t, friend.StatusPending, req.Status)
	assert.Equal(t, jane.ID, req.Requestor.ID)
	assert.Equal(t, john.ID, req.Recipient.ID)
	assert.Equal(t, "Hi John!", req.IntroductionMessage)
	assert.Nil(t, req.RespondedAt)

	sent := env.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, john.Email, sent[0].To[0].Address)
	assert.Equal(t, "Jane Doe wants to be your friend", sent[0].Subject)

	var notifs []notification.Notification
	env.doJSON(http.MethodGet, "/notifications", johnToken, nil, http.StatusOK, &notifs)
	require.Len(t, notifs, 1)
	assert.Equal(t, notification.TypeFriendNewRequest, notifs[0].Type)
	assert.False(t, notifs[0].Seen)

	env.runTests([]httpTest{
		{
			name:     "pending already",
			method:   http.MethodPost,
			path:     "/friends/requests",
			token:    janeToken,
			body:     []byte(`{"recipient_username": "john"}`),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "a pending friend request already exists between you"}),
		},
		{
			name:     "pending the other way round",
			method:   http.MethodPost,
			path:     "/friends/requests",
			token:    johnToken,
			body:     []byte(`{"recipient_username": "jane"}`),
			wantCode: http.StatusConflict,
		},
		{
			name:     "to self",
			method:   http.MethodPost,
			path:     "/friends/requests",
			token:    janeToken,
			body:     []byte(`{"recipient_username": "jane"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"recipient_username": "you cannot send a friend request to yourself"}`),
		},
		{
			name:     "unknown recipient",
			method:   http.MethodPost,
			path:     "/friends/requests",
			token:    janeToken,
			body:     []byte(`{"recipient_username": "nobody"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"recipient_username": "user not found"}`),
		},
		{
			name:     "missing recipient",
			method:   http.MethodPost,
			path:     "/friends/requests",
			token:    janeToken,
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"recipient_username": "this field is required"}`),
		},
	})

	var reqs []friend.Request
	env.doJSON(http.MethodGet, "/friends/requests?direction=incoming", johnToken, nil, http.StatusOK, &reqs)
	require.Len(t, reqs, 1)
	assert.Equal(t, req.ID, reqs[0].ID)

	env.doJSON(http.MethodGet, "/friends/requests?direction=incoming", janeToken, nil, http.StatusOK, &reqs)
	assert.Empty(t, reqs)

	env.doJSON(http.MethodGet, "/friends/requests?direction=outgoing&status=pending", janeToken, nil, http.StatusOK, &reqs)
	assert.Len(t, reqs, 1)

	env.doJSON(http.MethodGet, "/friends/requests?status=accepted", janeToken, nil, http.StatusOK, &reqs)
	assert.Empty(t, reqs)
}

func TestFriendAPI_answer(t *testing.T) {
	env := setup(t)
	jane := env.createUser("Jane Doe", "jane")
	john := env.createUser("John Poe", "john")
	janeToken := env.getToken(jane)
	johnToken := env.getToken(john)
	malloryToken := env.getToken(env.createUser("Mallory", "mallory"))

	req := env.sendFriendRequest(janeToken, "john")
	path := "/friends/requests/" + req.ID

	env.runTests([]httpTest{
		{
			name:     "requestor cannot accept",
			method:   http.MethodPut,
			path:     path,
			token:    janeToken,
			body:     []byte(`{"status": "accepted"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "recipient cannot cancel",
			method:   http.MethodPut,
			path:     path,
			token:    johnToken,
			body:     []byte(`{"status": "cancelled"}`),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "outsider",
			method:   http.MethodPut,
			path:     path,
			token:    malloryToken,
			body:     []byte(`{"status": "accepted"}`),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "friend request not found"}),
		},
		{
			name:     "invalid status",
			method:   http.MethodPut,
			path:     path,
			token:    johnToken,
			body:     []byte(`{"status": "pending"}`),
			wantCode: http.StatusBadRequest,
		},
	})

	accepted := env.answerFriendRequest(johnToken, req.ID, friend.StatusAccepted)
	assert.Equal(t, friend.StatusAccepted, accepted.Status)
	assert.NotNil(t, accepted.RespondedAt)

	var notifs []notification.Notification
	env.doJSON(http.MethodGet, "/notifications", janeToken, nil, http.StatusOK, &notifs)
	require.Len(t, notifs, 1)
	assert.Equal(t, notification.TypeFriendRequestAccepted, notifs[0].Type)

	env.runTests([]httpTest{
		{
			name:     "answered already",
			method:   http.MethodPut,
			path:     path,
			token:    johnToken,
			body:     []byte(`{"status": "rejected"}`),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "the friend request was already answered"}),
		},
		{
			name:     "friends already",
			method:   http.MethodPost,
			path:     "/friends/requests",
			token:    johnToken,
			body:     []byte(`{"recipient_username": "jane"}`),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "you are already friends"}),
		},
	})

	// cancelled and rejected requests make no friends
	cancelled := env.sendFriendRequest(janeToken, "mallory")
	assert.Equal(t, friend.StatusCancelled, env.answerFriendRequest(janeToken, cancelled.ID, friend.StatusCancelled).Status)
	rejected := env.sendFriendRequest(johnToken, "mallory")
	assert.Equal(t, friend.StatusRejected, env.answerFriendRequest(malloryToken, rejected.ID, friend.StatusRejected).Status)

	var friends []friend.Friend
	env.doJSON(http.MethodGet, "/friends", malloryToken, nil, http.StatusOK, &friends)
	assert.Empty(t, friends)
}

func TestFriendAPI_friends(t *testing.T) {
	env := setup(t)
	jane := env.createUser("Jane Doe", "jane")
	john := env.createUser("John Poe", "john")
	janeToken := env.getToken(jane)
	johnToken := env.getToken(john)
	malloryToken := env.getToken(env.createUser("Mallory", "mallory"))

	env.runTests([]httpTest{
		{name: "no friends yet", path: "/friends", token: janeToken, wantCode: http.StatusOK, wantData: marchallList(t)},
	})

	env.befriend(janeToken, johnToken, "john")

	var janes, johns []friend.Friend
	env.doJSON(http.MethodGet, "/friends", janeToken, nil, http.StatusOK, &janes)
	require.Len(t, janes, 1)
	assert.Equal(t, john.ID, janes[0].User.ID)
	assert.Equal(t, "john", janes[0].User.Username)

	env.doJSON(http.MethodGet, "/friends", johnToken, nil, http.StatusOK, &johns)
	require.Len(t, johns, 1)
	assert.Equal(t, jane.ID, johns[0].User.ID)
	assert.Equal(t, janes[0].ID, johns[0].ID)

	env.runTests([]httpTest{
		{
			name:     "outsider removes",
			method:   http.MethodDelete,
			path:     "/friends/" + janes[0].ID,
			token:    malloryToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "friend not found"}),
		},
	})

	// either side may end the friendship
	env.doJSON(http.MethodDelete, "/friends/"+janes[0].ID, johnToken, nil, http.StatusNoContent, nil)
	env.doJSON(http.MethodGet, "/friends", janeToken, nil, http.StatusOK, &janes)
	assert.Empty(t, janes)

	// and they may become friends again
	env.befriend(johnToken, janeToken, "jane")
	env.doJSON(http.MethodGet, "/friends", janeToken, nil, http.StatusOK, &janes)
	assert.Len(t, janes, 1)
}
