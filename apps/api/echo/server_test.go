package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobu-Labs/nowaster-web-sub002/assets"
	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/category"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/feed"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/friend"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/notification"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/project"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/session"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/statistics"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/tag"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/user"
	"github.com/Kobu-Labs/nowaster-web-sub002/services/email"
	"github.com/Kobu-Labs/nowaster-web-sub002/services/events"
	"github.com/Kobu-Labs/nowaster-web-sub002/services/logger"
	"github.com/Kobu-Labs/nowaster-web-sub002/storage/database/inmem"
)

const testPassword = "Sup3r-Secr3t!"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

type testEnv struct {
	t       *testing.T
	conf    *core.Config
	srv     *Server
	db      *inmemdb.DB
	mailSvc *emailsvc.ConsoleServiceMock
	usrRepo user.Repository
	catRepo category.Repository
}

func setup(t *testing.T) *testEnv {
	conf := core.NewTestConfig()
	logger := logsvc.NewNopLogger()

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	core.ParseEmailTemplates(assets.FS, true, logger)

	db := inmemdb.Open()
	txm := inmemdb.NewTxManager(db)
	bus := eventsvc.NewBus(logger)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)

	usrRepo := inmemdb.NewUserRepository(db)
	catRepo := inmemdb.NewCategoryRepository(db)
	tagRepo := inmemdb.NewTagRepository(db)
	projRepo := inmemdb.NewProjectRepository(db)
	friendRepo := inmemdb.NewFriendRepository(db)

	feedSvc := feed.NewService(inmemdb.NewFeedRepository(db), usrRepo, friendRepo, bus, logger)
	notifSvc := notification.NewService(inmemdb.NewNotificationRepository(db), nil, logger)
	require.NoError(t, bus.Wire(feedSvc.Handlers(), notifSvc.Handlers()))

	srv := NewServer(ServerDeps{
		Conf:            conf,
		Logger:          logger,
		Pinger:          db,
		Validate:        validate,
		Translator:      translator,
		UserSvc:         user.NewService(usrRepo, mailSvc, conf),
		CategorySvc:     category.NewService(catRepo),
		TagSvc:          tag.NewService(tagRepo, catRepo),
		SessionSvc:      session.NewService(inmemdb.NewSessionRepository(db), catRepo, tagRepo, projRepo, txm, bus, logger),
		ProjectSvc:      project.NewService(projRepo, bus, logger),
		StatisticsSvc:   statistics.NewService(inmemdb.NewStatisticsRepository(db), projRepo),
		FriendSvc:       friend.NewService(friendRepo, usrRepo, txm, bus, mailSvc, logger),
		FeedSvc:         feedSvc,
		NotificationSvc: notifSvc,
	})
	t.Cleanup(func() {
		_ = srv.Close()
		_ = bus.Close()
	})

	return &testEnv{
		t:       t,
		conf:    conf,
		srv:     srv,
		db:      db,
		mailSvc: mailSvc,
		usrRepo: usrRepo,
		catRepo: catRepo,
	}
}

func (env *testEnv) createUser(name, uname string, roles ...string) user.User {
	now := core.NowFunc()
	usr := user.User{
		Name:       name,
		Username:   uname,
		Email:      uname + "@nowaster.test",
		IsActive:   true,
		Roles:      roles,
		Visibility: user.VisibilityFriends,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(env.t, usr.SetPassword(testPassword))
	usr, err := env.usrRepo.CreateUser(context.Background(), usr)
	require.NoError(env.t, err)
	return usr
}

func (env *testEnv) getToken(usr user.User) string {
	token, err := env.srv.auth.generateToken(env.srv.auth.claimsFor(usr))
	if err != nil {
		env.t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

// do runs a request through the server and returns the recorder.
func (env *testEnv) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	env.srv.ServeHTTP(rec, req)
	return rec
}

// doJSON runs a request, checks its status code and decodes the response into out (if not nil).
func (env *testEnv) doJSON(method, path, token string, body interface{}, wantCode int, out interface{}) {
	env.t.Helper()
	var data []byte
	if body != nil {
		data = marchallObj(env.t, body)
	}
	rec := env.do(method, path, token, data)
	require.Equalf(env.t, wantCode, rec.Code, "%s %s: %s", method, path, rec.Body.String())
	if out != nil {
		require.NoError(env.t, json.Unmarshal(rec.Body.Bytes(), out))
	}
}

func (env *testEnv) createCategory(token, name string) category.Category {
	env.t.Helper()
	var cat category.Category
	env.doJSON(http.MethodPost, "/categories", token, category.NewCategory{Name: name}, http.StatusCreated, &cat)
	return cat
}

func (env *testEnv) createTag(token, label string, categoryIDs ...string) tag.Tag {
	env.t.Helper()
	var t tag.Tag
	env.doJSON(http.MethodPost, "/tags", token, tag.NewTag{Label: label, AllowedCategoryIDs: categoryIDs}, http.StatusCreated, &t)
	return t
}

func (env *testEnv) createFixed(token, categoryID string, start time.Time, dur time.Duration, tagIDs ...string) session.FixedSession {
	env.t.Helper()
	var fs session.FixedSession
	env.doJSON(http.MethodPost, "/sessions/fixed", token, session.NewFixedSession{
		CategoryID: categoryID,
		TagIDs:     tagIDs,
		StartTime:  start,
		EndTime:    start.Add(dur),
	}, http.StatusCreated, &fs)
	return fs
}

func (env *testEnv) runTests(tests []httpTest) {
	for _, tt := range tests {
		tt := tt
		env.t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			env.srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// freezeTime pins core.NowFunc for the duration of the test.
func freezeTime(t *testing.T, now time.Time) {
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = orig })
}

func Test_home(t *testing.T) {
	env := setup(t)

	req, rec := newRequest(http.MethodGet, "/")
	env.srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Nowaster API!", rec.Body.String())
}

func Test_health(t *testing.T) {
	env := setup(t)
	env.runTests([]httpTest{
		{name: "ok", path: "/health", wantCode: http.StatusOK, wantData: []byte(`{"status":"ok","build":"test"}`)},
	})
}

func Test_metrics(t *testing.T) {
	env := setup(t)

	// one request so the HTTP collectors have a sample
	env.do(http.MethodGet, "/health", "")

	rec := env.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "nowaster_http_requests_total"))
}

func Test_notFound(t *testing.T) {
	env := setup(t)
	env.runTests([]httpTest{
		{name: "unknown route", path: "/unknown", wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "Not Found"})},
	})
}
