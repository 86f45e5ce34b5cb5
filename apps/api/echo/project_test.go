package echoapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/feed"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/project"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/session"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/statistics"
)

func (env *testEnv) createProject(token, name string) project.Project {
	env.t.Helper()
	var p project.Project
	env.doJSON(http.MethodPost, "/projects", token, project.NewProject{Name: name}, http.StatusCreated, &p)
	return p
}

func (env *testEnv) createTask(token, projectID, name string) project.Task {
	env.t.Helper()
	var t project.Task
	env.doJSON(http.MethodPost, "/projects/"+projectID+"/tasks", token, project.NewTask{Name: name}, http.StatusCreated, &t)
	return t
}

func projectNames(projects []project.Project) []string {
	res := make([]string, 0, len(projects))
	for _, p := range projects {
		res = append(res, p.Name)
	}
	return res
}

func TestProjectAPI_create(t *testing.T) {
	env := setup(t)
	jane := env.createUser("Jane Doe", "jane")
	token := env.getToken(jane)

	var p project.Project
	env.doJSON(http.MethodPost, "/projects", token, project.NewProject{
		Name:        " Thesis ",
		Description: "Master thesis",
	}, http.StatusCreated, &p)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, jane.ID, p.UserID)
	assert.Equal(t, "Thesis", p.Name)
	assert.Equal(t, project.DefaultColor, p.Color)
	assert.False(t, p.Completed)
	assert.Equal(t, 0, p.TaskCount)

	env.runTests([]httpTest{
		{
			name:     "missing name",
			method:   http.MethodPost,
			path:     "/projects",
			token:    token,
			body:     []byte(`{"description": "nameless"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name": "this field is required"}`),
		},
		{
			name:     "duplicate name",
			method:   http.MethodPost,
			path:     "/projects",
			token:    token,
			body:     []byte(`{"name": "THESIS"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name": "a project with this name already exists"}`),
		},
		{
			name:     "bad color",
			method:   http.MethodPost,
			path:     "/projects",
			token:    token,
			body:     []byte(`{"name": "Garden", "color": "green"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"color": "must be a color in the #RRGGBB format"}`),
		},
		{
			name:     "unauthenticated",
			method:   http.MethodPost,
			path:     "/projects",
			body:     []byte(`{"name": "Garden"}`),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
	})
}

func TestProjectAPI_query(t *testing.T) {
	env := setup(t)
	token := env.getToken(env.createUser("Jane Doe", "jane"))
	johnToken := env.getToken(env.createUser("John Poe", "john"))

	thesis := env.createProject(token, "Thesis")
	env.createProject(token, "Garden")
	env.createProject(johnToken, "Bike")

	env.doJSON(http.MethodPut, "/projects/"+thesis.ID, token, project.UpdateProject{Completed: boolPtr(true)}, http.StatusOK, nil)

	var projects []project.Project
	env.doJSON(http.MethodGet, "/projects", token, nil, http.StatusOK, &projects)
	assert.ElementsMatch(t, []string{"Thesis", "Garden"}, projectNames(projects))

	env.doJSON(http.MethodGet, "/projects?completed=true", token, nil, http.StatusOK, &projects)
	assert.Equal(t, []string{"Thesis"}, projectNames(projects))

	env.doJSON(http.MethodGet, "/projects?completed=false", token, nil, http.StatusOK, &projects)
	assert.Equal(t, []string{"Garden"}, projectNames(projects))

	env.runTests([]httpTest{
		{
			name:     "bad completed filter",
			path:     "/projects?completed=maybe",
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"completed": "must be a boolean"}`),
		},
	})
}

func TestProjectAPI_detail(t *testing.T) {
	env := setup(t)
	token := env.getToken(env.createUser("Jane Doe", "jane"))
	johnToken := env.getToken(env.createUser("John Poe", "john"))

	thesis := env.createProject(token, "Thesis")
	env.createProject(token, "Garden")
	path := "/projects/" + thesis.ID

	env.runTests([]httpTest{
		{name: "retrieve", path: path, token: token, wantCode: http.StatusOK, wantData: marchallObj(t, thesis)},
		{
			name:     "not owner",
			path:     path,
			token:    johnToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "project not found"}),
		},
		{name: "unknown", path: "/projects/" + unknownID, token: token, wantCode: http.StatusNotFound},
		{
			name:     "rename to taken name",
			method:   http.MethodPut,
			path:     path,
			token:    token,
			body:     []byte(`{"name": "garden"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name": "a project with this name already exists"}`),
		},
		{name: "delete as other user", method: http.MethodDelete, path: path, token: johnToken, wantCode: http.StatusNotFound},
	})

	var updated project.Project
	env.doJSON(http.MethodPut, path, token, project.UpdateProject{
		Name:  strPtr("Dissertation"),
		Color: strPtr("#00AA00"),
	}, http.StatusOK, &updated)
	assert.Equal(t, "Dissertation", updated.Name)
	assert.Equal(t, "#00aa00", updated.Color)
	assert.False(t, updated.Completed)

	env.doJSON(http.MethodDelete, path, token, nil, http.StatusNoContent, nil)
	env.runTests([]httpTest{
		{name: "deleted", path: path, token: token, wantCode: http.StatusNotFound},
	})
}

func TestProjectAPI_completion(t *testing.T) {
	env := setup(t)
	token := env.getToken(env.createUser("Jane Doe", "jane"))

	thesis := env.createProject(token, "Thesis")
	writing := env.createTask(token, thesis.ID, "Writing")

	env.doJSON(http.MethodPut, "/tasks/"+writing.ID, token, project.UpdateTask{Completed: boolPtr(true)}, http.StatusOK, nil)
	env.doJSON(http.MethodPut, "/projects/"+thesis.ID, token, project.UpdateProject{Completed: boolPtr(true)}, http.StatusOK, nil)
	// already completed: no second event
	env.doJSON(http.MethodPut, "/projects/"+thesis.ID, token, project.UpdateProject{Completed: boolPtr(true)}, http.StatusOK, nil)

	var events []feed.Event
	env.doJSON(http.MethodGet, "/feed", token, nil, http.StatusOK, &events)
	require.Len(t, events, 2)
	types := []feed.EventType{events[0].EventType, events[1].EventType}
	assert.ElementsMatch(t, []feed.EventType{feed.EventProjectCompleted, feed.EventTaskCompleted}, types)
	for _, evt := range events {
		assert.Equal(t, "jane", evt.Source.Username)
	}

	var p project.Project
	env.doJSON(http.MethodGet, "/projects/"+thesis.ID, token, nil, http.StatusOK, &p)
	assert.True(t, p.Completed)
	assert.Equal(t, 1, p.TaskCount)
	assert.Equal(t, 1, p.CompletedTaskCount)
}

func TestProjectAPI_tasks(t *testing.T) {
	env := setup(t)
	token := env.getToken(env.createUser("Jane Doe", "jane"))
	johnToken := env.getToken(env.createUser("John Poe", "john"))

	thesis := env.createProject(token, "Thesis")
	garden := env.createProject(token, "Garden")

	var writing project.Task
	env.doJSON(http.MethodPost, "/projects/"+thesis.ID+"/tasks", token, project.NewTask{Name: " Writing ", Description: "chapters"}, http.StatusCreated, &writing)
	assert.Equal(t, "Writing", writing.Name)
	assert.Equal(t, thesis.ID, writing.ProjectID)
	assert.False(t, writing.Completed)

	reading := env.createTask(token, thesis.ID, "Reading")
	// task names are unique per project only
	env.createTask(token, garden.ID, "Writing")

	env.runTests([]httpTest{
		{
			name:     "duplicate task name",
			method:   http.MethodPost,
			path:     "/projects/" + thesis.ID + "/tasks",
			token:    token,
			body:     []byte(`{"name": "writing"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name": "a task with this name already exists in the project"}`),
		},
		{
			name:     "task in project of another user",
			method:   http.MethodPost,
			path:     "/projects/" + thesis.ID + "/tasks",
			token:    johnToken,
			body:     []byte(`{"name": "Sabotage"}`),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "project not found"}),
		},
		{name: "retrieve", path: "/tasks/" + writing.ID, token: token, wantCode: http.StatusOK, wantData: marchallObj(t, writing)},
		{
			name:     "task of another user",
			path:     "/tasks/" + writing.ID,
			token:    johnToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "task not found"}),
		},
		{
			name:     "rename to taken name",
			method:   http.MethodPut,
			path:     "/tasks/" + reading.ID,
			token:    token,
			body:     []byte(`{"name": "WRITING"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name": "a task with this name already exists in the project"}`),
		},
	})

	var updated project.Task
	env.doJSON(http.MethodPut, "/tasks/"+reading.ID, token, project.UpdateTask{Completed: boolPtr(true)}, http.StatusOK, &updated)
	assert.True(t, updated.Completed)
	assert.Equal(t, "Reading", updated.Name)

	var tasks []project.Task
	env.doJSON(http.MethodGet, "/projects/"+thesis.ID+"/tasks", token, nil, http.StatusOK, &tasks)
	assert.Len(t, tasks, 2)

	env.doJSON(http.MethodGet, "/projects/"+thesis.ID+"/tasks?completed=true", token, nil, http.StatusOK, &tasks)
	require.Len(t, tasks, 1)
	assert.Equal(t, reading.ID, tasks[0].ID)

	env.doJSON(http.MethodDelete, "/tasks/"+reading.ID, token, nil, http.StatusNoContent, nil)
	env.runTests([]httpTest{
		{name: "deleted task", path: "/tasks/" + reading.ID, token: token, wantCode: http.StatusNotFound},
	})

	// deleting the project drops its tasks
	env.doJSON(http.MethodDelete, "/projects/"+thesis.ID, token, nil, http.StatusNoContent, nil)
	env.runTests([]httpTest{
		{name: "task of deleted project", path: "/tasks/" + writing.ID, token: token, wantCode: http.StatusNotFound},
	})
}

func TestProjectAPI_sessionsAndStatistics(t *testing.T) {
	env := setup(t)
	token := env.getToken(env.createUser("Jane Doe", "jane"))
	johnToken := env.getToken(env.createUser("John Poe", "john"))

	cat := env.createCategory(token, "Work")
	thesis := env.createProject(token, "Thesis")
	writing := env.createTask(token, thesis.ID, "Writing")
	reading := env.createTask(token, thesis.ID, "Reading")
	johnsTask := env.createTask(johnToken, env.createProject(johnToken, "Bike").ID, "Wheels")

	start := time.Now().UTC().Add(-6 * time.Hour).Truncate(time.Minute)
	for i, tt := range []struct {
		taskID string
		dur    time.Duration
	}{
		{writing.ID, 90 * time.Minute},
		{writing.ID, 30 * time.Minute},
		{reading.ID, 45 * time.Minute},
	} {
		env.doJSON(http.MethodPost, "/sessions/fixed", token, session.NewFixedSession{
			CategoryID: cat.ID,
			StartTime:  start.Add(time.Duration(i) * 2 * time.Hour),
			EndTime:    start.Add(time.Duration(i)*2*time.Hour + tt.dur),
			TaskID:     tt.taskID,
		}, http.StatusCreated, nil)
	}

	env.runTests([]httpTest{
		{
			name:     "task of another user",
			method:   http.MethodPost,
			path:     "/sessions/fixed",
			token:    token,
			body:     marchallObj(t, session.NewFixedSession{CategoryID: cat.ID, StartTime: start, EndTime: start.Add(time.Hour), TaskID: johnsTask.ID}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"task_id": "task not found"}`),
		},
	})

	var task project.Task
	env.doJSON(http.MethodGet, "/tasks/"+writing.ID, token, nil, http.StatusOK, &task)
	assert.Equal(t, 120.0, task.TotalMinutes)

	var stat statistics.ProjectStat
	env.doJSON(http.MethodGet, "/projects/"+thesis.ID+"/statistics", token, nil, http.StatusOK, &stat)
	assert.Equal(t, thesis.ID, stat.ProjectID)
	assert.Equal(t, 165.0, stat.TotalMinutes)
	assert.Equal(t, 3, stat.SessionCount)
	require.Len(t, stat.Tasks, 2)
	byTask := map[string]statistics.TaskStat{}
	for _, ts := range stat.Tasks {
		byTask[ts.TaskID] = ts
	}
	assert.Equal(t, 120.0, byTask[writing.ID].Minutes)
	assert.Equal(t, 2, byTask[writing.ID].SessionCount)
	assert.Equal(t, 45.0, byTask[reading.ID].Minutes)
	assert.Equal(t, "Reading", byTask[reading.ID].Name)

	env.runTests([]httpTest{
		{name: "statistics of another user", path: "/projects/" + thesis.ID + "/statistics", token: johnToken, wantCode: http.StatusNotFound},
	})

	// deleting a task keeps its sessions
	env.doJSON(http.MethodDelete, "/tasks/"+writing.ID, token, nil, http.StatusNoContent, nil)
	var sessions []session.FixedSession
	env.doJSON(http.MethodGet, "/sessions/fixed", token, nil, http.StatusOK, &sessions)
	assert.Len(t, sessions, 3)
}
