package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/project"
)

type projectRepository struct {
	db *DB
}

var _ project.Repository = (*projectRepository)(nil)

func NewProjectRepository(db *DB) *projectRepository {
	return &projectRepository{db: db}
}

func (db *DB) hydrateProject(p project.Project) project.Project {
	p.TaskCount, p.CompletedTaskCount = 0, 0
	for _, t := range db.tasks {
		if t.ProjectID != p.ID {
			continue
		}
		p.TaskCount++
		if t.Completed {
			p.CompletedTaskCount++
		}
	}
	return p
}

func (db *DB) hydrateTask(t project.Task) project.Task {
	t.TotalMinutes = 0
	for _, fs := range db.fixed {
		if fs.TaskID != nil && *fs.TaskID == t.ID {
			t.TotalMinutes += core.Minutes(fs.StartTime, fs.EndTime)
		}
	}
	return t
}

// clearTask detaches the sessions from the task, like ON DELETE SET NULL.
func (db *DB) clearTask(taskID string) {
	for id, fs := range db.fixed {
		if fs.TaskID != nil && *fs.TaskID == taskID {
			fs.TaskID = nil
			db.fixed[id] = fs
		}
	}
	for usrID, sw := range db.stopwatches {
		if sw.TaskID != nil && *sw.TaskID == taskID {
			sw.TaskID = nil
			db.stopwatches[usrID] = sw
		}
	}
}

func (repo *projectRepository) projectNameTaken(userID, name, excludedID string) bool {
	for _, p := range repo.db.projects {
		if p.UserID == userID && p.ID != excludedID && strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

func (repo *projectRepository) taskNameTaken(projectID, name, excludedID string) bool {
	for _, t := range repo.db.tasks {
		if t.ProjectID == projectID && t.ID != excludedID && strings.EqualFold(t.Name, name) {
			return true
		}
	}
	return false
}

func (repo *projectRepository) queryProjects(match func(p project.Project) bool) []project.Project {
	projects := make([]project.Project, 0)
	for _, p := range repo.db.projects {
		if match(p) {
			projects = append(projects, repo.db.hydrateProject(p))
		}
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].CreatedAt.After(projects[j].CreatedAt) })
	return projects
}

func (repo *projectRepository) CreateProject(_ context.Context, p project.Project, _ ...core.DBExecutor) (project.Project, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.projectNameTaken(p.UserID, p.Name, "") {
		return project.Project{}, core.NewValidationError(project.ErrNameExists, core.FieldError{Field: "name", Error: project.ErrNameExists.Error()})
	}
	p.ID = newID()
	repo.db.projects[p.ID] = p
	return repo.db.hydrateProject(p), nil
}

func (repo *projectRepository) QueryProjects(_ context.Context, userID string, filter project.QueryFilter, _ ...core.DBExecutor) ([]project.Project, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.queryProjects(func(p project.Project) bool {
		return p.UserID == userID && (filter.Completed == nil || p.Completed == *filter.Completed)
	}), nil
}

func (repo *projectRepository) GetProject(_ context.Context, userID, id string, _ ...core.DBExecutor) (project.Project, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if p, ok := repo.db.projects[id]; ok && p.UserID == userID {
		return repo.db.hydrateProject(p), nil
	}
	return project.Project{}, project.ErrNotFound
}

func (repo *projectRepository) GetProjectByName(_ context.Context, userID, name string, _ ...core.DBExecutor) (project.Project, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	projects := repo.queryProjects(func(p project.Project) bool { return p.UserID == userID && strings.EqualFold(p.Name, name) })
	if len(projects) == 0 {
		return project.Project{}, project.ErrNotFound
	}
	return projects[0], nil
}

func (repo *projectRepository) UpdateProject(_ context.Context, p project.Project, _ ...core.DBExecutor) (project.Project, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.projects[p.ID]
	if !ok || orig.UserID != p.UserID {
		return project.Project{}, project.ErrNotFound
	}
	if repo.projectNameTaken(p.UserID, p.Name, p.ID) {
		return project.Project{}, core.NewValidationError(project.ErrNameExists, core.FieldError{Field: "name", Error: project.ErrNameExists.Error()})
	}
	orig.Name = p.Name
	orig.Description = p.Description
	orig.Color = p.Color
	orig.ImageURL = p.ImageURL
	orig.Completed = p.Completed
	orig.UpdatedAt = p.UpdatedAt
	repo.db.projects[p.ID] = orig
	return repo.db.hydrateProject(orig), nil
}

func (repo *projectRepository) DeleteProject(_ context.Context, userID, id string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if p, ok := repo.db.projects[id]; !ok || p.UserID != userID {
		return project.ErrNotFound
	}
	delete(repo.db.projects, id)
	for taskID, t := range repo.db.tasks {
		if t.ProjectID == id {
			delete(repo.db.tasks, taskID)
			repo.db.clearTask(taskID)
		}
	}
	return nil
}

func (repo *projectRepository) queryTasks(match func(t project.Task) bool) []project.Task {
	tasks := make([]project.Task, 0)
	for _, t := range repo.db.tasks {
		if match(t) {
			tasks = append(tasks, repo.db.hydrateTask(t))
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })
	return tasks
}

func (repo *projectRepository) CreateTask(_ context.Context, t project.Task, _ ...core.DBExecutor) (project.Task, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.projects[t.ProjectID]; !ok {
		return project.Task{}, project.ErrNotFound
	}
	if repo.taskNameTaken(t.ProjectID, t.Name, "") {
		return project.Task{}, core.NewValidationError(project.ErrTaskExists, core.FieldError{Field: "name", Error: project.ErrTaskExists.Error()})
	}
	t.ID = newID()
	repo.db.tasks[t.ID] = t
	return repo.db.hydrateTask(t), nil
}

func (repo *projectRepository) QueryTasks(_ context.Context, userID, projectID string, filter project.QueryFilter, _ ...core.DBExecutor) ([]project.Task, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.queryTasks(func(t project.Task) bool {
		return t.UserID == userID && t.ProjectID == projectID && (filter.Completed == nil || t.Completed == *filter.Completed)
	}), nil
}

func (repo *projectRepository) GetTask(_ context.Context, userID, id string, _ ...core.DBExecutor) (project.Task, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if t, ok := repo.db.tasks[id]; ok && t.UserID == userID {
		return repo.db.hydrateTask(t), nil
	}
	return project.Task{}, project.ErrTaskNotFound
}

func (repo *projectRepository) GetTaskByName(_ context.Context, projectID, name string, _ ...core.DBExecutor) (project.Task, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	tasks := repo.queryTasks(func(t project.Task) bool { return t.ProjectID == projectID && strings.EqualFold(t.Name, name) })
	if len(tasks) == 0 {
		return project.Task{}, project.ErrTaskNotFound
	}
	return tasks[0], nil
}

func (repo *projectRepository) UpdateTask(_ context.Context, t project.Task, _ ...core.DBExecutor) (project.Task, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.tasks[t.ID]
	if !ok || orig.UserID != t.UserID {
		return project.Task{}, project.ErrTaskNotFound
	}
	if repo.taskNameTaken(orig.ProjectID, t.Name, t.ID) {
		return project.Task{}, core.NewValidationError(project.ErrTaskExists, core.FieldError{Field: "name", Error: project.ErrTaskExists.Error()})
	}
	orig.Name = t.Name
	orig.Description = t.Description
	orig.Completed = t.Completed
	orig.UpdatedAt = t.UpdatedAt
	repo.db.tasks[t.ID] = orig
	return repo.db.hydrateTask(orig), nil
}

func (repo *projectRepository) DeleteTask(_ context.Context, userID, id string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if t, ok := repo.db.tasks[id]; !ok || t.UserID != userID {
		return project.ErrTaskNotFound
	}
	delete(repo.db.tasks, id)
	repo.db.clearTask(id)
	return nil
}
