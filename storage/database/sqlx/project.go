package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/project"
)

var (
	projectColumns = []string{
		"p.id", "p.user_id", "p.name", "p.description", "p.color", "p.image_url", "p.completed", "p.created_at", "p.updated_at",
		"(SELECT COUNT(*) FROM task t WHERE t.project_id = p.id) AS task_count",
		"(SELECT COUNT(*) FROM task t WHERE t.project_id = p.id AND t.completed) AS completed_task_count",
	}
	taskColumns = []string{
		"t.id", "t.project_id", "t.user_id", "t.name", "t.description", "t.completed", "t.created_at", "t.updated_at",
		"(SELECT COALESCE(SUM(EXTRACT(EPOCH FROM (fs.end_time - fs.start_time))), 0) / 60 FROM fixed_session fs WHERE fs.task_id = t.id) AS total_minutes",
	}
)

type projectRow struct {
	ID                 string    `db:"id"`
	UserID             string    `db:"user_id"`
	Name               string    `db:"name"`
	Description        string    `db:"description"`
	Color              string    `db:"color"`
	ImageURL           string    `db:"image_url"`
	Completed          bool      `db:"completed"`
	TaskCount          int       `db:"task_count"`
	CompletedTaskCount int       `db:"completed_task_count"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func (r projectRow) toProject() project.Project {
	return project.Project{
		ID:                 r.ID,
		UserID:             r.UserID,
		Name:               r.Name,
		Description:        r.Description,
		Color:              r.Color,
		ImageURL:           r.ImageURL,
		Completed:          r.Completed,
		TaskCount:          r.TaskCount,
		CompletedTaskCount: r.CompletedTaskCount,
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
}

type taskRow struct {
	ID           string    `db:"id"`
	ProjectID    string    `db:"project_id"`
	UserID       string    `db:"user_id"`
	Name         string    `db:"name"`
	Description  string    `db:"description"`
	Completed    bool      `db:"completed"`
	TotalMinutes float64   `db:"total_minutes"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r taskRow) toTask() project.Task {
	return project.Task{
		ID:           r.ID,
		ProjectID:    r.ProjectID,
		UserID:       r.UserID,
		Name:         r.Name,
		Description:  r.Description,
		Completed:    r.Completed,
		TotalMinutes: r.TotalMinutes,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type projectRepository struct {
	db core.DBExecutor
}

var _ project.Repository = (*projectRepository)(nil)

func NewProjectRepository(db core.DBExecutor) *projectRepository {
	return &projectRepository{db: db}
}

func (repo projectRepository) queryProjects(ctx context.Context, exec core.DBExecutor, conds ...sq.Sqlizer) ([]project.Project, error) {
	query := psql.Select(projectColumns...).From("project p").OrderBy("p.created_at DESC")
	for _, cond := range conds {
		query = query.Where(cond)
	}
	var rows []projectRow
	if err := selectContext(ctx, exec, &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying projects")
	}
	projects := make([]project.Project, 0, len(rows))
	for _, r := range rows {
		projects = append(projects, r.toProject())
	}
	return projects, nil
}

func (repo projectRepository) getProject(ctx context.Context, exec core.DBExecutor, conds ...sq.Sqlizer) (project.Project, error) {
	projects, err := repo.queryProjects(ctx, exec, conds...)
	if err != nil {
		return project.Project{}, err
	}
	if len(projects) == 0 {
		return project.Project{}, project.ErrNotFound
	}
	return projects[0], nil
}

func (repo projectRepository) CreateProject(ctx context.Context, p project.Project, exec ...core.DBExecutor) (project.Project, error) {
	p.ID = uuid.New().String()
	query := psql.Insert("project").
		Columns("id", "user_id", "name", "description", "color", "image_url", "completed", "created_at", "updated_at").
		Values(p.ID, p.UserID, p.Name, p.Description, p.Color, p.ImageURL, p.Completed, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if _, err := execContext(ctx, core.GetExec(repo.db, exec), query); err != nil {
		if isUniqueViolation(err) {
			return project.Project{}, core.NewValidationError(project.ErrNameExists, core.FieldError{Field: "name", Error: project.ErrNameExists.Error()})
		}
		return project.Project{}, errors.Wrap(err, "inserting project")
	}
	return p, nil
}

func (repo projectRepository) QueryProjects(ctx context.Context, userID string, filter project.QueryFilter, exec ...core.DBExecutor) ([]project.Project, error) {
	if !isUUID(userID) {
		return []project.Project{}, nil
	}
	conds := []sq.Sqlizer{sq.Eq{"p.user_id": userID}}
	if filter.Completed != nil {
		conds = append(conds, sq.Eq{"p.completed": *filter.Completed})
	}
	return repo.queryProjects(ctx, core.GetExec(repo.db, exec), conds...)
}

func (repo projectRepository) GetProject(ctx context.Context, userID, id string, exec ...core.DBExecutor) (project.Project, error) {
	if !isUUID(userID, id) {
		return project.Project{}, project.ErrNotFound
	}
	return repo.getProject(ctx, core.GetExec(repo.db, exec), sq.Eq{"p.user_id": userID, "p.id": id})
}

func (repo projectRepository) GetProjectByName(ctx context.Context, userID, name string, exec ...core.DBExecutor) (project.Project, error) {
	if !isUUID(userID) {
		return project.Project{}, project.ErrNotFound
	}
	return repo.getProject(ctx, core.GetExec(repo.db, exec), sq.Eq{"p.user_id": userID}, sq.Expr("lower(p.name) = lower(?)", name))
}

func (repo projectRepository) UpdateProject(ctx context.Context, p project.Project, exec ...core.DBExecutor) (project.Project, error) {
	exe := core.GetExec(repo.db, exec)
	query := psql.Update("project").SetMap(map[string]interface{}{
		"name":        p.Name,
		"description": p.Description,
		"color":       p.Color,
		"image_url":   p.ImageURL,
		"completed":   p.Completed,
		"updated_at":  p.UpdatedAt.UTC(),
	}).Where(sq.Eq{"id": p.ID, "user_id": p.UserID})
	cnt, err := execContext(ctx, exe, query)
	if err != nil {
		if isUniqueViolation(err) {
			return project.Project{}, core.NewValidationError(project.ErrNameExists, core.FieldError{Field: "name", Error: project.ErrNameExists.Error()})
		}
		return project.Project{}, errors.Wrap(err, "updating project")
	}
	if cnt == 0 {
		return project.Project{}, project.ErrNotFound
	}
	return repo.GetProject(ctx, p.UserID, p.ID, exe)
}

func (repo projectRepository) DeleteProject(ctx context.Context, userID, id string, exec ...core.DBExecutor) error {
	if !isUUID(userID, id) {
		return project.ErrNotFound
	}
	cnt, err := execContext(ctx, core.GetExec(repo.db, exec), psql.Delete("project").Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		return errors.Wrap(err, "deleting project")
	}
	if cnt == 0 {
		return project.ErrNotFound
	}
	return nil
}

func (repo projectRepository) queryTasks(ctx context.Context, exec core.DBExecutor, conds ...sq.Sqlizer) ([]project.Task, error) {
	query := psql.Select(taskColumns...).From("task t").OrderBy("t.created_at ASC")
	for _, cond := range conds {
		query = query.Where(cond)
	}
	var rows []taskRow
	if err := selectContext(ctx, exec, &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	tasks := make([]project.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.toTask())
	}
	return tasks, nil
}

func (repo projectRepository) getTask(ctx context.Context, exec core.DBExecutor, conds ...sq.Sqlizer) (project.Task, error) {
	tasks, err := repo.queryTasks(ctx, exec, conds...)
	if err != nil {
		return project.Task{}, err
	}
	if len(tasks) == 0 {
		return project.Task{}, project.ErrTaskNotFound
	}
	return tasks[0], nil
}

func (repo projectRepository) CreateTask(ctx context.Context, t project.Task, exec ...core.DBExecutor) (project.Task, error) {
	t.ID = uuid.New().String()
	query := psql.Insert("task").
		Columns("id", "project_id", "user_id", "name", "description", "completed", "created_at", "updated_at").
		Values(t.ID, t.ProjectID, t.UserID, t.Name, t.Description, t.Completed, t.CreatedAt.UTC(), t.UpdatedAt.UTC())
	if _, err := execContext(ctx, core.GetExec(repo.db, exec), query); err != nil {
		if isUniqueViolation(err) {
			return project.Task{}, core.NewValidationError(project.ErrTaskExists, core.FieldError{Field: "name", Error: project.ErrTaskExists.Error()})
		}
		if isForeignKeyViolation(err) {
			return project.Task{}, project.ErrNotFound
		}
		return project.Task{}, errors.Wrap(err, "inserting task")
	}
	return t, nil
}

func (repo projectRepository) QueryTasks(ctx context.Context, userID, projectID string, filter project.QueryFilter, exec ...core.DBExecutor) ([]project.Task, error) {
	if !isUUID(userID, projectID) {
		return []project.Task{}, nil
	}
	conds := []sq.Sqlizer{sq.Eq{"t.user_id": userID, "t.project_id": projectID}}
	if filter.Completed != nil {
		conds = append(conds, sq.Eq{"t.completed": *filter.Completed})
	}
	return repo.queryTasks(ctx, core.GetExec(repo.db, exec), conds...)
}

func (repo projectRepository) GetTask(ctx context.Context, userID, id string, exec ...core.DBExecutor) (project.Task, error) {
	if !isUUID(userID, id) {
		return project.Task{}, project.ErrTaskNotFound
	}
	return repo.getTask(ctx, core.GetExec(repo.db, exec), sq.Eq{"t.user_id": userID, "t.id": id})
}

func (repo projectRepository) GetTaskByName(ctx context.Context, projectID, name string, exec ...core.DBExecutor) (project.Task, error) {
	if !isUUID(projectID) {
		return project.Task{}, project.ErrTaskNotFound
	}
	return repo.getTask(ctx, core.GetExec(repo.db, exec), sq.Eq{"t.project_id": projectID}, sq.Expr("lower(t.name) = lower(?)", name))
}

func (repo projectRepository) UpdateTask(ctx context.Context, t project.Task, exec ...core.DBExecutor) (project.Task, error) {
	exe := core.GetExec(repo.db, exec)
	query := psql.Update("task").SetMap(map[string]interface{}{
		"name":        t.Name,
		"description": t.Description,
		"completed":   t.Completed,
		"updated_at":  t.UpdatedAt.UTC(),
	}).Where(sq.Eq{"id": t.ID, "user_id": t.UserID})
	cnt, err := execContext(ctx, exe, query)
	if err != nil {
		if isUniqueViolation(err) {
			return project.Task{}, core.NewValidationError(project.ErrTaskExists, core.FieldError{Field: "name", Error: project.ErrTaskExists.Error()})
		}
		return project.Task{}, errors.Wrap(err, "updating task")
	}
	if cnt == 0 {
		return project.Task{}, project.ErrTaskNotFound
	}
	return repo.GetTask(ctx, t.UserID, t.ID, exe)
}

func (repo projectRepository) DeleteTask(ctx context.Context, userID, id string, exec ...core.DBExecutor) error {
	if !isUUID(userID, id) {
		return project.ErrTaskNotFound
	}
	cnt, err := execContext(ctx, core.GetExec(repo.db, exec), psql.Delete("task").Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		return errors.Wrap(err, "deleting task")
	}
	if cnt == 0 {
		return project.ErrTaskNotFound
	}
	return nil
}
