package project

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
)

const DefaultColor = "#3b82f6"

var (
	// errors
	ErrNotFound     = core.NewNotFoundError("project")
	ErrTaskNotFound = core.NewNotFoundError("task")
	ErrNameExists   = errors.New("a project with this name already exists")
	ErrTaskExists   = errors.New("a task with this name already exists in the project")
)

type (
	Repository interface {
		CreateProject(ctx context.Context, p Project, exec ...core.DBExecutor) (Project, error)
		// QueryProjects returns the projects of the user, most recent first, with their task counts.
		QueryProjects(ctx context.Context, userID string, filter QueryFilter, exec ...core.DBExecutor) ([]Project, error)
		GetProject(ctx context.Context, userID, id string, exec ...core.DBExecutor) (Project, error)
		// GetProjectByName does a case-insensitive match on Project.Name.
		GetProjectByName(ctx context.Context, userID, name string, exec ...core.DBExecutor) (Project, error)
		UpdateProject(ctx context.Context, p Project, exec ...core.DBExecutor) (Project, error)
		// DeleteProject deletes the project and its tasks; sessions of the tasks are kept, task cleared.
		DeleteProject(ctx context.Context, userID, id string, exec ...core.DBExecutor) error

		CreateTask(ctx context.Context, t Task, exec ...core.DBExecutor) (Task, error)
		// QueryTasks returns the tasks of the project ordered by creation, with their total minutes.
		QueryTasks(ctx context.Context, userID, projectID string, filter QueryFilter, exec ...core.DBExecutor) ([]Task, error)
		GetTask(ctx context.Context, userID, id string, exec ...core.DBExecutor) (Task, error)
		// GetTaskByName does a case-insensitive match on Task.Name within the project.
		GetTaskByName(ctx context.Context, projectID, name string, exec ...core.DBExecutor) (Task, error)
		UpdateTask(ctx context.Context, t Task, exec ...core.DBExecutor) (Task, error)
		// DeleteTask deletes the task; its sessions are kept, task cleared.
		DeleteTask(ctx context.Context, userID, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo      Repository
		publisher core.EventPublisher
		logger    core.Logger
	}
)

func NewService(repo Repository, publisher core.EventPublisher, logger core.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, logger: logger}
}

func (svc *Service) checkUniqueName(ctx context.Context, userID, name, excludedID string) error {
	p, err := svc.repo.GetProjectByName(ctx, userID, name)
	switch {
	case err == nil:
		if p.ID == excludedID {
			return nil
		}
		return core.NewValidationError(ErrNameExists, core.FieldError{Field: "name", Error: ErrNameExists.Error()})
	case errors.Cause(err) == ErrNotFound:
		return nil
	default:
		return errors.Wrap(err, "finding project by name")
	}
}

func (svc *Service) checkUniqueTaskName(ctx context.Context, projectID, name, excludedID string) error {
	t, err := svc.repo.GetTaskByName(ctx, projectID, name)
	switch {
	case err == nil:
		if t.ID == excludedID {
			return nil
		}
		return core.NewValidationError(ErrTaskExists, core.FieldError{Field: "name", Error: ErrTaskExists.Error()})
	case errors.Cause(err) == ErrTaskNotFound:
		return nil
	default:
		return errors.Wrap(err, "finding task by name")
	}
}

// publish logs failures instead of failing the request: the change is already saved.
func (svc *Service) publish(ctx context.Context, topic string, evt CompletedEvent) {
	if err := svc.publisher.Publish(ctx, topic, evt); err != nil {
		svc.logger.Error("publishing "+topic, errors.Wrap(err, "publishing "+topic))
	}
}

func (svc *Service) Create(ctx context.Context, userID string, np NewProject) (Project, error) {
	if err := svc.checkUniqueName(ctx, userID, np.Name, ""); err != nil {
		return Project{}, err
	}
	color := np.Color
	if color == "" {
		color = DefaultColor
	}
	now := core.NowFunc()
	return svc.repo.CreateProject(ctx, Project{
		UserID:      userID,
		Name:        np.Name,
		Description: np.Description,
		Color:       color,
		ImageURL:    np.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) Query(ctx context.Context, userID string, filter QueryFilter) ([]Project, error) {
	return svc.repo.QueryProjects(ctx, userID, filter)
}

func (svc *Service) Get(ctx context.Context, userID, id string) (Project, error) {
	return svc.repo.GetProject(ctx, userID, id)
}

func (svc *Service) Update(ctx context.Context, p Project, up UpdateProject) (Project, error) {
	if up.Name != nil && *up.Name != p.Name {
		if err := svc.checkUniqueName(ctx, p.UserID, *up.Name, p.ID); err != nil {
			return Project{}, err
		}
		p.Name = *up.Name
	}
	if up.Description != nil {
		p.Description = *up.Description
	}
	if up.Color != nil && *up.Color != "" {
		p.Color = *up.Color
	}
	if up.ImageURL != nil {
		p.ImageURL = *up.ImageURL
	}
	completed := up.Completed != nil && *up.Completed && !p.Completed
	if up.Completed != nil {
		p.Completed = *up.Completed
	}
	p.UpdatedAt = core.NowFunc()

	p, err := svc.repo.UpdateProject(ctx, p)
	if err != nil {
		return Project{}, errors.Wrap(err, "updating project")
	}
	if completed {
		svc.publish(ctx, core.TopicProjectCompleted, CompletedEvent{
			UserID:      p.UserID,
			ProjectID:   p.ID,
			ProjectName: p.Name,
			CompletedAt: p.UpdatedAt,
		})
	}
	return p, nil
}

func (svc *Service) Delete(ctx context.Context, p Project) error {
	return svc.repo.DeleteProject(ctx, p.UserID, p.ID)
}

func (svc *Service) CreateTask(ctx context.Context, p Project, nt NewTask) (Task, error) {
	if err := svc.checkUniqueTaskName(ctx, p.ID, nt.Name, ""); err != nil {
		return Task{}, err
	}
	now := core.NowFunc()
	return svc.repo.CreateTask(ctx, Task{
		ProjectID:   p.ID,
		UserID:      p.UserID,
		Name:        nt.Name,
		Description: nt.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) QueryTasks(ctx context.Context, p Project, filter QueryFilter) ([]Task, error) {
	return svc.repo.QueryTasks(ctx, p.UserID, p.ID, filter)
}

func (svc *Service) GetTask(ctx context.Context, userID, id string) (Task, error) {
	return svc.repo.GetTask(ctx, userID, id)
}

func (svc *Service) UpdateTask(ctx context.Context, t Task, ut UpdateTask) (Task, error) {
	if ut.Name != nil && *ut.Name != t.Name {
		if err := svc.checkUniqueTaskName(ctx, t.ProjectID, *ut.Name, t.ID); err != nil {
			return Task{}, err
		}
		t.Name = *ut.Name
	}
	if ut.Description != nil {
		t.Description = *ut.Description
	}
	completed := ut.Completed != nil && *ut.Completed && !t.Completed
	if ut.Completed != nil {
		t.Completed = *ut.Completed
	}
	t.UpdatedAt = core.NowFunc()

	t, err := svc.repo.UpdateTask(ctx, t)
	if err != nil {
		return Task{}, errors.Wrap(err, "updating task")
	}
	if completed {
		p, err := svc.repo.GetProject(ctx, t.UserID, t.ProjectID)
		if err != nil {
			return Task{}, errors.Wrap(err, "finding task project")
		}
		svc.publish(ctx, core.TopicTaskCompleted, CompletedEvent{
			UserID:      t.UserID,
			ProjectID:   p.ID,
			ProjectName: p.Name,
			TaskID:      t.ID,
			TaskName:    t.Name,
			CompletedAt: t.UpdatedAt,
		})
	}
	return t, nil
}

func (svc *Service) DeleteTask(ctx context.Context, t Task) error {
	return svc.repo.DeleteTask(ctx, t.UserID, t.ID)
}
