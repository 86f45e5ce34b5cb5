package project

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
)

type Project struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	Color              string    `json:"color"`
	ImageURL           string    `json:"image_url"`
	Completed          bool      `json:"completed"`
	TaskCount          int       `json:"task_count"`
	CompletedTaskCount int       `json:"completed_task_count"`
	CreatedAt          time.Time `json:"created_at"` // UTC
	UpdatedAt          time.Time `json:"updated_at"` // UTC
}

type Task struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Completed    bool      `json:"completed"`
	TotalMinutes float64   `json:"total_minutes"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// NewProject contains information needed to create a new Project.
type NewProject struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	Description string `json:"description" validate:"max=1000"`
	Color       string `json:"color" validate:"omitempty,hexcolor_"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
}

func (np *NewProject) Validate(validate *validator.Validate) error {
	np.Name = core.CleanString(np.Name)
	np.Description = core.CleanString(np.Description)
	np.Color = core.CleanString(np.Color, true /* lower */)
	np.ImageURL = core.CleanString(np.ImageURL)
	return validate.Struct(np)
}

// UpdateProject defines what may be changed on a Project. nil fields are left unchanged.
type UpdateProject struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Color       *string `json:"color" validate:"omitempty,hexcolor_"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url|len=0"`
	Completed   *bool   `json:"completed"`
}

func (up *UpdateProject) Validate(validate *validator.Validate) error {
	cleanPtr(up.Name)
	cleanPtr(up.Description)
	cleanPtr(up.ImageURL)
	if up.Color != nil {
		*up.Color = core.CleanString(*up.Color, true /* lower */)
	}
	return validate.Struct(up)
}

// NewTask contains information needed to create a new Task.
type NewTask struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

func (nt *NewTask) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	nt.Description = core.CleanString(nt.Description)
	return validate.Struct(nt)
}

// UpdateTask defines what may be changed on a Task. nil fields are left unchanged.
type UpdateTask struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Completed   *bool   `json:"completed"`
}

func (ut *UpdateTask) Validate(validate *validator.Validate) error {
	cleanPtr(ut.Name)
	cleanPtr(ut.Description)
	return validate.Struct(ut)
}

type QueryFilter struct {
	Completed *bool `query:"completed"`
}

// CompletedEvent is published when a project or a task gets completed.
type CompletedEvent struct {
	UserID      string    `json:"user_id"`
	ProjectID   string    `json:"project_id"`
	ProjectName string    `json:"project_name"`
	TaskID      string    `json:"task_id,omitempty"`
	TaskName    string    `json:"task_name,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

func cleanPtr(s *string) {
	if s != nil {
		*s = core.CleanString(*s)
	}
}
