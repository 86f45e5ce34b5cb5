package session

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/category"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/tag"
)

// tag matching modes of QueryFilter.TagIDs
const (
	TagModeSome = "some"
	TagModeAll  = "all"
)

var OrderingFields = []string{"start_time", "end_time", "created_at"}

// FixedSession is a time interval the user spent on a category.
type FixedSession struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	Category        category.Category `json:"category"`
	Tags            []tag.Summary     `json:"tags"`
	StartTime       time.Time         `json:"start_time"` // UTC
	EndTime         time.Time         `json:"end_time"`   // UTC
	Description     string            `json:"description"`
	TaskID          *string           `json:"task_id"`
	DurationMinutes float64           `json:"duration_minutes"`
	CreatedAt       time.Time         `json:"created_at"` // UTC
	UpdatedAt       time.Time         `json:"updated_at"` // UTC
}

func (fs *FixedSession) SetDuration() {
	fs.DurationMinutes = core.Minutes(fs.StartTime, fs.EndTime)
}

func (fs FixedSession) TagIDs() []string {
	return tagIDs(fs.Tags)
}

// StopwatchSession is a running session; a user has at most one.
type StopwatchSession struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	StartTime   time.Time          `json:"start_time"` // UTC
	Category    *category.Category `json:"category"`
	Tags        []tag.Summary      `json:"tags"`
	Description string             `json:"description"`
	TaskID      *string            `json:"task_id"`
	CreatedAt   time.Time          `json:"created_at"` // UTC
}

func (sw StopwatchSession) TagIDs() []string {
	return tagIDs(sw.Tags)
}

func tagIDs(tags []tag.Summary) []string {
	ids := make([]string, 0, len(tags))
	for _, t := range tags {
		ids = append(ids, t.ID)
	}
	return ids
}

// NewFixedSession contains information needed to create a new FixedSession.
type NewFixedSession struct {
	CategoryID  string    `json:"category_id" validate:"required,uuid"`
	TagIDs      []string  `json:"tag_ids" validate:"omitempty,dive,uuid"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	Description string    `json:"description" validate:"max=500"`
	TaskID      string    `json:"task_id" validate:"omitempty,uuid"`
}

func (nfs *NewFixedSession) Validate(validate *validator.Validate) error {
	nfs.Description = core.CleanString(nfs.Description)
	nfs.StartTime = nfs.StartTime.UTC()
	nfs.EndTime = nfs.EndTime.UTC()
	return validate.Struct(nfs)
}

// UpdateFixedSession defines what may be changed on a FixedSession. nil fields are left unchanged.
// An empty TaskID clears the task.
type UpdateFixedSession struct {
	CategoryID  *string    `json:"category_id" validate:"omitempty,uuid"`
	TagIDs      []string   `json:"tag_ids" validate:"omitempty,dive,uuid"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Description *string    `json:"description" validate:"omitempty,max=500"`
	TaskID      *string    `json:"task_id" validate:"omitempty,uuid|len=0"`
}

func (ufs *UpdateFixedSession) Validate(validate *validator.Validate) error {
	if ufs.Description != nil {
		*ufs.Description = core.CleanString(*ufs.Description)
	}
	return validate.Struct(ufs)
}

// StartStopwatch contains information needed to start a StopwatchSession.
type StartStopwatch struct {
	StartTime   *time.Time `json:"start_time"` // defaults to now
	CategoryID  string     `json:"category_id" validate:"omitempty,uuid"`
	TagIDs      []string   `json:"tag_ids" validate:"omitempty,dive,uuid"`
	Description string     `json:"description" validate:"max=500"`
	TaskID      string     `json:"task_id" validate:"omitempty,uuid"`
}

func (ss *StartStopwatch) Validate(validate *validator.Validate) error {
	ss.Description = core.CleanString(ss.Description)
	return validate.Struct(ss)
}

// UpdateStopwatch defines what may be changed on the running StopwatchSession. nil fields are left unchanged.
// An empty CategoryID or TaskID clears the field.
type UpdateStopwatch struct {
	StartTime   *time.Time `json:"start_time"`
	CategoryID  *string    `json:"category_id" validate:"omitempty,uuid|len=0"`
	TagIDs      []string   `json:"tag_ids" validate:"omitempty,dive,uuid"`
	Description *string    `json:"description" validate:"omitempty,max=500"`
	TaskID      *string    `json:"task_id" validate:"omitempty,uuid|len=0"`
}

func (us *UpdateStopwatch) Validate(validate *validator.Validate) error {
	if us.Description != nil {
		*us.Description = core.CleanString(*us.Description)
	}
	return validate.Struct(us)
}

// FinishStopwatch turns the running StopwatchSession into a FixedSession.
type FinishStopwatch struct {
	EndTime *time.Time `json:"end_time"` // defaults to now
}

type QueryFilter struct {
	FromStartTime time.Time
	ToStartTime   time.Time
	FromEndTime   time.Time
	ToEndTime     time.Time
	CategoryIDs   []string
	TagIDs        []string
	TagMode       string // some (default) | all
	ProjectID     string
	TaskID        string
	Ordering      []core.DBOrdering
	Limit         int
	Offset        int
}

// Clean drops unknown orderings and defaults the tag mode and ordering.
func (qf *QueryFilter) Clean() {
	if qf.TagMode != TagModeAll {
		qf.TagMode = TagModeSome
	}
	qf.Ordering = core.FilterOrderings(qf.Ordering, OrderingFields...)
	if len(qf.Ordering) == 0 {
		qf.Ordering = []core.DBOrdering{{Field: "start_time", Ascending: false}}
	}
	if qf.Limit < 0 {
		qf.Limit = 0
	}
	if qf.Offset < 0 {
		qf.Offset = 0
	}
}

// FinishedEvent is published whenever a session is logged.
type FinishedEvent struct {
	UserID          string    `json:"user_id"`
	SessionID       string    `json:"session_id"`
	CategoryName    string    `json:"category_name"`
	CategoryColor   string    `json:"category_color"`
	Description     string    `json:"description"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes float64   `json:"duration_minutes"`
}

func newFinishedEvent(fs FixedSession) FinishedEvent {
	return FinishedEvent{
		UserID:          fs.UserID,
		SessionID:       fs.ID,
		CategoryName:    fs.Category.Name,
		CategoryColor:   fs.Category.Color,
		Description:     fs.Description,
		StartTime:       fs.StartTime,
		EndTime:         fs.EndTime,
		DurationMinutes: fs.DurationMinutes,
	}
}
