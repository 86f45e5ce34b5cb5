package feed

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/user"
)

type EventType string

const (
	EventSessionFinished  EventType = "session_finished"
	EventProjectCompleted EventType = "project_completed"
	EventTaskCompleted    EventType = "task_completed"
)

const (
	DefaultLimit = 20
	MaxLimit     = 50
)

// Event is an entry of the feed. Data is the payload of the domain event it comes from.
type Event struct {
	ID        string         `json:"id"`
	Source    user.Summary   `json:"source"`
	EventType EventType      `json:"event_type"`
	Data      types.JSONText `json:"data"`
	Reactions []Reactions    `json:"reactions"`
	CreatedAt time.Time      `json:"created_at"` // UTC
}

// Reactions counts the users who reacted to an Event with Emoji.
type Reactions struct {
	Emoji   string `json:"emoji"`
	Count   int    `json:"count"`
	Reacted bool   `json:"reacted"` // by the viewer
}

type Reaction struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type NewReaction struct {
	Emoji string `json:"emoji" validate:"required,emoji"`
}

func (nr NewReaction) Validate(validate *validator.Validate) error { return validate.Struct(nr) }

type QueryFilter struct {
	Cursor time.Time // only events created strictly before
	Limit  int
}

func (qf *QueryFilter) Clean() {
	if qf.Limit <= 0 {
		qf.Limit = DefaultLimit
	} else if qf.Limit > MaxLimit {
		qf.Limit = MaxLimit
	}
}

// ReactionAddedEvent is published when someone reacts to the feed event of another user.
type ReactionAddedEvent struct {
	EventID   string       `json:"event_id"`
	EventType EventType    `json:"event_type"`
	OwnerID   string       `json:"owner_id"`
	Reactor   user.Summary `json:"reactor"`
	Emoji     string       `json:"emoji"`
}
