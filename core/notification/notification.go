package notification

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/feed"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/friend"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/user"
)

type Type string

const (
	TypeFriendNewRequest      Type = "friend:new_request"
	TypeFriendRequestAccepted Type = "friend:request_accepted"
	TypeFeedNewReaction       Type = "feed:new_reaction"
	TypeSystem                Type = "system"
)

const (
	DefaultLimit = 20
	MaxLimit     = 50
)

// ErrNotFound is returned when the notification does not exist or belongs to someone else.
var ErrNotFound = core.NewNotFoundError("notification")

type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      Type           `json:"type"`
	Data      types.JSONText `json:"data"`
	Seen      bool           `json:"seen"`
	CreatedAt time.Time      `json:"created_at"` // UTC
}

type QueryFilter struct {
	Seen   *bool
	Cursor time.Time // only notifications created strictly before
	Limit  int
}

func (qf *QueryFilter) Clean() {
	if qf.Limit <= 0 {
		qf.Limit = DefaultLimit
	} else if qf.Limit > MaxLimit {
		qf.Limit = MaxLimit
	}
}

// MarkSeen lists the notifications to mark as seen; none means all of them.
type MarkSeen struct {
	IDs []string `json:"ids" validate:"omitempty,dive,uuid"`
}

func (ms MarkSeen) Validate(validate *validator.Validate) error { return validate.Struct(ms) }

type UnseenCount struct {
	Count int `json:"count"`
}

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification, exec ...core.DBExecutor) (Notification, error)
		// QueryNotifications returns the notifications of userID, most recent first.
		QueryNotifications(ctx context.Context, userID string, filter QueryFilter, exec ...core.DBExecutor) ([]Notification, error)
		CountUnseen(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error)
		// MarkSeen marks the notifications of userID having ids (all of them if empty) as seen.
		MarkSeen(ctx context.Context, userID string, ids []string, exec ...core.DBExecutor) (int, error)
		DeleteNotification(ctx context.Context, userID, id string, exec ...core.DBExecutor) error
	}

	// Pusher delivers a notification to the live connections of its user.
	Pusher interface {
		Push(userID string, n Notification)
	}

	Service struct {
		repo   Repository
		pusher Pusher
		logger core.Logger
	}
)

func NewService(repo Repository, pusher Pusher, logger core.Logger) *Service {
	return &Service{repo: repo, pusher: pusher, logger: logger}
}

// Notify stores a notification for userID and pushes it to their live connections.
func (svc *Service) Notify(ctx context.Context, userID string, typ Type, data interface{}) (Notification, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Notification{}, errors.Wrap(err, "encoding notification data")
	}
	n, err := svc.repo.CreateNotification(ctx, Notification{
		UserID:    userID,
		Type:      typ,
		Data:      raw,
		CreatedAt: core.NowFunc(),
	})
	if err != nil {
		return Notification{}, errors.Wrap(err, "creating notification")
	}
	if svc.pusher != nil {
		svc.pusher.Push(userID, n)
	}
	return n, nil
}

func (svc *Service) Query(ctx context.Context, userID string, filter QueryFilter) ([]Notification, error) {
	filter.Clean()
	return svc.repo.QueryNotifications(ctx, userID, filter)
}

func (svc *Service) UnseenCount(ctx context.Context, userID string) (UnseenCount, error) {
	cnt, err := svc.repo.CountUnseen(ctx, userID)
	if err != nil {
		return UnseenCount{}, errors.Wrap(err, "counting unseen notifications")
	}
	return UnseenCount{Count: cnt}, nil
}

func (svc *Service) MarkSeen(ctx context.Context, userID string, ms MarkSeen) (int, error) {
	return svc.repo.MarkSeen(ctx, userID, ms.IDs)
}

func (svc *Service) Delete(ctx context.Context, userID, id string) error {
	return svc.repo.DeleteNotification(ctx, userID, id)
}

// Handlers returns the domain event handlers producing notifications, by topic.
func (svc *Service) Handlers() map[string]func(ctx context.Context, payload []byte) error {
	return map[string]func(ctx context.Context, payload []byte) error{
		core.TopicFriendRequestCreated:  svc.onFriendRequestCreated,
		core.TopicFriendRequestAccepted: svc.onFriendRequestAccepted,
		core.TopicReactionAdded:         svc.onReactionAdded,
	}
}

func (svc *Service) onFriendRequestCreated(ctx context.Context, payload []byte) error {
	var evt friend.RequestCreatedEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return errors.Wrap(err, "decoding friend request created")
	}
	_, err := svc.Notify(ctx, evt.RecipientID, TypeFriendNewRequest, struct {
		RequestID           string       `json:"request_id"`
		Requestor           user.Summary `json:"requestor"`
		IntroductionMessage string       `json:"introduction_message"`
	}{evt.RequestID, evt.Requestor, evt.IntroductionMessage})
	return err
}

func (svc *Service) onFriendRequestAccepted(ctx context.Context, payload []byte) error {
	var evt friend.RequestAcceptedEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return errors.Wrap(err, "decoding friend request accepted")
	}
	_, err := svc.Notify(ctx, evt.RequestorID, TypeFriendRequestAccepted, struct {
		RequestID string       `json:"request_id"`
		Friend    user.Summary `json:"friend"`
	}{evt.RequestID, evt.Recipient})
	return err
}

func (svc *Service) onReactionAdded(ctx context.Context, payload []byte) error {
	var evt feed.ReactionAddedEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return errors.Wrap(err, "decoding reaction added")
	}
	_, err := svc.Notify(ctx, evt.OwnerID, TypeFeedNewReaction, struct {
		EventID   string         `json:"event_id"`
		EventType feed.EventType `json:"event_type"`
		Reactor   user.Summary   `json:"reactor"`
		Emoji     string         `json:"emoji"`
	}{evt.EventID, evt.EventType, evt.Reactor, evt.Emoji})
	return err
}
