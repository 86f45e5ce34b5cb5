package feed

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/friend"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/user"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("feed event")
	ErrReactionNotFound = core.NewNotFoundError("reaction")
)

type (
	Repository interface {
		CreateEvent(ctx context.Context, e Event, exec ...core.DBExecutor) (Event, error)
		// QueryEvents returns the events of sourceIDs, most recent first.
		// Reactions.Reacted is computed for viewerID.
		QueryEvents(ctx context.Context, viewerID string, sourceIDs []string, filter QueryFilter, exec ...core.DBExecutor) ([]Event, error)
		GetEvent(ctx context.Context, viewerID, id string, exec ...core.DBExecutor) (Event, error)
		// AddReaction does nothing and returns false when the user already reacted with the emoji.
		AddReaction(ctx context.Context, r Reaction, exec ...core.DBExecutor) (bool, error)
		RemoveReaction(ctx context.Context, eventID, userID, emoji string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo       Repository
		usrRepo    user.Repository
		friendRepo friend.Repository
		publisher  core.EventPublisher
		logger     core.Logger
	}
)

func NewService(
	repo Repository,
	usrRepo user.Repository,
	friendRepo friend.Repository,
	publisher core.EventPublisher,
	logger core.Logger,
) *Service {
	return &Service{
		repo:       repo,
		usrRepo:    usrRepo,
		friendRepo: friendRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// visibleSources returns the viewer and the friends sharing their feed with them.
func (svc *Service) visibleSources(ctx context.Context, viewer user.User) ([]string, error) {
	friends, err := svc.friendRepo.QueryFriends(ctx, viewer.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying friends")
	}
	sources := []string{viewer.ID}
	if len(friends) == 0 {
		return sources, nil
	}

	ids := make([]string, 0, len(friends))
	for _, f := range friends {
		ids = append(ids, f.User.ID)
	}
	users, err := svc.usrRepo.GetUsersByID(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "finding friends")
	}
	for _, u := range users {
		if u.Visibility != user.VisibilityPrivate {
			sources = append(sources, u.ID)
		}
	}
	return sources, nil
}

func (svc *Service) Feed(ctx context.Context, viewer user.User, filter QueryFilter) ([]Event, error) {
	filter.Clean()
	sources, err := svc.visibleSources(ctx, viewer)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryEvents(ctx, viewer.ID, sources, filter)
}

// Get returns the event when the viewer may see it, ErrNotFound otherwise.
func (svc *Service) Get(ctx context.Context, viewer user.User, id string) (Event, error) {
	evt, err := svc.repo.GetEvent(ctx, viewer.ID, id)
	if err != nil {
		return Event{}, err
	}
	sources, err := svc.visibleSources(ctx, viewer)
	if err != nil {
		return Event{}, err
	}
	for _, src := range sources {
		if src == evt.Source.ID {
			return evt, nil
		}
	}
	return Event{}, ErrNotFound
}

func (svc *Service) React(ctx context.Context, viewer user.User, id string, nr NewReaction) (Event, error) {
	evt, err := svc.Get(ctx, viewer, id)
	if err != nil {
		return Event{}, err
	}
	created, err := svc.repo.AddReaction(ctx, Reaction{
		EventID:   evt.ID,
		UserID:    viewer.ID,
		Emoji:     nr.Emoji,
		CreatedAt: core.NowFunc(),
	})
	if err != nil {
		return Event{}, errors.Wrap(err, "adding reaction")
	}

	if created && evt.Source.ID != viewer.ID {
		payload := ReactionAddedEvent{
			EventID:   evt.ID,
			EventType: evt.EventType,
			OwnerID:   evt.Source.ID,
			Reactor:   viewer.Summary(),
			Emoji:     nr.Emoji,
		}
		if err = svc.publisher.Publish(ctx, core.TopicReactionAdded, payload); err != nil {
			svc.logger.Error("publishing "+core.TopicReactionAdded, errors.Wrap(err, "publishing reaction added"))
		}
	}
	return svc.repo.GetEvent(ctx, viewer.ID, evt.ID)
}

func (svc *Service) Unreact(ctx context.Context, viewer user.User, id, emoji string) (Event, error) {
	evt, err := svc.Get(ctx, viewer, id)
	if err != nil {
		return Event{}, err
	}
	if err = svc.repo.RemoveReaction(ctx, evt.ID, viewer.ID, emoji); err != nil {
		return Event{}, err
	}
	return svc.repo.GetEvent(ctx, viewer.ID, evt.ID)
}
