package feed

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/user"
)

// eventOwner is the part every feed worthy domain event shares.
type eventOwner struct {
	UserID string `json:"user_id"`
}

// Handlers returns the domain event handlers feeding the feed, by topic.
func (svc *Service) Handlers() map[string]func(ctx context.Context, payload []byte) error {
	return map[string]func(ctx context.Context, payload []byte) error{
		core.TopicSessionFinished:  svc.handlerFor(EventSessionFinished),
		core.TopicProjectCompleted: svc.handlerFor(EventProjectCompleted),
		core.TopicTaskCompleted:    svc.handlerFor(EventTaskCompleted),
	}
}

func (svc *Service) handlerFor(typ EventType) func(ctx context.Context, payload []byte) error {
	return func(ctx context.Context, payload []byte) error {
		_, err := svc.Record(ctx, typ, payload)
		return err
	}
}

// Record stores a feed event out of a domain event payload.
func (svc *Service) Record(ctx context.Context, typ EventType, payload []byte) (Event, error) {
	var owner eventOwner
	if err := json.Unmarshal(payload, &owner); err != nil {
		return Event{}, errors.Wrap(err, "decoding "+string(typ)+" payload")
	}
	usr, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: owner.UserID})
	if err != nil {
		return Event{}, errors.Wrap(err, "finding event source")
	}

	evt, err := svc.repo.CreateEvent(ctx, Event{
		Source:    usr.Summary(),
		EventType: typ,
		Data:      payload,
		CreatedAt: core.NowFunc(),
	})
	return evt, errors.Wrap(err, "creating feed event")
}
