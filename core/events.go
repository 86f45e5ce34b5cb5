package core

import "context"

// domain event topics
const (
	TopicSessionFinished       = "session.finished"
	TopicProjectCompleted      = "project.completed"
	TopicTaskCompleted         = "task.completed"
	TopicFriendRequestCreated  = "friend.request_created"
	TopicFriendRequestAccepted = "friend.request_accepted"
	TopicReactionAdded         = "feed.reaction_added"
)

// EventPublisher publishes domain events. The payload is JSON encoded.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
