package friend

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/user"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("friend")
	ErrRequestNotFound = core.NewNotFoundError("friend request")
	ErrAlreadyFriends  = core.NewConflictError("you are already friends")
	ErrPendingRequest  = core.NewConflictError("a pending friend request already exists between you")
	ErrNotPending      = core.NewConflictError("the friend request was already answered")

	errSelfRequest       = errors.New("you cannot send a friend request to yourself")
	errRecipientNotFound = errors.New("user not found")
)

type (
	Repository interface {
		CreateRequest(ctx context.Context, r Request, exec ...core.DBExecutor) (Request, error)
		// QueryRequests returns the requests userID takes part in, most recent first.
		QueryRequests(ctx context.Context, userID string, filter QueryFilter, exec ...core.DBExecutor) ([]Request, error)
		GetRequest(ctx context.Context, id string, exec ...core.DBExecutor) (Request, error)
		// GetPendingRequest finds a pending request between the two users, in either direction.
		GetPendingRequest(ctx context.Context, userA, userB string, exec ...core.DBExecutor) (Request, error)
		UpdateRequest(ctx context.Context, r Request, exec ...core.DBExecutor) (Request, error)

		CreateFriendship(ctx context.Context, userA, userB string, exec ...core.DBExecutor) error
		AreFriends(ctx context.Context, userA, userB string, exec ...core.DBExecutor) (bool, error)
		// QueryFriends returns the friends of userID, most recent friendship first.
		QueryFriends(ctx context.Context, userID string, exec ...core.DBExecutor) ([]Friend, error)
		GetFriend(ctx context.Context, userID, id string, exec ...core.DBExecutor) (Friend, error)
		DeleteFriend(ctx context.Context, userID, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo      Repository
		usrRepo   user.Repository
		tx        core.TxManager
		publisher core.EventPublisher
		mailSvc   core.EmailService
		logger    core.Logger
	}
)

func NewService(
	repo Repository,
	usrRepo user.Repository,
	tx core.TxManager,
	publisher core.EventPublisher,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		repo:      repo,
		usrRepo:   usrRepo,
		tx:        tx,
		publisher: publisher,
		mailSvc:   mailSvc,
		logger:    logger,
	}
}

func (svc *Service) publish(ctx context.Context, topic string, payload interface{}) {
	if err := svc.publisher.Publish(ctx, topic, payload); err != nil {
		svc.logger.Error("publishing "+topic, errors.Wrap(err, "publishing friend event"))
	}
}

func (svc *Service) CreateRequest(ctx context.Context, requestor user.User, nr NewRequest) (Request, error) {
	recipient, err := svc.usrRepo.GetUser(ctx, user.GetFilter{Username: nr.RecipientUsername})
	if err != nil || !recipient.IsActive {
		if err == nil || errors.Cause(err) == user.ErrNotFound {
			return Request{}, core.NewValidationError(errRecipientNotFound, core.FieldError{Field: "recipient_username", Error: errRecipientNotFound.Error()})
		}
		return Request{}, errors.Wrap(err, "finding recipient")
	}
	if recipient.ID == requestor.ID {
		return Request{}, core.NewValidationError(errSelfRequest, core.FieldError{Field: "recipient_username", Error: errSelfRequest.Error()})
	}

	friends, err := svc.repo.AreFriends(ctx, requestor.ID, recipient.ID)
	if err != nil {
		return Request{}, errors.Wrap(err, "checking friendship")
	}
	if friends {
		return Request{}, ErrAlreadyFriends
	}
	if _, err = svc.repo.GetPendingRequest(ctx, requestor.ID, recipient.ID); err == nil {
		return Request{}, ErrPendingRequest
	} else if errors.Cause(err) != ErrRequestNotFound {
		return Request{}, errors.Wrap(err, "finding pending request")
	}

	req, err := svc.repo.CreateRequest(ctx, Request{
		Requestor:           requestor.Summary(),
		Recipient:           recipient.Summary(),
		Status:              StatusPending,
		IntroductionMessage: nr.IntroductionMessage,
		CreatedAt:           core.NowFunc(),
	})
	if err != nil {
		return Request{}, errors.Wrap(err, "creating friend request")
	}

	svc.publish(ctx, core.TopicFriendRequestCreated, RequestCreatedEvent{
		RequestID:           req.ID,
		RecipientID:         recipient.ID,
		Requestor:           requestor.Summary(),
		IntroductionMessage: req.IntroductionMessage,
	})
	svc.sendRequestMail(recipient, requestor, req)
	return req, nil
}

func (svc *Service) sendRequestMail(recipient, requestor user.User, req Request) {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: recipient.Name, Address: recipient.Email}},
		Subject:      requestor.Name + " wants to be your friend",
		TemplateName: "friend_request",
		TemplateData: struct {
			Name              string
			RequestorName     string
			RequestorUsername string
			Message           string
		}{
			Name:              recipient.Name,
			RequestorName:     requestor.Name,
			RequestorUsername: requestor.Username,
			Message:           req.IntroductionMessage,
		},
	}
	svc.mailSvc.SendMessages(msg)
}

func (svc *Service) QueryRequests(ctx context.Context, userID string, filter QueryFilter) ([]Request, error) {
	return svc.repo.QueryRequests(ctx, userID, filter)
}

// GetRequest only returns requests userID takes part in.
func (svc *Service) GetRequest(ctx context.Context, userID, id string) (Request, error) {
	req, err := svc.repo.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.Requestor.ID != userID && req.Recipient.ID != userID {
		return Request{}, ErrRequestNotFound
	}
	return req, nil
}

// UpdateRequest answers a pending request: the recipient accepts or rejects it, the requestor cancels it.
func (svc *Service) UpdateRequest(ctx context.Context, usr user.User, req Request, ur UpdateRequest) (Request, error) {
	switch ur.Status {
	case StatusAccepted, StatusRejected:
		if req.Recipient.ID != usr.ID {
			return Request{}, core.ErrForbidden
		}
	case StatusCancelled:
		if req.Requestor.ID != usr.ID {
			return Request{}, core.ErrForbidden
		}
	default:
		return Request{}, core.NewValidationError(nil, core.FieldError{Field: "status", Error: "invalid status"})
	}
	if req.Status != StatusPending {
		return Request{}, ErrNotPending
	}

	now := core.NowFunc()
	req.Status = ur.Status
	req.RespondedAt = &now

	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var txErr error
		if req, txErr = svc.repo.UpdateRequest(ctx, req, exec); txErr != nil {
			return errors.Wrap(txErr, "updating friend request")
		}
		if req.Status == StatusAccepted {
			return errors.Wrap(svc.repo.CreateFriendship(ctx, req.Requestor.ID, req.Recipient.ID, exec), "creating friendship")
		}
		return nil
	})
	if err != nil {
		return Request{}, err
	}

	if req.Status == StatusAccepted {
		svc.publish(ctx, core.TopicFriendRequestAccepted, RequestAcceptedEvent{
			RequestID:   req.ID,
			RequestorID: req.Requestor.ID,
			Recipient:   usr.Summary(),
		})
	}
	return req, nil
}

func (svc *Service) Friends(ctx context.Context, userID string) ([]Friend, error) {
	return svc.repo.QueryFriends(ctx, userID)
}

// FriendIDs returns the user IDs of the friends of userID.
func (svc *Service) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	friends, err := svc.repo.QueryFriends(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(friends))
	for _, f := range friends {
		ids = append(ids, f.User.ID)
	}
	return ids, nil
}

// RemoveFriend ends the friendship; either side may do it.
func (svc *Service) RemoveFriend(ctx context.Context, userID, id string) error {
	if _, err := svc.repo.GetFriend(ctx, userID, id); err != nil {
		return err
	}
	return svc.repo.DeleteFriend(ctx, userID, id)
}
