package friend

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/user"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// request directions, seen from the context user
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

type Request struct {
	ID                  string       `json:"id"`
	Requestor           user.Summary `json:"requestor"`
	Recipient           user.Summary `json:"recipient"`
	Status              Status       `json:"status"`
	IntroductionMessage string       `json:"introduction_message"`
	CreatedAt           time.Time    `json:"created_at"`   // UTC
	RespondedAt         *time.Time   `json:"responded_at"` // UTC
}

// Friend is a friendship seen from one of its sides: User is the other side.
type Friend struct {
	ID    string       `json:"id"`
	User  user.Summary `json:"user"`
	Since time.Time    `json:"since"` // UTC
}

type NewRequest struct {
	RecipientUsername   string `json:"recipient_username" validate:"required"`
	IntroductionMessage string `json:"introduction_message" validate:"max=500"`
}

func (nr *NewRequest) Validate(validate *validator.Validate) error {
	nr.RecipientUsername = core.CleanString(nr.RecipientUsername, true /* lower */)
	nr.IntroductionMessage = core.CleanString(nr.IntroductionMessage)
	return validate.Struct(nr)
}

type UpdateRequest struct {
	Status Status `json:"status" validate:"required,oneof=accepted rejected cancelled"`
}

func (ur UpdateRequest) Validate(validate *validator.Validate) error { return validate.Struct(ur) }

type QueryFilter struct {
	Direction string `query:"direction"` // incoming | outgoing | "" (both)
	Status    Status `query:"status"`
}

// RequestCreatedEvent is published when a friend request is sent.
type RequestCreatedEvent struct {
	RequestID           string       `json:"request_id"`
	RecipientID         string       `json:"recipient_id"`
	Requestor           user.Summary `json:"requestor"`
	IntroductionMessage string       `json:"introduction_message"`
}

// RequestAcceptedEvent is published when the recipient accepts a friend request.
type RequestAcceptedEvent struct {
	RequestID   string       `json:"request_id"`
	RequestorID string       `json:"requestor_id"`
	Recipient   user.Summary `json:"recipient"`
}
