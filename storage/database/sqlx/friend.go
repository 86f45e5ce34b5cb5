package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/friend"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/user"
)

var friendRequestColumns = []string{
	"fr.id", "fr.status", "fr.introduction_message", "fr.created_at", "fr.responded_at",
	"rq.id AS requestor_id", "rq.name AS requestor_name", "rq.username AS requestor_username", "rq.avatar_url AS requestor_avatar_url",
	"rc.id AS recipient_id", "rc.name AS recipient_name", "rc.username AS recipient_username", "rc.avatar_url AS recipient_avatar_url",
}

type friendRequestRow struct {
	ID                  string       `db:"id"`
	Status              string       `db:"status"`
	IntroductionMessage string       `db:"introduction_message"`
	CreatedAt           time.Time    `db:"created_at"`
	RespondedAt         sql.NullTime `db:"responded_at"`
	RequestorID         string       `db:"requestor_id"`
	RequestorName       string       `db:"requestor_name"`
	RequestorUsername   string       `db:"requestor_username"`
	RequestorAvatarURL  string       `db:"requestor_avatar_url"`
	RecipientID         string       `db:"recipient_id"`
	RecipientName       string       `db:"recipient_name"`
	RecipientUsername   string       `db:"recipient_username"`
	RecipientAvatarURL  string       `db:"recipient_avatar_url"`
}

func (r friendRequestRow) toRequest() friend.Request {
	return friend.Request{
		ID:                  r.ID,
		Requestor:           user.Summary{ID: r.RequestorID, Name: r.RequestorName, Username: r.RequestorUsername, AvatarURL: r.RequestorAvatarURL},
		Recipient:           user.Summary{ID: r.RecipientID, Name: r.RecipientName, Username: r.RecipientUsername, AvatarURL: r.RecipientAvatarURL},
		Status:              friend.Status(r.Status),
		IntroductionMessage: r.IntroductionMessage,
		CreatedAt:           r.CreatedAt.UTC(),
		RespondedAt:         timePtr(r.RespondedAt),
	}
}

type friendRow struct {
	ID            string    `db:"id"`
	CreatedAt     time.Time `db:"created_at"`
	UserID        string    `db:"user_id"`
	UserName      string    `db:"user_name"`
	UserUsername  string    `db:"user_username"`
	UserAvatarURL string    `db:"user_avatar_url"`
}

func (r friendRow) toFriend() friend.Friend {
	return friend.Friend{
		ID:    r.ID,
		User:  user.Summary{ID: r.UserID, Name: r.UserName, Username: r.UserUsername, AvatarURL: r.UserAvatarURL},
		Since: r.CreatedAt.UTC(),
	}
}

// orderedPair returns the ids as stored in friendship (user_a < user_b).
func orderedPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

type friendRepository struct {
	db core.DBExecutor
}

var _ friend.Repository = (*friendRepository)(nil)

func NewFriendRepository(db core.DBExecutor) *friendRepository {
	return &friendRepository{db: db}
}

func (repo friendRepository) selectRequests() sq.SelectBuilder {
	return psql.Select(friendRequestColumns...).
		From("friend_request fr").
		Join(`"user" rq ON rq.id = fr.requestor_id`).
		Join(`"user" rc ON rc.id = fr.recipient_id`)
}

func (repo friendRepository) queryRequests(ctx context.Context, exec core.DBExecutor, query sq.SelectBuilder) ([]friend.Request, error) {
	var rows []friendRequestRow
	if err := selectContext(ctx, exec, &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying friend requests")
	}
	reqs := make([]friend.Request, 0, len(rows))
	for _, r := range rows {
		reqs = append(reqs, r.toRequest())
	}
	return reqs, nil
}

func (repo friendRepository) getRequest(ctx context.Context, exec core.DBExecutor, conds ...sq.Sqlizer) (friend.Request, error) {
	query := repo.selectRequests().OrderBy("fr.created_at DESC").Limit(1)
	for _, cond := range conds {
		query = query.Where(cond)
	}
	reqs, err := repo.queryRequests(ctx, exec, query)
	if err != nil {
		return friend.Request{}, err
	}
	if len(reqs) == 0 {
		return friend.Request{}, friend.ErrRequestNotFound
	}
	return reqs[0], nil
}

func (repo friendRepository) CreateRequest(ctx context.Context, r friend.Request, exec ...core.DBExecutor) (friend.Request, error) {
	r.ID = uuid.New().String()
	query := psql.Insert("friend_request").
		Columns("id", "requestor_id", "recipient_id", "status", "introduction_message", "created_at").
		Values(r.ID, r.Requestor.ID, r.Recipient.ID, string(r.Status), r.IntroductionMessage, r.CreatedAt.UTC())
	if _, err := execContext(ctx, core.GetExec(repo.db, exec), query); err != nil {
		if isUniqueViolation(err) {
			return friend.Request{}, friend.ErrPendingRequest
		}
		return friend.Request{}, errors.Wrap(err, "inserting friend request")
	}
	return r, nil
}

func (repo friendRepository) QueryRequests(ctx context.Context, userID string, filter friend.QueryFilter, exec ...core.DBExecutor) ([]friend.Request, error) {
	if !isUUID(userID) {
		return []friend.Request{}, nil
	}
	query := repo.selectRequests().OrderBy("fr.created_at DESC")
	switch filter.Direction {
	case friend.DirectionIncoming:
		query = query.Where(sq.Eq{"fr.recipient_id": userID})
	case friend.DirectionOutgoing:
		query = query.Where(sq.Eq{"fr.requestor_id": userID})
	default:
		query = query.Where(sq.Or{sq.Eq{"fr.recipient_id": userID}, sq.Eq{"fr.requestor_id": userID}})
	}
	if filter.Status != "" {
		query = query.Where(sq.Eq{"fr.status": string(filter.Status)})
	}
	return repo.queryRequests(ctx, core.GetExec(repo.db, exec), query)
}

func (repo friendRepository) GetRequest(ctx context.Context, id string, exec ...core.DBExecutor) (friend.Request, error) {
	if !isUUID(id) {
		return friend.Request{}, friend.ErrRequestNotFound
	}
	return repo.getRequest(ctx, core.GetExec(repo.db, exec), sq.Eq{"fr.id": id})
}

func (repo friendRepository) GetPendingRequest(ctx context.Context, userA, userB string, exec ...core.DBExecutor) (friend.Request, error) {
	if !isUUID(userA, userB) {
		return friend.Request{}, friend.ErrRequestNotFound
	}
	return repo.getRequest(ctx, core.GetExec(repo.db, exec),
		sq.Eq{"fr.status": string(friend.StatusPending)},
		sq.Or{
			sq.Eq{"fr.requestor_id": userA, "fr.recipient_id": userB},
			sq.Eq{"fr.requestor_id": userB, "fr.recipient_id": userA},
		},
	)
}

func (repo friendRepository) UpdateRequest(ctx context.Context, r friend.Request, exec ...core.DBExecutor) (friend.Request, error) {
	var respondedAt sql.NullTime
	if r.RespondedAt != nil {
		respondedAt = toNullTime(*r.RespondedAt)
	}
	query := psql.Update("friend_request").
		Set("status", string(r.Status)).
		Set("responded_at", respondedAt).
		Where(sq.Eq{"id": r.ID})
	cnt, err := execContext(ctx, core.GetExec(repo.db, exec), query)
	if err != nil {
		return friend.Request{}, errors.Wrap(err, "updating friend request")
	}
	if cnt == 0 {
		return friend.Request{}, friend.ErrRequestNotFound
	}
	return r, nil
}

func (repo friendRepository) CreateFriendship(ctx context.Context, userA, userB string, exec ...core.DBExecutor) error {
	a, b := orderedPair(userA, userB)
	query := psql.Insert("friendship").Columns("id", "user_a", "user_b", "created_at").
		Values(uuid.New().String(), a, b, core.NowFunc()).
		Suffix("ON CONFLICT (user_a, user_b) DO NOTHING")
	_, err := execContext(ctx, core.GetExec(repo.db, exec), query)
	return errors.Wrap(err, "inserting friendship")
}

func (repo friendRepository) AreFriends(ctx context.Context, userA, userB string, exec ...core.DBExecutor) (bool, error) {
	if !isUUID(userA, userB) {
		return false, nil
	}
	a, b := orderedPair(userA, userB)
	var res struct {
		Exists bool `db:"exists"`
	}
	query := psql.Select().Column(sq.Expr("EXISTS (SELECT 1 FROM friendship WHERE user_a = ? AND user_b = ?) AS exists", a, b))
	if err := getContext(ctx, core.GetExec(repo.db, exec), &res, query); err != nil {
		return false, errors.Wrap(err, "checking friendship")
	}
	return res.Exists, nil
}

func (repo friendRepository) selectFriends(userID string) sq.SelectBuilder {
	return psql.Select("f.id", "f.created_at", "u.id AS user_id", "u.name AS user_name", "u.username AS user_username", "u.avatar_url AS user_avatar_url").
		From("friendship f").
		Join(`"user" u ON u.id = CASE WHEN f.user_a = ? THEN f.user_b ELSE f.user_a END`, userID).
		Where(sq.Or{sq.Eq{"f.user_a": userID}, sq.Eq{"f.user_b": userID}})
}

func (repo friendRepository) QueryFriends(ctx context.Context, userID string, exec ...core.DBExecutor) ([]friend.Friend, error) {
	if !isUUID(userID) {
		return []friend.Friend{}, nil
	}
	var rows []friendRow
	if err := selectContext(ctx, core.GetExec(repo.db, exec), &rows, repo.selectFriends(userID).OrderBy("f.created_at DESC")); err != nil {
		return nil, errors.Wrap(err, "querying friends")
	}
	friends := make([]friend.Friend, 0, len(rows))
	for _, r := range rows {
		friends = append(friends, r.toFriend())
	}
	return friends, nil
}

func (repo friendRepository) GetFriend(ctx context.Context, userID, id string, exec ...core.DBExecutor) (friend.Friend, error) {
	if !isUUID(userID, id) {
		return friend.Friend{}, friend.ErrNotFound
	}
	var row friendRow
	if err := getContext(ctx, core.GetExec(repo.db, exec), &row, repo.selectFriends(userID).Where(sq.Eq{"f.id": id})); err != nil {
		return friend.Friend{}, trapNoRowsErr(err, friend.ErrNotFound, "finding friend")
	}
	return row.toFriend(), nil
}

func (repo friendRepository) DeleteFriend(ctx context.Context, userID, id string, exec ...core.DBExecutor) error {
	if !isUUID(userID, id) {
		return friend.ErrNotFound
	}
	query := psql.Delete("friendship").
		Where(sq.Eq{"id": id}).
		Where(sq.Or{sq.Eq{"user_a": userID}, sq.Eq{"user_b": userID}})
	cnt, err := execContext(ctx, core.GetExec(repo.db, exec), query)
	if err != nil {
		return errors.Wrap(err, "deleting friendship")
	}
	if cnt == 0 {
		return friend.ErrNotFound
	}
	return nil
}
