package inmemdb

import (
	"context"
	"sort"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/friend"
)

type friendRepository struct {
	db *DB
}

var _ friend.Repository = (*friendRepository)(nil)

func NewFriendRepository(db *DB) *friendRepository {
	return &friendRepository{db: db}
}

func (db *DB) hydrateRequest(rec requestRecord) friend.Request {
	req := friend.Request{
		ID:                  rec.ID,
		Requestor:           db.users[rec.RequestorID].Summary(),
		Recipient:           db.users[rec.RecipientID].Summary(),
		Status:              rec.Status,
		IntroductionMessage: rec.IntroductionMessage,
		CreatedAt:           rec.CreatedAt,
	}
	if rec.RespondedAt != nil {
		t := *rec.RespondedAt
		req.RespondedAt = &t
	}
	return req
}

func (repo *friendRepository) pending(userA, userB string) (requestRecord, bool) {
	for _, rec := range repo.db.requests {
		if rec.Status != friend.StatusPending {
			continue
		}
		if (rec.RequestorID == userA && rec.RecipientID == userB) || (rec.RequestorID == userB && rec.RecipientID == userA) {
			return rec, true
		}
	}
	return requestRecord{}, false
}

func (repo *friendRepository) CreateRequest(_ context.Context, r friend.Request, _ ...core.DBExecutor) (friend.Request, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.pending(r.Requestor.ID, r.Recipient.ID); ok {
		return friend.Request{}, friend.ErrPendingRequest
	}
	rec := requestRecord{
		ID:                  newID(),
		RequestorID:         r.Requestor.ID,
		RecipientID:         r.Recipient.ID,
		Status:              r.Status,
		IntroductionMessage: r.IntroductionMessage,
		CreatedAt:           r.CreatedAt,
	}
	repo.db.requests[rec.ID] = rec
	return repo.db.hydrateRequest(rec), nil
}

func (repo *friendRepository) QueryRequests(_ context.Context, userID string, filter friend.QueryFilter, _ ...core.DBExecutor) ([]friend.Request, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	reqs := make([]friend.Request, 0)
	for _, rec := range repo.db.requests {
		switch filter.Direction {
		case friend.DirectionIncoming:
			if rec.RecipientID != userID {
				continue
			}
		case friend.DirectionOutgoing:
			if rec.RequestorID != userID {
				continue
			}
		default:
			if rec.RecipientID != userID && rec.RequestorID != userID {
				continue
			}
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		reqs = append(reqs, repo.db.hydrateRequest(rec))
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].CreatedAt.After(reqs[j].CreatedAt) })
	return reqs, nil
}

func (repo *friendRepository) GetRequest(_ context.Context, id string, _ ...core.DBExecutor) (friend.Request, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if rec, ok := repo.db.requests[id]; ok {
		return repo.db.hydrateRequest(rec), nil
	}
	return friend.Request{}, friend.ErrRequestNotFound
}

func (repo *friendRepository) GetPendingRequest(_ context.Context, userA, userB string, _ ...core.DBExecutor) (friend.Request, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if rec, ok := repo.pending(userA, userB); ok {
		return repo.db.hydrateRequest(rec), nil
	}
	return friend.Request{}, friend.ErrRequestNotFound
}

func (repo *friendRepository) UpdateRequest(_ context.Context, r friend.Request, _ ...core.DBExecutor) (friend.Request, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	rec, ok := repo.db.requests[r.ID]
	if !ok {
		return friend.Request{}, friend.ErrRequestNotFound
	}
	rec.Status = r.Status
	rec.RespondedAt = nil
	if r.RespondedAt != nil {
		t := *r.RespondedAt
		rec.RespondedAt = &t
	}
	repo.db.requests[rec.ID] = rec
	return repo.db.hydrateRequest(rec), nil
}

func orderedPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

func (repo *friendRepository) friendship(userA, userB string) (friendshipRecord, bool) {
	a, b := orderedPair(userA, userB)
	for _, f := range repo.db.friendships {
		if f.UserA == a && f.UserB == b {
			return f, true
		}
	}
	return friendshipRecord{}, false
}

func (repo *friendRepository) CreateFriendship(_ context.Context, userA, userB string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.friendship(userA, userB); ok {
		return nil
	}
	a, b := orderedPair(userA, userB)
	rec := friendshipRecord{ID: newID(), UserA: a, UserB: b, CreatedAt: core.NowFunc()}
	repo.db.friendships[rec.ID] = rec
	return nil
}

func (repo *friendRepository) AreFriends(_ context.Context, userA, userB string, _ ...core.DBExecutor) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	_, ok := repo.friendship(userA, userB)
	return ok, nil
}

func (repo *friendRepository) toFriend(userID string, rec friendshipRecord) friend.Friend {
	other := rec.UserA
	if other == userID {
		other = rec.UserB
	}
	return friend.Friend{ID: rec.ID, User: repo.db.users[other].Summary(), Since: rec.CreatedAt}
}

func (repo *friendRepository) QueryFriends(_ context.Context, userID string, _ ...core.DBExecutor) ([]friend.Friend, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	friends := make([]friend.Friend, 0)
	for _, rec := range repo.db.friendships {
		if rec.UserA == userID || rec.UserB == userID {
			friends = append(friends, repo.toFriend(userID, rec))
		}
	}
	sort.Slice(friends, func(i, j int) bool { return friends[i].Since.After(friends[j].Since) })
	return friends, nil
}

func (repo *friendRepository) GetFriend(_ context.Context, userID, id string, _ ...core.DBExecutor) (friend.Friend, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if rec, ok := repo.db.friendships[id]; ok && (rec.UserA == userID || rec.UserB == userID) {
		return repo.toFriend(userID, rec), nil
	}
	return friend.Friend{}, friend.ErrNotFound
}

func (repo *friendRepository) DeleteFriend(_ context.Context, userID, id string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if rec, ok := repo.db.friendships[id]; !ok || (rec.UserA != userID && rec.UserB != userID) {
		return friend.ErrNotFound
	}
	delete(repo.db.friendships, id)
	return nil
}
