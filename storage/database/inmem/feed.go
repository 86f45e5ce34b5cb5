package inmemdb

import (
	"context"
	"sort"

	"github.com/jmoiron/sqlx/types"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/feed"
)

type feedRepository struct {
	db *DB
}

var _ feed.Repository = (*feedRepository)(nil)

func NewFeedRepository(db *DB) *feedRepository {
	return &feedRepository{db: db}
}

// hydrateEvent aggregates the reactions of rec as seen by viewerID, in order of first use.
func (db *DB) hydrateEvent(viewerID string, rec eventRecord) feed.Event {
	reactions := make([]feed.Reaction, 0)
	for _, r := range db.reactions {
		if r.EventID == rec.ID {
			reactions = append(reactions, r)
		}
	}
	sort.Slice(reactions, func(i, j int) bool { return reactions[i].CreatedAt.Before(reactions[j].CreatedAt) })

	grouped := make([]feed.Reactions, 0)
	idx := make(map[string]int)
	for _, r := range reactions {
		i, ok := idx[r.Emoji]
		if !ok {
			i = len(grouped)
			idx[r.Emoji] = i
			grouped = append(grouped, feed.Reactions{Emoji: r.Emoji})
		}
		grouped[i].Count++
		if r.UserID == viewerID {
			grouped[i].Reacted = true
		}
	}

	return feed.Event{
		ID:        rec.ID,
		Source:    db.users[rec.SourceID].Summary(),
		EventType: rec.EventType,
		Data:      append(types.JSONText(nil), rec.Data...),
		Reactions: grouped,
		CreatedAt: rec.CreatedAt,
	}
}

func (repo *feedRepository) CreateEvent(_ context.Context, e feed.Event, _ ...core.DBExecutor) (feed.Event, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	data := e.Data
	if len(data) == 0 {
		data = types.JSONText("{}")
	}
	rec := eventRecord{
		ID:        newID(),
		SourceID:  e.Source.ID,
		EventType: e.EventType,
		Data:      append(types.JSONText(nil), data...),
		CreatedAt: e.CreatedAt,
	}
	repo.db.events[rec.ID] = rec
	return repo.db.hydrateEvent(e.Source.ID, rec), nil
}

func (repo *feedRepository) QueryEvents(_ context.Context, viewerID string, sourceIDs []string, filter feed.QueryFilter, _ ...core.DBExecutor) ([]feed.Event, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	recs := make([]eventRecord, 0)
	for _, rec := range repo.db.events {
		if !contains(sourceIDs, rec.SourceID) {
			continue
		}
		if !filter.Cursor.IsZero() && !rec.CreatedAt.Before(filter.Cursor) {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].ID > recs[j].ID
		}
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	_, to := paginate(len(recs), 0, filter.Limit)

	events := make([]feed.Event, 0, to)
	for _, rec := range recs[:to] {
		events = append(events, repo.db.hydrateEvent(viewerID, rec))
	}
	return events, nil
}

func (repo *feedRepository) GetEvent(_ context.Context, viewerID, id string, _ ...core.DBExecutor) (feed.Event, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if rec, ok := repo.db.events[id]; ok {
		return repo.db.hydrateEvent(viewerID, rec), nil
	}
	return feed.Event{}, feed.ErrNotFound
}

func (repo *feedRepository) AddReaction(_ context.Context, r feed.Reaction, _ ...core.DBExecutor) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.events[r.EventID]; !ok {
		return false, feed.ErrNotFound
	}
	for _, existing := range repo.db.reactions {
		if existing.EventID == r.EventID && existing.UserID == r.UserID && existing.Emoji == r.Emoji {
			return false, nil
		}
	}
	r.ID = newID()
	repo.db.reactions[r.ID] = r
	return true, nil
}

func (repo *feedRepository) RemoveReaction(_ context.Context, eventID, userID, emoji string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for id, r := range repo.db.reactions {
		if r.EventID == eventID && r.UserID == userID && r.Emoji == emoji {
			delete(repo.db.reactions, id)
			return nil
		}
	}
	return feed.ErrReactionNotFound
}
