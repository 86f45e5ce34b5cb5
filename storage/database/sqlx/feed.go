package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/feed"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/user"
)

type feedEventRow struct {
	ID              string         `db:"id"`
	EventType       string         `db:"event_type"`
	Data            types.JSONText `db:"data"`
	CreatedAt       time.Time      `db:"created_at"`
	SourceID        string         `db:"source_id"`
	SourceName      string         `db:"source_name"`
	SourceUsername  string         `db:"source_username"`
	SourceAvatarURL string         `db:"source_avatar_url"`
}

type reactionsRow struct {
	EventID string `db:"event_id"`
	Emoji   string `db:"emoji"`
	Count   int    `db:"count"`
	Reacted bool   `db:"reacted"`
}

type feedRepository struct {
	db core.DBExecutor
}

var _ feed.Repository = (*feedRepository)(nil)

func NewFeedRepository(db core.DBExecutor) *feedRepository {
	return &feedRepository{db: db}
}

func (repo feedRepository) queryEvents(ctx context.Context, exec core.DBExecutor, viewerID string, query sq.SelectBuilder) ([]feed.Event, error) {
	var rows []feedEventRow
	if err := selectContext(ctx, exec, &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying feed events")
	}
	events := make([]feed.Event, 0, len(rows))
	if len(rows) == 0 {
		return events, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	reactQuery := psql.Select("event_id", "emoji", "COUNT(*) AS count").
		Column(sq.Expr("BOOL_OR(user_id = ?) AS reacted", viewerID)).
		From("feed_reaction").
		Where(sq.Eq{"event_id": ids}).
		GroupBy("event_id", "emoji").
		OrderBy("MIN(created_at) ASC")
	var reactRows []reactionsRow
	if err := selectContext(ctx, exec, &reactRows, reactQuery); err != nil {
		return nil, errors.Wrap(err, "querying reactions")
	}
	reactions := make(map[string][]feed.Reactions, len(rows))
	for _, r := range reactRows {
		reactions[r.EventID] = append(reactions[r.EventID], feed.Reactions{Emoji: r.Emoji, Count: r.Count, Reacted: r.Reacted})
	}

	for _, r := range rows {
		evtReactions := reactions[r.ID]
		if evtReactions == nil {
			evtReactions = []feed.Reactions{}
		}
		events = append(events, feed.Event{
			ID:        r.ID,
			Source:    user.Summary{ID: r.SourceID, Name: r.SourceName, Username: r.SourceUsername, AvatarURL: r.SourceAvatarURL},
			EventType: feed.EventType(r.EventType),
			Data:      r.Data,
			Reactions: evtReactions,
			CreatedAt: r.CreatedAt.UTC(),
		})
	}
	return events, nil
}

func (repo feedRepository) selectEvents() sq.SelectBuilder {
	return psql.Select(
		"e.id", "e.event_type", "e.data", "e.created_at",
		"u.id AS source_id", "u.name AS source_name", "u.username AS source_username", "u.avatar_url AS source_avatar_url",
	).From("feed_event e").Join(`"user" u ON u.id = e.source_id`)
}

func (repo feedRepository) CreateEvent(ctx context.Context, e feed.Event, exec ...core.DBExecutor) (feed.Event, error) {
	e.ID = uuid.New().String()
	if len(e.Data) == 0 {
		e.Data = types.JSONText("{}")
	}
	query := psql.Insert("feed_event").Columns("id", "source_id", "event_type", "data", "created_at").
		Values(e.ID, e.Source.ID, string(e.EventType), e.Data, e.CreatedAt.UTC())
	if _, err := execContext(ctx, core.GetExec(repo.db, exec), query); err != nil {
		return feed.Event{}, errors.Wrap(err, "inserting feed event")
	}
	e.Reactions = []feed.Reactions{}
	return e, nil
}

func (repo feedRepository) QueryEvents(ctx context.Context, viewerID string, sourceIDs []string, filter feed.QueryFilter, exec ...core.DBExecutor) ([]feed.Event, error) {
	sourceIDs = onlyUUIDs(sourceIDs)
	if !isUUID(viewerID) || len(sourceIDs) == 0 {
		return []feed.Event{}, nil
	}
	query := repo.selectEvents().Where(sq.Eq{"e.source_id": sourceIDs}).OrderBy("e.created_at DESC", "e.id DESC")
	if !filter.Cursor.IsZero() {
		query = query.Where(sq.Lt{"e.created_at": filter.Cursor.UTC()})
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	return repo.queryEvents(ctx, core.GetExec(repo.db, exec), viewerID, query)
}

func (repo feedRepository) GetEvent(ctx context.Context, viewerID, id string, exec ...core.DBExecutor) (feed.Event, error) {
	if !isUUID(viewerID, id) {
		return feed.Event{}, feed.ErrNotFound
	}
	events, err := repo.queryEvents(ctx, core.GetExec(repo.db, exec), viewerID, repo.selectEvents().Where(sq.Eq{"e.id": id}))
	if err != nil {
		return feed.Event{}, err
	}
	if len(events) == 0 {
		return feed.Event{}, feed.ErrNotFound
	}
	return events[0], nil
}

func (repo feedRepository) AddReaction(ctx context.Context, r feed.Reaction, exec ...core.DBExecutor) (bool, error) {
	query := psql.Insert("feed_reaction").Columns("id", "event_id", "user_id", "emoji", "created_at").
		Values(uuid.New().String(), r.EventID, r.UserID, r.Emoji, r.CreatedAt.UTC()).
		Suffix("ON CONFLICT (event_id, user_id, emoji) DO NOTHING")
	cnt, err := execContext(ctx, core.GetExec(repo.db, exec), query)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, feed.ErrNotFound
		}
		return false, errors.Wrap(err, "inserting reaction")
	}
	return cnt == 1, nil
}

func (repo feedRepository) RemoveReaction(ctx context.Context, eventID, userID, emoji string, exec ...core.DBExecutor) error {
	if !isUUID(eventID, userID) {
		return feed.ErrReactionNotFound
	}
	query := psql.Delete("feed_reaction").Where(sq.Eq{"event_id": eventID, "user_id": userID, "emoji": emoji})
	cnt, err := execContext(ctx, core.GetExec(repo.db, exec), query)
	if err != nil {
		return errors.Wrap(err, "deleting reaction")
	}
	if cnt == 0 {
		return feed.ErrReactionNotFound
	}
	return nil
}
