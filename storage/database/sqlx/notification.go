package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/notification"
)

var notificationColumns = []string{"id", "user_id", "type", "data", "seen", "created_at"}

type notificationRow struct {
	ID        string         `db:"id"`
	UserID    string         `db:"user_id"`
	Type      string         `db:"type"`
	Data      types.JSONText `db:"data"`
	Seen      bool           `db:"seen"`
	CreatedAt time.Time      `db:"created_at"`
}

type notificationRepository struct {
	db core.DBExecutor
}

var _ notification.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(db core.DBExecutor) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo notificationRepository) CreateNotification(ctx context.Context, n notification.Notification, exec ...core.DBExecutor) (notification.Notification, error) {
	n.ID = uuid.New().String()
	if len(n.Data) == 0 {
		n.Data = types.JSONText("{}")
	}
	query := psql.Insert("notification").Columns(notificationColumns...).
		Values(n.ID, n.UserID, string(n.Type), n.Data, n.Seen, n.CreatedAt.UTC())
	if _, err := execContext(ctx, core.GetExec(repo.db, exec), query); err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return n, nil
}

func (repo notificationRepository) QueryNotifications(ctx context.Context, userID string, filter notification.QueryFilter, exec ...core.DBExecutor) ([]notification.Notification, error) {
	if !isUUID(userID) {
		return []notification.Notification{}, nil
	}
	query := psql.Select(notificationColumns...).From("notification").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC")
	if filter.Seen != nil {
		query = query.Where(sq.Eq{"seen": *filter.Seen})
	}
	if !filter.Cursor.IsZero() {
		query = query.Where(sq.Lt{"created_at": filter.Cursor.UTC()})
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	var rows []notificationRow
	if err := selectContext(ctx, core.GetExec(repo.db, exec), &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	res := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		res = append(res, notification.Notification{
			ID:        r.ID,
			UserID:    r.UserID,
			Type:      notification.Type(r.Type),
			Data:      r.Data,
			Seen:      r.Seen,
			CreatedAt: r.CreatedAt.UTC(),
		})
	}
	return res, nil
}

func (repo notificationRepository) CountUnseen(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error) {
	if !isUUID(userID) {
		return 0, nil
	}
	var res struct {
		Count int `db:"count"`
	}
	query := psql.Select("COUNT(*) AS count").From("notification").Where(sq.Eq{"user_id": userID, "seen": false})
	if err := getContext(ctx, core.GetExec(repo.db, exec), &res, query); err != nil {
		return 0, errors.Wrap(err, "counting unseen notifications")
	}
	return res.Count, nil
}

func (repo notificationRepository) MarkSeen(ctx context.Context, userID string, ids []string, exec ...core.DBExecutor) (int, error) {
	if !isUUID(userID) {
		return 0, nil
	}
	query := psql.Update("notification").Set("seen", true).Where(sq.Eq{"user_id": userID, "seen": false})
	if len(ids) > 0 {
		query = query.Where(sq.Eq{"id": onlyUUIDs(ids)})
	}
	cnt, err := execContext(ctx, core.GetExec(repo.db, exec), query)
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications seen")
	}
	return cnt, nil
}

func (repo notificationRepository) DeleteNotification(ctx context.Context, userID, id string, exec ...core.DBExecutor) error {
	if !isUUID(userID, id) {
		return notification.ErrNotFound
	}
	cnt, err := execContext(ctx, core.GetExec(repo.db, exec), psql.Delete("notification").Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	if cnt == 0 {
		return notification.ErrNotFound
	}
	return nil
}
