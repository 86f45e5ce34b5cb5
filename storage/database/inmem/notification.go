package inmemdb

import (
	"context"
	"sort"

	"github.com/jmoiron/sqlx/types"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/notification"
)

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func copyNotification(n notification.Notification) notification.Notification {
	n.Data = append(types.JSONText(nil), n.Data...)
	return n
}

func (repo *notificationRepository) CreateNotification(_ context.Context, n notification.Notification, _ ...core.DBExecutor) (notification.Notification, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	n.ID = newID()
	if len(n.Data) == 0 {
		n.Data = types.JSONText("{}")
	}
	n = copyNotification(n)
	repo.db.notifications[n.ID] = n
	return copyNotification(n), nil
}

func (repo *notificationRepository) QueryNotifications(_ context.Context, userID string, filter notification.QueryFilter, _ ...core.DBExecutor) ([]notification.Notification, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	res := make([]notification.Notification, 0)
	for _, n := range repo.db.notifications {
		if n.UserID != userID {
			continue
		}
		if filter.Seen != nil && n.Seen != *filter.Seen {
			continue
		}
		if !filter.Cursor.IsZero() && !n.CreatedAt.Before(filter.Cursor) {
			continue
		}
		res = append(res, copyNotification(n))
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID > res[j].ID
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	_, to := paginate(len(res), 0, filter.Limit)
	return res[:to], nil
}

func (repo *notificationRepository) CountUnseen(_ context.Context, userID string, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var cnt int
	for _, n := range repo.db.notifications {
		if n.UserID == userID && !n.Seen {
			cnt++
		}
	}
	return cnt, nil
}

func (repo *notificationRepository) MarkSeen(_ context.Context, userID string, ids []string, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var cnt int
	for id, n := range repo.db.notifications {
		if n.UserID != userID || n.Seen {
			continue
		}
		if len(ids) > 0 && !contains(ids, id) {
			continue
		}
		n.Seen = true
		repo.db.notifications[id] = n
		cnt++
	}
	return cnt, nil
}

func (repo *notificationRepository) DeleteNotification(_ context.Context, userID, id string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if n, ok := repo.db.notifications[id]; !ok || n.UserID != userID {
		return notification.ErrNotFound
	}
	delete(repo.db.notifications, id)
	return nil
}
