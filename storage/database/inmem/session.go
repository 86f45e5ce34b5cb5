package inmemdb

import (
	"context"
	"sort"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/session"
)

type sessionRepository struct {
	db *DB
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db *DB) *sessionRepository {
	return &sessionRepository{db: db}
}

func (db *DB) hydrateFixed(rec fixedRecord) session.FixedSession {
	fs := session.FixedSession{
		ID:          rec.ID,
		UserID:      rec.UserID,
		Category:    db.categories[rec.CategoryID],
		Tags:        db.tagSummaries(rec.TagIDs),
		StartTime:   rec.StartTime,
		EndTime:     rec.EndTime,
		Description: rec.Description,
		TaskID:      copyStringPtr(rec.TaskID),
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	fs.SetDuration()
	return fs
}

func (db *DB) hydrateStopwatch(rec stopwatchRecord) session.StopwatchSession {
	sw := session.StopwatchSession{
		ID:          rec.ID,
		UserID:      rec.UserID,
		StartTime:   rec.StartTime,
		Tags:        db.tagSummaries(rec.TagIDs),
		Description: rec.Description,
		TaskID:      copyStringPtr(rec.TaskID),
		CreatedAt:   rec.CreatedAt,
	}
	if rec.CategoryID != nil {
		if cat, ok := db.categories[*rec.CategoryID]; ok {
			sw.Category = &cat
		}
	}
	return sw
}

func (repo *sessionRepository) matches(rec fixedRecord, userID string, filter session.QueryFilter) bool {
	if rec.UserID != userID {
		return false
	}
	if !filter.FromStartTime.IsZero() && rec.StartTime.Before(filter.FromStartTime) {
		return false
	}
	if !filter.ToStartTime.IsZero() && rec.StartTime.After(filter.ToStartTime) {
		return false
	}
	if !filter.FromEndTime.IsZero() && rec.EndTime.Before(filter.FromEndTime) {
		return false
	}
	if !filter.ToEndTime.IsZero() && rec.EndTime.After(filter.ToEndTime) {
		return false
	}
	if len(filter.CategoryIDs) > 0 && !contains(filter.CategoryIDs, rec.CategoryID) {
		return false
	}
	if len(filter.TagIDs) > 0 {
		var matched int
		seen := make(map[string]bool, len(filter.TagIDs))
		for _, id := range filter.TagIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			if contains(rec.TagIDs, id) {
				matched++
			}
		}
		if matched == 0 || (filter.TagMode == session.TagModeAll && matched != len(seen)) {
			return false
		}
	}
	if filter.ProjectID != "" {
		if rec.TaskID == nil {
			return false
		}
		if t, ok := repo.db.tasks[*rec.TaskID]; !ok || t.ProjectID != filter.ProjectID {
			return false
		}
	}
	if filter.TaskID != "" && (rec.TaskID == nil || *rec.TaskID != filter.TaskID) {
		return false
	}
	return true
}

func (repo *sessionRepository) CreateFixedSession(_ context.Context, fs session.FixedSession, _ ...core.DBExecutor) (session.FixedSession, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	rec := fixedRecord{
		ID:          newID(),
		UserID:      fs.UserID,
		CategoryID:  fs.Category.ID,
		TagIDs:      fs.TagIDs(),
		StartTime:   fs.StartTime.UTC(),
		EndTime:     fs.EndTime.UTC(),
		Description: fs.Description,
		TaskID:      copyStringPtr(fs.TaskID),
		CreatedAt:   fs.CreatedAt,
		UpdatedAt:   fs.UpdatedAt,
	}
	repo.db.fixed[rec.ID] = rec
	return repo.db.hydrateFixed(rec), nil
}

func (repo *sessionRepository) QueryFixedSessions(_ context.Context, userID string, filter session.QueryFilter, _ ...core.DBExecutor) ([]session.FixedSession, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	sessions := make([]session.FixedSession, 0)
	for _, rec := range repo.db.fixed {
		if repo.matches(rec, userID, filter) {
			sessions = append(sessions, repo.db.hydrateFixed(rec))
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	sortByOrderings(sessions, filter.Ordering, func(i int, field string) interface{} {
		switch field {
		case "end_time":
			return sessions[i].EndTime
		case "created_at":
			return sessions[i].CreatedAt
		default:
			return sessions[i].StartTime
		}
	})
	from, to := paginate(len(sessions), filter.Offset, filter.Limit)
	return sessions[from:to], nil
}

func (repo *sessionRepository) GetFixedSession(_ context.Context, userID, id string, _ ...core.DBExecutor) (session.FixedSession, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if rec, ok := repo.db.fixed[id]; ok && rec.UserID == userID {
		return repo.db.hydrateFixed(rec), nil
	}
	return session.FixedSession{}, session.ErrNotFound
}

func (repo *sessionRepository) UpdateFixedSession(_ context.Context, fs session.FixedSession, _ ...core.DBExecutor) (session.FixedSession, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	rec, ok := repo.db.fixed[fs.ID]
	if !ok || rec.UserID != fs.UserID {
		return session.FixedSession{}, session.ErrNotFound
	}
	rec.CategoryID = fs.Category.ID
	rec.TagIDs = fs.TagIDs()
	rec.StartTime = fs.StartTime.UTC()
	rec.EndTime = fs.EndTime.UTC()
	rec.Description = fs.Description
	rec.TaskID = copyStringPtr(fs.TaskID)
	rec.UpdatedAt = fs.UpdatedAt
	repo.db.fixed[rec.ID] = rec
	return repo.db.hydrateFixed(rec), nil
}

func (repo *sessionRepository) DeleteFixedSessions(_ context.Context, userID string, ids []string, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var cnt int
	for _, id := range ids {
		if rec, ok := repo.db.fixed[id]; ok && rec.UserID == userID {
			delete(repo.db.fixed, id)
			cnt++
		}
	}
	return cnt, nil
}

func (repo *sessionRepository) GetStopwatchSession(_ context.Context, userID string, _ ...core.DBExecutor) (session.StopwatchSession, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if rec, ok := repo.db.stopwatches[userID]; ok {
		return repo.db.hydrateStopwatch(rec), nil
	}
	return session.StopwatchSession{}, session.ErrStopwatchNotFound
}

func toStopwatchRecord(sw session.StopwatchSession) stopwatchRecord {
	rec := stopwatchRecord{
		ID:          sw.ID,
		UserID:      sw.UserID,
		TagIDs:      sw.TagIDs(),
		StartTime:   sw.StartTime.UTC(),
		Description: sw.Description,
		TaskID:      copyStringPtr(sw.TaskID),
		CreatedAt:   sw.CreatedAt,
	}
	if sw.Category != nil {
		id := sw.Category.ID
		rec.CategoryID = &id
	}
	return rec
}

func (repo *sessionRepository) CreateStopwatchSession(_ context.Context, sw session.StopwatchSession, _ ...core.DBExecutor) (session.StopwatchSession, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.stopwatches[sw.UserID]; ok {
		return session.StopwatchSession{}, session.ErrStopwatchRunning
	}
	sw.ID = newID()
	rec := toStopwatchRecord(sw)
	repo.db.stopwatches[sw.UserID] = rec
	return repo.db.hydrateStopwatch(rec), nil
}

func (repo *sessionRepository) UpdateStopwatchSession(_ context.Context, sw session.StopwatchSession, _ ...core.DBExecutor) (session.StopwatchSession, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.stopwatches[sw.UserID]
	if !ok || orig.ID != sw.ID {
		return session.StopwatchSession{}, session.ErrStopwatchNotFound
	}
	rec := toStopwatchRecord(sw)
	rec.CreatedAt = orig.CreatedAt
	repo.db.stopwatches[sw.UserID] = rec
	return repo.db.hydrateStopwatch(rec), nil
}

func (repo *sessionRepository) DeleteStopwatchSession(_ context.Context, userID string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.stopwatches[userID]; !ok {
		return session.ErrStopwatchNotFound
	}
	delete(repo.db.stopwatches, userID)
	return nil
}
