package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/category"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/session"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/tag"
)

var (
	fixedSessionColumns = []string{
		"fs.id", "fs.user_id", "fs.start_time", "fs.end_time", "fs.description", "fs.task_id", "fs.created_at", "fs.updated_at",
		"c.id AS category_id", "c.name AS category_name", "c.color AS category_color",
		"c.created_at AS category_created_at", "c.updated_at AS category_updated_at",
	}
	stopwatchColumns = []string{
		"sw.id", "sw.user_id", "sw.start_time", "sw.description", "sw.task_id", "sw.created_at",
		"c.id AS category_id", "c.name AS category_name", "c.color AS category_color",
		"c.created_at AS category_created_at", "c.updated_at AS category_updated_at",
	}
)

type sessionCategoryRow struct {
	CategoryID        sql.NullString `db:"category_id"`
	CategoryName      sql.NullString `db:"category_name"`
	CategoryColor     sql.NullString `db:"category_color"`
	CategoryCreatedAt sql.NullTime   `db:"category_created_at"`
	CategoryUpdatedAt sql.NullTime   `db:"category_updated_at"`
}

func (r sessionCategoryRow) toCategory(userID string) *category.Category {
	if !r.CategoryID.Valid {
		return nil
	}
	return &category.Category{
		ID:        r.CategoryID.String,
		UserID:    userID,
		Name:      r.CategoryName.String,
		Color:     r.CategoryColor.String,
		CreatedAt: fromNullTime(r.CategoryCreatedAt),
		UpdatedAt: fromNullTime(r.CategoryUpdatedAt),
	}
}

type fixedSessionRow struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	StartTime   time.Time      `db:"start_time"`
	EndTime     time.Time      `db:"end_time"`
	Description string         `db:"description"`
	TaskID      sql.NullString `db:"task_id"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
	sessionCategoryRow
}

type stopwatchRow struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	StartTime   time.Time      `db:"start_time"`
	Description string         `db:"description"`
	TaskID      sql.NullString `db:"task_id"`
	CreatedAt   time.Time      `db:"created_at"`
	sessionCategoryRow
}

type sessionTagRow struct {
	SessionID string `db:"session_id"`
	ID        string `db:"id"`
	Label     string `db:"label"`
	Color     string `db:"color"`
}

type sessionRepository struct {
	db core.DBExecutor
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db core.DBExecutor) *sessionRepository {
	return &sessionRepository{db: db}
}

// sessionTags loads the tags of the sessions from table (fixed_session_tag | stopwatch_session_tag), by session ID.
func (repo sessionRepository) sessionTags(ctx context.Context, exec core.DBExecutor, table string, ids []string) (map[string][]tag.Summary, error) {
	res := make(map[string][]tag.Summary, len(ids))
	if len(ids) == 0 {
		return res, nil
	}
	query := psql.Select("st.session_id", "t.id", "t.label", "t.color").
		From(table + " st").
		Join("tag t ON t.id = st.tag_id").
		Where(sq.Eq{"st.session_id": ids}).
		OrderBy("t.label ASC")
	var rows []sessionTagRow
	if err := selectContext(ctx, exec, &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying session tags")
	}
	for _, r := range rows {
		res[r.SessionID] = append(res[r.SessionID], tag.Summary{ID: r.ID, Label: r.Label, Color: r.Color})
	}
	return res, nil
}

func (repo sessionRepository) setTags(ctx context.Context, exec core.DBExecutor, table, sessionID string, tags []tag.Summary) error {
	if _, err := execContext(ctx, exec, psql.Delete(table).Where(sq.Eq{"session_id": sessionID})); err != nil {
		return errors.Wrap(err, "clearing session tags")
	}
	if len(tags) == 0 {
		return nil
	}
	insert := psql.Insert(table).Columns("session_id", "tag_id")
	for _, t := range tags {
		insert = insert.Values(sessionID, t.ID)
	}
	_, err := execContext(ctx, exec, insert)
	return errors.Wrap(err, "inserting session tags")
}

// Fixed Sessions

func (repo sessionRepository) queryFixed(ctx context.Context, exec core.DBExecutor, query sq.SelectBuilder) ([]session.FixedSession, error) {
	var rows []fixedSessionRow
	if err := selectContext(ctx, exec, &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying fixed sessions")
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	tags, err := repo.sessionTags(ctx, exec, "fixed_session_tag", ids)
	if err != nil {
		return nil, err
	}

	sessions := make([]session.FixedSession, 0, len(rows))
	for _, r := range rows {
		fs := session.FixedSession{
			ID:          r.ID,
			UserID:      r.UserID,
			Tags:        tags[r.ID],
			StartTime:   r.StartTime.UTC(),
			EndTime:     r.EndTime.UTC(),
			Description: r.Description,
			TaskID:      stringPtr(r.TaskID),
			CreatedAt:   r.CreatedAt.UTC(),
			UpdatedAt:   r.UpdatedAt.UTC(),
		}
		if cat := r.toCategory(r.UserID); cat != nil {
			fs.Category = *cat
		}
		if fs.Tags == nil {
			fs.Tags = []tag.Summary{}
		}
		fs.SetDuration()
		sessions = append(sessions, fs)
	}
	return sessions, nil
}

func (repo sessionRepository) selectFixed() sq.SelectBuilder {
	return psql.Select(fixedSessionColumns...).From("fixed_session fs").Join("category c ON c.id = fs.category_id")
}

func (repo sessionRepository) CreateFixedSession(ctx context.Context, fs session.FixedSession, exec ...core.DBExecutor) (session.FixedSession, error) {
	exe := core.GetExec(repo.db, exec)
	fs.ID = uuid.New().String()
	query := psql.Insert("fixed_session").
		Columns("id", "user_id", "category_id", "start_time", "end_time", "description", "task_id", "created_at", "updated_at").
		Values(fs.ID, fs.UserID, fs.Category.ID, fs.StartTime.UTC(), fs.EndTime.UTC(), fs.Description, toNullString(fs.TaskID),
			fs.CreatedAt.UTC(), fs.UpdatedAt.UTC())
	if _, err := execContext(ctx, exe, query); err != nil {
		return session.FixedSession{}, errors.Wrap(err, "inserting fixed session")
	}
	if err := repo.setTags(ctx, exe, "fixed_session_tag", fs.ID, fs.Tags); err != nil {
		return session.FixedSession{}, err
	}
	fs.SetDuration()
	return fs, nil
}

func (repo sessionRepository) QueryFixedSessions(ctx context.Context, userID string, filter session.QueryFilter, exec ...core.DBExecutor) ([]session.FixedSession, error) {
	if !isUUID(userID) {
		return []session.FixedSession{}, nil
	}
	query := repo.selectFixed().Where(sq.Eq{"fs.user_id": userID})

	if !filter.FromStartTime.IsZero() {
		query = query.Where(sq.GtOrEq{"fs.start_time": filter.FromStartTime.UTC()})
	}
	if !filter.ToStartTime.IsZero() {
		query = query.Where(sq.LtOrEq{"fs.start_time": filter.ToStartTime.UTC()})
	}
	if !filter.FromEndTime.IsZero() {
		query = query.Where(sq.GtOrEq{"fs.end_time": filter.FromEndTime.UTC()})
	}
	if !filter.ToEndTime.IsZero() {
		query = query.Where(sq.LtOrEq{"fs.end_time": filter.ToEndTime.UTC()})
	}
	if len(filter.CategoryIDs) > 0 {
		query = query.Where(sq.Eq{"fs.category_id": onlyUUIDs(filter.CategoryIDs)})
	}
	if tagIDs := onlyUUIDs(filter.TagIDs); len(filter.TagIDs) > 0 {
		sub := sq.Select("session_id").From("fixed_session_tag").Where(sq.Eq{"tag_id": tagIDs})
		if filter.TagMode == session.TagModeAll {
			sub = sub.GroupBy("session_id").Having("COUNT(DISTINCT tag_id) = ?", len(distinct(tagIDs)))
		}
		subSQL, subArgs, err := sub.ToSql()
		if err != nil {
			return nil, errors.Wrap(err, "building tag filter")
		}
		query = query.Where("fs.id IN ("+subSQL+")", subArgs...)
	}
	if filter.ProjectID != "" {
		if !isUUID(filter.ProjectID) {
			return []session.FixedSession{}, nil
		}
		query = query.Where("fs.task_id IN (SELECT id FROM task WHERE project_id = ?)", filter.ProjectID)
	}
	if filter.TaskID != "" {
		if !isUUID(filter.TaskID) {
			return []session.FixedSession{}, nil
		}
		query = query.Where(sq.Eq{"fs.task_id": filter.TaskID})
	}

	query = query.OrderBy(orderBy(filter.Ordering, "fs.")...)
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}
	return repo.queryFixed(ctx, core.GetExec(repo.db, exec), query)
}

func (repo sessionRepository) GetFixedSession(ctx context.Context, userID, id string, exec ...core.DBExecutor) (session.FixedSession, error) {
	if !isUUID(userID, id) {
		return session.FixedSession{}, session.ErrNotFound
	}
	sessions, err := repo.queryFixed(ctx, core.GetExec(repo.db, exec), repo.selectFixed().Where(sq.Eq{"fs.user_id": userID, "fs.id": id}))
	if err != nil {
		return session.FixedSession{}, err
	}
	if len(sessions) == 0 {
		return session.FixedSession{}, session.ErrNotFound
	}
	return sessions[0], nil
}

func (repo sessionRepository) UpdateFixedSession(ctx context.Context, fs session.FixedSession, exec ...core.DBExecutor) (session.FixedSession, error) {
	exe := core.GetExec(repo.db, exec)
	query := psql.Update("fixed_session").SetMap(map[string]interface{}{
		"category_id": fs.Category.ID,
		"start_time":  fs.StartTime.UTC(),
		"end_time":    fs.EndTime.UTC(),
		"description": fs.Description,
		"task_id":     toNullString(fs.TaskID),
		"updated_at":  fs.UpdatedAt.UTC(),
	}).Where(sq.Eq{"id": fs.ID, "user_id": fs.UserID})
	cnt, err := execContext(ctx, exe, query)
	if err != nil {
		return session.FixedSession{}, errors.Wrap(err, "updating fixed session")
	}
	if cnt == 0 {
		return session.FixedSession{}, session.ErrNotFound
	}
	if err = repo.setTags(ctx, exe, "fixed_session_tag", fs.ID, fs.Tags); err != nil {
		return session.FixedSession{}, err
	}
	return repo.GetFixedSession(ctx, fs.UserID, fs.ID, exe)
}

func (repo sessionRepository) DeleteFixedSessions(ctx context.Context, userID string, ids []string, exec ...core.DBExecutor) (int, error) {
	ids = onlyUUIDs(ids)
	if !isUUID(userID) || len(ids) == 0 {
		return 0, nil
	}
	cnt, err := execContext(ctx, core.GetExec(repo.db, exec), psql.Delete("fixed_session").Where(sq.Eq{"user_id": userID, "id": ids}))
	if err != nil {
		return 0, errors.Wrap(err, "deleting fixed sessions")
	}
	return cnt, nil
}

// Stopwatch Sessions

func (repo sessionRepository) GetStopwatchSession(ctx context.Context, userID string, exec ...core.DBExecutor) (session.StopwatchSession, error) {
	if !isUUID(userID) {
		return session.StopwatchSession{}, session.ErrStopwatchNotFound
	}
	exe := core.GetExec(repo.db, exec)
	query := psql.Select(stopwatchColumns...).From("stopwatch_session sw").
		LeftJoin("category c ON c.id = sw.category_id").
		Where(sq.Eq{"sw.user_id": userID}).
		Limit(1)

	var row stopwatchRow
	if err := getContext(ctx, exe, &row, query); err != nil {
		return session.StopwatchSession{}, trapNoRowsErr(err, session.ErrStopwatchNotFound, "finding stopwatch session")
	}
	tags, err := repo.sessionTags(ctx, exe, "stopwatch_session_tag", []string{row.ID})
	if err != nil {
		return session.StopwatchSession{}, err
	}

	sw := session.StopwatchSession{
		ID:          row.ID,
		UserID:      row.UserID,
		StartTime:   row.StartTime.UTC(),
		Category:    row.toCategory(row.UserID),
		Tags:        tags[row.ID],
		Description: row.Description,
		TaskID:      stringPtr(row.TaskID),
		CreatedAt:   row.CreatedAt.UTC(),
	}
	if sw.Tags == nil {
		sw.Tags = []tag.Summary{}
	}
	return sw, nil
}

func (repo sessionRepository) CreateStopwatchSession(ctx context.Context, sw session.StopwatchSession, exec ...core.DBExecutor) (session.StopwatchSession, error) {
	exe := core.GetExec(repo.db, exec)
	sw.ID = uuid.New().String()
	var categoryID sql.NullString
	if sw.Category != nil {
		categoryID = sql.NullString{String: sw.Category.ID, Valid: true}
	}
	query := psql.Insert("stopwatch_session").
		Columns("id", "user_id", "category_id", "start_time", "description", "task_id", "created_at").
		Values(sw.ID, sw.UserID, categoryID, sw.StartTime.UTC(), sw.Description, toNullString(sw.TaskID), sw.CreatedAt.UTC())
	if _, err := execContext(ctx, exe, query); err != nil {
		if isUniqueViolation(err) {
			return session.StopwatchSession{}, session.ErrStopwatchRunning
		}
		return session.StopwatchSession{}, errors.Wrap(err, "inserting stopwatch session")
	}
	if err := repo.setTags(ctx, exe, "stopwatch_session_tag", sw.ID, sw.Tags); err != nil {
		return session.StopwatchSession{}, err
	}
	return sw, nil
}

func (repo sessionRepository) UpdateStopwatchSession(ctx context.Context, sw session.StopwatchSession, exec ...core.DBExecutor) (session.StopwatchSession, error) {
	exe := core.GetExec(repo.db, exec)
	var categoryID sql.NullString
	if sw.Category != nil {
		categoryID = sql.NullString{String: sw.Category.ID, Valid: true}
	}
	query := psql.Update("stopwatch_session").SetMap(map[string]interface{}{
		"category_id": categoryID,
		"start_time":  sw.StartTime.UTC(),
		"description": sw.Description,
		"task_id":     toNullString(sw.TaskID),
	}).Where(sq.Eq{"id": sw.ID, "user_id": sw.UserID})
	cnt, err := execContext(ctx, exe, query)
	if err != nil {
		return session.StopwatchSession{}, errors.Wrap(err, "updating stopwatch session")
	}
	if cnt == 0 {
		return session.StopwatchSession{}, session.ErrStopwatchNotFound
	}
	if err = repo.setTags(ctx, exe, "stopwatch_session_tag", sw.ID, sw.Tags); err != nil {
		return session.StopwatchSession{}, err
	}
	return repo.GetStopwatchSession(ctx, sw.UserID, exe)
}

func (repo sessionRepository) DeleteStopwatchSession(ctx context.Context, userID string, exec ...core.DBExecutor) error {
	if !isUUID(userID) {
		return session.ErrStopwatchNotFound
	}
	cnt, err := execContext(ctx, core.GetExec(repo.db, exec), psql.Delete("stopwatch_session").Where(sq.Eq{"user_id": userID}))
	if err != nil {
		return errors.Wrap(err, "deleting stopwatch session")
	}
	if cnt == 0 {
		return session.ErrStopwatchNotFound
	}
	return nil
}
