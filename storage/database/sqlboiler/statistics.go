// Package boiledrepos holds the aggregate (read-only) repositories. They run hand-written SQL
// through sqlboiler's raw queries and bind the rows by `boil` tags.
package boiledrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/statistics"
)

// windowCond restricts fixed_session (aliased fs) to a statistics.Window passed as $2 and $3.
const windowCond = `($2::timestamptz IS NULL OR fs.start_time >= $2) AND ($3::timestamptz IS NULL OR fs.start_time < $3)`

const (
	totalsQuery = `
SELECT COUNT(*) AS session_count,
       COALESCE(SUM(EXTRACT(EPOCH FROM fs.end_time - fs.start_time)), 0)::float8 / 60 AS total_minutes
FROM fixed_session fs
WHERE fs.user_id = $1 AND ` + windowCond

	sessionDatesQuery = `
SELECT DISTINCT date_trunc('day', fs.start_time AT TIME ZONE 'UTC') AS day
FROM fixed_session fs
WHERE fs.user_id = $1
ORDER BY day DESC`

	byCategoryQuery = `
SELECT c.id, c.name, c.color,
       SUM(EXTRACT(EPOCH FROM fs.end_time - fs.start_time))::float8 / 60 AS minutes,
       COUNT(*) AS session_count
FROM fixed_session fs
JOIN category c ON c.id = fs.category_id
WHERE fs.user_id = $1 AND ` + windowCond + `
GROUP BY c.id, c.name, c.color
ORDER BY minutes DESC, c.name ASC`

	byTagQuery = `
SELECT t.id, t.label AS name, t.color,
       SUM(EXTRACT(EPOCH FROM fs.end_time - fs.start_time))::float8 / 60 AS minutes,
       COUNT(*) AS session_count
FROM fixed_session fs
JOIN fixed_session_tag fst ON fst.session_id = fs.id
JOIN tag t ON t.id = fst.tag_id
WHERE fs.user_id = $1 AND ` + windowCond + `
GROUP BY t.id, t.label, t.color
ORDER BY minutes DESC, t.label ASC`

	dailyQuery = `
SELECT to_char(date_trunc('day', fs.start_time AT TIME ZONE 'UTC'), 'YYYY-MM-DD') AS date,
       SUM(EXTRACT(EPOCH FROM fs.end_time - fs.start_time))::float8 / 60 AS minutes,
       COUNT(*) AS session_count
FROM fixed_session fs
WHERE fs.user_id = $1 AND ` + windowCond + `
GROUP BY 1
ORDER BY 1 ASC`

	projectTasksQuery = `
SELECT t.id AS task_id, t.name,
       COALESCE(SUM(EXTRACT(EPOCH FROM fs.end_time - fs.start_time)), 0)::float8 / 60 AS minutes,
       COUNT(fs.id) AS session_count
FROM task t
LEFT JOIN fixed_session fs ON fs.task_id = t.id AND fs.user_id = $1
WHERE t.user_id = $1 AND t.project_id = $2
GROUP BY t.id, t.name, t.created_at
ORDER BY t.created_at ASC`
)

type (
	totalsRow struct {
		SessionCount int     `boil:"session_count"`
		TotalMinutes float64 `boil:"total_minutes"`
	}

	dayRow struct {
		Day time.Time `boil:"day"`
	}

	labelRow struct {
		ID           string  `boil:"id"`
		Name         string  `boil:"name"`
		Color        string  `boil:"color"`
		Minutes      float64 `boil:"minutes"`
		SessionCount int     `boil:"session_count"`
	}

	dailyRow struct {
		Date         string  `boil:"date"`
		Minutes      float64 `boil:"minutes"`
		SessionCount int     `boil:"session_count"`
	}

	taskRow struct {
		TaskID       string  `boil:"task_id"`
		Name         string  `boil:"name"`
		Minutes      float64 `boil:"minutes"`
		SessionCount int     `boil:"session_count"`
	}
)

type statisticsRepository struct {
	exec core.DBExecutor
}

var _ statistics.Repository = (*statisticsRepository)(nil) // interface compliance check

func NewStatisticsRepository(exec core.DBExecutor) *statisticsRepository {
	return &statisticsRepository{exec: exec}
}

func isUUID(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}

// windowArgs returns the query arguments of w; a zero bound is sent as NULL.
func windowArgs(userID string, w statistics.Window) []interface{} {
	return []interface{}{
		userID,
		null.NewTime(w.From.UTC(), !w.From.IsZero()),
		null.NewTime(w.To.UTC(), !w.To.IsZero()),
	}
}

func (repo statisticsRepository) Totals(ctx context.Context, userID string, w statistics.Window, exec ...core.DBExecutor) (statistics.Totals, error) {
	if !isUUID(userID) {
		return statistics.Totals{}, nil
	}
	var row totalsRow
	if err := queries.Raw(totalsQuery, windowArgs(userID, w)...).Bind(ctx, core.GetExec(repo.exec, exec), &row); err != nil {
		return statistics.Totals{}, errors.Wrap(err, "computing totals")
	}
	return statistics.Totals{SessionCount: row.SessionCount, TotalMinutes: row.TotalMinutes}, nil
}

func (repo statisticsRepository) SessionDates(ctx context.Context, userID string, exec ...core.DBExecutor) ([]time.Time, error) {
	if !isUUID(userID) {
		return []time.Time{}, nil
	}
	var rows []*dayRow
	if err := queries.Raw(sessionDatesQuery, userID).Bind(ctx, core.GetExec(repo.exec, exec), &rows); err != nil {
		return nil, errors.Wrap(err, "finding session dates")
	}
	dates := make([]time.Time, 0, len(rows))
	for _, r := range rows {
		d := r.Day
		dates = append(dates, time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC))
	}
	return dates, nil
}

func (repo statisticsRepository) labelStats(ctx context.Context, query, userID string, w statistics.Window, exec []core.DBExecutor) ([]statistics.LabelStat, error) {
	if !isUUID(userID) {
		return []statistics.LabelStat{}, nil
	}
	var rows []*labelRow
	if err := queries.Raw(query, windowArgs(userID, w)...).Bind(ctx, core.GetExec(repo.exec, exec), &rows); err != nil {
		return nil, err
	}
	stats := make([]statistics.LabelStat, 0, len(rows))
	for _, r := range rows {
		stats = append(stats, statistics.LabelStat{
			ID:           r.ID,
			Name:         r.Name,
			Color:        r.Color,
			Minutes:      r.Minutes,
			SessionCount: r.SessionCount,
		})
	}
	return stats, nil
}

func (repo statisticsRepository) MinutesByCategory(ctx context.Context, userID string, w statistics.Window, exec ...core.DBExecutor) ([]statistics.LabelStat, error) {
	stats, err := repo.labelStats(ctx, byCategoryQuery, userID, w, exec)
	return stats, errors.Wrap(err, "computing minutes by category")
}

func (repo statisticsRepository) MinutesByTag(ctx context.Context, userID string, w statistics.Window, exec ...core.DBExecutor) ([]statistics.LabelStat, error) {
	stats, err := repo.labelStats(ctx, byTagQuery, userID, w, exec)
	return stats, errors.Wrap(err, "computing minutes by tag")
}

func (repo statisticsRepository) DailyMinutes(ctx context.Context, userID string, w statistics.Window, exec ...core.DBExecutor) ([]statistics.DailyStat, error) {
	if !isUUID(userID) {
		return []statistics.DailyStat{}, nil
	}
	var rows []*dailyRow
	if err := queries.Raw(dailyQuery, windowArgs(userID, w)...).Bind(ctx, core.GetExec(repo.exec, exec), &rows); err != nil {
		return nil, errors.Wrap(err, "computing daily minutes")
	}
	stats := make([]statistics.DailyStat, 0, len(rows))
	for _, r := range rows {
		stats = append(stats, statistics.DailyStat{Date: r.Date, Minutes: r.Minutes, SessionCount: r.SessionCount})
	}
	return stats, nil
}

func (repo statisticsRepository) ProjectStatistics(ctx context.Context, userID, projectID string, exec ...core.DBExecutor) (statistics.ProjectStat, error) {
	stat := statistics.ProjectStat{ProjectID: projectID, Tasks: []statistics.TaskStat{}}
	if !isUUID(userID, projectID) {
		return stat, nil
	}
	var rows []*taskRow
	if err := queries.Raw(projectTasksQuery, userID, projectID).Bind(ctx, core.GetExec(repo.exec, exec), &rows); err != nil {
		return statistics.ProjectStat{}, errors.Wrap(err, "computing project statistics")
	}
	for _, r := range rows {
		stat.TotalMinutes += r.Minutes
		stat.SessionCount += r.SessionCount
		stat.Tasks = append(stat.Tasks, statistics.TaskStat{
			TaskID:       r.TaskID,
			Name:         r.Name,
			Minutes:      r.Minutes,
			SessionCount: r.SessionCount,
		})
	}
	return stat, nil
}
