package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/statistics"
)

type statisticsRepository struct {
	db *DB
}

var _ statistics.Repository = (*statisticsRepository)(nil)

func NewStatisticsRepository(db *DB) *statisticsRepository {
	return &statisticsRepository{db: db}
}

func inWindow(t time.Time, w statistics.Window) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && !t.Before(w.To) {
		return false
	}
	return true
}

// sessions returns the fixed sessions of the user started within w. The caller holds the lock.
func (repo *statisticsRepository) sessions(userID string, w statistics.Window) []fixedRecord {
	res := make([]fixedRecord, 0)
	for _, fs := range repo.db.fixed {
		if fs.UserID == userID && inWindow(fs.StartTime, w) {
			res = append(res, fs)
		}
	}
	return res
}

func sortLabelStats(stats []statistics.LabelStat) {
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Minutes == stats[j].Minutes {
			return strings.ToLower(stats[i].Name) < strings.ToLower(stats[j].Name)
		}
		return stats[i].Minutes > stats[j].Minutes
	})
}

func (repo *statisticsRepository) Totals(_ context.Context, userID string, w statistics.Window, _ ...core.DBExecutor) (statistics.Totals, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var totals statistics.Totals
	for _, fs := range repo.sessions(userID, w) {
		totals.SessionCount++
		totals.TotalMinutes += core.Minutes(fs.StartTime, fs.EndTime)
	}
	return totals, nil
}

func (repo *statisticsRepository) SessionDates(_ context.Context, userID string, _ ...core.DBExecutor) ([]time.Time, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	seen := make(map[time.Time]bool)
	dates := make([]time.Time, 0)
	for _, fs := range repo.sessions(userID, statistics.Window{}) {
		day := core.StartOfDay(fs.StartTime)
		if !seen[day] {
			seen[day] = true
			dates = append(dates, day)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	return dates, nil
}

func (repo *statisticsRepository) MinutesByCategory(_ context.Context, userID string, w statistics.Window, _ ...core.DBExecutor) ([]statistics.LabelStat, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	byID := make(map[string]*statistics.LabelStat)
	for _, fs := range repo.sessions(userID, w) {
		st, ok := byID[fs.CategoryID]
		if !ok {
			cat := repo.db.categories[fs.CategoryID]
			st = &statistics.LabelStat{ID: cat.ID, Name: cat.Name, Color: cat.Color}
			byID[fs.CategoryID] = st
		}
		st.Minutes += core.Minutes(fs.StartTime, fs.EndTime)
		st.SessionCount++
	}

	stats := make([]statistics.LabelStat, 0, len(byID))
	for _, st := range byID {
		stats = append(stats, *st)
	}
	sortLabelStats(stats)
	return stats, nil
}

func (repo *statisticsRepository) MinutesByTag(_ context.Context, userID string, w statistics.Window, _ ...core.DBExecutor) ([]statistics.LabelStat, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	byID := make(map[string]*statistics.LabelStat)
	for _, fs := range repo.sessions(userID, w) {
		for _, tagID := range fs.TagIDs {
			t, ok := repo.db.tags[tagID]
			if !ok {
				continue
			}
			st, ok := byID[tagID]
			if !ok {
				st = &statistics.LabelStat{ID: t.ID, Name: t.Label, Color: t.Color}
				byID[tagID] = st
			}
			st.Minutes += core.Minutes(fs.StartTime, fs.EndTime)
			st.SessionCount++
		}
	}

	stats := make([]statistics.LabelStat, 0, len(byID))
	for _, st := range byID {
		stats = append(stats, *st)
	}
	sortLabelStats(stats)
	return stats, nil
}

func (repo *statisticsRepository) DailyMinutes(_ context.Context, userID string, w statistics.Window, _ ...core.DBExecutor) ([]statistics.DailyStat, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	byDay := make(map[string]*statistics.DailyStat)
	for _, fs := range repo.sessions(userID, w) {
		key := fs.StartTime.UTC().Format(statistics.DayLayout)
		st, ok := byDay[key]
		if !ok {
			st = &statistics.DailyStat{Date: key}
			byDay[key] = st
		}
		st.Minutes += core.Minutes(fs.StartTime, fs.EndTime)
		st.SessionCount++
	}

	stats := make([]statistics.DailyStat, 0, len(byDay))
	for _, st := range byDay {
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Date < stats[j].Date })
	return stats, nil
}

func (repo *statisticsRepository) ProjectStatistics(_ context.Context, userID, projectID string, _ ...core.DBExecutor) (statistics.ProjectStat, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	stat := statistics.ProjectStat{ProjectID: projectID, Tasks: []statistics.TaskStat{}}
	tasks := make([]taskCreation, 0)
	for _, t := range repo.db.tasks {
		if t.UserID == userID && t.ProjectID == projectID {
			tasks = append(tasks, taskCreation{stat: statistics.TaskStat{TaskID: t.ID, Name: t.Name}, createdAt: t.CreatedAt})
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].createdAt.Before(tasks[j].createdAt) })

	for _, tc := range tasks {
		ts := tc.stat
		for _, fs := range repo.db.fixed {
			if fs.UserID == userID && fs.TaskID != nil && *fs.TaskID == ts.TaskID {
				ts.Minutes += core.Minutes(fs.StartTime, fs.EndTime)
				ts.SessionCount++
			}
		}
		stat.TotalMinutes += ts.Minutes
		stat.SessionCount += ts.SessionCount
		stat.Tasks = append(stat.Tasks, ts)
	}
	return stat, nil
}

type taskCreation struct {
	stat      statistics.TaskStat
	createdAt time.Time
}
