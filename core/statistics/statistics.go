// Package statistics aggregates the fixed sessions of a user into dashboard figures.
// Minutes are always the sum of (end_time - start_time) of fixed sessions, days are UTC days.
package statistics

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/project"
)

const (
	DayLayout = "2006-01-02"

	defaultDailyDays = 30
	maxWindowDays    = 366
)

var (
	errInvalidWindow = "to must be after from"
	errWindowTooWide = "the time window cannot exceed 366 days"
)

type (
	// Window bounds sessions by start time, From included, To excluded. A zero bound is open.
	Window struct {
		From time.Time
		To   time.Time
	}

	Totals struct {
		SessionCount int     `json:"session_count"`
		TotalMinutes float64 `json:"total_minutes"`
	}

	Dashboard struct {
		SessionCount    int     `json:"session_count"`
		TotalMinutes    float64 `json:"total_minutes"`
		Streak          int     `json:"streak"`
		MinutesToday    float64 `json:"minutes_today"`
		MinutesThisWeek float64 `json:"minutes_this_week"`
	}

	Streak struct {
		Current int `json:"current"`
		Longest int `json:"longest"`
	}

	// LabelStat is the time spent on a category or a tag.
	LabelStat struct {
		ID           string  `json:"id"`
		Name         string  `json:"name"`
		Color        string  `json:"color"`
		Minutes      float64 `json:"minutes"`
		SessionCount int     `json:"session_count"`
	}

	DailyStat struct {
		Date         string  `json:"date"` // YYYY-MM-DD
		Minutes      float64 `json:"minutes"`
		SessionCount int     `json:"session_count"`
	}

	TaskStat struct {
		TaskID       string  `json:"task_id"`
		Name         string  `json:"name"`
		Minutes      float64 `json:"minutes"`
		SessionCount int     `json:"session_count"`
	}

	ProjectStat struct {
		ProjectID    string     `json:"project_id"`
		TotalMinutes float64    `json:"total_minutes"`
		SessionCount int        `json:"session_count"`
		Tasks        []TaskStat `json:"tasks"`
	}
)

type (
	Repository interface {
		Totals(ctx context.Context, userID string, w Window, exec ...core.DBExecutor) (Totals, error)
		// SessionDates returns the distinct UTC days (midnight) on which the user started a session, most recent first.
		SessionDates(ctx context.Context, userID string, exec ...core.DBExecutor) ([]time.Time, error)
		// MinutesByCategory and MinutesByTag are ordered by minutes, descending.
		MinutesByCategory(ctx context.Context, userID string, w Window, exec ...core.DBExecutor) ([]LabelStat, error)
		MinutesByTag(ctx context.Context, userID string, w Window, exec ...core.DBExecutor) ([]LabelStat, error)
		// DailyMinutes only returns the days having sessions, ascending.
		DailyMinutes(ctx context.Context, userID string, w Window, exec ...core.DBExecutor) ([]DailyStat, error)
		// ProjectStatistics aggregates the sessions of the project's tasks; every task is listed.
		ProjectStatistics(ctx context.Context, userID, projectID string, exec ...core.DBExecutor) (ProjectStat, error)
	}

	Service struct {
		repo     Repository
		projRepo project.Repository
	}
)

func NewService(repo Repository, projRepo project.Repository) *Service {
	return &Service{repo: repo, projRepo: projRepo}
}

func (w Window) validate() error {
	if !w.From.IsZero() && !w.To.IsZero() {
		if !w.To.After(w.From) {
			return core.NewValidationError(nil, core.FieldError{Field: "to", Error: errInvalidWindow})
		}
	}
	return nil
}

func (svc *Service) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	now := core.NowFunc()
	today := core.StartOfDay(now)

	all, err := svc.repo.Totals(ctx, userID, Window{})
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "computing totals")
	}
	// scheduled sessions do not count yet
	tomorrow := today.AddDate(0, 0, 1)
	todays, err := svc.repo.Totals(ctx, userID, Window{From: today, To: tomorrow})
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "computing today's totals")
	}
	weeks, err := svc.repo.Totals(ctx, userID, Window{From: core.StartOfWeek(now), To: tomorrow})
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "computing this week's totals")
	}
	streak, err := svc.Streak(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}

	return Dashboard{
		SessionCount:    all.SessionCount,
		TotalMinutes:    all.TotalMinutes,
		Streak:          streak.Current,
		MinutesToday:    todays.TotalMinutes,
		MinutesThisWeek: weeks.TotalMinutes,
	}, nil
}

func (svc *Service) Streak(ctx context.Context, userID string) (Streak, error) {
	dates, err := svc.repo.SessionDates(ctx, userID)
	if err != nil {
		return Streak{}, errors.Wrap(err, "finding session dates")
	}
	return ComputeStreak(dates, core.NowFunc()), nil
}

func (svc *Service) Categories(ctx context.Context, userID string, w Window) ([]LabelStat, error) {
	if err := w.validate(); err != nil {
		return nil, err
	}
	return svc.repo.MinutesByCategory(ctx, userID, w)
}

func (svc *Service) Tags(ctx context.Context, userID string, w Window) ([]LabelStat, error) {
	if err := w.validate(); err != nil {
		return nil, err
	}
	return svc.repo.MinutesByTag(ctx, userID, w)
}

// Daily returns one DailyStat per day of the window, days without sessions included.
// The window defaults to the last 30 days (today included).
func (svc *Service) Daily(ctx context.Context, userID string, w Window) ([]DailyStat, error) {
	if w.To.IsZero() {
		w.To = core.StartOfDay(core.NowFunc()).AddDate(0, 0, 1)
	}
	if w.From.IsZero() {
		w.From = core.StartOfDay(w.To.Add(-time.Nanosecond)).AddDate(0, 0, -(defaultDailyDays - 1))
	}
	if err := w.validate(); err != nil {
		return nil, err
	}
	if w.To.Sub(w.From) > maxWindowDays*24*time.Hour {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "from", Error: errWindowTooWide})
	}

	stats, err := svc.repo.DailyMinutes(ctx, userID, w)
	if err != nil {
		return nil, errors.Wrap(err, "computing daily minutes")
	}
	return FillDays(w, stats), nil
}

func (svc *Service) Project(ctx context.Context, userID, projectID string) (ProjectStat, error) {
	if _, err := svc.projRepo.GetProject(ctx, userID, projectID); err != nil {
		return ProjectStat{}, err
	}
	return svc.repo.ProjectStatistics(ctx, userID, projectID)
}

// ComputeStreak walks the distinct session days (descending) once.
// The current streak ends today, or yesterday when nothing was logged yet today.
// Days after today (scheduled sessions) are ignored.
func ComputeStreak(dates []time.Time, now time.Time) Streak {
	var s Streak
	if len(dates) == 0 {
		return s
	}

	today := core.StartOfDay(now)
	yesterday := today.AddDate(0, 0, -1)

	run := 0
	var prev time.Time
	currentOpen := false
	first := true
	for _, d := range dates {
		d = core.StartOfDay(d)
		if d.After(today) {
			continue
		}
		switch {
		case first:
			first = false
			run = 1
			currentOpen = d.Equal(today) || d.Equal(yesterday)
		case prev.AddDate(0, 0, -1).Equal(d):
			run++
		case prev.Equal(d):
			continue
		default:
			if currentOpen {
				s.Current = run
				currentOpen = false
			}
			run = 1
		}
		prev = d
		if run > s.Longest {
			s.Longest = run
		}
	}
	if currentOpen {
		s.Current = run
	}
	return s
}

// FillDays returns a DailyStat for every day in w, taking the figures from stats.
func FillDays(w Window, stats []DailyStat) []DailyStat {
	byDay := make(map[string]DailyStat, len(stats))
	for _, st := range stats {
		byDay[st.Date] = st
	}

	from := core.StartOfDay(w.From)
	res := make([]DailyStat, 0, int(w.To.Sub(from).Hours()/24)+1)
	for d := from; d.Before(w.To); d = d.AddDate(0, 0, 1) {
		key := d.Format(DayLayout)
		if st, ok := byDay[key]; ok {
			res = append(res, st)
		} else {
			res = append(res, DailyStat{Date: key})
		}
	}
	return res
}
