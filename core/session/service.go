package session

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/category"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/project"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/tag"
)

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("session")
	ErrStopwatchNotFound = core.NewNotFoundError("stopwatch session")
	ErrStopwatchRunning  = core.NewConflictError("a stopwatch session is already running")

	errCategoryNotFound  = "category not found"
	errCategoryRequired  = "a category is required to finish the session"
	errTagNotFound       = "tag not found"
	errTagNotAllowed     = "tag is not allowed for this category"
	errTaskNotFound      = "task not found"
	errEndBeforeStart    = "end_time must be after start_time"
	errStartInTheFuture  = "start_time cannot be in the future"
	errInvalidTimeWindow = "to must be after from"
)

type (
	Repository interface {
		// CreateFixedSession saves the session with its category and tags, and returns it hydrated.
		CreateFixedSession(ctx context.Context, fs FixedSession, exec ...core.DBExecutor) (FixedSession, error)
		QueryFixedSessions(ctx context.Context, userID string, filter QueryFilter, exec ...core.DBExecutor) ([]FixedSession, error)
		GetFixedSession(ctx context.Context, userID, id string, exec ...core.DBExecutor) (FixedSession, error)
		UpdateFixedSession(ctx context.Context, fs FixedSession, exec ...core.DBExecutor) (FixedSession, error)
		DeleteFixedSessions(ctx context.Context, userID string, ids []string, exec ...core.DBExecutor) (int, error)

		GetStopwatchSession(ctx context.Context, userID string, exec ...core.DBExecutor) (StopwatchSession, error)
		// CreateStopwatchSession returns ErrStopwatchRunning when the user already has one.
		CreateStopwatchSession(ctx context.Context, sw StopwatchSession, exec ...core.DBExecutor) (StopwatchSession, error)
		UpdateStopwatchSession(ctx context.Context, sw StopwatchSession, exec ...core.DBExecutor) (StopwatchSession, error)
		DeleteStopwatchSession(ctx context.Context, userID string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo      Repository
		catRepo   category.Repository
		tagRepo   tag.Repository
		projRepo  project.Repository
		tx        core.TxManager
		publisher core.EventPublisher
		logger    core.Logger
	}
)

func NewService(
	repo Repository,
	catRepo category.Repository,
	tagRepo tag.Repository,
	projRepo project.Repository,
	tx core.TxManager,
	publisher core.EventPublisher,
	logger core.Logger,
) *Service {
	return &Service{
		repo:      repo,
		catRepo:   catRepo,
		tagRepo:   tagRepo,
		projRepo:  projRepo,
		tx:        tx,
		publisher: publisher,
		logger:    logger,
	}
}

func fieldErr(field, msg string) error {
	return core.NewValidationError(nil, core.FieldError{Field: field, Error: msg})
}

func (svc *Service) resolveCategory(ctx context.Context, userID, id string) (category.Category, error) {
	cat, err := svc.catRepo.GetCategory(ctx, userID, id)
	if err != nil {
		if errors.Cause(err) == category.ErrNotFound {
			return category.Category{}, fieldErr("category_id", errCategoryNotFound)
		}
		return category.Category{}, errors.Wrap(err, "finding category")
	}
	return cat, nil
}

// resolveTags loads the tags of the user and checks them against the category (if any).
func (svc *Service) resolveTags(ctx context.Context, userID string, ids []string, categoryID string) ([]tag.Summary, error) {
	if len(ids) == 0 {
		return []tag.Summary{}, nil
	}
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}

	tags, err := svc.tagRepo.GetTagsByID(ctx, userID, uniq)
	if err != nil {
		return nil, errors.Wrap(err, "finding tags")
	}
	if len(tags) != len(uniq) {
		return nil, fieldErr("tag_ids", errTagNotFound)
	}
	summaries := make([]tag.Summary, 0, len(tags))
	for _, t := range tags {
		if categoryID != "" && !t.AllowsCategory(categoryID) {
			return nil, fieldErr("tag_ids", errTagNotAllowed+": "+t.Label)
		}
		summaries = append(summaries, t.Summary())
	}
	return summaries, nil
}

func (svc *Service) resolveTask(ctx context.Context, userID, id string) (*string, error) {
	if id == "" {
		return nil, nil
	}
	t, err := svc.projRepo.GetTask(ctx, userID, id)
	if err != nil {
		if errors.Cause(err) == project.ErrTaskNotFound {
			return nil, fieldErr("task_id", errTaskNotFound)
		}
		return nil, errors.Wrap(err, "finding task")
	}
	return &t.ID, nil
}

// publishFinished logs failures instead of failing the request: the session is already saved.
func (svc *Service) publishFinished(ctx context.Context, fs FixedSession) {
	if err := svc.publisher.Publish(ctx, core.TopicSessionFinished, newFinishedEvent(fs)); err != nil {
		svc.logger.Error("publishing "+core.TopicSessionFinished, errors.Wrap(err, "publishing session finished"))
	}
}

// Fixed Sessions

func (svc *Service) CreateFixed(ctx context.Context, userID string, nfs NewFixedSession) (FixedSession, error) {
	cat, err := svc.resolveCategory(ctx, userID, nfs.CategoryID)
	if err != nil {
		return FixedSession{}, err
	}
	tags, err := svc.resolveTags(ctx, userID, nfs.TagIDs, cat.ID)
	if err != nil {
		return FixedSession{}, err
	}
	taskID, err := svc.resolveTask(ctx, userID, nfs.TaskID)
	if err != nil {
		return FixedSession{}, err
	}

	now := core.NowFunc()
	fs := FixedSession{
		UserID:      userID,
		Category:    cat,
		Tags:        tags,
		StartTime:   nfs.StartTime.UTC(),
		EndTime:     nfs.EndTime.UTC(),
		Description: nfs.Description,
		TaskID:      taskID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	fs.SetDuration()

	fs, err = svc.repo.CreateFixedSession(ctx, fs)
	if err != nil {
		return FixedSession{}, errors.Wrap(err, "creating fixed session")
	}
	svc.publishFinished(ctx, fs)
	return fs, nil
}

func (svc *Service) QueryFixed(ctx context.Context, userID string, filter QueryFilter) ([]FixedSession, error) {
	filter.Clean()
	return svc.repo.QueryFixedSessions(ctx, userID, filter)
}

func (svc *Service) GetFixed(ctx context.Context, userID, id string) (FixedSession, error) {
	return svc.repo.GetFixedSession(ctx, userID, id)
}

func (svc *Service) UpdateFixed(ctx context.Context, fs FixedSession, ufs UpdateFixedSession) (FixedSession, error) {
	if ufs.StartTime != nil {
		fs.StartTime = ufs.StartTime.UTC()
	}
	if ufs.EndTime != nil {
		fs.EndTime = ufs.EndTime.UTC()
	}
	if !fs.EndTime.After(fs.StartTime) {
		return FixedSession{}, fieldErr("end_time", errEndBeforeStart)
	}

	categoryChanged := ufs.CategoryID != nil && *ufs.CategoryID != fs.Category.ID
	if categoryChanged {
		cat, err := svc.resolveCategory(ctx, fs.UserID, *ufs.CategoryID)
		if err != nil {
			return FixedSession{}, err
		}
		fs.Category = cat
	}

	if ufs.TagIDs != nil || categoryChanged {
		ids := ufs.TagIDs
		if ids == nil {
			ids = fs.TagIDs()
		}
		tags, err := svc.resolveTags(ctx, fs.UserID, ids, fs.Category.ID)
		if err != nil {
			return FixedSession{}, err
		}
		fs.Tags = tags
	}

	if ufs.Description != nil {
		fs.Description = *ufs.Description
	}
	if ufs.TaskID != nil {
		taskID, err := svc.resolveTask(ctx, fs.UserID, *ufs.TaskID)
		if err != nil {
			return FixedSession{}, err
		}
		fs.TaskID = taskID
	}

	fs.SetDuration()
	fs.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateFixedSession(ctx, fs)
}

func (svc *Service) DeleteFixed(ctx context.Context, userID string, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return svc.repo.DeleteFixedSessions(ctx, userID, ids)
}

// Timeline returns the sessions overlapping [from, to] grouped in non overlapping rows.
func (svc *Service) Timeline(ctx context.Context, userID string, from, to time.Time) ([][]FixedSession, error) {
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		return nil, fieldErr("to", errInvalidTimeWindow)
	}
	filter := QueryFilter{
		FromEndTime: from,
		ToStartTime: to,
		Ordering:    []core.DBOrdering{{Field: "start_time", Ascending: true}},
	}
	sessions, err := svc.QueryFixed(ctx, userID, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying fixed sessions")
	}
	return ToNonOverlappingRows(sessions), nil
}

// Stopwatch Sessions

func (svc *Service) GetStopwatch(ctx context.Context, userID string) (StopwatchSession, error) {
	return svc.repo.GetStopwatchSession(ctx, userID)
}

func (svc *Service) StartStopwatch(ctx context.Context, userID string, ss StartStopwatch) (StopwatchSession, error) {
	if _, err := svc.repo.GetStopwatchSession(ctx, userID); err == nil {
		return StopwatchSession{}, ErrStopwatchRunning
	} else if errors.Cause(err) != ErrStopwatchNotFound {
		return StopwatchSession{}, errors.Wrap(err, "finding stopwatch session")
	}

	now := core.NowFunc()
	sw := StopwatchSession{
		UserID:      userID,
		StartTime:   now,
		Description: ss.Description,
		CreatedAt:   now,
	}
	if ss.StartTime != nil {
		sw.StartTime = ss.StartTime.UTC()
		if sw.StartTime.After(now) {
			return StopwatchSession{}, fieldErr("start_time", errStartInTheFuture)
		}
	}

	var categoryID string
	if ss.CategoryID != "" {
		cat, err := svc.resolveCategory(ctx, userID, ss.CategoryID)
		if err != nil {
			return StopwatchSession{}, err
		}
		sw.Category = &cat
		categoryID = cat.ID
	}
	tags, err := svc.resolveTags(ctx, userID, ss.TagIDs, categoryID)
	if err != nil {
		return StopwatchSession{}, err
	}
	sw.Tags = tags
	if sw.TaskID, err = svc.resolveTask(ctx, userID, ss.TaskID); err != nil {
		return StopwatchSession{}, err
	}

	return svc.repo.CreateStopwatchSession(ctx, sw)
}

func (svc *Service) UpdateStopwatch(ctx context.Context, sw StopwatchSession, us UpdateStopwatch) (StopwatchSession, error) {
	if us.StartTime != nil {
		start := us.StartTime.UTC()
		if start.After(core.NowFunc()) {
			return StopwatchSession{}, fieldErr("start_time", errStartInTheFuture)
		}
		sw.StartTime = start
	}

	categoryChanged := false
	if us.CategoryID != nil {
		switch {
		case *us.CategoryID == "":
			categoryChanged = sw.Category != nil
			sw.Category = nil
		case sw.Category == nil || sw.Category.ID != *us.CategoryID:
			cat, err := svc.resolveCategory(ctx, sw.UserID, *us.CategoryID)
			if err != nil {
				return StopwatchSession{}, err
			}
			sw.Category = &cat
			categoryChanged = true
		}
	}

	if us.TagIDs != nil || categoryChanged {
		ids := us.TagIDs
		if ids == nil {
			ids = sw.TagIDs()
		}
		var categoryID string
		if sw.Category != nil {
			categoryID = sw.Category.ID
		}
		tags, err := svc.resolveTags(ctx, sw.UserID, ids, categoryID)
		if err != nil {
			return StopwatchSession{}, err
		}
		sw.Tags = tags
	}

	if us.Description != nil {
		sw.Description = *us.Description
	}
	if us.TaskID != nil {
		taskID, err := svc.resolveTask(ctx, sw.UserID, *us.TaskID)
		if err != nil {
			return StopwatchSession{}, err
		}
		sw.TaskID = taskID
	}
	return svc.repo.UpdateStopwatchSession(ctx, sw)
}

// DiscardStopwatch deletes the running session without logging it.
func (svc *Service) DiscardStopwatch(ctx context.Context, userID string) error {
	return svc.repo.DeleteStopwatchSession(ctx, userID)
}

// FinishStopwatch converts the running session into a FixedSession, atomically.
func (svc *Service) FinishStopwatch(ctx context.Context, userID string, fin FinishStopwatch) (FixedSession, error) {
	sw, err := svc.repo.GetStopwatchSession(ctx, userID)
	if err != nil {
		return FixedSession{}, err
	}
	if sw.Category == nil {
		return FixedSession{}, fieldErr("category_id", errCategoryRequired)
	}

	now := core.NowFunc()
	end := now
	if fin.EndTime != nil {
		end = fin.EndTime.UTC()
	}
	if !end.After(sw.StartTime) {
		return FixedSession{}, fieldErr("end_time", errEndBeforeStart)
	}

	// tags could have been restricted since the stopwatch started
	tags, err := svc.resolveTags(ctx, userID, sw.TagIDs(), sw.Category.ID)
	if err != nil {
		return FixedSession{}, err
	}

	fs := FixedSession{
		UserID:      userID,
		Category:    *sw.Category,
		Tags:        tags,
		StartTime:   sw.StartTime,
		EndTime:     end,
		Description: sw.Description,
		TaskID:      sw.TaskID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	fs.SetDuration()

	err = svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var txErr error
		if fs, txErr = svc.repo.CreateFixedSession(ctx, fs, exec); txErr != nil {
			return errors.Wrap(txErr, "creating fixed session")
		}
		return errors.Wrap(svc.repo.DeleteStopwatchSession(ctx, userID, exec), "deleting stopwatch session")
	})
	if err != nil {
		return FixedSession{}, err
	}
	svc.publishFinished(ctx, fs)
	return fs, nil
}
