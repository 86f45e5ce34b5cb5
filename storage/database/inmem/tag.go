package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/category"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/tag"
)

type tagRepository struct {
	db *DB
}

var _ tag.Repository = (*tagRepository)(nil)

func NewTagRepository(db *DB) *tagRepository {
	return &tagRepository{db: db}
}

func errLabelExists() error {
	return core.NewValidationError(tag.ErrLabelExists, core.FieldError{Field: "label", Error: tag.ErrLabelExists.Error()})
}

// hydrate builds a tag.Tag out of rec. The caller holds the lock.
func (db *DB) hydrateTag(rec tagRecord) tag.Tag {
	cats := make([]category.Category, 0, len(rec.CategoryIDs))
	for _, id := range rec.CategoryIDs {
		if cat, ok := db.categories[id]; ok {
			cats = append(cats, cat)
		}
	}
	sort.Slice(cats, func(i, j int) bool { return strings.ToLower(cats[i].Name) < strings.ToLower(cats[j].Name) })

	var usages int
	for _, fs := range db.fixed {
		if contains(fs.TagIDs, rec.ID) {
			usages++
		}
	}
	return tag.Tag{
		ID:                rec.ID,
		UserID:            rec.UserID,
		Label:             rec.Label,
		Color:             rec.Color,
		AllowedCategories: cats,
		Usages:            usages,
		CreatedAt:         rec.CreatedAt,
	}
}

func (db *DB) tagSummaries(ids []string) []tag.Summary {
	summaries := make([]tag.Summary, 0, len(ids))
	for _, id := range ids {
		if t, ok := db.tags[id]; ok {
			summaries = append(summaries, tag.Summary{ID: t.ID, Label: t.Label, Color: t.Color})
		}
	}
	sort.Slice(summaries, func(i, j int) bool { return strings.ToLower(summaries[i].Label) < strings.ToLower(summaries[j].Label) })
	return summaries
}

func (repo *tagRepository) labelTaken(userID, label, excludedID string) bool {
	for _, t := range repo.db.tags {
		if t.UserID == userID && t.ID != excludedID && strings.EqualFold(t.Label, label) {
			return true
		}
	}
	return false
}

func (repo *tagRepository) query(match func(t tagRecord) bool) []tag.Tag {
	tags := make([]tag.Tag, 0)
	for _, rec := range repo.db.tags {
		if match(rec) {
			tags = append(tags, repo.db.hydrateTag(rec))
		}
	}
	sort.Slice(tags, func(i, j int) bool { return strings.ToLower(tags[i].Label) < strings.ToLower(tags[j].Label) })
	return tags
}

func (repo *tagRepository) CreateTag(_ context.Context, t tag.Tag, categoryIDs []string, _ ...core.DBExecutor) (tag.Tag, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.labelTaken(t.UserID, t.Label, "") {
		return tag.Tag{}, errLabelExists()
	}
	rec := tagRecord{
		ID:          newID(),
		UserID:      t.UserID,
		Label:       t.Label,
		Color:       t.Color,
		CategoryIDs: copyStrings(categoryIDs),
		CreatedAt:   t.CreatedAt,
	}
	repo.db.tags[rec.ID] = rec
	return repo.db.hydrateTag(rec), nil
}

func (repo *tagRepository) QueryTags(_ context.Context, userID string, filter tag.QueryFilter, _ ...core.DBExecutor) ([]tag.Tag, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.query(func(t tagRecord) bool {
		if t.UserID != userID {
			return false
		}
		if filter.Label != "" && !containsFold(t.Label, filter.Label) {
			return false
		}
		if filter.CategoryID != "" && len(t.CategoryIDs) > 0 && !contains(t.CategoryIDs, filter.CategoryID) {
			return false
		}
		return true
	}), nil
}

func (repo *tagRepository) GetTag(_ context.Context, userID, id string, _ ...core.DBExecutor) (tag.Tag, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if rec, ok := repo.db.tags[id]; ok && rec.UserID == userID {
		return repo.db.hydrateTag(rec), nil
	}
	return tag.Tag{}, tag.ErrNotFound
}

func (repo *tagRepository) GetTagsByID(_ context.Context, userID string, ids []string, _ ...core.DBExecutor) ([]tag.Tag, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.query(func(t tagRecord) bool { return t.UserID == userID && contains(ids, t.ID) }), nil
}

func (repo *tagRepository) GetTagByLabel(_ context.Context, userID, label string, _ ...core.DBExecutor) (tag.Tag, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	tags := repo.query(func(t tagRecord) bool { return t.UserID == userID && strings.EqualFold(t.Label, label) })
	if len(tags) == 0 {
		return tag.Tag{}, tag.ErrNotFound
	}
	return tags[0], nil
}

func (repo *tagRepository) UpdateTag(_ context.Context, t tag.Tag, categoryIDs []string, _ ...core.DBExecutor) (tag.Tag, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	rec, ok := repo.db.tags[t.ID]
	if !ok || rec.UserID != t.UserID {
		return tag.Tag{}, tag.ErrNotFound
	}
	if repo.labelTaken(t.UserID, t.Label, t.ID) {
		return tag.Tag{}, errLabelExists()
	}
	rec.Label = t.Label
	rec.Color = t.Color
	if categoryIDs != nil {
		rec.CategoryIDs = copyStrings(categoryIDs)
	}
	repo.db.tags[rec.ID] = rec
	return repo.db.hydrateTag(rec), nil
}

func (repo *tagRepository) AddAllowedCategory(_ context.Context, tagID, categoryID string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	rec, ok := repo.db.tags[tagID]
	if !ok {
		return tag.ErrNotFound
	}
	if !contains(rec.CategoryIDs, categoryID) {
		rec.CategoryIDs = append(copyStrings(rec.CategoryIDs), categoryID)
		repo.db.tags[tagID] = rec
	}
	return nil
}

func (repo *tagRepository) RemoveAllowedCategory(_ context.Context, tagID, categoryID string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if rec, ok := repo.db.tags[tagID]; ok {
		rec.CategoryIDs = without(rec.CategoryIDs, categoryID)
		repo.db.tags[tagID] = rec
	}
	return nil
}

func (repo *tagRepository) DeleteTag(_ context.Context, userID, id string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if rec, ok := repo.db.tags[id]; !ok || rec.UserID != userID {
		return tag.ErrNotFound
	}
	delete(repo.db.tags, id)
	for fsID, fs := range repo.db.fixed {
		if contains(fs.TagIDs, id) {
			fs.TagIDs = without(fs.TagIDs, id)
			repo.db.fixed[fsID] = fs
		}
	}
	for usrID, sw := range repo.db.stopwatches {
		if contains(sw.TagIDs, id) {
			sw.TagIDs = without(sw.TagIDs, id)
			repo.db.stopwatches[usrID] = sw
		}
	}
	return nil
}
