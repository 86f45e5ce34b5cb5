package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/category"
)

type categoryRepository struct {
	db *DB
}

var _ category.Repository = (*categoryRepository)(nil)

func NewCategoryRepository(db *DB) *categoryRepository {
	return &categoryRepository{db: db}
}

func errCategoryNameExists() error {
	return core.NewValidationError(category.ErrNameExists, core.FieldError{Field: "name", Error: category.ErrNameExists.Error()})
}

// nameTaken reports whether another category of the user is named name (case-insensitive).
func (repo *categoryRepository) nameTaken(userID, name, excludedID string) bool {
	for _, cat := range repo.db.categories {
		if cat.UserID == userID && cat.ID != excludedID && strings.EqualFold(cat.Name, name) {
			return true
		}
	}
	return false
}

func (repo *categoryRepository) CreateCategory(_ context.Context, cat category.Category, _ ...core.DBExecutor) (category.Category, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.nameTaken(cat.UserID, cat.Name, "") {
		return category.Category{}, errCategoryNameExists()
	}
	cat.ID = newID()
	repo.db.categories[cat.ID] = cat
	return cat, nil
}

func (repo *categoryRepository) QueryCategories(_ context.Context, userID string, filter category.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]category.Category, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	cats := make([]category.Category, 0)
	for _, cat := range repo.db.categories {
		if cat.UserID != userID {
			continue
		}
		if filter.Name != "" && !containsFold(cat.Name, filter.Name) {
			continue
		}
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].ID < cats[j].ID })
	sortByOrderings(cats, ordering, func(i int, field string) interface{} {
		switch field {
		case "created_at":
			return cats[i].CreatedAt
		case "updated_at":
			return cats[i].UpdatedAt
		default:
			return cats[i].Name
		}
	})
	return cats, nil
}

func (repo *categoryRepository) GetCategory(_ context.Context, userID, id string, _ ...core.DBExecutor) (category.Category, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if cat, ok := repo.db.categories[id]; ok && cat.UserID == userID {
		return cat, nil
	}
	return category.Category{}, category.ErrNotFound
}

func (repo *categoryRepository) GetCategoryByName(_ context.Context, userID, name string, _ ...core.DBExecutor) (category.Category, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, cat := range repo.db.categories {
		if cat.UserID == userID && strings.EqualFold(cat.Name, name) {
			return cat, nil
		}
	}
	return category.Category{}, category.ErrNotFound
}

func (repo *categoryRepository) UpdateCategory(_ context.Context, cat category.Category, _ ...core.DBExecutor) (category.Category, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.categories[cat.ID]
	if !ok || orig.UserID != cat.UserID {
		return category.Category{}, category.ErrNotFound
	}
	if repo.nameTaken(cat.UserID, cat.Name, cat.ID) {
		return category.Category{}, errCategoryNameExists()
	}
	orig.Name = cat.Name
	orig.Color = cat.Color
	orig.UpdatedAt = cat.UpdatedAt
	repo.db.categories[cat.ID] = orig
	return orig, nil
}

// DeleteCategory also drops the category from the allowed categories of the tags
// and from the running stopwatch sessions.
func (repo *categoryRepository) DeleteCategory(_ context.Context, userID, id string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if cat, ok := repo.db.categories[id]; !ok || cat.UserID != userID {
		return category.ErrNotFound
	}
	for _, fs := range repo.db.fixed {
		if fs.CategoryID == id {
			return category.ErrHasSessions
		}
	}
	delete(repo.db.categories, id)
	for tagID, t := range repo.db.tags {
		if contains(t.CategoryIDs, id) {
			t.CategoryIDs = without(t.CategoryIDs, id)
			repo.db.tags[tagID] = t
		}
	}
	for usrID, sw := range repo.db.stopwatches {
		if sw.CategoryID != nil && *sw.CategoryID == id {
			sw.CategoryID = nil
			repo.db.stopwatches[usrID] = sw
		}
	}
	return nil
}

func (repo *categoryRepository) CountSessions(_ context.Context, userID, id string, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var cnt int
	for _, fs := range repo.db.fixed {
		if fs.UserID == userID && fs.CategoryID == id {
			cnt++
		}
	}
	if sw, ok := repo.db.stopwatches[userID]; ok && sw.CategoryID != nil && *sw.CategoryID == id {
		cnt++
	}
	return cnt, nil
}
