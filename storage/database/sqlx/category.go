package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/category"
)

var categoryColumns = []string{"id", "user_id", "name", "color", "created_at", "updated_at"}

type categoryRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Name      string    `db:"name"`
	Color     string    `db:"color"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r categoryRow) toCategory() category.Category {
	return category.Category{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		Color:     r.Color,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type categoryRepository struct {
	db core.DBExecutor
}

var _ category.Repository = (*categoryRepository)(nil)

func NewCategoryRepository(db core.DBExecutor) *categoryRepository {
	return &categoryRepository{db: db}
}

func (repo categoryRepository) CreateCategory(ctx context.Context, cat category.Category, exec ...core.DBExecutor) (category.Category, error) {
	cat.ID = uuid.New().String()
	query := psql.Insert("category").Columns(categoryColumns...).
		Values(cat.ID, cat.UserID, cat.Name, cat.Color, cat.CreatedAt.UTC(), cat.UpdatedAt.UTC())
	if _, err := execContext(ctx, core.GetExec(repo.db, exec), query); err != nil {
		if isUniqueViolation(err) {
			return category.Category{}, core.NewValidationError(category.ErrNameExists, core.FieldError{Field: "name", Error: category.ErrNameExists.Error()})
		}
		return category.Category{}, errors.Wrap(err, "inserting category")
	}
	return cat, nil
}

func (repo categoryRepository) QueryCategories(ctx context.Context, userID string, filter category.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]category.Category, error) {
	if !isUUID(userID) {
		return []category.Category{}, nil
	}
	query := psql.Select(categoryColumns...).From("category").Where(sq.Eq{"user_id": userID})
	if filter.Name != "" {
		query = query.Where(sq.ILike{"name": "%" + filter.Name + "%"})
	}
	query = query.OrderBy(orderBy(ordering, "")...)

	var rows []categoryRow
	if err := selectContext(ctx, core.GetExec(repo.db, exec), &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying categories")
	}
	cats := make([]category.Category, 0, len(rows))
	for _, r := range rows {
		cats = append(cats, r.toCategory())
	}
	return cats, nil
}

func (repo categoryRepository) get(ctx context.Context, exec core.DBExecutor, cond sq.Sqlizer) (category.Category, error) {
	var row categoryRow
	query := psql.Select(categoryColumns...).From("category").Where(cond).Limit(1)
	if err := getContext(ctx, exec, &row, query); err != nil {
		return category.Category{}, trapNoRowsErr(err, category.ErrNotFound, "finding category")
	}
	return row.toCategory(), nil
}

func (repo categoryRepository) GetCategory(ctx context.Context, userID, id string, exec ...core.DBExecutor) (category.Category, error) {
	if !isUUID(userID, id) {
		return category.Category{}, category.ErrNotFound
	}
	return repo.get(ctx, core.GetExec(repo.db, exec), sq.Eq{"user_id": userID, "id": id})
}

func (repo categoryRepository) GetCategoryByName(ctx context.Context, userID, name string, exec ...core.DBExecutor) (category.Category, error) {
	if !isUUID(userID) {
		return category.Category{}, category.ErrNotFound
	}
	return repo.get(ctx, core.GetExec(repo.db, exec), sq.And{
		sq.Eq{"user_id": userID},
		sq.Expr("lower(name) = lower(?)", name),
	})
}

func (repo categoryRepository) UpdateCategory(ctx context.Context, cat category.Category, exec ...core.DBExecutor) (category.Category, error) {
	query := psql.Update("category").
		Set("name", cat.Name).
		Set("color", cat.Color).
		Set("updated_at", cat.UpdatedAt.UTC()).
		Where(sq.Eq{"id": cat.ID, "user_id": cat.UserID})
	cnt, err := execContext(ctx, core.GetExec(repo.db, exec), query)
	if err != nil {
		if isUniqueViolation(err) {
			return category.Category{}, core.NewValidationError(category.ErrNameExists, core.FieldError{Field: "name", Error: category.ErrNameExists.Error()})
		}
		return category.Category{}, errors.Wrap(err, "updating category")
	}
	if cnt == 0 {
		return category.Category{}, category.ErrNotFound
	}
	return cat, nil
}

func (repo categoryRepository) DeleteCategory(ctx context.Context, userID, id string, exec ...core.DBExecutor) error {
	if !isUUID(userID, id) {
		return category.ErrNotFound
	}
	cnt, err := execContext(ctx, core.GetExec(repo.db, exec), psql.Delete("category").Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		if isForeignKeyViolation(err) {
			return category.ErrHasSessions
		}
		return errors.Wrap(err, "deleting category")
	}
	if cnt == 0 {
		return category.ErrNotFound
	}
	return nil
}

func (repo categoryRepository) CountSessions(ctx context.Context, userID, id string, exec ...core.DBExecutor) (int, error) {
	if !isUUID(userID, id) {
		return 0, nil
	}
	var res struct {
		Count int `db:"count"`
	}
	query := psql.Select().
		Column(sq.Expr("(SELECT COUNT(*) FROM fixed_session WHERE user_id = ? AND category_id = ?) + "+
			"(SELECT COUNT(*) FROM stopwatch_session WHERE user_id = ? AND category_id = ?) AS count", userID, id, userID, id))
	if err := getContext(ctx, core.GetExec(repo.db, exec), &res, query); err != nil {
		return 0, errors.Wrap(err, "counting category sessions")
	}
	return res.Count, nil
}
