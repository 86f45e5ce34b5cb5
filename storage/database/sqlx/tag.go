package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/category"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/tag"
)

const tagUsagesColumn = "(SELECT COUNT(*) FROM fixed_session_tag fst WHERE fst.tag_id = t.id) AS usages"

var tagColumns = []string{"t.id", "t.user_id", "t.label", "t.color", "t.created_at", tagUsagesColumn}

type tagRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Label     string    `db:"label"`
	Color     string    `db:"color"`
	CreatedAt time.Time `db:"created_at"`
	Usages    int       `db:"usages"`
}

type tagCategoryRow struct {
	TagID string `db:"tag_id"`
	categoryRow
}

type tagRepository struct {
	db core.DBExecutor
}

var _ tag.Repository = (*tagRepository)(nil)

func NewTagRepository(db core.DBExecutor) *tagRepository {
	return &tagRepository{db: db}
}

// hydrate loads the allowed categories of the tags.
func (repo tagRepository) hydrate(ctx context.Context, exec core.DBExecutor, rows []tagRow) ([]tag.Tag, error) {
	tags := make([]tag.Tag, 0, len(rows))
	if len(rows) == 0 {
		return tags, nil
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}

	query := psql.Select("tc.tag_id", "c.id", "c.user_id", "c.name", "c.color", "c.created_at", "c.updated_at").
		From("tag_category tc").
		Join("category c ON c.id = tc.category_id").
		Where(sq.Eq{"tc.tag_id": ids}).
		OrderBy("c.name ASC")
	var catRows []tagCategoryRow
	if err := selectContext(ctx, exec, &catRows, query); err != nil {
		return nil, errors.Wrap(err, "querying allowed categories")
	}
	allowed := make(map[string][]category.Category, len(rows))
	for _, cr := range catRows {
		allowed[cr.TagID] = append(allowed[cr.TagID], cr.toCategory())
	}

	for _, r := range rows {
		cats := allowed[r.ID]
		if cats == nil {
			cats = []category.Category{}
		}
		tags = append(tags, tag.Tag{
			ID:                r.ID,
			UserID:            r.UserID,
			Label:             r.Label,
			Color:             r.Color,
			AllowedCategories: cats,
			Usages:            r.Usages,
			CreatedAt:         r.CreatedAt.UTC(),
		})
	}
	return tags, nil
}

func (repo tagRepository) query(ctx context.Context, exec core.DBExecutor, conds ...sq.Sqlizer) ([]tag.Tag, error) {
	query := psql.Select(tagColumns...).From("tag t").OrderBy("t.label ASC")
	for _, cond := range conds {
		query = query.Where(cond)
	}
	var rows []tagRow
	if err := selectContext(ctx, exec, &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying tags")
	}
	return repo.hydrate(ctx, exec, rows)
}

func (repo tagRepository) get(ctx context.Context, exec core.DBExecutor, conds ...sq.Sqlizer) (tag.Tag, error) {
	tags, err := repo.query(ctx, exec, conds...)
	if err != nil {
		return tag.Tag{}, err
	}
	if len(tags) == 0 {
		return tag.Tag{}, tag.ErrNotFound
	}
	return tags[0], nil
}

func (repo tagRepository) setCategories(ctx context.Context, exec core.DBExecutor, tagID string, categoryIDs []string) error {
	if _, err := execContext(ctx, exec, psql.Delete("tag_category").Where(sq.Eq{"tag_id": tagID})); err != nil {
		return errors.Wrap(err, "clearing allowed categories")
	}
	if len(categoryIDs) == 0 {
		return nil
	}
	insert := psql.Insert("tag_category").Columns("tag_id", "category_id")
	for _, catID := range categoryIDs {
		insert = insert.Values(tagID, catID)
	}
	_, err := execContext(ctx, exec, insert)
	return errors.Wrap(err, "inserting allowed categories")
}

func (repo tagRepository) CreateTag(ctx context.Context, t tag.Tag, categoryIDs []string, exec ...core.DBExecutor) (tag.Tag, error) {
	exe := core.GetExec(repo.db, exec)
	t.ID = uuid.New().String()
	query := psql.Insert("tag").Columns("id", "user_id", "label", "color", "created_at").
		Values(t.ID, t.UserID, t.Label, t.Color, t.CreatedAt.UTC())
	if _, err := execContext(ctx, exe, query); err != nil {
		if isUniqueViolation(err) {
			return tag.Tag{}, core.NewValidationError(tag.ErrLabelExists, core.FieldError{Field: "label", Error: tag.ErrLabelExists.Error()})
		}
		return tag.Tag{}, errors.Wrap(err, "inserting tag")
	}
	if err := repo.setCategories(ctx, exe, t.ID, categoryIDs); err != nil {
		return tag.Tag{}, err
	}
	return repo.GetTag(ctx, t.UserID, t.ID, exe)
}

func (repo tagRepository) QueryTags(ctx context.Context, userID string, filter tag.QueryFilter, exec ...core.DBExecutor) ([]tag.Tag, error) {
	if !isUUID(userID) {
		return []tag.Tag{}, nil
	}
	conds := []sq.Sqlizer{sq.Eq{"t.user_id": userID}}
	if filter.Label != "" {
		conds = append(conds, sq.ILike{"t.label": "%" + filter.Label + "%"})
	}
	if filter.CategoryID != "" {
		if !isUUID(filter.CategoryID) {
			return []tag.Tag{}, nil
		}
		// tags without restriction, or listing the category
		conds = append(conds, sq.Or{
			sq.Expr("NOT EXISTS (SELECT 1 FROM tag_category tc WHERE tc.tag_id = t.id)"),
			sq.Expr("EXISTS (SELECT 1 FROM tag_category tc WHERE tc.tag_id = t.id AND tc.category_id = ?)", filter.CategoryID),
		})
	}
	return repo.query(ctx, core.GetExec(repo.db, exec), conds...)
}

func (repo tagRepository) GetTag(ctx context.Context, userID, id string, exec ...core.DBExecutor) (tag.Tag, error) {
	if !isUUID(userID, id) {
		return tag.Tag{}, tag.ErrNotFound
	}
	return repo.get(ctx, core.GetExec(repo.db, exec), sq.Eq{"t.user_id": userID, "t.id": id})
}

func (repo tagRepository) GetTagsByID(ctx context.Context, userID string, ids []string, exec ...core.DBExecutor) ([]tag.Tag, error) {
	ids = onlyUUIDs(ids)
	if !isUUID(userID) || len(ids) == 0 {
		return []tag.Tag{}, nil
	}
	return repo.query(ctx, core.GetExec(repo.db, exec), sq.Eq{"t.user_id": userID, "t.id": ids})
}

func (repo tagRepository) GetTagByLabel(ctx context.Context, userID, label string, exec ...core.DBExecutor) (tag.Tag, error) {
	if !isUUID(userID) {
		return tag.Tag{}, tag.ErrNotFound
	}
	return repo.get(ctx, core.GetExec(repo.db, exec), sq.Eq{"t.user_id": userID}, sq.Expr("lower(t.label) = lower(?)", label))
}

func (repo tagRepository) UpdateTag(ctx context.Context, t tag.Tag, categoryIDs []string, exec ...core.DBExecutor) (tag.Tag, error) {
	exe := core.GetExec(repo.db, exec)
	query := psql.Update("tag").Set("label", t.Label).Set("color", t.Color).Where(sq.Eq{"id": t.ID, "user_id": t.UserID})
	cnt, err := execContext(ctx, exe, query)
	if err != nil {
		if isUniqueViolation(err) {
			return tag.Tag{}, core.NewValidationError(tag.ErrLabelExists, core.FieldError{Field: "label", Error: tag.ErrLabelExists.Error()})
		}
		return tag.Tag{}, errors.Wrap(err, "updating tag")
	}
	if cnt == 0 {
		return tag.Tag{}, tag.ErrNotFound
	}
	if categoryIDs != nil {
		if err = repo.setCategories(ctx, exe, t.ID, categoryIDs); err != nil {
			return tag.Tag{}, err
		}
	}
	return repo.GetTag(ctx, t.UserID, t.ID, exe)
}

func (repo tagRepository) AddAllowedCategory(ctx context.Context, tagID, categoryID string, exec ...core.DBExecutor) error {
	query := psql.Insert("tag_category").Columns("tag_id", "category_id").Values(tagID, categoryID).
		Suffix("ON CONFLICT DO NOTHING")
	_, err := execContext(ctx, core.GetExec(repo.db, exec), query)
	return errors.Wrap(err, "inserting allowed category")
}

func (repo tagRepository) RemoveAllowedCategory(ctx context.Context, tagID, categoryID string, exec ...core.DBExecutor) error {
	query := psql.Delete("tag_category").Where(sq.Eq{"tag_id": tagID, "category_id": categoryID})
	_, err := execContext(ctx, core.GetExec(repo.db, exec), query)
	return errors.Wrap(err, "deleting allowed category")
}

func (repo tagRepository) DeleteTag(ctx context.Context, userID, id string, exec ...core.DBExecutor) error {
	if !isUUID(userID, id) {
		return tag.ErrNotFound
	}
	cnt, err := execContext(ctx, core.GetExec(repo.db, exec), psql.Delete("tag").Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		return errors.Wrap(err, "deleting tag")
	}
	if cnt == 0 {
		return tag.ErrNotFound
	}
	return nil
}
