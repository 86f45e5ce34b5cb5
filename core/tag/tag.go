package tag

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/category"
)

const DefaultColor = "#9ca3af"

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("tag")
	ErrLabelExists       = errors.New("a tag with this label already exists")
	errCategoryNotFound  = "category not found"
	errCategoryNotListed = "category is not allowed for this tag"
)

type Tag struct {
	ID                string              `json:"id"`
	UserID            string              `json:"user_id"`
	Label             string              `json:"label"`
	Color             string              `json:"color"`
	AllowedCategories []category.Category `json:"allowed_categories"`
	Usages            int                 `json:"usages"`
	CreatedAt         time.Time           `json:"created_at"` // UTC
}

// AllowsCategory reports whether the tag may be used on a session of the category.
// A tag without allowed categories may be used with any category.
func (t Tag) AllowsCategory(categoryID string) bool {
	if len(t.AllowedCategories) == 0 {
		return true
	}
	for _, cat := range t.AllowedCategories {
		if cat.ID == categoryID {
			return true
		}
	}
	return false
}

func (t Tag) Summary() Summary {
	return Summary{ID: t.ID, Label: t.Label, Color: t.Color}
}

// Summary is a Tag as attached to a session.
type Summary struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// NewTag contains information needed to create a new Tag.
type NewTag struct {
	Label              string   `json:"label" validate:"required,notblank,max=50"`
	Color              string   `json:"color" validate:"omitempty,hexcolor_"`
	AllowedCategoryIDs []string `json:"allowed_category_ids" validate:"omitempty,dive,uuid"`
}

func (nt *NewTag) Validate(validate *validator.Validate) error {
	nt.Label = core.CleanString(nt.Label)
	nt.Color = core.CleanString(nt.Color, true /* lower */)
	return validate.Struct(nt)
}

// UpdateTag defines what may be changed on a Tag. Empty fields are left unchanged;
// a non-nil AllowedCategoryIDs replaces the allowed categories.
type UpdateTag struct {
	Label              string   `json:"label" validate:"omitempty,max=50"`
	Color              string   `json:"color" validate:"omitempty,hexcolor_"`
	AllowedCategoryIDs []string `json:"allowed_category_ids" validate:"omitempty,dive,uuid"`
}

func (ut *UpdateTag) Validate(validate *validator.Validate) error {
	ut.Label = core.CleanString(ut.Label)
	ut.Color = core.CleanString(ut.Color, true /* lower */)
	return validate.Struct(ut)
}

type AllowCategory struct {
	CategoryID string `json:"category_id" validate:"required,uuid"`
}

func (ac AllowCategory) Validate(validate *validator.Validate) error { return validate.Struct(ac) }

type QueryFilter struct {
	Label      string `query:"label"`       // case-insensitive contains
	CategoryID string `query:"category_id"` // tags usable with the category
}

type (
	Repository interface {
		CreateTag(ctx context.Context, t Tag, categoryIDs []string, exec ...core.DBExecutor) (Tag, error)
		// QueryTags returns the tags of the user ordered by label.
		QueryTags(ctx context.Context, userID string, filter QueryFilter, exec ...core.DBExecutor) ([]Tag, error)
		GetTag(ctx context.Context, userID, id string, exec ...core.DBExecutor) (Tag, error)
		GetTagsByID(ctx context.Context, userID string, ids []string, exec ...core.DBExecutor) ([]Tag, error)
		// GetTagByLabel does a case-insensitive match on Tag.Label.
		GetTagByLabel(ctx context.Context, userID, label string, exec ...core.DBExecutor) (Tag, error)
		// UpdateTag saves label and color, and replaces the allowed categories when categoryIDs is not nil.
		UpdateTag(ctx context.Context, t Tag, categoryIDs []string, exec ...core.DBExecutor) (Tag, error)
		AddAllowedCategory(ctx context.Context, tagID, categoryID string, exec ...core.DBExecutor) error
		RemoveAllowedCategory(ctx context.Context, tagID, categoryID string, exec ...core.DBExecutor) error
		// DeleteTag deletes the tag and detaches it from every session.
		DeleteTag(ctx context.Context, userID, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo    Repository
		catRepo category.Repository
	}
)

func NewService(repo Repository, catRepo category.Repository) *Service {
	return &Service{repo: repo, catRepo: catRepo}
}

func (svc *Service) checkUniqueLabel(ctx context.Context, userID, label, excludedID string) error {
	t, err := svc.repo.GetTagByLabel(ctx, userID, label)
	switch {
	case err == nil:
		if t.ID == excludedID {
			return nil
		}
		return core.NewValidationError(ErrLabelExists, core.FieldError{Field: "label", Error: ErrLabelExists.Error()})
	case errors.Cause(err) == ErrNotFound:
		return nil
	default:
		return errors.Wrap(err, "finding tag by label")
	}
}

// checkCategories makes sure every category exists and belongs to the user.
func (svc *Service) checkCategories(ctx context.Context, userID, field string, ids []string) ([]string, error) {
	seen := make(map[string]bool, len(ids))
	uniq := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := svc.catRepo.GetCategory(ctx, userID, id); err != nil {
			if errors.Cause(err) == category.ErrNotFound {
				return nil, core.NewValidationError(category.ErrNotFound, core.FieldError{Field: field, Error: errCategoryNotFound})
			}
			return nil, errors.Wrap(err, "finding category")
		}
		uniq = append(uniq, id)
	}
	return uniq, nil
}

func (svc *Service) Create(ctx context.Context, userID string, nt NewTag) (Tag, error) {
	if err := svc.checkUniqueLabel(ctx, userID, nt.Label, ""); err != nil {
		return Tag{}, err
	}
	catIDs, err := svc.checkCategories(ctx, userID, "allowed_category_ids", nt.AllowedCategoryIDs)
	if err != nil {
		return Tag{}, err
	}
	color := nt.Color
	if color == "" {
		color = DefaultColor
	}
	return svc.repo.CreateTag(ctx, Tag{
		UserID:    userID,
		Label:     nt.Label,
		Color:     color,
		CreatedAt: core.NowFunc(),
	}, catIDs)
}

func (svc *Service) Query(ctx context.Context, userID string, filter QueryFilter) ([]Tag, error) {
	filter.Label = core.CleanString(filter.Label)
	return svc.repo.QueryTags(ctx, userID, filter)
}

func (svc *Service) Get(ctx context.Context, userID, id string) (Tag, error) {
	return svc.repo.GetTag(ctx, userID, id)
}

func (svc *Service) Update(ctx context.Context, t Tag, ut UpdateTag) (Tag, error) {
	if ut.Label != "" && ut.Label != t.Label {
		if err := svc.checkUniqueLabel(ctx, t.UserID, ut.Label, t.ID); err != nil {
			return Tag{}, err
		}
		t.Label = ut.Label
	}
	if ut.Color != "" {
		t.Color = ut.Color
	}
	var catIDs []string
	if ut.AllowedCategoryIDs != nil {
		var err error
		if catIDs, err = svc.checkCategories(ctx, t.UserID, "allowed_category_ids", ut.AllowedCategoryIDs); err != nil {
			return Tag{}, err
		}
	}
	return svc.repo.UpdateTag(ctx, t, catIDs)
}

func (svc *Service) AddAllowedCategory(ctx context.Context, t Tag, categoryID string) (Tag, error) {
	if _, err := svc.checkCategories(ctx, t.UserID, "category_id", []string{categoryID}); err != nil {
		return Tag{}, err
	}
	for _, cat := range t.AllowedCategories {
		if cat.ID == categoryID {
			return t, nil
		}
	}
	if err := svc.repo.AddAllowedCategory(ctx, t.ID, categoryID); err != nil {
		return Tag{}, errors.Wrap(err, "adding allowed category")
	}
	return svc.repo.GetTag(ctx, t.UserID, t.ID)
}

func (svc *Service) RemoveAllowedCategory(ctx context.Context, t Tag, categoryID string) (Tag, error) {
	var listed bool
	for _, cat := range t.AllowedCategories {
		if cat.ID == categoryID {
			listed = true
			break
		}
	}
	if !listed {
		return Tag{}, core.NewValidationError(nil, core.FieldError{Field: "category_id", Error: errCategoryNotListed})
	}
	if err := svc.repo.RemoveAllowedCategory(ctx, t.ID, categoryID); err != nil {
		return Tag{}, errors.Wrap(err, "removing allowed category")
	}
	return svc.repo.GetTag(ctx, t.UserID, t.ID)
}

func (svc *Service) Delete(ctx context.Context, t Tag) error {
	return svc.repo.DeleteTag(ctx, t.UserID, t.ID)
}
