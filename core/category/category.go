package category

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
)

const DefaultColor = "#6b7280"

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("category")
	ErrNameExists    = errors.New("a category with this name already exists")
	ErrHasSessions   = core.NewConflictError("category has sessions")
	OrderingFields   = []string{"name", "created_at", "updated_at"}
	defaultOrderings = []core.DBOrdering{{Field: "name", Ascending: true}}
)

type Category struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewCategory contains information needed to create a new Category.
type NewCategory struct {
	Name  string `json:"name" validate:"required,notblank,max=50"`
	Color string `json:"color" validate:"omitempty,hexcolor_"`
}

func (nc *NewCategory) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Color = core.CleanString(nc.Color, true /* lower */)
	return validate.Struct(nc)
}

// UpdateCategory defines what may be changed on a Category. Empty fields are left unchanged.
type UpdateCategory struct {
	Name  string `json:"name" validate:"omitempty,max=50"`
	Color string `json:"color" validate:"omitempty,hexcolor_"`
}

func (uc *UpdateCategory) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	uc.Color = core.CleanString(uc.Color, true /* lower */)
	return validate.Struct(uc)
}

type QueryFilter struct {
	Name string `query:"name"` // case-insensitive contains
}

type (
	Repository interface {
		CreateCategory(ctx context.Context, cat Category, exec ...core.DBExecutor) (Category, error)
		QueryCategories(ctx context.Context, userID string, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Category, error)
		GetCategory(ctx context.Context, userID, id string, exec ...core.DBExecutor) (Category, error)
		// GetCategoryByName does a case-insensitive match on Category.Name.
		GetCategoryByName(ctx context.Context, userID, name string, exec ...core.DBExecutor) (Category, error)
		UpdateCategory(ctx context.Context, cat Category, exec ...core.DBExecutor) (Category, error)
		DeleteCategory(ctx context.Context, userID, id string, exec ...core.DBExecutor) error
		// CountSessions counts the fixed and stopwatch sessions filed under the category.
		CountSessions(ctx context.Context, userID, id string, exec ...core.DBExecutor) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueName(ctx context.Context, userID, name string, excludedID string) error {
	cat, err := svc.repo.GetCategoryByName(ctx, userID, name)
	switch {
	case err == nil:
		if cat.ID == excludedID {
			return nil
		}
		return core.NewValidationError(ErrNameExists, core.FieldError{Field: "name", Error: ErrNameExists.Error()})
	case errors.Cause(err) == ErrNotFound:
		return nil
	default:
		return errors.Wrap(err, "finding category by name")
	}
}

func (svc *Service) Create(ctx context.Context, userID string, nc NewCategory) (Category, error) {
	if err := svc.checkUniqueName(ctx, userID, nc.Name, ""); err != nil {
		return Category{}, err
	}
	color := nc.Color
	if color == "" {
		color = DefaultColor
	}
	now := core.NowFunc()
	return svc.repo.CreateCategory(ctx, Category{
		UserID:    userID,
		Name:      nc.Name,
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// Upsert returns the category of the user named nc.Name, creating it when it does not exist.
func (svc *Service) Upsert(ctx context.Context, userID string, nc NewCategory) (Category, bool, error) {
	cat, err := svc.repo.GetCategoryByName(ctx, userID, nc.Name)
	if err == nil {
		return cat, false, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return Category{}, false, errors.Wrap(err, "finding category by name")
	}
	cat, err = svc.Create(ctx, userID, nc)
	return cat, err == nil, err
}

func (svc *Service) Query(ctx context.Context, userID string, filter QueryFilter, ordering []core.DBOrdering) ([]Category, error) {
	filter.Name = core.CleanString(filter.Name)
	ordering = core.FilterOrderings(ordering, OrderingFields...)
	if len(ordering) == 0 {
		ordering = defaultOrderings
	}
	return svc.repo.QueryCategories(ctx, userID, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, userID, id string) (Category, error) {
	return svc.repo.GetCategory(ctx, userID, id)
}

func (svc *Service) Update(ctx context.Context, cat Category, uc UpdateCategory) (Category, error) {
	if uc.Name != "" && uc.Name != cat.Name {
		if err := svc.checkUniqueName(ctx, cat.UserID, uc.Name, cat.ID); err != nil {
			return Category{}, err
		}
		cat.Name = uc.Name
	}
	if uc.Color != "" {
		cat.Color = uc.Color
	}
	cat.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateCategory(ctx, cat)
}

// Delete removes a category that no session refers to.
func (svc *Service) Delete(ctx context.Context, cat Category) error {
	cnt, err := svc.repo.CountSessions(ctx, cat.UserID, cat.ID)
	if err != nil {
		return errors.Wrap(err, "counting category sessions")
	}
	if cnt > 0 {
		return ErrHasSessions
	}
	return svc.repo.DeleteCategory(ctx, cat.UserID, cat.ID)
}
