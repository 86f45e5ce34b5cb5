package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/category"
)

var errCatNotFoundInCtx = errors.New("category object not found in echo.Context")

type categoryApi struct {
	svc      *category.Service
	validate *validator.Validate
}

func registerCategoryAPI(g *echo.Group, svc *category.Service, validate *validator.Validate) {
	api := categoryApi{svc: svc, validate: validate}

	g.GET("", api.query)
	g.POST("", api.create)
	g.POST("/upsert", api.upsert)

	dg := g.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

func (api *categoryApi) query(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	var filter category.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []category.Category{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	cats, err := api.svc.Query(ctx.Request().Context(), userID, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying categories")
	}
	return ctx.JSON(http.StatusOK, cats)
}

func (api *categoryApi) create(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	var data category.NewCategory
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCategory")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	cat, err := api.svc.Create(ctx.Request().Context(), userID, data)
	if err != nil {
		return errors.Wrap(err, "creating category")
	}
	return ctx.JSON(http.StatusCreated, cat)
}

func (api *categoryApi) upsert(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	var data category.NewCategory
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCategory")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	cat, created, err := api.svc.Upsert(ctx.Request().Context(), userID, data)
	if err != nil {
		return errors.Wrap(err, "upserting category")
	}
	if created {
		return ctx.JSON(http.StatusCreated, cat)
	}
	return ctx.JSON(http.StatusOK, cat)
}

func (api *categoryApi) retrieve(ctx echo.Context) error {
	cat, ok := ctx.Get("object").(category.Category)
	if !ok {
		return errors.Wrap(errCatNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, cat)
}

func (api *categoryApi) update(ctx echo.Context) error {
	cat, ok := ctx.Get("object").(category.Category)
	if !ok {
		return errors.Wrap(errCatNotFoundInCtx, "retrieving object from context")
	}
	var data category.UpdateCategory
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCategory")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cat, err := api.svc.Update(ctx.Request().Context(), cat, data)
	if err != nil {
		return errors.Wrap(err, "updating category")
	}
	return ctx.JSON(http.StatusOK, cat)
}

func (api *categoryApi) destroy(ctx echo.Context) error {
	cat, ok := ctx.Get("object").(category.Category)
	if !ok {
		return errors.Wrap(errCatNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), cat); err != nil {
		return errors.Wrap(err, "deleting category")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *categoryApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		userID, err := contextUserID(ctx)
		if err != nil {
			return err
		}
		cat, err := api.svc.Get(ctx.Request().Context(), userID, ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding category")
		}
		ctx.Set("object", cat)
		return next(ctx)
	}
}
