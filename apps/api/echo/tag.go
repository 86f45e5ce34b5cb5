package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/tag"
)

var errTagNotFoundInCtx = errors.New("tag object not found in echo.Context")

type tagApi struct {
	svc      *tag.Service
	validate *validator.Validate
}

func registerTagAPI(g *echo.Group, svc *tag.Service, validate *validator.Validate) {
	api := tagApi{svc: svc, validate: validate}

	g.GET("", api.query)
	g.POST("", api.create)

	dg := g.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.POST("/categories", api.addCategory)
	dg.DELETE("/categories/:category_id", api.removeCategory)
}

func (api *tagApi) query(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	var filter tag.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []tag.Tag{})
	}

	tags, err := api.svc.Query(ctx.Request().Context(), userID, filter)
	if err != nil {
		return errors.Wrap(err, "querying tags")
	}
	return ctx.JSON(http.StatusOK, tags)
}

func (api *tagApi) create(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	var data tag.NewTag
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTag")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.Create(ctx.Request().Context(), userID, data)
	if err != nil {
		return errors.Wrap(err, "creating tag")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *tagApi) retrieve(ctx echo.Context) error {
	t, ok := ctx.Get("object").(tag.Tag)
	if !ok {
		return errors.Wrap(errTagNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *tagApi) update(ctx echo.Context) error {
	t, ok := ctx.Get("object").(tag.Tag)
	if !ok {
		return errors.Wrap(errTagNotFoundInCtx, "retrieving object from context")
	}
	var data tag.UpdateTag
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTag")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.Update(ctx.Request().Context(), t, data)
	if err != nil {
		return errors.Wrap(err, "updating tag")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *tagApi) destroy(ctx echo.Context) error {
	t, ok := ctx.Get("object").(tag.Tag)
	if !ok {
		return errors.Wrap(errTagNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), t); err != nil {
		return errors.Wrap(err, "deleting tag")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *tagApi) addCategory(ctx echo.Context) error {
	t, ok := ctx.Get("object").(tag.Tag)
	if !ok {
		return errors.Wrap(errTagNotFoundInCtx, "retrieving object from context")
	}
	var data tag.AllowCategory
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AllowCategory")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.AddAllowedCategory(ctx.Request().Context(), t, data.CategoryID)
	if err != nil {
		return errors.Wrap(err, "adding allowed category")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *tagApi) removeCategory(ctx echo.Context) error {
	t, ok := ctx.Get("object").(tag.Tag)
	if !ok {
		return errors.Wrap(errTagNotFoundInCtx, "retrieving object from context")
	}

	t, err := api.svc.RemoveAllowedCategory(ctx.Request().Context(), t, ctx.Param("category_id"))
	if err != nil {
		return errors.Wrap(err, "removing allowed category")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *tagApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		userID, err := contextUserID(ctx)
		if err != nil {
			return err
		}
		t, err := api.svc.Get(ctx.Request().Context(), userID, ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding tag")
		}
		ctx.Set("object", t)
		return next(ctx)
	}
}
