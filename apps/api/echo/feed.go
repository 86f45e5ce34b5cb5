package echoapi

import (
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/feed"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/user"
)

type feedApi struct {
	svc      *feed.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerFeedAPI(g *echo.Group, svc *feed.Service, usrSvc *user.Service, validate *validator.Validate) {
	api := feedApi{svc: svc, usrSvc: usrSvc, validate: validate}

	g.GET("", api.query)
	g.POST("/:id/reactions", api.react)
	g.DELETE("/:id/reactions/:emoji", api.unreact)
}

func (api *feedApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	qp := newQueryParams(ctx)
	filter := feed.QueryFilter{Cursor: qp.Time("cursor"), Limit: qp.Int("limit", 0)}
	if err = qp.Err(); err != nil {
		return err
	}

	events, err := api.svc.Feed(ctx.Request().Context(), usr, filter)
	if err != nil {
		return errors.Wrap(err, "querying feed")
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *feedApi) react(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data feed.NewReaction
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReaction")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	evt, err := api.svc.React(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "reacting to feed event")
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *feedApi) unreact(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	emoji, err := url.PathUnescape(ctx.Param("emoji"))
	if err != nil {
		return errHttpNotFound
	}

	evt, err := api.svc.Unreact(ctx.Request().Context(), usr, ctx.Param("id"), emoji)
	if err != nil {
		return errors.Wrap(err, "removing reaction")
	}
	return ctx.JSON(http.StatusOK, evt)
}
