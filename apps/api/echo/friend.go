package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/friend"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/user"
)

type friendApi struct {
	svc      *friend.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerFriendAPI(g *echo.Group, svc *friend.Service, usrSvc *user.Service, validate *validator.Validate) {
	api := friendApi{svc: svc, usrSvc: usrSvc, validate: validate}

	g.GET("", api.query)
	g.DELETE("/:id", api.destroy)

	rg := g.Group("/requests")
	rg.GET("", api.queryRequests)
	rg.POST("", api.createRequest)
	rg.PUT("/:id", api.updateRequest)
}

func (api *friendApi) query(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	friends, err := api.svc.Friends(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "querying friends")
	}
	return ctx.JSON(http.StatusOK, friends)
}

func (api *friendApi) destroy(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.RemoveFriend(ctx.Request().Context(), userID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "removing friend")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *friendApi) queryRequests(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	var filter friend.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []friend.Request{})
	}

	reqs, err := api.svc.QueryRequests(ctx.Request().Context(), userID, filter)
	if err != nil {
		return errors.Wrap(err, "querying friend requests")
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *friendApi) createRequest(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data friend.NewRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	req, err := api.svc.CreateRequest(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating friend request")
	}
	return ctx.JSON(http.StatusCreated, req)
}

func (api *friendApi) updateRequest(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data friend.UpdateRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	req, err := api.svc.GetRequest(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding friend request")
	}
	req, err = api.svc.UpdateRequest(ctx.Request().Context(), usr, req, data)
	if err != nil {
		return errors.Wrap(err, "updating friend request")
	}
	return ctx.JSON(http.StatusOK, req)
}
