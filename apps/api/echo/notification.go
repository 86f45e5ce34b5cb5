package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/notification"
)

type notificationApi struct {
	svc      *notification.Service
	live     LiveConnections
	validate *validator.Validate
}

// MarkSeenResponse counts the notifications that were unseen.
type MarkSeenResponse struct {
	Count int `json:"count"`
}

func registerNotificationAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	queryJwt echo.MiddlewareFunc,
	svc *notification.Service,
	live LiveConnections,
	validate *validator.Validate,
) {
	api := notificationApi{svc: svc, live: live, validate: validate}

	g.GET("", api.query, jwt)
	g.GET("/unseen-count", api.unseenCount, jwt)
	g.POST("/seen", api.markSeen, jwt)
	g.DELETE("/:id", api.destroy, jwt)
	g.GET("/ws", api.websocket, queryJwt)
}

func (api *notificationApi) query(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	qp := newQueryParams(ctx)
	filter := notification.QueryFilter{
		Seen:   qp.Bool("seen"),
		Cursor: qp.Time("cursor"),
		Limit:  qp.Int("limit", 0),
	}
	if err = qp.Err(); err != nil {
		return err
	}

	notifs, err := api.svc.Query(ctx.Request().Context(), userID, filter)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	return ctx.JSON(http.StatusOK, notifs)
}

func (api *notificationApi) unseenCount(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	cnt, err := api.svc.UnseenCount(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "counting unseen notifications")
	}
	return ctx.JSON(http.StatusOK, cnt)
}

func (api *notificationApi) markSeen(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	var data notification.MarkSeen
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkSeen")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	cnt, err := api.svc.MarkSeen(ctx.Request().Context(), userID, data)
	if err != nil {
		return errors.Wrap(err, "marking notifications as seen")
	}
	return ctx.JSON(http.StatusOK, MarkSeenResponse{Count: cnt})
}

func (api *notificationApi) destroy(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), userID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// websocket hands the connection over to the hub; the response is written by the upgrader.
func (api *notificationApi) websocket(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	if api.live == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "live notifications are disabled")
	}
	if err = api.live.Serve(ctx.Response(), ctx.Request(), userID); err != nil {
		// the upgrader already replied to a bad handshake
		if ctx.Response().Committed {
			return nil
		}
		return errors.Wrap(err, "serving notification websocket")
	}
	return nil
}
