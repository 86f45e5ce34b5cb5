package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/session"
	"github.com/Kobu-Labs/nowaster-web-sub002/services/metrics"
)

var errSessionNotFoundInCtx = errors.New("session object not found in echo.Context")

type sessionApi struct {
	svc      *session.Service
	validate *validator.Validate
}

func registerSessionAPI(g *echo.Group, svc *session.Service, validate *validator.Validate) {
	api := sessionApi{svc: svc, validate: validate}

	fg := g.Group("/fixed")
	fg.GET("", api.queryFixed)
	fg.POST("", api.createFixed)
	fg.DELETE("", api.destroyMultipleFixed)
	fg.GET("/timeline", api.timeline)

	dg := fg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieveFixed)
	dg.PUT("", api.updateFixed)
	dg.DELETE("", api.destroyFixed)

	sg := g.Group("/stopwatch")
	sg.GET("", api.retrieveStopwatch)
	sg.POST("", api.startStopwatch)
	sg.PUT("", api.updateStopwatch)
	sg.DELETE("", api.discardStopwatch)
	sg.POST("/finish", api.finishStopwatch)
}

// Fixed Sessions

func (api *sessionApi) queryFixed(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}

	qp := newQueryParams(ctx)
	ordering := new(Ordering)
	ordering.Bind(ctx)
	filter := session.QueryFilter{
		FromStartTime: qp.Time("from_start_time"),
		ToStartTime:   qp.Time("to_start_time"),
		FromEndTime:   qp.Time("from_end_time"),
		ToEndTime:     qp.Time("to_end_time"),
		CategoryIDs:   qp.Strings("category_id"),
		TagIDs:        qp.Strings("tag_id"),
		TagMode:       qp.String("tag_mode"),
		ProjectID:     qp.String("project_id"),
		TaskID:        qp.String("task_id"),
		Ordering:      ordering.Orderings,
		Limit:         qp.Int("limit", 0),
		Offset:        qp.Int("offset", 0),
	}
	if err = qp.Err(); err != nil {
		return err
	}

	sessions, err := api.svc.QueryFixed(ctx.Request().Context(), userID, filter)
	if err != nil {
		return errors.Wrap(err, "querying fixed sessions")
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *sessionApi) createFixed(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	var data session.NewFixedSession
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFixedSession")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	fs, err := api.svc.CreateFixed(ctx.Request().Context(), userID, data)
	if err != nil {
		return errors.Wrap(err, "creating fixed session")
	}
	metrics.SessionsCreated.WithLabelValues("fixed").Inc()
	return ctx.JSON(http.StatusCreated, fs)
}

func (api *sessionApi) timeline(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	qp := newQueryParams(ctx)
	from, to := qp.Time("from"), qp.Time("to")
	if err = qp.Err(); err != nil {
		return err
	}

	rows, err := api.svc.Timeline(ctx.Request().Context(), userID, from, to)
	if err != nil {
		return errors.Wrap(err, "building timeline")
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *sessionApi) retrieveFixed(ctx echo.Context) error {
	fs, ok := ctx.Get("object").(session.FixedSession)
	if !ok {
		return errors.Wrap(errSessionNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, fs)
}

func (api *sessionApi) updateFixed(ctx echo.Context) error {
	fs, ok := ctx.Get("object").(session.FixedSession)
	if !ok {
		return errors.Wrap(errSessionNotFoundInCtx, "retrieving object from context")
	}
	var data session.UpdateFixedSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateFixedSession")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	fs, err := api.svc.UpdateFixed(ctx.Request().Context(), fs, data)
	if err != nil {
		return errors.Wrap(err, "updating fixed session")
	}
	return ctx.JSON(http.StatusOK, fs)
}

func (api *sessionApi) destroyFixed(ctx echo.Context) error {
	fs, ok := ctx.Get("object").(session.FixedSession)
	if !ok {
		return errors.Wrap(errSessionNotFoundInCtx, "retrieving object from context")
	}
	if _, err := api.svc.DeleteFixed(ctx.Request().Context(), fs.UserID, fs.ID); err != nil {
		return errors.Wrap(err, "deleting fixed session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) destroyMultipleFixed(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	var query DestroyMultipleRequest
	if err = ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if _, err = api.svc.DeleteFixed(ctx.Request().Context(), userID, query.IDs...); err != nil {
		return errors.Wrap(err, "deleting fixed sessions")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		userID, err := contextUserID(ctx)
		if err != nil {
			return err
		}
		fs, err := api.svc.GetFixed(ctx.Request().Context(), userID, ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding fixed session")
		}
		ctx.Set("object", fs)
		return next(ctx)
	}
}

// Stopwatch Session

func (api *sessionApi) retrieveStopwatch(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	sw, err := api.svc.GetStopwatch(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "finding stopwatch session")
	}
	return ctx.JSON(http.StatusOK, sw)
}

func (api *sessionApi) startStopwatch(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	var data session.StartStopwatch
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StartStopwatch")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sw, err := api.svc.StartStopwatch(ctx.Request().Context(), userID, data)
	if err != nil {
		return errors.Wrap(err, "starting stopwatch session")
	}
	return ctx.JSON(http.StatusCreated, sw)
}

func (api *sessionApi) updateStopwatch(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	var data session.UpdateStopwatch
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStopwatch")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sw, err := api.svc.GetStopwatch(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "finding stopwatch session")
	}
	sw, err = api.svc.UpdateStopwatch(ctx.Request().Context(), sw, data)
	if err != nil {
		return errors.Wrap(err, "updating stopwatch session")
	}
	return ctx.JSON(http.StatusOK, sw)
}

func (api *sessionApi) discardStopwatch(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DiscardStopwatch(ctx.Request().Context(), userID); err != nil {
		return errors.Wrap(err, "discarding stopwatch session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) finishStopwatch(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	var data session.FinishStopwatch
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FinishStopwatch")
	}

	fs, err := api.svc.FinishStopwatch(ctx.Request().Context(), userID, data)
	if err != nil {
		return errors.Wrap(err, "finishing stopwatch session")
	}
	metrics.SessionsCreated.WithLabelValues("stopwatch").Inc()
	return ctx.JSON(http.StatusCreated, fs)
}
