package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/statistics"
)

type statisticsApi struct {
	svc *statistics.Service
}

func registerStatisticsAPI(g *echo.Group, svc *statistics.Service) {
	api := statisticsApi{svc: svc}

	g.GET("/dashboard", api.dashboard)
	g.GET("/streak", api.streak)
	g.GET("/categories", api.categories)
	g.GET("/tags", api.tags)
	g.GET("/daily", api.daily)
}

func bindWindow(ctx echo.Context) (statistics.Window, error) {
	qp := newQueryParams(ctx)
	w := statistics.Window{From: qp.Time("from"), To: qp.Time("to")}
	return w, qp.Err()
}

func (api *statisticsApi) dashboard(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	dash, err := api.svc.Dashboard(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "computing dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *statisticsApi) streak(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	streak, err := api.svc.Streak(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "computing streak")
	}
	return ctx.JSON(http.StatusOK, streak)
}

func (api *statisticsApi) categories(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	w, err := bindWindow(ctx)
	if err != nil {
		return err
	}
	stats, err := api.svc.Categories(ctx.Request().Context(), userID, w)
	if err != nil {
		return errors.Wrap(err, "computing category statistics")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *statisticsApi) tags(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	w, err := bindWindow(ctx)
	if err != nil {
		return err
	}
	stats, err := api.svc.Tags(ctx.Request().Context(), userID, w)
	if err != nil {
		return errors.Wrap(err, "computing tag statistics")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *statisticsApi) daily(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	w, err := bindWindow(ctx)
	if err != nil {
		return err
	}
	stats, err := api.svc.Daily(ctx.Request().Context(), userID, w)
	if err != nil {
		return errors.Wrap(err, "computing daily statistics")
	}
	return ctx.JSON(http.StatusOK, stats)
}
