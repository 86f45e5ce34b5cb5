package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/project"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/statistics"
)

var (
	errProjNotFoundInCtx = errors.New("project object not found in echo.Context")
	errTaskNotFoundInCtx = errors.New("task object not found in echo.Context")
)

type projectApi struct {
	svc      *project.Service
	statsSvc *statistics.Service
	validate *validator.Validate
}

func registerProjectAPI(
	pg *echo.Group,
	tg *echo.Group,
	svc *project.Service,
	statsSvc *statistics.Service,
	validate *validator.Validate,
) {
	api := projectApi{svc: svc, statsSvc: statsSvc, validate: validate}

	pg.GET("", api.query)
	pg.POST("", api.create)

	dg := pg.Group("/:id", api.projectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.GET("/tasks", api.queryTasks)
	dg.POST("/tasks", api.createTask)
	dg.GET("/statistics", api.statistics)

	tdg := tg.Group("/:id", api.taskMiddleware)
	tdg.GET("", api.retrieveTask)
	tdg.PUT("", api.updateTask)
	tdg.DELETE("", api.destroyTask)
}

func completedFilter(ctx echo.Context) (project.QueryFilter, error) {
	qp := newQueryParams(ctx)
	filter := project.QueryFilter{Completed: qp.Bool("completed")}
	return filter, qp.Err()
}

// Projects

func (api *projectApi) query(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	filter, err := completedFilter(ctx)
	if err != nil {
		return err
	}

	projects, err := api.svc.Query(ctx.Request().Context(), userID, filter)
	if err != nil {
		return errors.Wrap(err, "querying projects")
	}
	return ctx.JSON(http.StatusOK, projects)
}

func (api *projectApi) create(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	var data project.NewProject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProject")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.Create(ctx.Request().Context(), userID, data)
	if err != nil {
		return errors.Wrap(err, "creating project")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *projectApi) retrieve(ctx echo.Context) error {
	p, ok := ctx.Get("object").(project.Project)
	if !ok {
		return errors.Wrap(errProjNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *projectApi) update(ctx echo.Context) error {
	p, ok := ctx.Get("object").(project.Project)
	if !ok {
		return errors.Wrap(errProjNotFoundInCtx, "retrieving object from context")
	}
	var data project.UpdateProject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.Update(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "updating project")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *projectApi) destroy(ctx echo.Context) error {
	p, ok := ctx.Get("object").(project.Project)
	if !ok {
		return errors.Wrap(errProjNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), p); err != nil {
		return errors.Wrap(err, "deleting project")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *projectApi) statistics(ctx echo.Context) error {
	p, ok := ctx.Get("object").(project.Project)
	if !ok {
		return errors.Wrap(errProjNotFoundInCtx, "retrieving object from context")
	}
	stat, err := api.statsSvc.Project(ctx.Request().Context(), p.UserID, p.ID)
	if err != nil {
		return errors.Wrap(err, "computing project statistics")
	}
	return ctx.JSON(http.StatusOK, stat)
}

func (api *projectApi) projectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		userID, err := contextUserID(ctx)
		if err != nil {
			return err
		}
		p, err := api.svc.Get(ctx.Request().Context(), userID, ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding project")
		}
		ctx.Set("object", p)
		return next(ctx)
	}
}

// Tasks

func (api *projectApi) queryTasks(ctx echo.Context) error {
	p, ok := ctx.Get("object").(project.Project)
	if !ok {
		return errors.Wrap(errProjNotFoundInCtx, "retrieving object from context")
	}
	filter, err := completedFilter(ctx)
	if err != nil {
		return err
	}

	tasks, err := api.svc.QueryTasks(ctx.Request().Context(), p, filter)
	if err != nil {
		return errors.Wrap(err, "querying tasks")
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *projectApi) createTask(ctx echo.Context) error {
	p, ok := ctx.Get("object").(project.Project)
	if !ok {
		return errors.Wrap(errProjNotFoundInCtx, "retrieving object from context")
	}
	var data project.NewTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTask")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.CreateTask(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "creating task")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *projectApi) retrieveTask(ctx echo.Context) error {
	t, ok := ctx.Get("object").(project.Task)
	if !ok {
		return errors.Wrap(errTaskNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *projectApi) updateTask(ctx echo.Context) error {
	t, ok := ctx.Get("object").(project.Task)
	if !ok {
		return errors.Wrap(errTaskNotFoundInCtx, "retrieving object from context")
	}
	var data project.UpdateTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTask")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.UpdateTask(ctx.Request().Context(), t, data)
	if err != nil {
		return errors.Wrap(err, "updating task")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *projectApi) destroyTask(ctx echo.Context) error {
	t, ok := ctx.Get("object").(project.Task)
	if !ok {
		return errors.Wrap(errTaskNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.DeleteTask(ctx.Request().Context(), t); err != nil {
		return errors.Wrap(err, "deleting task")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *projectApi) taskMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		userID, err := contextUserID(ctx)
		if err != nil {
			return err
		}
		t, err := api.svc.GetTask(ctx.Request().Context(), userID, ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding task")
		}
		ctx.Set("object", t)
		return next(ctx)
	}
}
