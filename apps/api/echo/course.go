package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shida/core/course"
)

type courseApi struct {
	svc      course.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{
		svc:      deps.CourseSvc,
		validate: deps.Validate,
	}

	// catalog writes are admin-only; any authed user may browse
	cg := g.Group("/courses", jwt)
	cg.POST("", api.createCourse, adminMiddleware())
	cg.GET("", api.queryCourses)
	cg.GET("/:id", api.retrieveCourse)
	cg.PUT("/:id", api.updateCourse, adminMiddleware())
	cg.DELETE("/:id", api.destroyCourse, adminMiddleware())

	pg := g.Group("/projects", jwt)
	pg.POST("", api.createProject, adminMiddleware())
	pg.GET("", api.queryProjects)
	pg.GET("/:id", api.retrieveProject)
	pg.PUT("/:id", api.updateProject, adminMiddleware())
	pg.DELETE("/:id", api.destroyProject, adminMiddleware())

	tg := g.Group("/tasks", jwt)
	tg.POST("", api.createTask, adminMiddleware())
	tg.GET("", api.queryTasks)
	tg.GET("/:id", api.retrieveTask)
	tg.PUT("/:id", api.updateTask, adminMiddleware())
	tg.DELETE("/:id", api.destroyTask, adminMiddleware())
}

// Courses

func (api *courseApi) createCourse(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.CreateCourse(data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) queryCourses(ctx echo.Context) error {
	filter := new(course.CourseFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, "name", "duration_in_weeks", "created_at", "updated_at")

	courses, err := api.svc.Courses(filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieveCourse(ctx echo.Context) error {
	crs, err := api.svc.GetCourse(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) updateCourse(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.UpdateCourse(ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroyCourse(ctx echo.Context) error {
	if err := api.svc.DeleteCourse(ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Projects

func (api *courseApi) createProject(ctx echo.Context) error {
	var data course.NewProject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	prj, err := api.svc.CreateProject(data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, prj)
}

func (api *courseApi) queryProjects(ctx echo.Context) error {
	filter := new(course.ProjectFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Project{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, "name", "week_number", "created_at", "updated_at")

	projects, err := api.svc.Projects(filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying projects")
	}
	if projects == nil {
		projects = []course.Project{}
	}
	return ctx.JSON(http.StatusOK, projects)
}

func (api *courseApi) retrieveProject(ctx echo.Context) error {
	prj, err := api.svc.GetProject(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prj)
}

func (api *courseApi) updateProject(ctx echo.Context) error {
	var data course.UpdateProject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	prj, err := api.svc.UpdateProject(ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prj)
}

func (api *courseApi) destroyProject(ctx echo.Context) error {
	if err := api.svc.DeleteProject(ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Tasks

func (api *courseApi) createTask(ctx echo.Context) error {
	var data course.NewTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTask")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tsk, err := api.svc.CreateTask(data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, tsk)
}

func (api *courseApi) queryTasks(ctx echo.Context) error {
	filter := new(course.TaskFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Task{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, "task_number", "title", "created_at", "updated_at")

	tasks, err := api.svc.Tasks(filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying tasks")
	}
	if tasks == nil {
		tasks = []course.Task{}
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *courseApi) retrieveTask(ctx echo.Context) error {
	tsk, err := api.svc.GetTask(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tsk)
}

func (api *courseApi) updateTask(ctx echo.Context) error {
	var data course.UpdateTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTask")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tsk, err := api.svc.UpdateTask(ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tsk)
}

func (api *courseApi) destroyTask(ctx echo.Context) error {
	if err := api.svc.DeleteTask(ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
