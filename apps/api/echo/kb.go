package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shida/core/kb"
	"github.com/trezcool/shida/core/user"
)

type kbApi struct {
	svc      kb.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerKBAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := kbApi{
		svc:      deps.KBSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}

	kg := g.Group("/kb/articles", jwt)
	kg.POST("", api.create)
	kg.GET("", api.query)
	kg.POST("/from-issue/:id", api.createFromIssue)
	kg.GET("/:id", api.retrieve)
	kg.PUT("/:id", api.update)
	kg.DELETE("/:id", api.destroy)
}

// Handlers

func (api *kbApi) create(ctx echo.Context) error {
	var data kb.NewArticle
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewArticle")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	art, err := api.svc.Create(ctxUsr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, art)
}

func (api *kbApi) createFromIssue(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	art, err := api.svc.FromIssue(ctxUsr, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, art)
}

func (api *kbApi) query(ctx echo.Context) error {
	filter := new(kb.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []kb.Article{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, "title", "created_at", "updated_at")

	articles, err := api.svc.Query(filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying articles")
	}
	if articles == nil {
		articles = []kb.Article{}
	}
	return ctx.JSON(http.StatusOK, articles)
}

func (api *kbApi) retrieve(ctx echo.Context) error {
	art, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, art)
}

func (api *kbApi) update(ctx echo.Context) error {
	var data kb.UpdateArticle
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateArticle")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	art, err := api.svc.Update(ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, art)
}

func (api *kbApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Delete(ctxUsr, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
