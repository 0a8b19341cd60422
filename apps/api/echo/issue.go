package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shida/core/issue"
	"github.com/trezcool/shida/core/user"
)

type issueApi struct {
	svc      issue.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerIssueAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := issueApi{
		svc:      deps.IssueSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}

	ig := g.Group("/issues", jwt)

	ig.POST("", api.create)
	ig.GET("", api.query)
	ig.GET("/my", api.queryMine)
	ig.GET("/assigned-to-me", api.queryAssignedToMe, mentorOrAdminMiddleware())
	ig.GET("/overdue", api.queryOverdue, mentorOrAdminMiddleware())
	ig.GET("/stats", api.stats, mentorOrAdminMiddleware())

	// reusable issue templates
	tg := ig.Group("/templates")
	tg.POST("", api.createTemplate, mentorOrAdminMiddleware())
	tg.GET("", api.queryTemplates)
	tg.GET("/:id", api.retrieveTemplate)
	tg.PUT("/:id", api.updateTemplate, mentorOrAdminMiddleware())
	tg.DELETE("/:id", api.destroyTemplate, mentorOrAdminMiddleware())

	// comment & attachment detail endpoints
	ig.PUT("/comments/:id", api.updateComment)
	ig.DELETE("/comments/:id", api.destroyComment)
	ig.GET("/attachments/:id", api.downloadAttachment)
	ig.DELETE("/attachments/:id", api.destroyAttachment)

	dg := ig.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.GET("/history", api.history)
	dg.GET("/comments", api.queryComments)
	dg.POST("/comments", api.addComment)
	dg.POST("/feedback", api.addFeedback)
	dg.GET("/attachments", api.queryAttachments)
	dg.POST("/attachments", api.uploadAttachment)
}

// Handlers

func (api *issueApi) create(ctx echo.Context) error {
	var data issue.NewIssue
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewIssue")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	iss, err := api.svc.Create(ctxUsr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, iss)
}

func (api *issueApi) query(ctx echo.Context) error {
	filter := new(issue.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []issue.Issue{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, "created_at", "updated_at", "status", "urgency")

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	issues, err := api.svc.Query(ctxUsr, filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying issues")
	}
	if issues == nil {
		issues = []issue.Issue{}
	}
	return ctx.JSON(http.StatusOK, issues)
}

func (api *issueApi) queryMine(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	issues, err := api.svc.Query(ctxUsr, &issue.QueryFilter{ReportedBy: ctxUsr.ID})
	if err != nil {
		return errors.Wrap(err, "querying reported issues")
	}
	if issues == nil {
		issues = []issue.Issue{}
	}
	return ctx.JSON(http.StatusOK, issues)
}

func (api *issueApi) queryAssignedToMe(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	issues, err := api.svc.Query(ctxUsr, &issue.QueryFilter{AssignedTo: ctxUsr.ID})
	if err != nil {
		return errors.Wrap(err, "querying assigned issues")
	}
	if issues == nil {
		issues = []issue.Issue{}
	}
	return ctx.JSON(http.StatusOK, issues)
}

func (api *issueApi) queryOverdue(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	issues, err := api.svc.QueryOverdue(ctxUsr)
	if err != nil {
		return errors.Wrap(err, "querying overdue issues")
	}
	if issues == nil {
		issues = []issue.Issue{}
	}
	return ctx.JSON(http.StatusOK, issues)
}

func (api *issueApi) stats(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	stats, err := api.svc.Stats(ctxUsr)
	if err != nil {
		return errors.Wrap(err, "computing issue stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *issueApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	detail, err := api.svc.GetDetail(ctxUsr, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *issueApi) update(ctx echo.Context) error {
	var data issue.UpdateIssue
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateIssue")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	iss, err := api.svc.Update(ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, iss)
}

func (api *issueApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *issueApi) history(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	entries, err := api.svc.History(ctxUsr, ctx.Param("id"))
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []issue.HistoryEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

// Comments

func (api *issueApi) queryComments(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	comments, err := api.svc.Comments(ctxUsr, ctx.Param("id"))
	if err != nil {
		return err
	}
	if comments == nil {
		comments = []issue.Comment{}
	}
	return ctx.JSON(http.StatusOK, comments)
}

func (api *issueApi) addComment(ctx echo.Context) error {
	var data issue.NewComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	cmt, err := api.svc.AddComment(ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cmt)
}

func (api *issueApi) updateComment(ctx echo.Context) error {
	var data issue.UpdateComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateComment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	cmt, err := api.svc.UpdateComment(ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cmt)
}

func (api *issueApi) destroyComment(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.DeleteComment(ctxUsr, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Feedback

func (api *issueApi) addFeedback(ctx echo.Context) error {
	var data issue.NewFeedback
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeedback")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	fb, err := api.svc.AddFeedback(ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, fb)
}

// Attachments

func (api *issueApi) queryAttachments(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	attachments, err := api.svc.Attachments(ctxUsr, ctx.Param("id"))
	if err != nil {
		return err
	}
	if attachments == nil {
		attachments = []issue.Attachment{}
	}
	return ctx.JSON(http.StatusOK, attachments)
}

func (api *issueApi) uploadAttachment(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return errors.Wrap(err, "getting uploaded file")
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = f.Close() }()

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	att, err := api.svc.AddAttachment(ctxUsr, ctx.Param("id"), fh.Filename, f)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, att)
}

func (api *issueApi) downloadAttachment(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	att, rc, err := api.svc.OpenAttachment(ctxUsr, ctx.Param("id"))
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", att.FileName))
	return ctx.Stream(http.StatusOK, att.ContentType, rc)
}

func (api *issueApi) destroyAttachment(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.DeleteAttachment(ctxUsr, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Templates

func (api *issueApi) createTemplate(ctx echo.Context) error {
	var data issue.NewTemplate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTemplate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	tpl, err := api.svc.CreateTemplate(ctxUsr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, tpl)
}

func (api *issueApi) queryTemplates(ctx echo.Context) error {
	filter := new(issue.TemplateFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []issue.Template{})
	}

	templates, err := api.svc.Templates(filter)
	if err != nil {
		return errors.Wrap(err, "querying issue templates")
	}
	if templates == nil {
		templates = []issue.Template{}
	}
	return ctx.JSON(http.StatusOK, templates)
}

func (api *issueApi) retrieveTemplate(ctx echo.Context) error {
	tpl, err := api.svc.GetTemplate(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tpl)
}

func (api *issueApi) updateTemplate(ctx echo.Context) error {
	var data issue.UpdateTemplate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTemplate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	tpl, err := api.svc.UpdateTemplate(ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tpl)
}

func (api *issueApi) destroyTemplate(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.DeleteTemplate(ctxUsr, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
