package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shida/core/notification"
	"github.com/trezcool/shida/core/user"
)

type notificationApi struct {
	svc    notification.Service
	usrSvc user.Service
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := notificationApi{
		svc:    deps.NotifSvc,
		usrSvc: deps.UserSvc,
	}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.query)
	ng.GET("/unread-count", api.unreadCount)
	ng.POST("/mark-all-read", api.markAllRead)
	ng.GET("/:id", api.retrieve)
	ng.POST("/:id/mark-read", api.markRead)
}

// Handlers

func (api *notificationApi) query(ctx echo.Context) error {
	filter := new(notification.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []notification.Notification{})
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	notifs, err := api.svc.Query(ctxUsr, filter)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if notifs == nil {
		notifs = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, notifs)
}

func (api *notificationApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	notif, err := api.svc.GetByID(ctxUsr, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, notif)
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	notif, err := api.svc.MarkRead(ctxUsr, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, notif)
}

func (api *notificationApi) markAllRead(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	n, err := api.svc.MarkAllRead(ctxUsr)
	if err != nil {
		return errors.Wrap(err, "marking notifications read")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"marked_read": n})
}

func (api *notificationApi) unreadCount(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	n, err := api.svc.UnreadCount(ctxUsr)
	if err != nil {
		return errors.Wrap(err, "counting unread notifications")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"unread": n})
}
