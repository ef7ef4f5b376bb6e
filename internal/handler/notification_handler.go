package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/locvowork/conductores_admin/internal/notify"
)

type NotificationHandler struct {
	hub *notify.Hub
}

func NewNotificationHandler(hub *notify.Hub) *NotificationHandler {
	return &NotificationHandler{hub: hub}
}

// SocketHandler upgrades to a websocket; the first frame carries the socket id.
func (h *NotificationHandler) SocketHandler(c echo.Context) error {
	h.hub.ServeWS(c.Response(), c.Request())
	return nil
}
