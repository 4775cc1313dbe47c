package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/siakad-dev/pengajuan-sa-api/internal/models"
	appErrors "github.com/siakad-dev/pengajuan-sa-api/pkg/errors"
	"github.com/siakad-dev/pengajuan-sa-api/pkg/response"
)

type notificationReader interface {
	List(ctx context.Context, unreadOnly bool, limit, offset int, actor *models.JWTClaims) ([]models.WorkflowNotification, error)
	MarkRead(ctx context.Context, id string, actor *models.JWTClaims) error
}

// NotificationHandler exposes the caller's workflow notifications.
type NotificationHandler struct {
	service notificationReader
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(service notificationReader) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List godoc
// @Summary List workflow notifications for the caller
// @Tags Notifikasi
// @Produce json
// @Param unread query bool false "Unread only"
// @Success 200 {object} response.Envelope
// @Router /notifikasi [get]
func (h *NotificationHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "notification service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	notifications, err := h.service.List(c.Request.Context(), unreadOnly, limit, offset, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notifications, nil)
}

// MarkRead godoc
// @Summary Mark one notification as read
// @Tags Notifikasi
// @Produce json
// @Param id path string true "Notification ID"
// @Success 204
// @Router /notifikasi/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "notification service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
