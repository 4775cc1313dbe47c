package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siakad-dev/pengajuan-sa-api/internal/middleware"
	"github.com/siakad-dev/pengajuan-sa-api/internal/models"
	appErrors "github.com/siakad-dev/pengajuan-sa-api/pkg/errors"
)

type fakeNotificationReader struct {
	notifications  []models.WorkflowNotification
	err            error
	lastUnreadOnly bool
	lastMarkedID   string
}

func (f *fakeNotificationReader) List(_ context.Context, unreadOnly bool, _, _ int, _ *models.JWTClaims) ([]models.WorkflowNotification, error) {
	f.lastUnreadOnly = unreadOnly
	return f.notifications, f.err
}

func (f *fakeNotificationReader) MarkRead(_ context.Context, id string, _ *models.JWTClaims) error {
	f.lastMarkedID = id
	return f.err
}

func newNotificationRouter(svc notificationReader, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.ContextUserKey, claims)
		}
		c.Next()
	})
	h := NewNotificationHandler(svc)
	router.GET("/notifikasi", h.List)
	router.PUT("/notifikasi/:id/read", h.MarkRead)
	return router
}

func TestNotificationListHandler(t *testing.T) {
	svc := &fakeNotificationReader{
		notifications: []models.WorkflowNotification{{ID: "n-1", Event: models.NotificationEventSubmitted}},
	}
	router := newNotificationRouter(svc, studentTestClaims())

	req, _ := http.NewRequest(http.MethodGet, "/notifikasi?unread=true", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, svc.lastUnreadOnly)
	assert.Contains(t, resp.Body.String(), `"n-1"`)
}

func TestNotificationListHandlerUnauthenticated(t *testing.T) {
	router := newNotificationRouter(&fakeNotificationReader{}, nil)

	req, _ := http.NewRequest(http.MethodGet, "/notifikasi", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestNotificationMarkReadHandler(t *testing.T) {
	svc := &fakeNotificationReader{}
	router := newNotificationRouter(svc, studentTestClaims())

	req, _ := http.NewRequest(http.MethodPut, "/notifikasi/n-1/read", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, "n-1", svc.lastMarkedID)
}

func TestNotificationMarkReadHandlerNotFound(t *testing.T) {
	svc := &fakeNotificationReader{err: appErrors.ErrNotFound}
	router := newNotificationRouter(svc, studentTestClaims())

	req, _ := http.NewRequest(http.MethodPut, "/notifikasi/missing/read", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusNotFound, resp.Code)
}
