package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/siakad-dev/pengajuan-sa-api/internal/models"
	appErrors "github.com/siakad-dev/pengajuan-sa-api/pkg/errors"
	"github.com/siakad-dev/pengajuan-sa-api/pkg/response"
)

type instructorBrowser interface {
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Instructor, error)
	List(ctx context.Context, filter models.InstructorFilter, actor *models.JWTClaims) ([]models.Instructor, *models.Pagination, error)
}

// InstructorHandler exposes the instructor directory.
type InstructorHandler struct {
	service instructorBrowser
}

// NewInstructorHandler constructs the handler.
func NewInstructorHandler(service instructorBrowser) *InstructorHandler {
	return &InstructorHandler{service: service}
}

// List godoc
// @Summary List instructors available for assignment
// @Tags Dosen
// @Produce json
// @Param program query string false "Program filter"
// @Param search query string false "Name or NIP search"
// @Param active query bool false "Active filter"
// @Success 200 {object} response.Envelope
// @Router /dosen [get]
func (h *InstructorHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "instructor service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.InstructorFilter{
		Program: strings.TrimSpace(c.Query("program")),
		Search:  strings.TrimSpace(c.Query("search")),
	}
	if raw := c.Query("active"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &v
		}
	}
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			filter.Limit = v
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			filter.Offset = v
		}
	}
	instructors, pagination, err := h.service.List(c.Request.Context(), filter, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructors, pagination)
}

// Get godoc
// @Summary Get one instructor
// @Tags Dosen
// @Produce json
// @Param id path string true "Instructor ID or NIP"
// @Success 200 {object} response.Envelope
// @Router /dosen/{id} [get]
func (h *InstructorHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "instructor service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	instructor, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructor, nil)
}
