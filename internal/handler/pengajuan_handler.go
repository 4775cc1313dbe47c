package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/siakad-dev/pengajuan-sa-api/internal/dto"
	"github.com/siakad-dev/pengajuan-sa-api/internal/models"
	"github.com/siakad-dev/pengajuan-sa-api/internal/service"
	appErrors "github.com/siakad-dev/pengajuan-sa-api/pkg/errors"
	"github.com/siakad-dev/pengajuan-sa-api/pkg/response"
)

type submissionWorkflow interface {
	Submit(ctx context.Context, req dto.CreateSubmissionRequest, upload service.ProofUpload, actor *models.JWTClaims) (*models.SubmissionRequest, error)
	List(ctx context.Context, query dto.SubmissionQuery, actor *models.JWTClaims) ([]dto.RoleView, *models.Pagination, error)
	ListByStudent(ctx context.Context, studentID string, query dto.SubmissionQuery, actor *models.JWTClaims) ([]dto.RoleView, *models.Pagination, error)
	ListByInstructor(ctx context.Context, instructorRef string, query dto.SubmissionQuery, actor *models.JWTClaims) ([]dto.RoleView, *models.Pagination, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) ([]dto.RoleView, error)
	VerifyPayment(ctx context.Context, id string, actor *models.JWTClaims) (*models.SubmissionRequest, error)
	Reject(ctx context.Context, id, reason string, actor *models.JWTClaims) (*models.SubmissionRequest, error)
	AssignInstructor(ctx context.Context, requestID, detailID, instructorID string, actor *models.JWTClaims) (*models.SubmissionRequest, error)
	RecordScore(ctx context.Context, requestID, detailID string, score float64, actor *models.JWTClaims) (*models.SubmissionRequest, error)
	ProofDownloadURL(ctx context.Context, id string, actor *models.JWTClaims) (*dto.ProofDownloadResponse, error)
	DownloadProof(ctx context.Context, id, token string) (*service.ProofDownload, error)
	RecapPDF(ctx context.Context, id string, actor *models.JWTClaims) ([]byte, string, error)
	ExportCSV(ctx context.Context, query dto.SubmissionQuery, actor *models.JWTClaims) ([]byte, error)
}

// PengajuanHandler exposes the SA submission workflow endpoints.
type PengajuanHandler struct {
	service submissionWorkflow
}

// NewPengajuanHandler constructs the handler.
func NewPengajuanHandler(service submissionWorkflow) *PengajuanHandler {
	return &PengajuanHandler{service: service}
}

// Create godoc
// @Summary Submit a new SA request with payment proof
// @Tags PengajuanSA
// @Accept multipart/form-data
// @Produce json
// @Param paymentAmount formData number true "Payment amount"
// @Param description formData string false "Description"
// @Param courses formData string true "JSON array of {courseName, creditWeight}"
// @Param buktiBayar formData file true "Payment proof (PDF or image)"
// @Success 201 {object} response.Envelope
// @Router /pengajuan-sa [post]
func (h *PengajuanHandler) Create(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "submission service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateSubmissionRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid submission payload"))
		return
	}
	coursesRaw := strings.TrimSpace(c.PostForm("courses"))
	if coursesRaw == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "courses is required"))
		return
	}
	if err := json.Unmarshal([]byte(coursesRaw), &req.Courses); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "courses must be a JSON array"))
		return
	}

	fileHeader, err := c.FormFile("buktiBayar")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "buktiBayar file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	reader, ok := src.(io.ReadSeeker)
	if !ok {
		buf, readErr := io.ReadAll(src)
		if readErr != nil {
			response.Error(c, appErrors.Wrap(readErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file"))
			return
		}
		reader = bytes.NewReader(buf)
	}

	upload := service.ProofUpload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Content:  reader,
	}
	submission, err := h.service.Submit(c.Request.Context(), req, upload, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// List godoc
// @Summary List submissions visible to the caller, shaped per role
// @Tags PengajuanSA
// @Produce json
// @Param status query string false "Comma separated status filter"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /pengajuan-sa [get]
func (h *PengajuanHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "submission service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	views, pagination, err := h.service.List(c.Request.Context(), parseSubmissionQuery(c), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, pagination)
}

// ListByStudent godoc
// @Summary List one student's submissions
// @Tags PengajuanSA
// @Produce json
// @Param id path string true "Student NIM"
// @Success 200 {object} response.Envelope
// @Router /mahasiswa/{id}/pengajuan-sa [get]
func (h *PengajuanHandler) ListByStudent(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "submission service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	views, pagination, err := h.service.ListByStudent(c.Request.Context(), c.Param("id"), parseSubmissionQuery(c), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, pagination)
}

// ListByInstructor godoc
// @Summary List detail rows assigned to one instructor
// @Tags PengajuanSA
// @Produce json
// @Param id path string true "Instructor NIP"
// @Success 200 {object} response.Envelope
// @Router /dosen/{id}/pengajuan-sa [get]
func (h *PengajuanHandler) ListByInstructor(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "submission service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	views, pagination, err := h.service.ListByInstructor(c.Request.Context(), c.Param("id"), parseSubmissionQuery(c), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, pagination)
}

// Get godoc
// @Summary Get one submission shaped for the caller's role
// @Tags PengajuanSA
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /pengajuan-sa/{id} [get]
func (h *PengajuanHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "submission service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	views, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// VerifyPayment godoc
// @Summary Verify the payment of a SUBMITTED request
// @Tags PengajuanSA
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /pengajuan-sa/{id}/verifikasi [put]
func (h *PengajuanHandler) VerifyPayment(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "submission service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	submission, err := h.service.VerifyPayment(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Reject godoc
// @Summary Reject a request with a mandatory reason
// @Tags PengajuanSA
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.RejectSubmissionRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Router /pengajuan-sa/{id}/tolak [put]
func (h *PengajuanHandler) Reject(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "submission service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RejectSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rejection payload"))
		return
	}
	submission, err := h.service.Reject(c.Request.Context(), c.Param("id"), req.Reason, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// AssignInstructor godoc
// @Summary Assign an instructor to one course detail
// @Tags PengajuanSA
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param detailId path string true "Detail ID"
// @Param payload body dto.AssignInstructorRequest true "Instructor"
// @Success 200 {object} response.Envelope
// @Router /pengajuan-sa/{id}/detail/{detailId}/assign-dosen [put]
func (h *PengajuanHandler) AssignInstructor(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "submission service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.AssignInstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assignment payload"))
		return
	}
	submission, err := h.service.AssignInstructor(c.Request.Context(), c.Param("id"), c.Param("detailId"), req.InstructorID, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// RecordScore godoc
// @Summary Record the final score of one course detail
// @Tags PengajuanSA
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param detailId path string true "Detail ID"
// @Param payload body dto.RecordScoreRequest true "Score"
// @Success 200 {object} response.Envelope
// @Router /pengajuan-sa/{id}/detail/{detailId}/nilai [put]
func (h *PengajuanHandler) RecordScore(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "submission service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RecordScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid score payload"))
		return
	}
	submission, err := h.service.RecordScore(c.Request.Context(), c.Param("id"), c.Param("detailId"), req.Score, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// ProofURL godoc
// @Summary Get a signed download link for the payment proof
// @Tags PengajuanSA
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /pengajuan-sa/{id}/bukti-bayar [get]
func (h *PengajuanHandler) ProofURL(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "submission service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	link, err := h.service.ProofDownloadURL(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// DownloadProof godoc
// @Summary Download the payment proof via signed token
// @Tags PengajuanSA
// @Produce octet-stream
// @Param id path string true "Request ID"
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Router /pengajuan-sa/{id}/bukti-bayar/download [get]
func (h *PengajuanHandler) DownloadProof(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "submission service not configured"))
		return
	}
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	result, err := h.service.DownloadProof(c.Request.Context(), c.Param("id"), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, result.SizeBytes, result.MimeType, result.File, nil)
}

// Recap godoc
// @Summary Download the per-request recap PDF
// @Tags PengajuanSA
// @Produce application/pdf
// @Param id path string true "Request ID"
// @Success 200 {file} binary
// @Router /pengajuan-sa/{id}/rekap.pdf [get]
func (h *PengajuanHandler) Recap(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "submission service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	payload, filename, err := h.service.RecapPDF(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Data(http.StatusOK, "application/pdf", payload)
}

// ExportCSV godoc
// @Summary Export detail rows as CSV for honorarium processing
// @Tags PengajuanSA
// @Produce text/csv
// @Param status query string false "Comma separated status filter"
// @Success 200 {file} binary
// @Router /export/pengajuan-sa.csv [get]
func (h *PengajuanHandler) ExportCSV(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "submission service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	payload, err := h.service.ExportCSV(c.Request.Context(), parseSubmissionQuery(c), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="pengajuan_sa.csv"`)
	c.Data(http.StatusOK, "text/csv", payload)
}

func parseSubmissionQuery(c *gin.Context) dto.SubmissionQuery {
	query := dto.SubmissionQuery{}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := models.OverallStatus(strings.ToUpper(strings.TrimSpace(part)))
			if status != "" {
				query.Status = append(query.Status, status)
			}
		}
	}
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			query.Limit = v
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			query.Offset = v
		}
	}
	return query
}
