package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siakad-dev/pengajuan-sa-api/internal/dto"
	"github.com/siakad-dev/pengajuan-sa-api/internal/middleware"
	"github.com/siakad-dev/pengajuan-sa-api/internal/models"
	"github.com/siakad-dev/pengajuan-sa-api/internal/service"
	appErrors "github.com/siakad-dev/pengajuan-sa-api/pkg/errors"
)

type fakeWorkflow struct {
	submission *models.SubmissionRequest
	views      []dto.RoleView
	err        error

	lastRequestID    string
	lastDetailID     string
	lastInstructorID string
	lastScore        float64
	lastReason       string
	lastQuery        dto.SubmissionQuery
	lastUpload       service.ProofUpload
	lastCreate       dto.CreateSubmissionRequest
}

func (f *fakeWorkflow) Submit(_ context.Context, req dto.CreateSubmissionRequest, upload service.ProofUpload, _ *models.JWTClaims) (*models.SubmissionRequest, error) {
	f.lastCreate = req
	f.lastUpload = upload
	return f.submission, f.err
}

func (f *fakeWorkflow) List(_ context.Context, query dto.SubmissionQuery, _ *models.JWTClaims) ([]dto.RoleView, *models.Pagination, error) {
	f.lastQuery = query
	return f.views, &models.Pagination{Page: 1, PageSize: 50, TotalCount: len(f.views)}, f.err
}

func (f *fakeWorkflow) ListByStudent(_ context.Context, studentID string, query dto.SubmissionQuery, _ *models.JWTClaims) ([]dto.RoleView, *models.Pagination, error) {
	f.lastRequestID = studentID
	f.lastQuery = query
	return f.views, nil, f.err
}

func (f *fakeWorkflow) ListByInstructor(_ context.Context, instructorRef string, query dto.SubmissionQuery, _ *models.JWTClaims) ([]dto.RoleView, *models.Pagination, error) {
	f.lastInstructorID = instructorRef
	f.lastQuery = query
	return f.views, nil, f.err
}

func (f *fakeWorkflow) Get(_ context.Context, id string, _ *models.JWTClaims) ([]dto.RoleView, error) {
	f.lastRequestID = id
	return f.views, f.err
}

func (f *fakeWorkflow) VerifyPayment(_ context.Context, id string, _ *models.JWTClaims) (*models.SubmissionRequest, error) {
	f.lastRequestID = id
	return f.submission, f.err
}

func (f *fakeWorkflow) Reject(_ context.Context, id, reason string, _ *models.JWTClaims) (*models.SubmissionRequest, error) {
	f.lastRequestID = id
	f.lastReason = reason
	return f.submission, f.err
}

func (f *fakeWorkflow) AssignInstructor(_ context.Context, requestID, detailID, instructorID string, _ *models.JWTClaims) (*models.SubmissionRequest, error) {
	f.lastRequestID = requestID
	f.lastDetailID = detailID
	f.lastInstructorID = instructorID
	return f.submission, f.err
}

func (f *fakeWorkflow) RecordScore(_ context.Context, requestID, detailID string, score float64, _ *models.JWTClaims) (*models.SubmissionRequest, error) {
	f.lastRequestID = requestID
	f.lastDetailID = detailID
	f.lastScore = score
	return f.submission, f.err
}

func (f *fakeWorkflow) ProofDownloadURL(_ context.Context, id string, _ *models.JWTClaims) (*dto.ProofDownloadResponse, error) {
	f.lastRequestID = id
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ProofDownloadResponse{RequestID: id, DownloadURL: "/api/v1/pengajuan-sa/" + id + "/bukti-bayar/download?token=tok"}, nil
}

func (f *fakeWorkflow) DownloadProof(_ context.Context, id, token string) (*service.ProofDownload, error) {
	f.lastRequestID = id
	return nil, f.err
}

func (f *fakeWorkflow) RecapPDF(_ context.Context, id string, _ *models.JWTClaims) ([]byte, string, error) {
	f.lastRequestID = id
	if f.err != nil {
		return nil, "", f.err
	}
	return []byte("%PDF-1.4 recap"), "rekap_sa_" + id + ".pdf", nil
}

func (f *fakeWorkflow) ExportCSV(_ context.Context, query dto.SubmissionQuery, _ *models.JWTClaims) ([]byte, error) {
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return []byte("Request,Mahasiswa\n"), nil
}

func newPengajuanRouter(svc submissionWorkflow, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.ContextUserKey, claims)
		}
		c.Next()
	})
	h := NewPengajuanHandler(svc)
	router.POST("/pengajuan-sa", h.Create)
	router.GET("/pengajuan-sa", h.List)
	router.GET("/pengajuan-sa/:id", h.Get)
	router.PUT("/pengajuan-sa/:id/verifikasi", h.VerifyPayment)
	router.PUT("/pengajuan-sa/:id/tolak", h.Reject)
	router.PUT("/pengajuan-sa/:id/detail/:detailId/assign-dosen", h.AssignInstructor)
	router.PUT("/pengajuan-sa/:id/detail/:detailId/nilai", h.RecordScore)
	router.GET("/pengajuan-sa/:id/bukti-bayar", h.ProofURL)
	router.GET("/pengajuan-sa/:id/bukti-bayar/download", h.DownloadProof)
	router.GET("/pengajuan-sa/:id/rekap.pdf", h.Recap)
	router.GET("/mahasiswa/:id/pengajuan-sa", h.ListByStudent)
	router.GET("/dosen/:id/pengajuan-sa", h.ListByInstructor)
	router.GET("/export/pengajuan-sa.csv", h.ExportCSV)
	return router
}

func perform(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func studentTestClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "u-1", Role: models.RoleStudent, RefID: "2110511001"}
}

func multipartSubmission(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("paymentAmount", "900000"))
	require.NoError(t, writer.WriteField("description", "SA semester antara"))
	require.NoError(t, writer.WriteField("courses", `[{"courseName":"Basis Data","creditWeight":3}]`))
	part, err := writer.CreateFormFile("buktiBayar", "bukti.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 proof"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestCreateHandlerParsesMultipart(t *testing.T) {
	svc := &fakeWorkflow{submission: &models.SubmissionRequest{ID: "req-1", OverallStatus: models.StatusSubmitted}}
	router := newPengajuanRouter(svc, studentTestClaims())

	body, contentType := multipartSubmission(t)
	req, _ := http.NewRequest(http.MethodPost, "/pengajuan-sa", body)
	req.Header.Set("Content-Type", contentType)

	resp := perform(router, req)
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Contains(t, resp.Body.String(), `"req-1"`)

	assert.Equal(t, 900000.0, svc.lastCreate.PaymentAmount)
	require.Len(t, svc.lastCreate.Courses, 1)
	assert.Equal(t, "Basis Data", svc.lastCreate.Courses[0].CourseName)
	assert.Equal(t, "bukti.pdf", svc.lastUpload.Filename)
	assert.Equal(t, int64(len("%PDF-1.4 proof")), svc.lastUpload.Size)
}

func TestCreateHandlerRequiresCourses(t *testing.T) {
	svc := &fakeWorkflow{}
	router := newPengajuanRouter(svc, studentTestClaims())

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("paymentAmount", "900000"))
	require.NoError(t, writer.Close())
	req, _ := http.NewRequest(http.MethodPost, "/pengajuan-sa", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp := perform(router, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateHandlerUnauthenticated(t *testing.T) {
	svc := &fakeWorkflow{}
	router := newPengajuanRouter(svc, nil)

	body, contentType := multipartSubmission(t)
	req, _ := http.NewRequest(http.MethodPost, "/pengajuan-sa", body)
	req.Header.Set("Content-Type", contentType)

	resp := perform(router, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestListHandlerParsesQuery(t *testing.T) {
	svc := &fakeWorkflow{views: []dto.RoleView{{RequestID: "req-1"}}}
	router := newPengajuanRouter(svc, studentTestClaims())

	req, _ := http.NewRequest(http.MethodGet, "/pengajuan-sa?status=submitted,payment_verified&limit=10&offset=20", nil)
	resp := perform(router, req)
	require.Equal(t, http.StatusOK, resp.Code)

	assert.Equal(t, []models.OverallStatus{models.StatusSubmitted, models.StatusPaymentVerified}, svc.lastQuery.Status)
	assert.Equal(t, 10, svc.lastQuery.Limit)
	assert.Equal(t, 20, svc.lastQuery.Offset)

	var envelope struct {
		Data       []dto.RoleView     `json:"data"`
		Pagination *models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	require.NotNil(t, envelope.Pagination)
}

func TestRejectHandlerPayload(t *testing.T) {
	svc := &fakeWorkflow{submission: &models.SubmissionRequest{ID: "req-1", OverallStatus: models.StatusRejected}}
	router := newPengajuanRouter(svc, studentTestClaims())

	req, _ := http.NewRequest(http.MethodPut, "/pengajuan-sa/req-1/tolak", bytes.NewBufferString(`{"reason":"bukti tidak sah"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := perform(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "req-1", svc.lastRequestID)
	assert.Equal(t, "bukti tidak sah", svc.lastReason)

	bad, _ := http.NewRequest(http.MethodPut, "/pengajuan-sa/req-1/tolak", bytes.NewBufferString(`{`))
	bad.Header.Set("Content-Type", "application/json")
	resp = perform(router, bad)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAssignInstructorHandlerPassesPathParams(t *testing.T) {
	svc := &fakeWorkflow{submission: &models.SubmissionRequest{ID: "req-1"}}
	router := newPengajuanRouter(svc, studentTestClaims())

	req, _ := http.NewRequest(http.MethodPut, "/pengajuan-sa/req-1/detail/d-2/assign-dosen",
		bytes.NewBufferString(`{"instructorId":"dosen-1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := perform(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "req-1", svc.lastRequestID)
	assert.Equal(t, "d-2", svc.lastDetailID)
	assert.Equal(t, "dosen-1", svc.lastInstructorID)
}

func TestRecordScoreHandlerMapsConflicts(t *testing.T) {
	svc := &fakeWorkflow{submission: &models.SubmissionRequest{ID: "req-1"}}
	router := newPengajuanRouter(svc, studentTestClaims())

	req, _ := http.NewRequest(http.MethodPut, "/pengajuan-sa/req-1/detail/d-1/nilai",
		bytes.NewBufferString(`{"score":87.5}`))
	req.Header.Set("Content-Type", "application/json")
	resp := perform(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 87.5, svc.lastScore)

	svc.err = appErrors.Clone(appErrors.ErrInvalidTransition, "detail has already been scored")
	again, _ := http.NewRequest(http.MethodPut, "/pengajuan-sa/req-1/detail/d-1/nilai",
		bytes.NewBufferString(`{"score":90}`))
	again.Header.Set("Content-Type", "application/json")
	resp = perform(router, again)
	require.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), "INVALID_TRANSITION")
}

func TestDownloadProofHandlerRequiresToken(t *testing.T) {
	svc := &fakeWorkflow{}
	router := newPengajuanRouter(svc, nil)

	req, _ := http.NewRequest(http.MethodGet, "/pengajuan-sa/req-1/bukti-bayar/download", nil)
	resp := perform(router, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	svc.err = appErrors.Clone(appErrors.ErrForbidden, "invalid or expired token")
	req, _ = http.NewRequest(http.MethodGet, "/pengajuan-sa/req-1/bukti-bayar/download?token=bogus", nil)
	resp = perform(router, req)
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestProofURLHandler(t *testing.T) {
	svc := &fakeWorkflow{}
	router := newPengajuanRouter(svc, studentTestClaims())

	req, _ := http.NewRequest(http.MethodGet, "/pengajuan-sa/req-1/bukti-bayar", nil)
	resp := perform(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "bukti-bayar/download?token=")
}

func TestRecapHandlerStreamsPDF(t *testing.T) {
	svc := &fakeWorkflow{}
	router := newPengajuanRouter(svc, studentTestClaims())

	req, _ := http.NewRequest(http.MethodGet, "/pengajuan-sa/req-1/rekap.pdf", nil)
	resp := perform(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/pdf", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Header().Get("Content-Disposition"), "rekap_sa_req-1.pdf")
}

func TestExportCSVHandler(t *testing.T) {
	svc := &fakeWorkflow{}
	router := newPengajuanRouter(svc, studentTestClaims())

	req, _ := http.NewRequest(http.MethodGet, "/export/pengajuan-sa.csv?status=complete", nil)
	resp := perform(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/csv")
	assert.Equal(t, []models.OverallStatus{models.StatusComplete}, svc.lastQuery.Status)
}

func TestListByStudentHandler(t *testing.T) {
	svc := &fakeWorkflow{}
	router := newPengajuanRouter(svc, studentTestClaims())

	req, _ := http.NewRequest(http.MethodGet, "/mahasiswa/2110511001/pengajuan-sa", nil)
	resp := perform(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "2110511001", svc.lastRequestID)
}

func TestListByInstructorHandler(t *testing.T) {
	svc := &fakeWorkflow{}
	router := newPengajuanRouter(svc, studentTestClaims())

	req, _ := http.NewRequest(http.MethodGet, "/dosen/198201012006041001/pengajuan-sa", nil)
	resp := perform(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "198201012006041001", svc.lastInstructorID)
}
