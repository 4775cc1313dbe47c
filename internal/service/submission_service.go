package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/siakad-dev/pengajuan-sa-api/internal/dto"
	"github.com/siakad-dev/pengajuan-sa-api/internal/models"
	appErrors "github.com/siakad-dev/pengajuan-sa-api/pkg/errors"
	"github.com/siakad-dev/pengajuan-sa-api/pkg/export"
)

type submissionStore interface {
	Create(ctx context.Context, req *models.SubmissionRequest) error
	GetByID(ctx context.Context, id string) (*models.SubmissionRequest, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.SubmissionRequest, int, error)
	Mutate(ctx context.Context, requestID string, fn func(*models.SubmissionRequest) error) (*models.SubmissionRequest, error)
}

type instructorDirectory interface {
	GetByID(ctx context.Context, id string) (*models.Instructor, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type proofFileStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type proofURLSigner interface {
	Generate(requestID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (requestID, relPath string, expiresAt time.Time, err error)
}

type transitionNotifier interface {
	Publish(ctx context.Context, event TransitionEvent)
}

type workflowMetrics interface {
	RecordTransition(event string)
	RecordCacheOperation(hit bool)
}

type viewCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ProofUpload carries the payment proof stream and metadata.
type ProofUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// ProofDownload bundles an opened proof file for streaming.
type ProofDownload struct {
	File      *os.File
	Filename  string
	MimeType  string
	SizeBytes int64
	ExpiresAt time.Time
}

// SubmissionServiceConfig holds upload limits and workflow policy knobs.
type SubmissionServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
	APIPrefix    string
	// StrictAmount enforces PaymentAmount == CreditRate * total credits
	// at submission time. Off by default; campuses with per-course fee
	// waivers verify the amount manually instead.
	StrictAmount bool
	CreditRate   float64
	CacheTTL     time.Duration
}

// SubmissionService is the workflow engine for study-leave (SA) requests.
// All status transitions funnel through the aggregate's own guard methods
// inside a locked repository mutation, so the stored overall status is
// always the derived one.
type SubmissionService struct {
	repo        submissionStore
	instructors instructorDirectory
	storage     proofFileStorage
	signer      proofURLSigner
	audit       auditLogger
	notifier    transitionNotifier
	cache       viewCache
	projector   *Projector
	metrics     workflowMetrics
	logger      *zap.Logger
	cfg         SubmissionServiceConfig
	mimeSet     map[string]struct{}
}

// SubmissionServiceOption configures the service.
type SubmissionServiceOption func(*SubmissionService)

// WithWorkflowMetrics attaches a metrics recorder.
func WithWorkflowMetrics(metrics workflowMetrics) SubmissionServiceOption {
	return func(s *SubmissionService) {
		s.metrics = metrics
	}
}

// NewSubmissionService constructs the service with defaults.
func NewSubmissionService(repo submissionStore, instructors instructorDirectory, storage proofFileStorage, signer proofURLSigner, audit auditLogger, notifier transitionNotifier, cache viewCache, logger *zap.Logger, cfg SubmissionServiceConfig, opts ...SubmissionServiceOption) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 5 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf", "image/jpeg", "image/png"}
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 2 * time.Minute
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	svc := &SubmissionService{
		repo:        repo,
		instructors: instructors,
		storage:     storage,
		signer:      signer,
		audit:       audit,
		notifier:    notifier,
		cache:       cache,
		projector:   NewProjector(),
		logger:      logger,
		cfg:         cfg,
		mimeSet:     mimeSet,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Submit registers a new SA request with its payment proof. The request
// starts in SUBMITTED and every selected course in PENDING_ASSIGNMENT.
func (s *SubmissionService) Submit(ctx context.Context, req dto.CreateSubmissionRequest, upload ProofUpload, actor *models.JWTClaims) (*models.SubmissionRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students may submit SA requests")
	}
	if actor.RefID == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "account has no student number")
	}
	if err := s.validateSubmission(req); err != nil {
		return nil, err
	}
	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment proof file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("payment proof exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	mimeType, err := s.detectProofMime(upload)
	if err != nil {
		return nil, err
	}
	if _, allowed := s.mimeSet[strings.ToLower(mimeType)]; !allowed {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment proof must be a PDF or image")
	}

	filename := proofFilename(actor.RefID, upload.Filename, mimeType)
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	path, err := s.storage.SaveStream(filename, upload.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist payment proof")
	}

	submission := &models.SubmissionRequest{
		StudentID:        actor.RefID,
		PaymentAmount:    req.PaymentAmount,
		PaymentProofPath: path,
		PaymentProofMime: mimeType,
		Description:      strings.TrimSpace(req.Description),
	}
	for _, course := range req.Courses {
		submission.Details = append(submission.Details, models.CourseDetail{
			CourseName:   strings.TrimSpace(course.CourseName),
			CreditWeight: course.CreditWeight,
			DetailStatus: models.DetailPendingAssignment,
		})
	}
	submission.Recompute()

	if err := s.repo.Create(ctx, submission); err != nil {
		_ = s.storage.Delete(path)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
	}

	s.emitAudit(ctx, actor, models.AuditActionSubmissionCreate, submission.ID,
		fmt.Sprintf(`{"studentId":"%s","courses":%d}`, submission.StudentID, len(submission.Details)))
	s.publish(ctx, TransitionEvent{
		RequestID:  submission.ID,
		Event:      models.NotificationEventSubmitted,
		Message:    fmt.Sprintf("Pengajuan SA %s diterima dengan %d mata kuliah", submission.ID, len(submission.Details)),
		Recipients: []string{submission.StudentID},
	})
	s.invalidateViews(ctx)
	return submission, nil
}

// List returns role-shaped views of the submissions the actor may see.
func (s *SubmissionService) List(ctx context.Context, query dto.SubmissionQuery, actor *models.JWTClaims) ([]dto.RoleView, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter := models.SubmissionFilter{
		Status: query.Status,
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	switch actor.Role {
	case models.RoleStudent:
		filter.StudentID = actor.RefID
	case models.RoleInstructor:
		filter.InstructorID = actor.RefID
	case models.RoleAdmin, models.RolePaymentVerifier, models.RoleProgramHead:
	default:
		return nil, nil, appErrors.ErrForbidden
	}
	return s.listViews(ctx, filter, actor.Role, actor.RefID)
}

// ListByStudent returns one student's submissions. Students may only read
// their own history; staff roles may read anyone's.
func (s *SubmissionService) ListByStudent(ctx context.Context, studentID string, query dto.SubmissionQuery, actor *models.JWTClaims) ([]dto.RoleView, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleStudent && actor.RefID != studentID {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "students may only view their own submissions")
	}
	if actor.Role == models.RoleInstructor {
		return nil, nil, appErrors.ErrForbidden
	}
	filter := models.SubmissionFilter{
		StudentID: studentID,
		Status:    query.Status,
		Limit:     query.Limit,
		Offset:    query.Offset,
	}
	return s.listViews(ctx, filter, actor.Role, actor.RefID)
}

// ListByInstructor returns the detail rows assigned to one instructor.
func (s *SubmissionService) ListByInstructor(ctx context.Context, instructorRef string, query dto.SubmissionQuery, actor *models.JWTClaims) ([]dto.RoleView, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleInstructor:
		if actor.RefID != instructorRef {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "instructors may only view their own assignments")
		}
	case models.RoleAdmin, models.RoleProgramHead, models.RolePaymentVerifier:
	default:
		return nil, nil, appErrors.ErrForbidden
	}
	filter := models.SubmissionFilter{
		InstructorID: instructorRef,
		Status:       query.Status,
		Limit:        query.Limit,
		Offset:       query.Offset,
	}
	views, pagination, err := s.listViews(ctx, filter, models.RoleInstructor, instructorRef)
	if err != nil {
		return nil, nil, err
	}
	// Staff browse these rows read-only; only the assigned instructor grades.
	if actor.Role != models.RoleInstructor {
		for i := range views {
			views[i].Gradable = false
		}
	}
	return views, pagination, nil
}

// Get returns the role-shaped projection of one request.
func (s *SubmissionService) Get(ctx context.Context, id string, actor *models.JWTClaims) ([]dto.RoleView, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureRequestAccess(req, actor); err != nil {
		return nil, err
	}
	return s.projector.Project(req, actor.Role, actor.RefID), nil
}

// VerifyPayment moves a SUBMITTED request to PAYMENT_VERIFIED.
func (s *SubmissionService) VerifyPayment(ctx context.Context, id string, actor *models.JWTClaims) (*models.SubmissionRequest, error) {
	if err := requireRole(actor, models.RolePaymentVerifier, models.RoleAdmin); err != nil {
		return nil, err
	}
	now := time.Now()
	req, err := s.mutate(ctx, id, func(r *models.SubmissionRequest) error {
		if s.cfg.StrictAmount && s.cfg.CreditRate > 0 {
			expected := s.cfg.CreditRate * float64(r.TotalCredits())
			if r.PaymentAmount != expected {
				return appErrors.Clone(appErrors.ErrValidation,
					fmt.Sprintf("payment amount %.0f does not match expected %.0f", r.PaymentAmount, expected))
			}
		}
		return r.VerifyPayment(now)
	})
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, actor, models.AuditActionPaymentVerify, req.ID, "")
	s.publish(ctx, TransitionEvent{
		RequestID:  req.ID,
		Event:      models.NotificationEventPaymentVerified,
		Message:    fmt.Sprintf("Pembayaran pengajuan SA %s telah diverifikasi", req.ID),
		Recipients: []string{req.StudentID},
	})
	s.invalidateViews(ctx)
	return req, nil
}

// Reject finalises a request with a mandatory reason. Allowed from any
// state before COMPLETE.
func (s *SubmissionService) Reject(ctx context.Context, id, reason string, actor *models.JWTClaims) (*models.SubmissionRequest, error) {
	if err := requireRole(actor, models.RolePaymentVerifier, models.RoleProgramHead, models.RoleAdmin); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	now := time.Now()
	req, err := s.mutate(ctx, id, func(r *models.SubmissionRequest) error {
		return r.Reject(reason, now)
	})
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, actor, models.AuditActionSubmissionReject, req.ID, fmt.Sprintf(`{"reason":%q}`, reason))
	s.publish(ctx, TransitionEvent{
		RequestID:  req.ID,
		Event:      models.NotificationEventRejected,
		Message:    fmt.Sprintf("Pengajuan SA %s ditolak: %s", req.ID, reason),
		Recipients: []string{req.StudentID},
	})
	s.invalidateViews(ctx)
	return req, nil
}

// AssignInstructor attaches an active instructor to one course detail.
func (s *SubmissionService) AssignInstructor(ctx context.Context, requestID, detailID, instructorID string, actor *models.JWTClaims) (*models.SubmissionRequest, error) {
	if err := requireRole(actor, models.RoleProgramHead, models.RoleAdmin); err != nil {
		return nil, err
	}
	instructor, err := s.instructors.GetByID(ctx, instructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve instructor")
	}
	if !instructor.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "instructor is not active")
	}

	now := time.Now()
	req, err := s.mutate(ctx, requestID, func(r *models.SubmissionRequest) error {
		_, err := r.AssignInstructor(detailID, instructor.NIP, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, actor, models.AuditActionInstructorAssign, req.ID,
		fmt.Sprintf(`{"detailId":%q,"instructor":%q}`, detailID, instructor.NIP))
	detail := req.Detail(detailID)
	courseName := ""
	if detail != nil {
		courseName = detail.CourseName
	}
	s.publish(ctx, TransitionEvent{
		RequestID:  req.ID,
		Event:      models.NotificationEventAssigned,
		Message:    fmt.Sprintf("Dosen %s ditugaskan untuk mata kuliah %s", instructor.FullName, courseName),
		Recipients: []string{req.StudentID, instructor.NIP},
	})
	s.invalidateViews(ctx)
	return req, nil
}

// RecordScore enters the final score for one course detail. Instructors
// may only grade details assigned to them; a detail is scored once.
func (s *SubmissionService) RecordScore(ctx context.Context, requestID, detailID string, score float64, actor *models.JWTClaims) (*models.SubmissionRequest, error) {
	if err := requireRole(actor, models.RoleInstructor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if score < 0 || score > 100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "score must be between 0 and 100")
	}

	now := time.Now()
	req, err := s.mutate(ctx, requestID, func(r *models.SubmissionRequest) error {
		if actor.Role == models.RoleInstructor {
			detail := r.Detail(detailID)
			if detail == nil {
				return appErrors.ErrNotFound
			}
			if detail.AssignedInstructorID == nil || *detail.AssignedInstructorID != actor.RefID {
				return appErrors.Clone(appErrors.ErrForbidden, "detail is assigned to another instructor")
			}
		}
		_, err := r.RecordScore(detailID, score, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, actor, models.AuditActionScoreRecord, req.ID,
		fmt.Sprintf(`{"detailId":%q,"score":%g}`, detailID, score))

	events := []TransitionEvent{{
		RequestID:  req.ID,
		Event:      models.NotificationEventScored,
		Message:    fmt.Sprintf("Nilai untuk pengajuan SA %s telah diinput", req.ID),
		Recipients: []string{req.StudentID},
	}}
	if req.OverallStatus == models.StatusComplete {
		events = append(events, TransitionEvent{
			RequestID:  req.ID,
			Event:      models.NotificationEventComplete,
			Message:    fmt.Sprintf("Seluruh nilai pengajuan SA %s sudah lengkap", req.ID),
			Recipients: []string{req.StudentID},
		})
	}
	for _, ev := range events {
		s.publish(ctx, ev)
	}
	s.invalidateViews(ctx)
	return req, nil
}

// ProofDownloadURL issues a signed, short-lived link for the payment proof.
func (s *SubmissionService) ProofDownloadURL(ctx context.Context, id string, actor *models.JWTClaims) (*dto.ProofDownloadResponse, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureRequestAccess(req, actor); err != nil {
		return nil, err
	}
	if actor.Role == models.RoleInstructor {
		return nil, appErrors.ErrForbidden
	}
	if req.PaymentProofPath == "" {
		return nil, appErrors.ErrNotFound
	}
	token, expiresAt, err := s.signer.Generate(req.ID, req.PaymentProofPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate download token")
	}
	base := strings.TrimRight(s.cfg.APIPrefix, "/")
	return &dto.ProofDownloadResponse{
		RequestID:   req.ID,
		DownloadURL: fmt.Sprintf("%s/pengajuan-sa/%s/bukti-bayar/download?token=%s", base, req.ID, token),
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// DownloadProof validates the signed token and opens the proof file. The
// token is the credential here; the link is meant to be opened directly
// by a browser without an Authorization header.
func (s *SubmissionService) DownloadProof(ctx context.Context, id, token string) (*ProofDownload, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	requestID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired token")
	}
	if requestID != req.ID || relPath != req.PaymentProofPath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open proof file")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read proof metadata")
	}
	return &ProofDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		MimeType:  req.PaymentProofMime,
		SizeBytes: info.Size(),
		ExpiresAt: expiresAt,
	}, nil
}

// RecapPDF renders a per-request recap document with one row per course.
func (s *SubmissionService) RecapPDF(ctx context.Context, id string, actor *models.JWTClaims) ([]byte, string, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if err := s.ensureRequestAccess(req, actor); err != nil {
		return nil, "", err
	}
	totalCredits := req.TotalCredits()
	data := export.Dataset{
		Headers: []string{"Mata Kuliah", "SKS", "Dosen", "Status", "Nilai", "Nominal"},
	}
	for i := range req.Details {
		detail := &req.Details[i]
		row := map[string]string{
			"Mata Kuliah": detail.CourseName,
			"SKS":         fmt.Sprintf("%d", detail.CreditWeight),
			"Dosen":       "-",
			"Status":      string(detail.DetailStatus),
			"Nilai":       "-",
			"Nominal":     fmt.Sprintf("%.2f", ProRatedNominal(req.PaymentAmount, detail.CreditWeight, totalCredits)),
		}
		if detail.AssignedInstructorID != nil {
			row["Dosen"] = *detail.AssignedInstructorID
		}
		if detail.FinalScore != nil {
			row["Nilai"] = fmt.Sprintf("%.1f", *detail.FinalScore)
		}
		data.Rows = append(data.Rows, row)
	}
	title := fmt.Sprintf("Rekap Pengajuan SA %s (%s)", req.StudentID, req.OverallStatus)
	payload, err := export.NewPDFExporter().Render(data, title)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render recap")
	}
	filename := fmt.Sprintf("rekap_sa_%s.pdf", req.ID)
	return payload, filename, nil
}

// ExportCSV renders the ungrouped detail rows matching the filter. Staff
// only; the output feeds the faculty's honorarium spreadsheet.
func (s *SubmissionService) ExportCSV(ctx context.Context, query dto.SubmissionQuery, actor *models.JWTClaims) ([]byte, error) {
	if err := requireRole(actor, models.RoleAdmin, models.RoleProgramHead, models.RolePaymentVerifier); err != nil {
		return nil, err
	}
	// The export always covers the whole filtered set, paging past the
	// repository's per-query cap.
	filter := models.SubmissionFilter{Status: query.Status, Limit: 200}
	var reqs []models.SubmissionRequest
	for {
		page, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
		}
		reqs = append(reqs, page...)
		filter.Offset += len(page)
		if len(page) == 0 || filter.Offset >= total {
			break
		}
	}
	data := export.Dataset{
		Headers: []string{"Request", "Mahasiswa", "Mata Kuliah", "SKS", "Dosen", "Status", "Nilai", "Nominal"},
	}
	for i := range reqs {
		req := &reqs[i]
		totalCredits := req.TotalCredits()
		for j := range req.Details {
			detail := &req.Details[j]
			row := map[string]string{
				"Request":     req.ID,
				"Mahasiswa":   req.StudentID,
				"Mata Kuliah": detail.CourseName,
				"SKS":         fmt.Sprintf("%d", detail.CreditWeight),
				"Dosen":       "",
				"Status":      string(detail.DetailStatus),
				"Nilai":       "",
				"Nominal":     fmt.Sprintf("%.2f", ProRatedNominal(req.PaymentAmount, detail.CreditWeight, totalCredits)),
			}
			if detail.AssignedInstructorID != nil {
				row["Dosen"] = *detail.AssignedInstructorID
			}
			if detail.FinalScore != nil {
				row["Nilai"] = fmt.Sprintf("%.1f", *detail.FinalScore)
			}
			data.Rows = append(data.Rows, row)
		}
	}
	payload, err := export.NewCSVExporter().Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return payload, nil
}

func (s *SubmissionService) listViews(ctx context.Context, filter models.SubmissionFilter, role models.UserRole, viewerRef string) ([]dto.RoleView, *models.Pagination, error) {
	type cached struct {
		Views      []dto.RoleView     `json:"views"`
		Pagination *models.Pagination `json:"pagination"`
	}
	key := listCacheKey(filter, role, viewerRef)
	if s.cache != nil {
		var hit cached
		if err := s.cache.Get(ctx, key, &hit); err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(true)
			}
			return hit.Views, hit.Pagination, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("submission list cache read failed", zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false)
		}
	}

	reqs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	views := s.projector.ProjectAll(reqs, role, viewerRef)

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	pagination := &models.Pagination{
		Page:       offset/limit + 1,
		PageSize:   limit,
		TotalCount: total,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cached{Views: views, Pagination: pagination}, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("submission list cache write failed", zap.Error(err))
		}
	}
	return views, pagination, nil
}

func (s *SubmissionService) load(ctx context.Context, id string) (*models.SubmissionRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return req, nil
}

func (s *SubmissionService) mutate(ctx context.Context, id string, fn func(*models.SubmissionRequest) error) (*models.SubmissionRequest, error) {
	req, err := s.repo.Mutate(ctx, id, fn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply submission mutation")
	}
	return req, nil
}

func (s *SubmissionService) ensureRequestAccess(req *models.SubmissionRequest, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleAdmin, models.RolePaymentVerifier, models.RoleProgramHead:
		return nil
	case models.RoleStudent:
		if req.StudentID == actor.RefID {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "students may only view their own submissions")
	case models.RoleInstructor:
		for i := range req.Details {
			assigned := req.Details[i].AssignedInstructorID
			if assigned != nil && *assigned == actor.RefID {
				return nil
			}
		}
		return appErrors.Clone(appErrors.ErrForbidden, "no course in this request is assigned to you")
	default:
		return appErrors.ErrForbidden
	}
}

func (s *SubmissionService) validateSubmission(req dto.CreateSubmissionRequest) error {
	if req.PaymentAmount <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "payment amount must be positive")
	}
	if len(req.Courses) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one course is required")
	}
	seen := make(map[string]struct{}, len(req.Courses))
	totalCredits := 0
	for _, course := range req.Courses {
		name := strings.TrimSpace(course.CourseName)
		if name == "" {
			return appErrors.Clone(appErrors.ErrValidation, "course name is required")
		}
		if course.CreditWeight <= 0 {
			return appErrors.Clone(appErrors.ErrValidation, "credit weight must be positive")
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate course %q", name))
		}
		seen[key] = struct{}{}
		totalCredits += course.CreditWeight
	}
	if s.cfg.StrictAmount && s.cfg.CreditRate > 0 {
		expected := s.cfg.CreditRate * float64(totalCredits)
		if req.PaymentAmount != expected {
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("payment amount %.0f does not match expected %.0f", req.PaymentAmount, expected))
		}
	}
	return nil
}

func (s *SubmissionService) detectProofMime(upload ProofUpload) (string, error) {
	if upload.Content == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "payment proof reader missing")
	}
	if upload.MimeType != "" {
		return upload.MimeType, nil
	}
	header := make([]byte, 512)
	n, err := upload.Content.Read(header)
	if err != nil && err != io.EOF {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect payment proof")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	if n == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "empty payment proof")
	}
	return http.DetectContentType(header[:n]), nil
}

func (s *SubmissionService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, resourceID, newValues string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "pengajuan_sa",
		ResourceID: &resourceID,
		IPAddress:  "system",
		UserAgent:  "submission-service",
	}
	if newValues != "" {
		log.NewValues = []byte(newValues)
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to create submission audit", zap.Error(err))
	}
}

func (s *SubmissionService) publish(ctx context.Context, event TransitionEvent) {
	if s.metrics != nil {
		s.metrics.RecordTransition(event.Event)
	}
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ctx, event)
}

func (s *SubmissionService) invalidateViews(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "pengajuan:list:*"); err != nil {
		s.logger.Warn("failed to invalidate submission list cache", zap.Error(err))
	}
}

func requireRole(actor *models.JWTClaims, roles ...models.UserRole) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	for _, role := range roles {
		if actor.Role == role {
			return nil
		}
	}
	return appErrors.ErrForbidden
}

func listCacheKey(filter models.SubmissionFilter, role models.UserRole, viewerRef string) string {
	statuses := make([]string, 0, len(filter.Status))
	for _, status := range filter.Status {
		statuses = append(statuses, string(status))
	}
	return fmt.Sprintf("pengajuan:list:%s:%s:%s:%s:%s:%d:%d",
		role, viewerRef, filter.StudentID, filter.InstructorID,
		strings.Join(statuses, ","), filter.Limit, filter.Offset)
}

func proofFilename(studentID, original, mimeType string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" {
		ext = proofExt(mimeType)
	}
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("bukti_%s_%d_%s%s", sanitizeRef(studentID), time.Now().Unix(), randomSuffix(), ext)
}

func proofExt(mime string) string {
	switch strings.ToLower(mime) {
	case "application/pdf":
		return ".pdf"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	default:
		return ""
	}
}

func sanitizeRef(raw string) string {
	raw = strings.ToLower(raw)
	var b strings.Builder
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func randomSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
