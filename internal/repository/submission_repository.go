package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/siakad-dev/pengajuan-sa-api/internal/models"
)

const submissionColumns = `id, student_id, submission_date, payment_amount, payment_proof_path, payment_proof_mime,
       description, overall_status, rejection_reason, payment_verified_at, created_at, updated_at`

const detailColumns = `id, request_id, course_name, credit_weight, assigned_instructor_id, final_score,
       detail_status, assigned_at, scored_at, created_at, updated_at`

// SubmissionRepository persists submission requests and their course details.
// The two tables always travel together: every read hydrates the details and
// every mutation rewrites them inside one transaction.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts the parent row and all detail rows in one transaction.
func (r *SubmissionRepository) Create(ctx context.Context, req *models.SubmissionRequest) error {
	now := time.Now().UTC()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.SubmissionDate.IsZero() {
		req.SubmissionDate = now
	}
	req.CreatedAt = now
	req.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create submission: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertRequest = `INSERT INTO submission_requests
		(id, student_id, submission_date, payment_amount, payment_proof_path, payment_proof_mime,
		 description, overall_status, rejection_reason, payment_verified_at, created_at, updated_at)
		VALUES (:id, :student_id, :submission_date, :payment_amount, :payment_proof_path, :payment_proof_mime,
		 :description, :overall_status, :rejection_reason, :payment_verified_at, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertRequest, req); err != nil {
		return fmt.Errorf("insert submission request: %w", err)
	}

	const insertDetail = `INSERT INTO submission_details
		(id, request_id, course_name, credit_weight, assigned_instructor_id, final_score,
		 detail_status, assigned_at, scored_at, created_at, updated_at)
		VALUES (:id, :request_id, :course_name, :credit_weight, :assigned_instructor_id, :final_score,
		 :detail_status, :assigned_at, :scored_at, :created_at, :updated_at)`
	for i := range req.Details {
		detail := &req.Details[i]
		if detail.ID == "" {
			detail.ID = uuid.NewString()
		}
		detail.RequestID = req.ID
		if detail.DetailStatus == "" {
			detail.DetailStatus = models.DetailPendingAssignment
		}
		detail.CreatedAt = now
		detail.UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, insertDetail, detail); err != nil {
			return fmt.Errorf("insert submission detail: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create submission: %w", err)
	}
	return nil
}

// GetByID fetches one request with its details hydrated.
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*models.SubmissionRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM submission_requests WHERE id = $1`, submissionColumns)
	var req models.SubmissionRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	if err := r.loadDetails(ctx, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns requests matching the filter, newest first, with details
// hydrated per row.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.SubmissionRequest, int, error) {
	args := make([]interface{}, 0, 6)
	conditions := make([]string, 0, 3)
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("sr.student_id = $%d", len(args)))
	}
	if filter.InstructorID != "" {
		args = append(args, filter.InstructorID)
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM submission_details sd WHERE sd.request_id = sr.id AND sd.assigned_instructor_id = $%d)",
			len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("sr.overall_status IN (%s)", strings.Join(placeholders, ",")))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM submission_requests sr" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	builder := strings.Builder{}
	builder.WriteString("SELECT " + submissionColumns + " FROM submission_requests sr")
	builder.WriteString(where)
	builder.WriteString(" ORDER BY sr.submission_date DESC")
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var reqs []models.SubmissionRequest
	if err := r.db.SelectContext(ctx, &reqs, builder.String(), args...); err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}
	for i := range reqs {
		if err := r.loadDetails(ctx, &reqs[i]); err != nil {
			return nil, 0, err
		}
	}
	return reqs, total, nil
}

// Mutate loads the aggregate under a row lock, applies fn, and persists
// the result. fn sees the freshly loaded state, so concurrent writers are
// serialized and transition guards run against current data.
func (r *SubmissionRepository) Mutate(ctx context.Context, requestID string, fn func(*models.SubmissionRequest) error) (*models.SubmissionRequest, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin submission mutation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	lockQuery := fmt.Sprintf(`SELECT %s FROM submission_requests WHERE id = $1 FOR UPDATE`, submissionColumns)
	var req models.SubmissionRequest
	if err := tx.GetContext(ctx, &req, lockQuery, requestID); err != nil {
		return nil, err
	}
	detailQuery := fmt.Sprintf(`SELECT %s FROM submission_details WHERE request_id = $1 ORDER BY created_at, id`, detailColumns)
	if err := tx.SelectContext(ctx, &req.Details, detailQuery, requestID); err != nil {
		return nil, fmt.Errorf("load submission details: %w", err)
	}

	if err := fn(&req); err != nil {
		return nil, err
	}

	const updateRequest = `UPDATE submission_requests SET
		overall_status = :overall_status,
		rejection_reason = :rejection_reason,
		payment_verified_at = :payment_verified_at,
		updated_at = :updated_at
		WHERE id = :id`
	result, err := tx.NamedExecContext(ctx, updateRequest, &req)
	if err != nil {
		return nil, fmt.Errorf("update submission request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check submission update rows: %w", err)
	}
	if rows == 0 {
		return nil, sql.ErrNoRows
	}

	const updateDetail = `UPDATE submission_details SET
		assigned_instructor_id = :assigned_instructor_id,
		final_score = :final_score,
		detail_status = :detail_status,
		assigned_at = :assigned_at,
		scored_at = :scored_at,
		updated_at = :updated_at
		WHERE id = :id`
	for i := range req.Details {
		if _, err := tx.NamedExecContext(ctx, updateDetail, &req.Details[i]); err != nil {
			return nil, fmt.Errorf("update submission detail: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit submission mutation: %w", err)
	}
	return &req, nil
}

func (r *SubmissionRepository) loadDetails(ctx context.Context, req *models.SubmissionRequest) error {
	query := fmt.Sprintf(`SELECT %s FROM submission_details WHERE request_id = $1 ORDER BY created_at, id`, detailColumns)
	if err := r.db.SelectContext(ctx, &req.Details, query, req.ID); err != nil {
		return fmt.Errorf("load submission details: %w", err)
	}
	return nil
}
