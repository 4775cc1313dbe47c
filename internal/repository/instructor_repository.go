package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/siakad-dev/pengajuan-sa-api/internal/models"
)

const instructorColumns = `id, nip, full_name, program, active, created_at, updated_at`

// InstructorRepository reads the instructor directory. The roster is
// synced in by the campus HR system; this service never writes to it.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository constructs the repository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

// GetByID fetches one instructor.
func (r *InstructorRepository) GetByID(ctx context.Context, id string) (*models.Instructor, error) {
	query := fmt.Sprintf(`SELECT %s FROM instructors WHERE id = $1 OR nip = $1 LIMIT 1`, instructorColumns)
	var instructor models.Instructor
	if err := r.db.GetContext(ctx, &instructor, query, id); err != nil {
		return nil, err
	}
	return &instructor, nil
}

// List returns instructors matching the filter with a total count.
func (r *InstructorRepository) List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, int, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	if filter.Program != "" {
		args = append(args, filter.Program)
		conditions = append(conditions, fmt.Sprintf("program = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR nip LIKE $%d)", len(args), len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM instructors"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count instructors: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf("SELECT %s FROM instructors%s ORDER BY full_name LIMIT %d OFFSET %d",
		instructorColumns, where, limit, offset)

	var instructors []models.Instructor
	if err := r.db.SelectContext(ctx, &instructors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list instructors: %w", err)
	}
	return instructors, total, nil
}
