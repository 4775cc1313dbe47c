package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/siakad-dev/pengajuan-sa-api/internal/models"
	appErrors "github.com/siakad-dev/pengajuan-sa-api/pkg/errors"
)

type instructorStore interface {
	GetByID(ctx context.Context, id string) (*models.Instructor, error)
	List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, int, error)
}

// InstructorService exposes the read-only instructor directory used when
// picking a supervisor for a course detail.
type InstructorService struct {
	repo   instructorStore
	logger *zap.Logger
}

// NewInstructorService constructs the service.
func NewInstructorService(repo instructorStore, logger *zap.Logger) *InstructorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstructorService{repo: repo, logger: logger}
}

// Get returns one directory entry.
func (s *InstructorService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Instructor, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	instructor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	return instructor, nil
}

// List returns directory entries matching the filter.
func (s *InstructorService) List(ctx context.Context, filter models.InstructorFilter, actor *models.JWTClaims) ([]models.Instructor, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	instructors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
	}
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
	return instructors, pagination, nil
}
