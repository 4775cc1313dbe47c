package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/siakad-dev/pengajuan-sa-api/internal/models"
	appErrors "github.com/siakad-dev/pengajuan-sa-api/pkg/errors"
)

type mockInstructorStore struct {
	instructors []models.Instructor
	total       int
	getErr      error
}

func (m *mockInstructorStore) GetByID(context.Context, string) (*models.Instructor, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &m.instructors[0], nil
}

func (m *mockInstructorStore) List(context.Context, models.InstructorFilter) ([]models.Instructor, int, error) {
	return m.instructors, m.total, nil
}

func TestInstructorGetMapsNotFound(t *testing.T) {
	svc := NewInstructorService(&mockInstructorStore{getErr: sql.ErrNoRows}, zap.NewNop())

	_, err := svc.Get(context.Background(), "missing", kaprodiClaims())
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Get(context.Background(), "dosen-1", nil)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestInstructorListPagination(t *testing.T) {
	store := &mockInstructorStore{
		instructors: []models.Instructor{{ID: "dosen-1", NIP: "198201012006041001"}},
		total:       120,
	}
	svc := NewInstructorService(store, zap.NewNop())

	instructors, pagination, err := svc.List(context.Background(), models.InstructorFilter{Limit: 20, Offset: 40}, kaprodiClaims())
	require.NoError(t, err)
	require.Len(t, instructors, 1)
	assert.Equal(t, 3, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 120, pagination.TotalCount)

	// Out-of-range limits fall back to the default page size.
	_, pagination, err = svc.List(context.Background(), models.InstructorFilter{Limit: 999}, kaprodiClaims())
	require.NoError(t, err)
	assert.Equal(t, 50, pagination.PageSize)
}
