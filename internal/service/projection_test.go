package service

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siakad-dev/pengajuan-sa-api/internal/models"
)

func projectionFixture() *models.SubmissionRequest {
	instructorA := "198201012006041001"
	instructorB := "197505052003121002"
	scoreA := 85.0
	now := time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)
	verified := now.Add(time.Hour)
	return &models.SubmissionRequest{
		ID:                "req-1",
		StudentID:         "2110511001",
		SubmissionDate:    now,
		PaymentAmount:     900000,
		OverallStatus:     models.StatusAssigned,
		PaymentVerifiedAt: &verified,
		Details: []models.CourseDetail{
			{
				ID: "d-1", RequestID: "req-1", CourseName: "Basis Data", CreditWeight: 3,
				AssignedInstructorID: &instructorA, FinalScore: &scoreA, DetailStatus: models.DetailComplete,
			},
			{
				ID: "d-2", RequestID: "req-1", CourseName: "Jaringan Komputer", CreditWeight: 2,
				AssignedInstructorID: &instructorA, DetailStatus: models.DetailInProgress,
			},
			{
				ID: "d-3", RequestID: "req-1", CourseName: "Struktur Data", CreditWeight: 4,
				AssignedInstructorID: &instructorB, DetailStatus: models.DetailInProgress,
			},
		},
	}
}

func TestProjectStudentAlwaysGrouped(t *testing.T) {
	projector := NewProjector()
	req := projectionFixture()

	views := projector.Project(req, models.RoleStudent, req.StudentID)
	require.Len(t, views, 1)

	view := views[0]
	assert.Equal(t, "req-1", view.RequestID)
	assert.Nil(t, view.DetailID)
	assert.Equal(t, "Basis Data, Jaringan Komputer, Struktur Data", view.Courses)
	assert.Equal(t, 9, view.TotalCredits)
	assert.Equal(t, 3, view.DetailCount)
	assert.Equal(t, 900000.0, view.Nominal)
	require.NotNil(t, view.AverageScore)
	assert.Equal(t, 85.0, *view.AverageScore)
	require.NotNil(t, view.AllScored)
	assert.False(t, *view.AllScored)
}

func TestProjectStudentAverageRounding(t *testing.T) {
	projector := NewProjector()
	req := projectionFixture()
	scoreB := 90.0
	scoreC := 77.0
	req.Details[1].FinalScore = &scoreB
	req.Details[1].DetailStatus = models.DetailComplete
	req.Details[2].FinalScore = &scoreC
	req.Details[2].DetailStatus = models.DetailComplete
	req.Recompute()

	views := projector.Project(req, models.RoleStudent, req.StudentID)
	require.Len(t, views, 1)
	// (85 + 90 + 77) / 3 = 84, exact; (85+90)/2 would be 87.5.
	require.NotNil(t, views[0].AverageScore)
	assert.Equal(t, 84.0, *views[0].AverageScore)
	require.NotNil(t, views[0].AllScored)
	assert.True(t, *views[0].AllScored)
}

func TestProjectInstructorSeesOnlyOwnRows(t *testing.T) {
	projector := NewProjector()
	req := projectionFixture()

	views := projector.Project(req, models.RoleInstructor, "198201012006041001")
	require.Len(t, views, 2)

	assert.Equal(t, "Basis Data", views[0].Courses)
	assert.False(t, views[0].Gradable) // already scored
	assert.Equal(t, "Jaringan Komputer", views[1].Courses)
	assert.True(t, views[1].Gradable)

	other := projector.Project(req, models.RoleInstructor, "197505052003121002")
	require.Len(t, other, 1)
	assert.Equal(t, "Struktur Data", other[0].Courses)
}

func TestProjectStaffGroupsBeforeVerification(t *testing.T) {
	projector := NewProjector()
	req := projectionFixture()
	req.PaymentVerifiedAt = nil
	for i := range req.Details {
		req.Details[i].AssignedInstructorID = nil
		req.Details[i].FinalScore = nil
		req.Details[i].DetailStatus = models.DetailPendingAssignment
	}
	req.Recompute()
	require.Equal(t, models.StatusSubmitted, req.OverallStatus)

	views := projector.Project(req, models.RolePaymentVerifier, "")
	require.Len(t, views, 1)
	assert.Nil(t, views[0].DetailID)
	// Staff grouped rows carry no student-only grade aggregate.
	assert.Nil(t, views[0].AverageScore)
	assert.Nil(t, views[0].AllScored)
}

func TestProjectStaffUngroupsAfterAssignment(t *testing.T) {
	projector := NewProjector()
	req := projectionFixture()

	views := projector.Project(req, models.RoleProgramHead, "")
	require.Len(t, views, 3)
	for _, view := range views {
		require.NotNil(t, view.DetailID)
		assert.Equal(t, 1, view.DetailCount)
	}
}

func TestProjectStaffGroupsRejected(t *testing.T) {
	projector := NewProjector()
	req := projectionFixture()
	reason := "bukti tidak sesuai"
	req.RejectionReason = &reason
	req.Recompute()

	views := projector.Project(req, models.RoleAdmin, "")
	require.Len(t, views, 1)
	require.NotNil(t, views[0].RejectionReason)
	assert.Equal(t, reason, *views[0].RejectionReason)
}

func TestProRatedNominalSumsToParentAmount(t *testing.T) {
	projector := NewProjector()
	req := projectionFixture()

	views := projector.Project(req, models.RoleProgramHead, "")
	require.Len(t, views, 3)

	var sum float64
	for _, view := range views {
		sum += view.Nominal
	}
	assert.InDelta(t, req.PaymentAmount, sum, 1e-6)

	// 3 of 9 credits carries a third of the payment.
	assert.InDelta(t, 300000, views[0].Nominal, 1e-6)
}

func TestProRatedNominalZeroCredits(t *testing.T) {
	assert.Equal(t, 0.0, ProRatedNominal(900000, 3, 0))
}

func TestProjectAllFlattens(t *testing.T) {
	projector := NewProjector()
	first := projectionFixture()
	second := projectionFixture()
	second.ID = "req-2"

	views := projector.ProjectAll([]models.SubmissionRequest{*first, *second}, models.RoleProgramHead, "")
	assert.Len(t, views, 6)
}

func TestAverageScoreRoundsHalfUp(t *testing.T) {
	a, b := 85.0, 90.0
	details := []models.CourseDetail{
		{FinalScore: &a, DetailStatus: models.DetailComplete},
		{FinalScore: &b, DetailStatus: models.DetailComplete},
		{DetailStatus: models.DetailInProgress},
	}

	avg, allScored := averageScore(details)
	require.NotNil(t, avg)
	assert.False(t, allScored)
	assert.False(t, math.Signbit(*avg))
	assert.Equal(t, 87.5, *avg)

	none, scored := averageScore([]models.CourseDetail{{DetailStatus: models.DetailPendingAssignment}})
	assert.Nil(t, none)
	assert.False(t, scored)
}
