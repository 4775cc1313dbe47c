package dto

import "github.com/siakad-dev/pengajuan-sa-api/internal/models"

// CourseRef is one selected course in a new submission.
type CourseRef struct {
	CourseName   string `json:"courseName" form:"courseName" validate:"required"`
	CreditWeight int    `json:"creditWeight" form:"creditWeight" validate:"required,gt=0"`
}

// CreateSubmissionRequest is the multipart payload for a new SA request.
// The proof file itself travels as the "buktiBayar" form file.
type CreateSubmissionRequest struct {
	PaymentAmount float64     `json:"paymentAmount" form:"paymentAmount" validate:"required,gt=0"`
	Description   string      `json:"description" form:"description"`
	Courses       []CourseRef `json:"courses" validate:"required,min=1,dive"`
}

// RejectSubmissionRequest carries the mandatory rejection reason.
type RejectSubmissionRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// AssignInstructorRequest attaches an instructor to a course detail.
type AssignInstructorRequest struct {
	InstructorID string `json:"instructorId" validate:"required"`
}

// RecordScoreRequest enters a final score for a course detail.
type RecordScoreRequest struct {
	Score float64 `json:"score" validate:"min=0,max=100"`
}

// SubmissionQuery mirrors supported listing filters.
type SubmissionQuery struct {
	Status []models.OverallStatus
	Limit  int
	Offset int
}

// RoleView is the computed, role-shaped projection of a submission.
// Grouped rows cover the whole request (DetailID nil); ungrouped rows
// cover a single course detail.
type RoleView struct {
	RequestID       string                `json:"requestId"`
	DetailID        *string               `json:"detailId,omitempty"`
	StudentID       string                `json:"studentId"`
	SubmissionDate  string                `json:"submissionDate"`
	OverallStatus   models.OverallStatus  `json:"overallStatus"`
	DetailStatus    *models.DetailStatus  `json:"detailStatus,omitempty"`
	Courses         string                `json:"courses"`
	TotalCredits    int                   `json:"totalCredits"`
	DetailCount     int                   `json:"detailCount"`
	Nominal         float64               `json:"nominal"`
	InstructorID    *string               `json:"instructorId,omitempty"`
	FinalScore      *float64              `json:"finalScore,omitempty"`
	AverageScore    *float64              `json:"averageScore,omitempty"`
	AllScored       *bool                 `json:"allScored,omitempty"`
	RejectionReason *string               `json:"rejectionReason,omitempty"`
	Gradable        bool                  `json:"gradable,omitempty"`
	Description     string                `json:"description,omitempty"`
}

// ProofDownloadResponse returns the signed link for a payment proof.
type ProofDownloadResponse struct {
	RequestID   string `json:"requestId"`
	DownloadURL string `json:"downloadUrl"`
	ExpiresAt   string `json:"expiresAt"`
}
