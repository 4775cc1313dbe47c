package models

import (
	"time"

	appErrors "github.com/siakad-dev/pengajuan-sa-api/pkg/errors"
)

// OverallStatus tracks the lifecycle of a whole submission request.
type OverallStatus string

const (
	StatusSubmitted       OverallStatus = "SUBMITTED"
	StatusPaymentVerified OverallStatus = "PAYMENT_VERIFIED"
	StatusAssigned        OverallStatus = "ASSIGNED"
	StatusComplete        OverallStatus = "COMPLETE"
	StatusRejected        OverallStatus = "REJECTED"
)

// DetailStatus tracks a single course line item inside a request.
type DetailStatus string

const (
	DetailPendingAssignment DetailStatus = "PENDING_ASSIGNMENT"
	DetailInProgress        DetailStatus = "IN_PROGRESS"
	DetailComplete          DetailStatus = "COMPLETE"
)

// SubmissionRequest is the aggregate root for one student's SA application.
type SubmissionRequest struct {
	ID                string        `db:"id" json:"id"`
	StudentID         string        `db:"student_id" json:"studentId"`
	SubmissionDate    time.Time     `db:"submission_date" json:"submissionDate"`
	PaymentAmount     float64       `db:"payment_amount" json:"paymentAmount"`
	PaymentProofPath  string        `db:"payment_proof_path" json:"-"`
	PaymentProofMime  string        `db:"payment_proof_mime" json:"-"`
	Description       string        `db:"description" json:"description"`
	OverallStatus     OverallStatus `db:"overall_status" json:"overallStatus"`
	RejectionReason   *string       `db:"rejection_reason" json:"rejectionReason,omitempty"`
	PaymentVerifiedAt *time.Time    `db:"payment_verified_at" json:"paymentVerifiedAt,omitempty"`
	CreatedAt         time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updatedAt"`

	Details []CourseDetail `db:"-" json:"details,omitempty"`
}

// CourseDetail is one course enrollment line item within a request.
type CourseDetail struct {
	ID                   string       `db:"id" json:"id"`
	RequestID            string       `db:"request_id" json:"requestId"`
	CourseName           string       `db:"course_name" json:"courseName"`
	CreditWeight         int          `db:"credit_weight" json:"creditWeight"`
	AssignedInstructorID *string      `db:"assigned_instructor_id" json:"assignedInstructorId,omitempty"`
	FinalScore           *float64     `db:"final_score" json:"finalScore,omitempty"`
	DetailStatus         DetailStatus `db:"detail_status" json:"detailStatus"`
	AssignedAt           *time.Time   `db:"assigned_at" json:"assignedAt,omitempty"`
	ScoredAt             *time.Time   `db:"scored_at" json:"scoredAt,omitempty"`
	CreatedAt            time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time    `db:"updated_at" json:"updatedAt"`
}

// SubmissionFilter constrains listing queries.
type SubmissionFilter struct {
	StudentID    string
	InstructorID string
	Status       []OverallStatus
	Limit        int
	Offset       int
}

// Recompute derives the overall status from rejection marker, payment
// verification marker, and current detail states. The stored status is
// never written directly; every mutation ends with this derivation.
func (r *SubmissionRequest) Recompute() {
	if r.RejectionReason != nil {
		r.OverallStatus = StatusRejected
		return
	}
	if len(r.Details) > 0 && r.allDetailsComplete() {
		r.OverallStatus = StatusComplete
		return
	}
	if r.anyDetailAssigned() {
		r.OverallStatus = StatusAssigned
		return
	}
	if r.PaymentVerifiedAt != nil {
		r.OverallStatus = StatusPaymentVerified
		return
	}
	r.OverallStatus = StatusSubmitted
}

func (r *SubmissionRequest) allDetailsComplete() bool {
	for i := range r.Details {
		if r.Details[i].DetailStatus != DetailComplete {
			return false
		}
	}
	return true
}

func (r *SubmissionRequest) anyDetailAssigned() bool {
	for i := range r.Details {
		if r.Details[i].AssignedInstructorID != nil {
			return true
		}
	}
	return false
}

// Detail returns the child with the given id, or nil.
func (r *SubmissionRequest) Detail(detailID string) *CourseDetail {
	for i := range r.Details {
		if r.Details[i].ID == detailID {
			return &r.Details[i]
		}
	}
	return nil
}

// TotalCredits sums the credit weight of every detail.
func (r *SubmissionRequest) TotalCredits() int {
	total := 0
	for i := range r.Details {
		total += r.Details[i].CreditWeight
	}
	return total
}

// VerifyPayment marks the payment proof as verified.
func (r *SubmissionRequest) VerifyPayment(at time.Time) error {
	if r.OverallStatus != StatusSubmitted {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "payment can only be verified while the request is SUBMITTED")
	}
	if r.PaymentProofPath == "" {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "payment proof is missing")
	}
	ts := at.UTC()
	r.PaymentVerifiedAt = &ts
	r.UpdatedAt = ts
	r.Recompute()
	return nil
}

// Reject records a terminal rejection. Allowed from any state before
// COMPLETE; details keep their current state.
func (r *SubmissionRequest) Reject(reason string, at time.Time) error {
	if r.OverallStatus == StatusComplete || r.OverallStatus == StatusRejected {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "request is already finalised")
	}
	r.RejectionReason = &reason
	r.UpdatedAt = at.UTC()
	r.Recompute()
	return nil
}

// AssignInstructor attaches an instructor to one detail, moving it to
// IN_PROGRESS and the parent to ASSIGNED.
func (r *SubmissionRequest) AssignInstructor(detailID, instructorID string, at time.Time) (*CourseDetail, error) {
	if r.OverallStatus == StatusRejected || r.OverallStatus == StatusComplete {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "request is already finalised")
	}
	if r.PaymentVerifiedAt == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "payment must be verified before assignment")
	}
	detail := r.Detail(detailID)
	if detail == nil {
		return nil, appErrors.ErrNotFound
	}
	if detail.DetailStatus != DetailPendingAssignment {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "detail is no longer pending assignment")
	}
	ts := at.UTC()
	detail.AssignedInstructorID = &instructorID
	detail.DetailStatus = DetailInProgress
	detail.AssignedAt = &ts
	detail.UpdatedAt = ts
	r.UpdatedAt = ts
	r.Recompute()
	return detail, nil
}

// RecordScore writes a final score on one detail. A detail is scored at
// most once; re-applying the transition fails loudly so duplicated client
// retries never overwrite a grade.
func (r *SubmissionRequest) RecordScore(detailID string, score float64, at time.Time) (*CourseDetail, error) {
	if r.OverallStatus == StatusRejected {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "request has been rejected")
	}
	detail := r.Detail(detailID)
	if detail == nil {
		return nil, appErrors.ErrNotFound
	}
	if detail.DetailStatus == DetailComplete || detail.FinalScore != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "detail has already been scored")
	}
	if detail.DetailStatus != DetailInProgress {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "detail has no assigned instructor yet")
	}
	ts := at.UTC()
	detail.FinalScore = &score
	detail.DetailStatus = DetailComplete
	detail.ScoredAt = &ts
	detail.UpdatedAt = ts
	r.UpdatedAt = ts
	r.Recompute()
	return detail, nil
}

// IsGradable reports whether the given instructor may currently enter a
// score for the detail. Derived purely from persisted state.
func (d *CourseDetail) IsGradable(instructorID string) bool {
	if d == nil {
		return false
	}
	if d.DetailStatus != DetailInProgress || d.FinalScore != nil {
		return false
	}
	return d.AssignedInstructorID != nil && *d.AssignedInstructorID == instructorID
}
