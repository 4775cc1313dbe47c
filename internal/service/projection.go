package service

import (
	"math"
	"strings"
	"time"

	"github.com/siakad-dev/pengajuan-sa-api/internal/dto"
	"github.com/siakad-dev/pengajuan-sa-api/internal/models"
)

// Projector turns submission aggregates into role-shaped views. Grouping
// follows the workflow stage: before verification one payment means one
// decision, so the whole request is a single row; once instructors are
// assigned each course runs an independent grading lifecycle and gets its
// own row with a credit-weight pro-rated share of the payment.
type Projector struct{}

// NewProjector constructs the projector.
func NewProjector() *Projector {
	return &Projector{}
}

// Project renders the aggregate for the given viewer.
func (p *Projector) Project(req *models.SubmissionRequest, role models.UserRole, viewerRef string) []dto.RoleView {
	if req == nil {
		return nil
	}
	switch role {
	case models.RoleStudent:
		return []dto.RoleView{p.grouped(req, true)}
	case models.RoleInstructor:
		return p.ungrouped(req, viewerRef)
	default:
		if req.OverallStatus == models.StatusSubmitted || req.OverallStatus == models.StatusRejected {
			return []dto.RoleView{p.grouped(req, false)}
		}
		return p.ungrouped(req, "")
	}
}

// ProjectAll flattens the projection over many aggregates.
func (p *Projector) ProjectAll(reqs []models.SubmissionRequest, role models.UserRole, viewerRef string) []dto.RoleView {
	views := make([]dto.RoleView, 0, len(reqs))
	for i := range reqs {
		views = append(views, p.Project(&reqs[i], role, viewerRef)...)
	}
	return views
}

func (p *Projector) grouped(req *models.SubmissionRequest, studentView bool) dto.RoleView {
	names := make([]string, 0, len(req.Details))
	for i := range req.Details {
		names = append(names, req.Details[i].CourseName)
	}
	view := dto.RoleView{
		RequestID:       req.ID,
		StudentID:       req.StudentID,
		SubmissionDate:  req.SubmissionDate.Format(time.RFC3339),
		OverallStatus:   req.OverallStatus,
		Courses:         strings.Join(names, ", "),
		TotalCredits:    req.TotalCredits(),
		DetailCount:     len(req.Details),
		Nominal:         req.PaymentAmount,
		RejectionReason: req.RejectionReason,
		Description:     req.Description,
	}
	if studentView {
		avg, allScored := averageScore(req.Details)
		view.AverageScore = avg
		view.AllScored = &allScored
	}
	return view
}

func (p *Projector) ungrouped(req *models.SubmissionRequest, instructorRef string) []dto.RoleView {
	totalCredits := req.TotalCredits()
	views := make([]dto.RoleView, 0, len(req.Details))
	for i := range req.Details {
		detail := &req.Details[i]
		if instructorRef != "" {
			if detail.AssignedInstructorID == nil || *detail.AssignedInstructorID != instructorRef {
				continue
			}
		}
		detailID := detail.ID
		status := detail.DetailStatus
		views = append(views, dto.RoleView{
			RequestID:       req.ID,
			DetailID:        &detailID,
			StudentID:       req.StudentID,
			SubmissionDate:  req.SubmissionDate.Format(time.RFC3339),
			OverallStatus:   req.OverallStatus,
			DetailStatus:    &status,
			Courses:         detail.CourseName,
			TotalCredits:    detail.CreditWeight,
			DetailCount:     1,
			Nominal:         ProRatedNominal(req.PaymentAmount, detail.CreditWeight, totalCredits),
			InstructorID:    detail.AssignedInstructorID,
			FinalScore:      detail.FinalScore,
			RejectionReason: req.RejectionReason,
			Gradable:        detail.IsGradable(instructorRef),
		})
	}
	return views
}

// ProRatedNominal splits the payment amount across details by credit
// weight. Shares are presentation-only; they sum back to the parent
// amount within floating point tolerance.
func ProRatedNominal(amount float64, creditWeight, totalCredits int) float64 {
	if totalCredits <= 0 {
		return 0
	}
	return amount * float64(creditWeight) / float64(totalCredits)
}

// averageScore returns the mean of the non-nil scores rounded to one
// decimal, plus whether every detail has been scored.
func averageScore(details []models.CourseDetail) (*float64, bool) {
	var sum float64
	scored := 0
	for i := range details {
		if details[i].FinalScore != nil {
			sum += *details[i].FinalScore
			scored++
		}
	}
	if scored == 0 {
		return nil, false
	}
	avg := math.Round(sum/float64(scored)*10) / 10
	return &avg, scored == len(details)
}
