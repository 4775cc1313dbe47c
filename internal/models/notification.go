package models

import "time"

// Workflow notification events, one per state transition.
const (
	NotificationEventSubmitted       = "SUBMITTED"
	NotificationEventPaymentVerified = "PAYMENT_VERIFIED"
	NotificationEventAssigned        = "ASSIGNED"
	NotificationEventScored          = "SCORED"
	NotificationEventComplete        = "COMPLETE"
	NotificationEventRejected        = "REJECTED"
)

// WorkflowNotification feeds the portal's alert list. Written
// asynchronously; a failed write never fails the workflow mutation.
type WorkflowNotification struct {
	ID           string     `db:"id" json:"id"`
	RequestID    string     `db:"request_id" json:"requestId"`
	RecipientRef string     `db:"recipient_ref" json:"recipientRef"`
	Event        string     `db:"event" json:"event"`
	Message      string     `db:"message" json:"message"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	ReadAt       *time.Time `db:"read_at" json:"readAt,omitempty"`
}

// NotificationFilter constrains alert listing.
type NotificationFilter struct {
	RecipientRef string
	UnreadOnly   bool
	Limit        int
	Offset       int
}
