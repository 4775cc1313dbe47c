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

// NotificationRepository persists workflow notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts one notification row.
func (r *NotificationRepository) Create(ctx context.Context, n *models.WorkflowNotification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO workflow_notifications (id, request_id, recipient_ref, event, message, created_at, read_at)
		VALUES (:id, :request_id, :recipient_ref, :event, :message, :created_at, :read_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// List returns notifications for one recipient, newest first.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.WorkflowNotification, error) {
	args := []interface{}{filter.RecipientRef}
	conditions := []string{"recipient_ref = $1"}
	if filter.UnreadOnly {
		conditions = append(conditions, "read_at IS NULL")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT id, request_id, recipient_ref, event, message, created_at, read_at
		FROM workflow_notifications WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		strings.Join(conditions, " AND "), limit, offset)

	var notifications []models.WorkflowNotification
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead stamps a notification as read. Only the recipient may do so.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientRef string, at time.Time) error {
	const query = `UPDATE workflow_notifications SET read_at = $3 WHERE id = $1 AND recipient_ref = $2 AND read_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, recipientRef, at)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check notification update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
