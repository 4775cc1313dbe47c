package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/siakad-dev/pengajuan-sa-api/internal/models"
	appErrors "github.com/siakad-dev/pengajuan-sa-api/pkg/errors"
	"github.com/siakad-dev/pengajuan-sa-api/pkg/jobs"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.WorkflowNotification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.WorkflowNotification, error)
	MarkRead(ctx context.Context, id, recipientRef string, at time.Time) error
}

// TransitionEvent describes one workflow transition to fan out to the
// affected NIM/NIP recipients.
type TransitionEvent struct {
	RequestID  string
	Event      string
	Message    string
	Recipients []string
}

// NotificationServiceConfig tunes the background dispatcher.
type NotificationServiceConfig struct {
	Enabled    bool
	Workers    int
	BufferSize int
	MaxRetries int
}

// NotificationService writes workflow notifications off the request path.
// Publishing never blocks a workflow mutation; a dropped notification is
// logged and retried by the queue, not surfaced to the caller.
type NotificationService struct {
	repo   notificationStore
	queue  *jobs.Queue
	logger *zap.Logger
	cfg    NotificationServiceConfig
}

// NewNotificationService constructs the service and its queue.
func NewNotificationService(repo notificationStore, logger *zap.Logger, cfg NotificationServiceConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{
		repo:   repo,
		logger: logger,
		cfg:    cfg,
	}
	svc.queue = jobs.NewQueue("workflow-notifications", svc.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return svc
}

// Start launches the dispatcher workers.
func (s *NotificationService) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the dispatcher.
func (s *NotificationService) Stop() {
	if !s.cfg.Enabled {
		return
	}
	s.queue.Stop()
}

// Publish enqueues one notification per recipient.
func (s *NotificationService) Publish(ctx context.Context, event TransitionEvent) {
	if !s.cfg.Enabled {
		return
	}
	for _, recipient := range event.Recipients {
		if recipient == "" {
			continue
		}
		job := jobs.Job{
			ID:   uuid.NewString(),
			Type: event.Event,
			Payload: &models.WorkflowNotification{
				RequestID:    event.RequestID,
				RecipientRef: recipient,
				Event:        event.Event,
				Message:      event.Message,
			},
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue workflow notification",
				zap.String("request_id", event.RequestID),
				zap.String("event", event.Event),
				zap.Error(err))
		}
	}
}

// List returns the actor's notifications.
func (s *NotificationService) List(ctx context.Context, unreadOnly bool, limit, offset int, actor *models.JWTClaims) ([]models.WorkflowNotification, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.RefID == "" {
		return []models.WorkflowNotification{}, nil
	}
	notifications, err := s.repo.List(ctx, models.NotificationFilter{
		RecipientRef: actor.RefID,
		UnreadOnly:   unreadOnly,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// MarkRead stamps one of the actor's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.repo.MarkRead(ctx, id, actor.RefID, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(*models.WorkflowNotification)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	return s.repo.Create(ctx, notification)
}
