package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/siakad-dev/pengajuan-sa-api/internal/models"
)

func newNotificationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestNotificationRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newNotificationRepoMock(t)
	defer cleanup()

	repo := NewNotificationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO workflow_notifications")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	n := &models.WorkflowNotification{
		RequestID:    "req-1",
		RecipientRef: "2110511001",
		Event:        models.NotificationEventSubmitted,
		Message:      "Pengajuan SA req-1 diterima",
	}
	require.NoError(t, repo.Create(context.Background(), n))
	require.NotEmpty(t, n.ID)
	require.False(t, n.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryListUnreadOnly(t *testing.T) {
	db, mock, cleanup := newNotificationRepoMock(t)
	defer cleanup()

	repo := NewNotificationRepository(db)
	rows := sqlmock.NewRows([]string{"id", "request_id", "recipient_ref", "event", "message", "created_at", "read_at"}).
		AddRow("n-1", "req-1", "2110511001", "SUBMITTED", "Pengajuan diterima", time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, request_id, recipient_ref")).
		WithArgs("2110511001").
		WillReturnRows(rows)

	notifications, err := repo.List(context.Background(), models.NotificationFilter{
		RecipientRef: "2110511001",
		UnreadOnly:   true,
	})
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.Equal(t, "n-1", notifications[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkRead(t *testing.T) {
	db, mock, cleanup := newNotificationRepoMock(t)
	defer cleanup()

	repo := NewNotificationRepository(db)
	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE workflow_notifications SET read_at")).
		WithArgs("n-1", "2110511001", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkRead(context.Background(), "n-1", "2110511001", now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkReadWrongRecipient(t *testing.T) {
	db, mock, cleanup := newNotificationRepoMock(t)
	defer cleanup()

	repo := NewNotificationRepository(db)
	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE workflow_notifications SET read_at")).
		WithArgs("n-1", "other", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkRead(context.Background(), "n-1", "other", now)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
