package notification

import (
	"context"
	"time"

	"github.com/NCGHoldings/StoresONE-sub000/internal/features/request"

	"go.uber.org/zap"
)

// NotificationService persists notifications and pushes them to connected
// clients. NotifyWorkflowEvent is the approval engine's dispatch hook.
type NotificationService interface {
	NotifyWorkflowEvent(ctx context.Context, evt request.Event)
	GetUserNotifications(ctx context.Context, userID string, page, limit int64) ([]Notification, int64, error)
	GetUnreadCount(ctx context.Context, userID string) (int64, error)
	MarkAsRead(ctx context.Context, id string, userID string) error
	MarkAllAsRead(ctx context.Context, userID string) error
}

type NotificationServiceImpl struct {
	Repo NotificationRepository
	Hub  *Hub
	Log  *zap.Logger
}

func NewNotificationService(repo NotificationRepository, hub *Hub, log *zap.Logger) NotificationService {
	return &NotificationServiceImpl{
		Repo: repo,
		Hub:  hub,
		Log:  log,
	}
}

// NotifyWorkflowEvent fans one engine event out to every recipient. Dispatch
// failures are logged, never propagated; notification delivery must not
// affect request state.
func (s *NotificationServiceImpl) NotifyWorkflowEvent(ctx context.Context, evt request.Event) {
	notifType := NotificationTypeInfo
	title := "Workflow update"
	switch evt.Type {
	case request.EventStepOpened:
		notifType = NotificationTypeApproval
		title = "Approval required"
	case request.EventEscalation:
		notifType = NotificationTypeEscalation
		title = "Approval overdue"
	case request.EventRequestResolved:
		notifType = NotificationTypeResolved
		title = "Request resolved"
	}

	for _, userID := range evt.Recipients {
		n := &Notification{
			UserID:       userID,
			Title:        title,
			Message:      evt.Message,
			Type:         notifType,
			RequestID:    evt.RequestID,
			EntityType:   evt.EntityType,
			EntityNumber: evt.EntityNumber,
			CreatedAt:    time.Now(),
		}
		if err := s.Repo.Create(ctx, n); err != nil {
			s.Log.Error("failed to persist notification",
				zap.String("user_id", userID),
				zap.String("request_id", evt.RequestID),
				zap.Error(err))
			continue
		}
		s.Hub.Push(userID, n)
	}
}

func (s *NotificationServiceImpl) GetUserNotifications(ctx context.Context, userID string, page, limit int64) ([]Notification, int64, error) {
	return s.Repo.ListByUser(ctx, userID, page, limit)
}

func (s *NotificationServiceImpl) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.Repo.CountUnread(ctx, userID)
}

func (s *NotificationServiceImpl) MarkAsRead(ctx context.Context, id string, userID string) error {
	return s.Repo.MarkAsRead(ctx, id, userID)
}

func (s *NotificationServiceImpl) MarkAllAsRead(ctx context.Context, userID string) error {
	return s.Repo.MarkAllAsRead(ctx, userID)
}
