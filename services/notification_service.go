package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/arenaone/arena/models"
	"github.com/arenaone/arena/repositories"
)

// Notifier — сток уведомлений для остальных сервисов. Отправка fire-and-forget:
// сбой доставки логируется и никогда не откатывает вызвавший рабочий процесс.
type Notifier interface {
	Notify(ctx context.Context, recipientID int, templateKey string, params models.NotificationParams, entityKind string, entityID int)
}

// Ключи шаблонов. Текст рендерит клиент, сервер хранит только ключ и параметры.
const (
	TemplateRegistrationConfirmed = "registration_confirmed"
	TemplateRegistrationRefunded  = "registration_refunded"
	TemplateTournamentStarted     = "tournament_started"
	TemplateTournamentCanceled    = "tournament_canceled"
	TemplateMatchReady            = "match_ready"
	TemplateMatchResultReported   = "match_result_reported"
	TemplateDisputeOpened         = "dispute_opened"
	TemplateDisputeResolved       = "dispute_resolved"
	TemplateWalletCharged         = "wallet_charged"
)

type NotificationService interface {
	Notifier
	ListByRecipient(ctx context.Context, recipientID, page, perPage int) ([]*models.Notification, int, error)
	CountUnread(ctx context.Context, recipientID int) (int, error)
	MarkRead(ctx context.Context, recipientID, notificationID int) error
	MarkAllRead(ctx context.Context, recipientID int) error
}

type notificationService struct {
	notificationRepo repositories.NotificationRepository
	logger           *slog.Logger
}

func NewNotificationService(notificationRepo repositories.NotificationRepository, logger *slog.Logger) NotificationService {
	return &notificationService{notificationRepo: notificationRepo, logger: logger}
}

func (s *notificationService) Notify(ctx context.Context, recipientID int, templateKey string, params models.NotificationParams, entityKind string, entityID int) {
	n := &models.Notification{
		RecipientID: recipientID,
		TemplateKey: templateKey,
		Params:      params,
		EntityKind:  entityKind,
		EntityID:    entityID,
	}
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		s.logger.Error("failed to dispatch notification",
			slog.Int("recipient_id", recipientID),
			slog.String("template_key", templateKey),
			slog.Any("error", err))
	}
}

func (s *notificationService) ListByRecipient(ctx context.Context, recipientID, page, perPage int) ([]*models.Notification, int, error) {
	limit, offset := paginate(page, perPage)
	return s.notificationRepo.ListByRecipient(ctx, recipientID, limit, offset)
}

func (s *notificationService) CountUnread(ctx context.Context, recipientID int) (int, error) {
	return s.notificationRepo.CountUnread(ctx, recipientID)
}

func (s *notificationService) MarkRead(ctx context.Context, recipientID, notificationID int) error {
	err := s.notificationRepo.MarkRead(ctx, recipientID, notificationID)
	if errors.Is(err, repositories.ErrNotificationNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

func (s *notificationService) MarkAllRead(ctx context.Context, recipientID int) error {
	return s.notificationRepo.MarkAllRead(ctx, recipientID)
}
