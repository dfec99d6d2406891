package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arenaone/arena/models"
	"github.com/arenaone/arena/repositories"
)

// PaymentGateway — узкий интерфейс платёжного шлюза. Authority — его
// корреляционный токен; refID — номер проведённого платежа.
type PaymentGateway interface {
	ChargeRequest(ctx context.Context, amount int64, description string) (authority, redirectURL string, err error)
	VerifyCharge(ctx context.Context, authority string, amount int64) (refID string, err error)
}

type ChargeInitiation struct {
	TransactionID int    `json:"transaction_id"`
	RedirectURL   string `json:"redirect_url"`
}

type PaymentService interface {
	// InitiateCharge заводит pending-транзакцию и возвращает адрес оплаты.
	InitiateCharge(ctx context.Context, actor models.Principal, amount int64) (*ChargeInitiation, error)
	// VerifyCharge сверяет платёж со шлюзом и зачисляет кошелёк. Повторный
	// вызов для уже проведённой транзакции — no-op с тем же результатом.
	VerifyCharge(ctx context.Context, authority string, gatewayOK bool) (*models.Transaction, error)
	ListTransactions(ctx context.Context, actor models.Principal, userID, page, perPage int) ([]*models.Transaction, int, error)
}

type paymentService struct {
	tx              TxRunner
	transactionRepo repositories.TransactionRepository
	userRepo        repositories.UserRepository
	gateway         PaymentGateway
	notifier        Notifier
	logger          *slog.Logger
}

func NewPaymentService(
	tx TxRunner,
	transactionRepo repositories.TransactionRepository,
	userRepo repositories.UserRepository,
	gateway PaymentGateway,
	notifier Notifier,
	logger *slog.Logger,
) PaymentService {
	return &paymentService{
		tx:              tx,
		transactionRepo: transactionRepo,
		userRepo:        userRepo,
		gateway:         gateway,
		notifier:        notifier,
		logger:          logger,
	}
}

func (s *paymentService) InitiateCharge(ctx context.Context, actor models.Principal, amount int64) (*ChargeInitiation, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: charge amount must be positive", ErrValidationFailed)
	}

	description := fmt.Sprintf("Wallet top-up for user %d", actor.UserID)
	authority, redirectURL, err := s.gateway.ChargeRequest(ctx, amount, description)
	if err != nil {
		s.logger.Error("payment gateway charge request failed",
			slog.Int("user_id", actor.UserID), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	txn := &models.Transaction{
		UserID:      actor.UserID,
		Amount:      amount,
		Type:        models.TransactionWalletCharge,
		Status:      models.TransactionStatusPending,
		Description: description,
		Authority:   &authority,
	}
	if err := s.transactionRepo.Create(ctx, nil, txn); err != nil {
		return nil, err
	}

	s.logger.Info("wallet charge initiated",
		slog.Int("transaction_id", txn.ID),
		slog.Int("user_id", actor.UserID),
		slog.Int64("amount", amount))
	return &ChargeInitiation{TransactionID: txn.ID, RedirectURL: redirectURL}, nil
}

func (s *paymentService) VerifyCharge(ctx context.Context, authority string, gatewayOK bool) (*models.Transaction, error) {
	txn, err := s.transactionRepo.FindByAuthority(ctx, authority)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	// Идемпотентность: колбэк шлюза может прийти повторно.
	if txn.Status == models.TransactionStatusCompleted {
		return txn, nil
	}
	if txn.Status != models.TransactionStatusPending {
		return nil, fmt.Errorf("%w: transaction is %s", ErrInvalidState, txn.Status)
	}

	if !gatewayOK {
		if err := s.transactionRepo.UpdateStatus(ctx, nil, txn.ID, models.TransactionStatusCanceled, nil); err != nil {
			return nil, err
		}
		txn.Status = models.TransactionStatusCanceled
		return txn, nil
	}

	refID, err := s.gateway.VerifyCharge(ctx, authority, txn.Amount)
	if err != nil {
		if uErr := s.transactionRepo.UpdateStatus(ctx, nil, txn.ID, models.TransactionStatusFailed, nil); uErr != nil {
			s.logger.Error("failed to mark transaction failed",
				slog.Int("transaction_id", txn.ID), slog.Any("error", uErr))
		}
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.userRepo.CreditWallet(ctx, exec, txn.UserID, txn.Amount); err != nil {
			return err
		}
		return s.transactionRepo.UpdateStatus(ctx, exec, txn.ID, models.TransactionStatusCompleted, &refID)
	})
	if err != nil {
		return nil, err
	}
	txn.Status = models.TransactionStatusCompleted
	txn.RefID = &refID

	s.logger.Info("wallet charge verified",
		slog.Int("transaction_id", txn.ID),
		slog.Int("user_id", txn.UserID),
		slog.String("ref_id", refID))

	s.notifier.Notify(ctx, txn.UserID, TemplateWalletCharged,
		models.NotificationParams{"amount": txn.Amount},
		"transaction", txn.ID)
	return txn, nil
}

func (s *paymentService) ListTransactions(ctx context.Context, actor models.Principal, userID, page, perPage int) ([]*models.Transaction, int, error) {
	if actor.UserID != userID && !actor.IsAdmin() {
		return nil, 0, ErrForbiddenOperation
	}
	limit, offset := paginate(page, perPage)
	return s.transactionRepo.ListByUser(ctx, userID, limit, offset)
}
