package models

import "time"

type TransactionType string

const (
	TransactionWalletCharge  TransactionType = "wallet_charge"
	TransactionTournamentFee TransactionType = "tournament_fee"
	TransactionPayout        TransactionType = "payout"
	TransactionRefund        TransactionType = "refund"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCanceled  TransactionStatus = "canceled"
)

// Transaction — запись в журнале кошелька. Amount в минимальной денежной
// единице. Authority — корреляционный токен платёжного шлюза.
type Transaction struct {
	ID          int               `json:"id"`
	UserID      int               `json:"user_id"`
	Amount      int64             `json:"amount"`
	Type        TransactionType   `json:"type"`
	Status      TransactionStatus `json:"status"`
	Description string            `json:"description"`
	Authority   *string           `json:"authority,omitempty"`
	RefID       *string           `json:"ref_id,omitempty"`

	RelatedEntityKind *string `json:"related_entity_kind,omitempty"`
	RelatedEntityID   *int    `json:"related_entity_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
