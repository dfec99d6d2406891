package models

import "time"

type UserRole string

const (
	RoleUser              UserRole = "user"
	RoleTournamentManager UserRole = "tournament_manager"
	RoleSupport           UserRole = "support"
	RoleAdmin             UserRole = "admin"
)

type UserStatus string

const (
	UserStatusActive              UserStatus = "active"
	UserStatusBanned              UserStatus = "banned"
	UserStatusPendingVerification UserStatus = "pending_verification"
)

// User — аккаунт игрока. WalletBalance хранится целым числом в минимальной
// денежной единице и изменяется только внутри транзакций владеющих им
// рабочих процессов (регистрация, подтверждение платежа).
type User struct {
	ID            int        `json:"id"`
	Username      string     `json:"username"`
	PhoneNumber   string     `json:"phone_number"`
	Email         *string    `json:"email,omitempty"`
	PasswordHash  string     `json:"-"`
	Avatar        string     `json:"avatar,omitempty"`
	Role          UserRole   `json:"role"`
	Status        UserStatus `json:"status"`
	WalletBalance int64      `json:"wallet_balance"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	EloRatings []EloRating `json:"elo_ratings,omitempty"`
}

// EloRating — рейтинг пользователя в рамках одной игры.
// Отсутствие записи трактуется как рейтинг по умолчанию 1000.
type EloRating struct {
	UserID int `json:"user_id"`
	GameID int `json:"game_id"`
	Rating int `json:"rating"`
}

// DefaultEloRating — стартовый рейтинг для игры без истории.
const DefaultEloRating = 1000
