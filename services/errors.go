package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed      = errors.New("validation failed")
	ErrPasswordTooShort      = errors.New("password is too short")
	ErrInvalidCredentials    = errors.New("invalid phone number or password")
	ErrRegistrationNotOpen   = errors.New("tournament registration is not open")
	ErrTournamentFull        = errors.New("tournament registration is full")
	ErrInsufficientFunds     = errors.New("insufficient wallet balance")
	ErrInvalidState          = errors.New("operation not valid in the current state")
	ErrTieNotAllowed         = errors.New("a match result cannot be a tie")
	ErrResultAlreadyReported = errors.New("a result has already been reported for this match")
	ErrParticipantMismatch   = errors.New("reported scores do not match the match participants")
	ErrStructureUnsupported  = errors.New("bracket generation is not implemented for this tournament structure")
	ErrNotEnoughParticipants = errors.New("not enough eligible participants to generate a bracket")
	ErrDisputeNotResolvable  = errors.New("dispute is not in a resolvable state")
	ErrInvalidDecision       = errors.New("unknown dispute resolution decision")
	ErrRestrictedFieldChange = errors.New("field cannot be changed after registration has opened")
	ErrTeamNotEligible       = errors.New("team does not belong to the tournament game")
	ErrCaptaincyConflict     = errors.New("user still captains one or more teams")
	ErrPaymentFailed         = errors.New("payment gateway rejected the request")

	// Ошибки конфликтов
	ErrUserPhoneConflict      = errors.New("phone number is already in use")
	ErrUserUsernameConflict   = errors.New("username is already in use")
	ErrUserEmailConflict      = errors.New("email address is already in use")
	ErrTeamNameConflict       = errors.New("team name is already in use for this game")
	ErrTeamTagConflict        = errors.New("team tag is already in use")
	ErrRegistrationConflict   = errors.New("user or team is already registered for this tournament")
	ErrTournamentNameConflict = errors.New("tournament name already exists")
	ErrDisputeConflict        = errors.New("a dispute already exists for this match")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed   = errors.New("authentication failed")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrCaptainActionForbidden = errors.New("only the team captain can perform this action")
	ErrUserMustBeCaptain      = errors.New("only the team captain can register the team")

	// Ошибки, специфичные для сущностей (дают больше контекста, чем ErrNotFound)
	ErrUserNotFound         = errors.New("user not found")
	ErrTeamNotFound         = errors.New("team not found")
	ErrGameNotFound         = errors.New("game not found")
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrBracketNotFound      = errors.New("bracket not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrDisputeNotFound      = errors.New("dispute not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrNotificationNotFound = errors.New("notification not found")

	// Ошибки турниров
	ErrTournamentInvalidDates            = errors.New("tournament dates must be strictly ordered")
	ErrTournamentInvalidCapacity         = errors.New("tournament max participants must be positive")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
	ErrTournamentNotDeletable            = errors.New("an active tournament cannot be deleted")
)
