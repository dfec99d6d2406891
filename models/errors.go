package models

import "errors"

// Инварианты уровня модели. Нарушение любого из них — ошибка программиста
// или некорректный ввод, который должен быть отклонён до записи в БД.
var (
	// A completed match must carry a winner, scores, or results.
	ErrMatchCompletionInvariant = errors.New("a completed match must have a winner, scores, or results")

	// Tournament timestamps must satisfy
	// registrationStart < registrationEnd < checkInStart < tournamentStart.
	ErrTournamentDatesOutOfOrder = errors.New("tournament dates must be ordered: registration start, registration end, check-in start, tournament start")

	// The team captain must always be present in the members list.
	ErrCaptainNotMember = errors.New("team captain must be a member of the team")
)
