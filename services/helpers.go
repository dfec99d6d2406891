package services

import "github.com/arenaone/arena/models"

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// paginate переводит (page, perPage) в (limit, offset) с безопасными рамками.
func paginate(page, perPage int) (int, int) {
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	if page < 1 {
		page = 1
	}
	return perPage, (page - 1) * perPage
}

func isValidTournamentTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	allowed := map[models.TournamentStatus][]models.TournamentStatus{
		models.TournamentStatusDraft:              {models.TournamentStatusRegistrationOpen, models.TournamentStatusCanceled},
		models.TournamentStatusRegistrationOpen:   {models.TournamentStatusRegistrationClosed, models.TournamentStatusCanceled},
		models.TournamentStatusRegistrationClosed: {models.TournamentStatusActive, models.TournamentStatusCanceled},
		models.TournamentStatusActive:             {models.TournamentStatusCompleted, models.TournamentStatusCanceled},
		models.TournamentStatusCompleted:          {},
		models.TournamentStatusCanceled:           {},
	}
	for _, s := range allowed[current] {
		if next == s {
			return true
		}
	}
	return false
}
