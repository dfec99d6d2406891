package brackets

import (
	"context"
	"math/rand"

	"github.com/arenaone/arena/models"
)

type SingleEliminationGenerator struct {
	// shuffle переопределяется в тестах для детерминированной раскладки.
	shuffle func(n int, swap func(i, j int))
}

func NewSingleEliminationGenerator() *SingleEliminationGenerator {
	return &SingleEliminationGenerator{shuffle: rand.Shuffle}
}

func (g *SingleEliminationGenerator) Name() string {
	return "SingleElimination"
}

// Generate раскладывает участников в первый раунд: равномерная случайная
// перетасовка против сеяния по порядку регистрации, затем последовательные
// пары. При нечётном числе последний участник получает автоматический
// проход: матч с одним участником, сразу завершённый в его пользу.
func (g *SingleEliminationGenerator) Generate(ctx context.Context, params GenerateParams) ([]*models.Match, error) {
	participants := params.Participants
	n := len(participants)
	if n < 2 {
		return nil, ErrNotEnoughParticipants
	}

	shuffled := make([]models.ParticipantRef, n)
	copy(shuffled, participants)
	g.shuffle(n, func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	tournament := params.Tournament
	scheduled := tournament.TournamentStartDate

	matches := make([]*models.Match, 0, (n+1)/2)
	for i := 0; i+1 < n; i += 2 {
		matches = append(matches, &models.Match{
			TournamentID:  tournament.ID,
			Round:         1,
			Status:        models.MatchStatusPending,
			Participants:  models.ParticipantList{shuffled[i], shuffled[i+1]},
			ScheduledTime: &scheduled,
		})
	}

	if n%2 == 1 {
		bye := shuffled[n-1]
		winner := bye
		matches = append(matches, &models.Match{
			TournamentID:  tournament.ID,
			Round:         1,
			Status:        models.MatchStatusCompleted,
			Participants:  models.ParticipantList{bye},
			Winner:        &winner,
			ScheduledTime: &scheduled,
		})
	}

	return matches, nil
}
