package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/arenaone/arena/models"
)

var (
	ErrNotEnoughParticipants = errors.New("not enough participants to generate a bracket (minimum 2 required)")
	ErrStructureUnsupported  = errors.New("bracket generation is not implemented for this tournament structure")
)

type GenerateParams struct {
	Tournament   *models.Tournament
	Participants []models.ParticipantRef
}

// Generator строит первый раунд матчей для турнира. Матчи возвращаются без
// ID и bracket_id: персист и привязку к сетке выполняет вызывающий сервис.
type Generator interface {
	Generate(ctx context.Context, params GenerateParams) ([]*models.Match, error)

	Name() string
}

// ForStructure возвращает генератор для сеточной структуры турнира.
// Поддержана только single_elimination; остальные значения перечисления
// зарезервированы и отклоняются явной ошибкой вместо неверной сетки.
func ForStructure(structure models.TournamentStructure) (Generator, error) {
	switch structure {
	case models.StructureSingleElimination:
		return NewSingleEliminationGenerator(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrStructureUnsupported, structure)
	}
}
