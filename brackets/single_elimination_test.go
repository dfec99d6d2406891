package brackets

import (
	"context"
	"testing"
	"time"

	"github.com/arenaone/arena/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userRefs(ids ...int) []models.ParticipantRef {
	refs := make([]models.ParticipantRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, models.ParticipantRef{Kind: models.ParticipantKindUser, ID: id})
	}
	return refs
}

func newDeterministicGenerator() *SingleEliminationGenerator {
	g := NewSingleEliminationGenerator()
	g.shuffle = func(n int, swap func(i, j int)) {}
	return g
}

func TestSingleEliminationEvenPool(t *testing.T) {
	g := newDeterministicGenerator()
	start := time.Date(2026, 9, 10, 18, 0, 0, 0, time.UTC)
	tournament := &models.Tournament{ID: 7, TournamentStartDate: start}

	matches, err := g.Generate(context.Background(), GenerateParams{
		Tournament:   tournament,
		Participants: userRefs(1, 2, 3, 4),
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)

	for _, m := range matches {
		assert.Equal(t, 7, m.TournamentID)
		assert.Equal(t, 1, m.Round)
		assert.Equal(t, models.MatchStatusPending, m.Status)
		assert.Len(t, m.Participants, 2)
		assert.False(t, m.IsBye())
		assert.Nil(t, m.Winner)
		require.NotNil(t, m.ScheduledTime)
		assert.True(t, m.ScheduledTime.Equal(start))
	}
}

func TestSingleEliminationOddPoolGetsOneBye(t *testing.T) {
	g := newDeterministicGenerator()
	tournament := &models.Tournament{ID: 7, TournamentStartDate: time.Now().Add(time.Hour)}

	matches, err := g.Generate(context.Background(), GenerateParams{
		Tournament:   tournament,
		Participants: userRefs(1, 2, 3),
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)

	headToHead := matches[0]
	assert.Equal(t, models.MatchStatusPending, headToHead.Status)
	assert.Len(t, headToHead.Participants, 2)

	bye := matches[1]
	assert.True(t, bye.IsBye())
	assert.Equal(t, models.MatchStatusCompleted, bye.Status)
	require.NotNil(t, bye.Winner)
	assert.Equal(t, bye.Participants[0], *bye.Winner)
	require.NoError(t, bye.Validate())
}

func TestSingleEliminationRejectsTooFewParticipants(t *testing.T) {
	g := newDeterministicGenerator()
	tournament := &models.Tournament{ID: 7}

	_, err := g.Generate(context.Background(), GenerateParams{
		Tournament:   tournament,
		Participants: userRefs(1),
	})
	assert.ErrorIs(t, err, ErrNotEnoughParticipants)
}

func TestForStructure(t *testing.T) {
	g, err := ForStructure(models.StructureSingleElimination)
	require.NoError(t, err)
	assert.Equal(t, "SingleElimination", g.Name())

	for _, structure := range []models.TournamentStructure{
		models.StructureDoubleElimination,
		models.StructureRoundRobin,
		models.StructureSwiss,
		models.StructureBattleRoyale,
	} {
		_, err := ForStructure(structure)
		assert.ErrorIs(t, err, ErrStructureUnsupported, string(structure))
	}
}
