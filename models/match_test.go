package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchValidateCompletion(t *testing.T) {
	p1 := ParticipantRef{Kind: ParticipantKindUser, ID: 1}
	p2 := ParticipantRef{Kind: ParticipantKindUser, ID: 2}

	testCases := []struct {
		name    string
		match   Match
		wantErr error
	}{
		{
			name:    "completed without outcome is rejected",
			match:   Match{Status: MatchStatusCompleted, Participants: ParticipantList{p1, p2}},
			wantErr: ErrMatchCompletionInvariant,
		},
		{
			name:  "completed with winner",
			match: Match{Status: MatchStatusCompleted, Participants: ParticipantList{p1, p2}, Winner: &p1},
		},
		{
			name: "completed with scores",
			match: Match{
				Status:       MatchStatusCompleted,
				Participants: ParticipantList{p1, p2},
				Scores:       ScoreList{{Participant: p1, Score: 3}, {Participant: p2, Score: 1}},
			},
		},
		{
			name: "completed with battle royale results",
			match: Match{
				Status:       MatchStatusCompleted,
				Participants: ParticipantList{p1},
				Results:      ResultList{{Participant: p1, Rank: 1, Kills: 7}},
			},
		},
		{
			name:  "non-completed match needs no outcome",
			match: Match{Status: MatchStatusActive, Participants: ParticipantList{p1, p2}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.match.Validate()
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTournamentValidateDates(t *testing.T) {
	base := Tournament{}
	base.RegistrationStartDate = mustTime(t, "2025-01-01T00:00:00Z")
	base.RegistrationEndDate = mustTime(t, "2025-01-05T00:00:00Z")
	base.CheckInStartDate = mustTime(t, "2025-01-06T00:00:00Z")
	base.TournamentStartDate = mustTime(t, "2025-01-07T00:00:00Z")
	require.NoError(t, base.ValidateDates())

	swapped := base
	swapped.RegistrationEndDate = base.RegistrationStartDate
	swapped.RegistrationStartDate = base.RegistrationEndDate
	assert.ErrorIs(t, swapped.ValidateDates(), ErrTournamentDatesOutOfOrder)

	early := base
	early.CheckInStartDate = base.RegistrationStartDate
	assert.ErrorIs(t, early.ValidateDates(), ErrTournamentDatesOutOfOrder)

	lateCheckIn := base
	lateCheckIn.TournamentStartDate = base.CheckInStartDate
	assert.ErrorIs(t, lateCheckIn.ValidateDates(), ErrTournamentDatesOutOfOrder)
}

func TestTeamValidateCaptainMembership(t *testing.T) {
	team := Team{ID: 1, Name: "Night Owls", CaptainID: 10, MemberIDs: []int{10, 11}}
	assert.NoError(t, team.Validate())

	team.MemberIDs = []int{11, 12}
	assert.ErrorIs(t, team.Validate(), ErrCaptainNotMember)
}

func TestParticipantListContains(t *testing.T) {
	list := ParticipantList{
		{Kind: ParticipantKindUser, ID: 1},
		{Kind: ParticipantKindTeam, ID: 1},
	}
	assert.True(t, list.Contains(ParticipantRef{Kind: ParticipantKindUser, ID: 1}))
	assert.True(t, list.Contains(ParticipantRef{Kind: ParticipantKindTeam, ID: 1}))
	assert.False(t, list.Contains(ParticipantRef{Kind: ParticipantKindUser, ID: 2}))
	assert.True(t, list.ContainsUser(1))
}

func mustTime(t *testing.T, v string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, v)
	require.NoError(t, err)
	return parsed
}
