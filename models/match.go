package models

import "time"

type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusReady     MatchStatus = "ready"
	MatchStatusActive    MatchStatus = "active"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusDisputed  MatchStatus = "disputed"
	MatchStatusForfeited MatchStatus = "forfeited"
	MatchStatusCanceled  MatchStatus = "canceled"
)

func (s MatchStatus) Valid() bool {
	switch s {
	case MatchStatusPending, MatchStatusReady, MatchStatusActive, MatchStatusCompleted,
		MatchStatusDisputed, MatchStatusForfeited, MatchStatusCanceled:
		return true
	}
	return false
}

// LobbyDetails — данные игрового лобби, публикуемые организатором.
type LobbyDetails struct {
	Code        string `json:"code,omitempty"`
	Password    string `json:"password,omitempty"`
	IsPublished bool   `json:"is_published"`
}

// Match принадлежит турниру и сетке. Участников один или два:
// один только в случае автоматического прохода (bye).
type Match struct {
	ID           int             `json:"id"`
	TournamentID int             `json:"tournament_id"`
	BracketID    int             `json:"bracket_id"`
	Round        int             `json:"round"`
	Status       MatchStatus     `json:"status"`
	Participants ParticipantList `json:"participants"`

	// Scores для матчей "лицом к лицу" (ровно две записи), Results для
	// battle-royale (одна и более). Заполняется только одно из двух.
	Scores  ScoreList  `json:"scores,omitempty"`
	Results ResultList `json:"results,omitempty"`

	Winner        *ParticipantRef `json:"winner,omitempty"`
	ReportedBy    *int            `json:"reported_by,omitempty"`
	ScheduledTime *time.Time      `json:"scheduled_time,omitempty"`
	Lobby         LobbyDetails    `json:"lobby_details"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsBye reports whether the match is an automatic advancement with a
// single participant.
func (m *Match) IsBye() bool {
	return len(m.Participants) == 1
}

// HasParticipant reports whether ref is one of the match participants.
func (m *Match) HasParticipant(ref ParticipantRef) bool {
	return m.Participants.Contains(ref)
}

// Validate enforces the completion invariant before every persist:
// a match may be completed only with a winner, scores, or results.
func (m *Match) Validate() error {
	if m.Status == MatchStatusCompleted {
		hasWinner := m.Winner != nil
		if !hasWinner && len(m.Scores) == 0 && len(m.Results) == 0 {
			return ErrMatchCompletionInvariant
		}
	}
	return nil
}
