package models

import "time"

type RegistrationStatus string

const (
	RegistrationStatusRegistered   RegistrationStatus = "registered"
	RegistrationStatusCheckedIn    RegistrationStatus = "checked_in"
	RegistrationStatusPlaying      RegistrationStatus = "playing"
	RegistrationStatusEliminated   RegistrationStatus = "eliminated"
	RegistrationStatusCompleted    RegistrationStatus = "completed"
	RegistrationStatusDisqualified RegistrationStatus = "disqualified"
)

func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationStatusRegistered, RegistrationStatusCheckedIn, RegistrationStatusPlaying,
		RegistrationStatusEliminated, RegistrationStatusCompleted, RegistrationStatusDisqualified:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusRefunded      PaymentStatus = "refunded"
	PaymentStatusNotApplicable PaymentStatus = "not_applicable"
)

// Registration связывает пользователя (и, для командных турниров, команду)
// с турниром. Уникальна по (user, tournament) и по (team, tournament).
type Registration struct {
	ID            int                `json:"id"`
	UserID        int                `json:"user_id"`
	TournamentID  int                `json:"tournament_id"`
	TeamID        *int               `json:"team_id,omitempty"`
	Status        RegistrationStatus `json:"status"`
	PaymentStatus PaymentStatus      `json:"payment_status"`
	Rank          *int               `json:"rank,omitempty"`
	CheckInTime   *time.Time         `json:"check_in_time,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`

	User *User `json:"user,omitempty"`
	Team *Team `json:"team,omitempty"`
}

// ParticipantRef returns the bracket participant this registration stands
// for: the team for team tournaments, the user otherwise.
func (r *Registration) ParticipantRef(teamTournament bool) ParticipantRef {
	if teamTournament && r.TeamID != nil {
		return ParticipantRef{Kind: ParticipantKindTeam, ID: *r.TeamID}
	}
	return ParticipantRef{Kind: ParticipantKindUser, ID: r.UserID}
}
