package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	TournamentStatusDraft              TournamentStatus = "draft"
	TournamentStatusRegistrationOpen   TournamentStatus = "registration_open"
	TournamentStatusRegistrationClosed TournamentStatus = "registration_closed"
	TournamentStatusActive             TournamentStatus = "active"
	TournamentStatusCompleted          TournamentStatus = "completed"
	TournamentStatusCanceled           TournamentStatus = "canceled"
)

func (s TournamentStatus) Valid() bool {
	switch s {
	case TournamentStatusDraft, TournamentStatusRegistrationOpen, TournamentStatusRegistrationClosed,
		TournamentStatusActive, TournamentStatusCompleted, TournamentStatusCanceled:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s TournamentStatus) Terminal() bool {
	return s == TournamentStatusCompleted || s == TournamentStatusCanceled
}

// TournamentStructure — сеточная структура турнира.
// Полностью реализована только single_elimination; остальные значения
// зарезервированы и генератор сетки отклоняет их явной ошибкой.
type TournamentStructure string

const (
	StructureSingleElimination TournamentStructure = "single_elimination"
	StructureDoubleElimination TournamentStructure = "double_elimination"
	StructureRoundRobin        TournamentStructure = "round_robin"
	StructureSwiss             TournamentStructure = "swiss"
	StructureBattleRoyale      TournamentStructure = "battle_royale"
)

func (s TournamentStructure) Valid() bool {
	switch s {
	case StructureSingleElimination, StructureDoubleElimination, StructureRoundRobin,
		StructureSwiss, StructureBattleRoyale:
		return true
	}
	return false
}

type PrizeType string

const (
	PrizeWalletCredit PrizeType = "wallet_credit"
	PrizeVirtualItem  PrizeType = "virtual_item"
	PrizePhysicalItem PrizeType = "physical_item"
	PrizeOther        PrizeType = "other"
)

type Prize struct {
	Type        PrizeType `json:"type"`
	Amount      int64     `json:"amount,omitempty"`
	ItemName    string    `json:"item_name,omitempty"`
	Description string    `json:"description"`
}

// PrizeRank — призы, закреплённые за одним местом.
type PrizeRank struct {
	Rank   int     `json:"rank"`
	Prizes []Prize `json:"prizes"`
}

type PrizeStructure []PrizeRank

func (p PrizeStructure) Value() (driver.Value, error) {
	if p == nil {
		return json.Marshal(PrizeStructure{})
	}
	return json.Marshal(p)
}

func (p *PrizeStructure) Scan(src interface{}) error {
	return scanJSONB(src, p, "PrizeStructure")
}

// Tournament представляет турнир.
// EntryFee хранится целым числом в минимальной денежной единице.
type Tournament struct {
	ID              int                 `json:"id"`
	Name            string              `json:"name"`
	GameID          int                 `json:"game_id"`
	OrganizerID     int                 `json:"organizer_id"`
	Structure       TournamentStructure `json:"structure"`
	TeamSize        int                 `json:"team_size"`
	MaxParticipants int                 `json:"max_participants"`
	EntryFee        int64               `json:"entry_fee"`
	Rules           string              `json:"rules,omitempty"`
	PrizeStructure  PrizeStructure      `json:"prize_structure,omitempty"`
	Status          TournamentStatus    `json:"status"`

	RegistrationStartDate time.Time `json:"registration_start_date"`
	RegistrationEndDate   time.Time `json:"registration_end_date"`
	CheckInStartDate      time.Time `json:"check_in_start_date"`
	TournamentStartDate   time.Time `json:"tournament_start_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Game      *Game     `json:"game,omitempty"`
	Organizer *User     `json:"organizer,omitempty"`
	Brackets  []Bracket `json:"brackets,omitempty"`
}

// IsTeamTournament reports whether registrations are made on behalf of teams.
func (t *Tournament) IsTeamTournament() bool {
	return t.TeamSize > 1
}

// ValidateDates enforces the ordering
// registrationStart < registrationEnd < checkInStart < tournamentStart.
func (t *Tournament) ValidateDates() error {
	if !t.RegistrationEndDate.After(t.RegistrationStartDate) {
		return ErrTournamentDatesOutOfOrder
	}
	if !t.CheckInStartDate.After(t.RegistrationEndDate) {
		return ErrTournamentDatesOutOfOrder
	}
	if !t.TournamentStartDate.After(t.CheckInStartDate) {
		return ErrTournamentDatesOutOfOrder
	}
	return nil
}
