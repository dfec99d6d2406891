package models

import "time"

// TeamStats — денормализованная сводка результатов команды.
// Счётчики побед/поражений двигаются вместе с изменением рейтинга.
type TeamStats struct {
	Wins              int `json:"wins"`
	Losses            int `json:"losses"`
	TournamentsPlayed int `json:"tournaments_played"`
	RankPoints        int `json:"rank_points"`
}

// Team — команда. Имя уникально в рамках игры, тег уникален глобально.
type Team struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Tag       string    `json:"tag"`
	GameID    int       `json:"game_id"`
	CaptainID int       `json:"captain_id"`
	Avatar    string    `json:"avatar,omitempty"`
	Stats     TeamStats `json:"stats"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	MemberIDs []int  `json:"member_ids,omitempty"`
	Members   []User `json:"members,omitempty"`
	Game      *Game  `json:"game,omitempty"`
	Captain   *User  `json:"captain,omitempty"`
}

// HasMember reports whether the user belongs to the team.
func (t *Team) HasMember(userID int) bool {
	for _, id := range t.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Validate enforces the standing rule: the captain is always a member.
func (t *Team) Validate() error {
	if !t.HasMember(t.CaptainID) {
		return ErrCaptainNotMember
	}
	return nil
}
