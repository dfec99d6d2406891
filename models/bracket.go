package models

import "time"

// Bracket принадлежит одному турниру. Структура сетки намеренно не
// дублируется здесь: источник истины — поле structure родительского
// турнира, его нужно загружать вместе с сеткой.
type Bracket struct {
	ID           int       `json:"id"`
	TournamentID int       `json:"tournament_id"`
	Name         string    `json:"name"`
	IsCompleted  bool      `json:"is_completed"`
	CreatedAt    time.Time `json:"created_at"`

	Matches []Match `json:"matches,omitempty"`
}
