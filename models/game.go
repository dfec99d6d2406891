package models

import "time"

// Game — игра, поддерживаемая платформой. Каталог ведётся администратором.
type Game struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	ShortName string    `json:"short_name"`
	IconURL   string    `json:"icon_url,omitempty"`
	BannerURL string    `json:"banner_url,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
