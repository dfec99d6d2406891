package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// NotificationParams — динамические параметры для подстановки в шаблон
// на стороне клиента.
type NotificationParams map[string]interface{}

func (p NotificationParams) Value() (driver.Value, error) {
	if p == nil {
		return json.Marshal(NotificationParams{})
	}
	return json.Marshal(p)
}

func (p *NotificationParams) Scan(src interface{}) error {
	return scanJSONB(src, p, "NotificationParams")
}

// Notification хранит ключ шаблона вместо готового текста: перевод и
// рендеринг выполняет клиент.
type Notification struct {
	ID          int                `json:"id"`
	RecipientID int                `json:"recipient_id"`
	TemplateKey string             `json:"template_key"`
	Params      NotificationParams `json:"params"`
	EntityKind  string             `json:"entity_kind"`
	EntityID    int                `json:"entity_id"`
	IsRead      bool               `json:"is_read"`
	CreatedAt   time.Time          `json:"created_at"`
}
