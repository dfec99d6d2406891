package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ParticipantKind различает два вида участников: пользователь или команда.
type ParticipantKind string

const (
	ParticipantKindUser ParticipantKind = "user"
	ParticipantKindTeam ParticipantKind = "team"
)

func (k ParticipantKind) Valid() bool {
	switch k {
	case ParticipantKindUser, ParticipantKindTeam:
		return true
	}
	return false
}

// ParticipantRef is a tagged reference to either a User or a Team.
// Every consumer must handle both kinds explicitly.
type ParticipantRef struct {
	Kind ParticipantKind `json:"kind"`
	ID   int             `json:"id"`
}

func (p ParticipantRef) Equal(other ParticipantRef) bool {
	return p.Kind == other.Kind && p.ID == other.ID
}

// ParticipantList хранится в колонке JSONB матча.
type ParticipantList []ParticipantRef

func (l ParticipantList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal(ParticipantList{})
	}
	return json.Marshal(l)
}

func (l *ParticipantList) Scan(src interface{}) error {
	return scanJSONB(src, l, "ParticipantList")
}

// Contains reports whether ref is one of the participants.
func (l ParticipantList) Contains(ref ParticipantRef) bool {
	for _, p := range l {
		if p.Equal(ref) {
			return true
		}
	}
	return false
}

// ContainsUser reports whether the given user is a participant,
// either directly or through a team kind entry is not resolved here.
func (l ParticipantList) ContainsUser(userID int) bool {
	return l.Contains(ParticipantRef{Kind: ParticipantKindUser, ID: userID})
}

// Score — результат одного участника в матче "лицом к лицу".
type Score struct {
	Participant ParticipantRef `json:"participant"`
	Score       int            `json:"score"`
}

type ScoreList []Score

func (l ScoreList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal(ScoreList{})
	}
	return json.Marshal(l)
}

func (l *ScoreList) Scan(src interface{}) error {
	return scanJSONB(src, l, "ScoreList")
}

// BattleRoyaleResult — место и количество убийств участника в battle-royale матче.
type BattleRoyaleResult struct {
	Participant ParticipantRef `json:"participant"`
	Rank        int            `json:"rank"`
	Kills       int            `json:"kills"`
}

type ResultList []BattleRoyaleResult

func (l ResultList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal(ResultList{})
	}
	return json.Marshal(l)
}

func (l *ResultList) Scan(src interface{}) error {
	return scanJSONB(src, l, "ResultList")
}

func scanJSONB(src interface{}, dst interface{}, typeName string) error {
	if src == nil {
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("cannot scan %T into %s", src, typeName)
	}
}
