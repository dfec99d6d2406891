package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

type DisputeStatus string

const (
	DisputeStatusOpen        DisputeStatus = "open"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusResolved    DisputeStatus = "resolved"
	DisputeStatusCanceled    DisputeStatus = "canceled"
)

func (s DisputeStatus) Valid() bool {
	switch s {
	case DisputeStatusOpen, DisputeStatusUnderReview, DisputeStatusResolved, DisputeStatusCanceled:
		return true
	}
	return false
}

// Resolvable reports whether an admin may still resolve the dispute.
func (s DisputeStatus) Resolvable() bool {
	return s == DisputeStatusOpen || s == DisputeStatusUnderReview
}

// DisputeDecision — закрытый словарь решений администратора.
type DisputeDecision string

const (
	DecisionAwardWinToReporter      DisputeDecision = "award_win_to_reporter"
	DecisionAwardWinToOpponent      DisputeDecision = "award_win_to_opponent"
	DecisionCancelMatch             DisputeDecision = "cancel_match"
	DecisionResetMatch              DisputeDecision = "reset_match"
	DecisionIssueWarningToReporter  DisputeDecision = "issue_warning_to_reporter"
	DecisionIssueWarningToOpponent  DisputeDecision = "issue_warning_to_opponent"
	DecisionNoAction                DisputeDecision = "no_action"
)

func (d DisputeDecision) Valid() bool {
	switch d {
	case DecisionAwardWinToReporter, DecisionAwardWinToOpponent, DecisionCancelMatch,
		DecisionResetMatch, DecisionIssueWarningToReporter, DecisionIssueWarningToOpponent,
		DecisionNoAction:
		return true
	}
	return false
}

// Evidence — структурированная запись о загруженном доказательстве.
type Evidence struct {
	UploaderID  int       `json:"uploader_id"`
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

type EvidenceList []Evidence

func (l EvidenceList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal(EvidenceList{})
	}
	return json.Marshal(l)
}

func (l *EvidenceList) Scan(src interface{}) error {
	return scanJSONB(src, l, "EvidenceList")
}

// Resolution — итог рассмотрения спора.
type Resolution struct {
	Decision     DisputeDecision `json:"decision"`
	FinalComment string          `json:"final_comment,omitempty"`
}

type DisputeComment struct {
	ID        int       `json:"id"`
	DisputeID int       `json:"dispute_id"`
	AuthorID  int       `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Dispute — вторичная машина состояний поверх матча.
// На один матч может существовать ровно один спор (уникальный индекс).
type Dispute struct {
	ID           int           `json:"id"`
	MatchID      int           `json:"match_id"`
	TournamentID int           `json:"tournament_id"`
	ReporterID   int           `json:"reporter_id"`
	Status       DisputeStatus `json:"status"`
	Reason       string        `json:"reason"`
	Evidence     EvidenceList  `json:"evidence,omitempty"`
	AssignedTo   *int          `json:"assigned_to,omitempty"`
	Resolution   *Resolution   `json:"resolution,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`

	Comments []DisputeComment `json:"comments,omitempty"`
}
