package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/arenaone/arena/brackets"
	"github.com/arenaone/arena/models"
	"github.com/arenaone/arena/repositories"
	"github.com/arenaone/arena/storage"
	"github.com/google/uuid"
)

type CreateDisputeInput struct {
	MatchID int
	Reason  string
}

type ResolveDisputeInput struct {
	Decision     models.DisputeDecision
	FinalComment string
}

type DisputeService interface {
	// Create открывает спор по матчу и в той же транзакции переводит матч
	// в disputed. На матч допускается ровно один спор.
	Create(ctx context.Context, actor models.Principal, input CreateDisputeInput) (*models.Dispute, error)
	GetByID(ctx context.Context, actor models.Principal, disputeID int) (*models.Dispute, error)
	ListByStatus(ctx context.Context, status models.DisputeStatus, page, perPage int) ([]*models.Dispute, int, error)
	TakeUnderReview(ctx context.Context, actor models.Principal, disputeID int) (*models.Dispute, error)
	// Resolve закрывает спор и применяет решение к матчу. Допускается
	// только из open или under_review, что исключает двойное разрешение.
	Resolve(ctx context.Context, actor models.Principal, disputeID int, input ResolveDisputeInput) (*models.Dispute, error)
	AddEvidence(ctx context.Context, actor models.Principal, disputeID int, file io.Reader, contentType, description string) (*models.Dispute, error)
	AddComment(ctx context.Context, actor models.Principal, disputeID int, content string) (*models.DisputeComment, error)
}

type disputeService struct {
	tx             TxRunner
	disputeRepo    repositories.DisputeRepository
	matchRepo      repositories.MatchRepository
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	elo            EloService
	uploader       storage.FileUploader
	broadcaster    BracketBroadcaster
	notifier       Notifier
	logger         *slog.Logger
}

func NewDisputeService(
	tx TxRunner,
	disputeRepo repositories.DisputeRepository,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	elo EloService,
	uploader storage.FileUploader,
	broadcaster BracketBroadcaster,
	notifier Notifier,
	logger *slog.Logger,
) DisputeService {
	return &disputeService{
		tx:             tx,
		disputeRepo:    disputeRepo,
		matchRepo:      matchRepo,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		elo:            elo,
		uploader:       uploader,
		broadcaster:    broadcaster,
		notifier:       notifier,
		logger:         logger,
	}
}

// matchParticipantForUser возвращает участника матча, за которого выступает
// пользователь: его самого либо его команду.
func (s *disputeService) matchParticipantForUser(ctx context.Context, match *models.Match, userID int) (*models.ParticipantRef, error) {
	for _, p := range match.Participants {
		switch p.Kind {
		case models.ParticipantKindUser:
			if p.ID == userID {
				ref := p
				return &ref, nil
			}
		case models.ParticipantKindTeam:
			team, err := s.teamRepo.GetByID(ctx, nil, p.ID)
			if err != nil {
				if errors.Is(err, repositories.ErrTeamNotFound) {
					continue
				}
				return nil, err
			}
			if team.HasMember(userID) {
				ref := p
				return &ref, nil
			}
		}
	}
	return nil, ErrForbiddenOperation
}

func (s *disputeService) Create(ctx context.Context, actor models.Principal, input CreateDisputeInput) (*models.Dispute, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, input.MatchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if _, err := s.matchParticipantForUser(ctx, match, actor.UserID); err != nil {
		return nil, err
	}
	switch match.Status {
	case models.MatchStatusActive, models.MatchStatusReady, models.MatchStatusDisputed:
	default:
		return nil, fmt.Errorf("%w: a dispute cannot be opened against a %s match",
			ErrInvalidState, match.Status)
	}

	dispute := &models.Dispute{
		MatchID:      match.ID,
		TournamentID: match.TournamentID,
		ReporterID:   actor.UserID,
		Status:       models.DisputeStatusOpen,
		Reason:       input.Reason,
	}

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.disputeRepo.Create(ctx, exec, dispute); err != nil {
			if errors.Is(err, repositories.ErrDisputeConflict) {
				return ErrDisputeConflict
			}
			return err
		}
		if match.Status != models.MatchStatusDisputed {
			match.Status = models.MatchStatusDisputed
			if err := s.matchRepo.Update(ctx, exec, match); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("dispute opened",
		slog.Int("dispute_id", dispute.ID),
		slog.Int("match_id", match.ID),
		slog.Int("reporter_id", actor.UserID))

	s.notifyMatchUsers(ctx, match, actor.UserID, TemplateDisputeOpened,
		models.NotificationParams{"match_id": match.ID}, "dispute", dispute.ID)

	room := brackets.TournamentRoom(match.TournamentID)
	s.broadcaster.BroadcastToRoom(room, brackets.Message{
		Type:    "MATCH_UPDATED",
		Payload: match,
		RoomID:  room,
	})
	return dispute, nil
}

// notifyMatchUsers рассылает уведомление пользователям-участникам матча,
// кроме инициатора. Командные участники уведомляются через капитана.
func (s *disputeService) notifyMatchUsers(ctx context.Context, match *models.Match, exceptUserID int, templateKey string, params models.NotificationParams, entityKind string, entityID int) {
	for _, p := range match.Participants {
		switch p.Kind {
		case models.ParticipantKindUser:
			if p.ID != exceptUserID {
				s.notifier.Notify(ctx, p.ID, templateKey, params, entityKind, entityID)
			}
		case models.ParticipantKindTeam:
			team, err := s.teamRepo.GetByID(ctx, nil, p.ID)
			if err != nil {
				continue
			}
			if team.CaptainID != exceptUserID {
				s.notifier.Notify(ctx, team.CaptainID, templateKey, params, entityKind, entityID)
			}
		}
	}
}

func (s *disputeService) getDispute(ctx context.Context, disputeID int) (*models.Dispute, error) {
	dispute, err := s.disputeRepo.GetByID(ctx, nil, disputeID)
	if err != nil {
		if errors.Is(err, repositories.ErrDisputeNotFound) {
			return nil, ErrDisputeNotFound
		}
		return nil, err
	}
	return dispute, nil
}

func (s *disputeService) GetByID(ctx context.Context, actor models.Principal, disputeID int) (*models.Dispute, error) {
	dispute, err := s.getDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		match, err := s.matchRepo.GetByID(ctx, nil, dispute.MatchID)
		if err != nil {
			return nil, err
		}
		if _, err := s.matchParticipantForUser(ctx, match, actor.UserID); err != nil {
			return nil, err
		}
	}
	comments, err := s.disputeRepo.ListComments(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	dispute.Comments = comments
	return dispute, nil
}

func (s *disputeService) ListByStatus(ctx context.Context, status models.DisputeStatus, page, perPage int) ([]*models.Dispute, int, error) {
	if !status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown dispute status %q", ErrValidationFailed, status)
	}
	limit, offset := paginate(page, perPage)
	return s.disputeRepo.ListByStatus(ctx, status, limit, offset)
}

func (s *disputeService) TakeUnderReview(ctx context.Context, actor models.Principal, disputeID int) (*models.Dispute, error) {
	if !actor.IsStaff() {
		return nil, ErrForbiddenOperation
	}
	dispute, err := s.getDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.Status != models.DisputeStatusOpen {
		return nil, fmt.Errorf("%w: only an open dispute can be taken under review, got %s",
			ErrInvalidState, dispute.Status)
	}
	dispute.Status = models.DisputeStatusUnderReview
	dispute.AssignedTo = &actor.UserID
	if err := s.disputeRepo.Update(ctx, nil, dispute); err != nil {
		return nil, err
	}
	return dispute, nil
}

func (s *disputeService) Resolve(ctx context.Context, actor models.Principal, disputeID int, input ResolveDisputeInput) (*models.Dispute, error) {
	if !actor.IsStaff() {
		return nil, ErrForbiddenOperation
	}
	if !input.Decision.Valid() {
		return nil, ErrInvalidDecision
	}

	dispute, err := s.getDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !dispute.Status.Resolvable() {
		return nil, ErrDisputeNotResolvable
	}

	match, err := s.matchRepo.GetByID(ctx, nil, dispute.MatchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, nil, dispute.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	matchChanged, err := s.applyDecision(ctx, dispute, match, input.Decision)
	if err != nil {
		return nil, err
	}

	dispute.Status = models.DisputeStatusResolved
	dispute.AssignedTo = &actor.UserID
	dispute.Resolution = &models.Resolution{
		Decision:     input.Decision,
		FinalComment: input.FinalComment,
	}

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if matchChanged {
			if err := s.matchRepo.Update(ctx, exec, match); err != nil {
				return err
			}
			if match.Status == models.MatchStatusCompleted {
				if err := s.elo.ApplyMatchOutcome(ctx, exec, match, tournament.GameID); err != nil {
					return err
				}
			}
		}
		return s.disputeRepo.Update(ctx, exec, dispute)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("dispute resolved",
		slog.Int("dispute_id", dispute.ID),
		slog.Int("match_id", match.ID),
		slog.String("decision", string(input.Decision)),
		slog.Int("resolved_by", actor.UserID))

	s.notifier.Notify(ctx, dispute.ReporterID, TemplateDisputeResolved,
		models.NotificationParams{"decision": string(input.Decision)},
		"dispute", dispute.ID)
	s.notifyMatchUsers(ctx, match, dispute.ReporterID, TemplateDisputeResolved,
		models.NotificationParams{"decision": string(input.Decision)},
		"dispute", dispute.ID)

	room := brackets.TournamentRoom(match.TournamentID)
	s.broadcaster.BroadcastToRoom(room, brackets.Message{
		Type:    "MATCH_UPDATED",
		Payload: match,
		RoomID:  room,
	})
	return dispute, nil
}

// applyDecision переводит решение администратора в изменение матча.
// Возвращает, изменился ли матч.
func (s *disputeService) applyDecision(ctx context.Context, dispute *models.Dispute, match *models.Match, decision models.DisputeDecision) (bool, error) {
	switch decision {
	case models.DecisionAwardWinToReporter, models.DecisionAwardWinToOpponent:
		reporterRef, err := s.matchParticipantForUser(ctx, match, dispute.ReporterID)
		if err != nil {
			return false, fmt.Errorf("%w: dispute reporter is no longer a match participant", ErrValidationFailed)
		}
		winner := *reporterRef
		if decision == models.DecisionAwardWinToOpponent {
			found := false
			for _, p := range match.Participants {
				if !p.Equal(*reporterRef) {
					winner = p
					found = true
					break
				}
			}
			if !found {
				return false, fmt.Errorf("%w: match has no opponent to award the win to", ErrValidationFailed)
			}
		}
		match.Winner = &winner
		match.Status = models.MatchStatusCompleted
		return true, nil

	case models.DecisionCancelMatch:
		match.Status = models.MatchStatusCanceled
		match.Winner = nil
		return true, nil

	case models.DecisionResetMatch:
		match.Status = models.MatchStatusActive
		match.Winner = nil
		match.Scores = nil
		match.Results = nil
		match.ReportedBy = nil
		return true, nil

	case models.DecisionIssueWarningToReporter, models.DecisionIssueWarningToOpponent, models.DecisionNoAction:
		return false, nil

	default:
		return false, ErrInvalidDecision
	}
}

func (s *disputeService) AddEvidence(ctx context.Context, actor models.Principal, disputeID int, file io.Reader, contentType, description string) (*models.Dispute, error) {
	dispute, err := s.getDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !dispute.Status.Resolvable() {
		return nil, fmt.Errorf("%w: evidence cannot be added to a closed dispute", ErrInvalidState)
	}

	match, err := s.matchRepo.GetByID(ctx, nil, dispute.MatchID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		if _, err := s.matchParticipantForUser(ctx, match, actor.UserID); err != nil {
			return nil, err
		}
	}

	ext, err := storage.ExtensionForContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	key := fmt.Sprintf("disputes/%d/%s%s", disputeID, uuid.NewString(), ext)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload evidence: %w", err)
	}

	dispute.Evidence = append(dispute.Evidence, models.Evidence{
		UploaderID:  actor.UserID,
		URL:         result.Location,
		Description: description,
		UploadedAt:  time.Now().UTC(),
	})
	if err := s.disputeRepo.Update(ctx, nil, dispute); err != nil {
		return nil, err
	}
	return dispute, nil
}

func (s *disputeService) AddComment(ctx context.Context, actor models.Principal, disputeID int, content string) (*models.DisputeComment, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: comment content is required", ErrValidationFailed)
	}
	dispute, err := s.getDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		match, err := s.matchRepo.GetByID(ctx, nil, dispute.MatchID)
		if err != nil {
			return nil, err
		}
		if _, err := s.matchParticipantForUser(ctx, match, actor.UserID); err != nil {
			return nil, err
		}
	}

	comment := &models.DisputeComment{
		DisputeID: disputeID,
		AuthorID:  actor.UserID,
		Content:   content,
	}
	if err := s.disputeRepo.AddComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}
