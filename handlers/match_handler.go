package handlers

import (
	"context"
	"net/http"

	"github.com/arenaone/arena/middleware"
	"github.com/arenaone/arena/models"
	"github.com/arenaone/arena/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

func (h *MatchHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	match, err := h.matchService.GetByID(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *MatchHandler) ListByTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	matches, total, err := h.matchService.ListByTournament(r.Context(), tournamentID,
		queryInt(r, "page", 1), queryInt(r, "per_page", 20))
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches, "total": total}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

// ListByUser — история матчей игрока в индивидуальных турнирах.
func (h *MatchHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	h.listByParticipant(w, r, models.ParticipantRef{Kind: models.ParticipantKindUser, ID: userID})
}

// ListByTeam — история матчей команды в командных турнирах.
func (h *MatchHandler) ListByTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := idParam(r, "teamID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	h.listByParticipant(w, r, models.ParticipantRef{Kind: models.ParticipantKindTeam, ID: teamID})
}

func (h *MatchHandler) listByParticipant(w http.ResponseWriter, r *http.Request, ref models.ParticipantRef) {
	matches, total, err := h.matchService.ListByParticipant(r.Context(), ref,
		queryInt(r, "page", 1), queryInt(r, "per_page", 20))
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches, "total": total}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *MatchHandler) ReportResult(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	matchID, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input struct {
		Scores  models.ScoreList  `json:"scores"`
		Results models.ResultList `json:"results"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	match, err := h.matchService.ReportResult(r.Context(), principal, matchID, services.ReportResultInput{
		Scores:  input.Scores,
		Results: input.Results,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *MatchHandler) SetLobby(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	matchID, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input struct {
		Code     string `json:"code"`
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	match, err := h.matchService.SetLobby(r.Context(), principal, matchID, services.LobbyInput{
		Code:     input.Code,
		Password: input.Password,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *MatchHandler) PublishLobby(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.matchService.PublishLobby)
}

func (h *MatchHandler) StartMatch(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.matchService.StartMatch)
}

func (h *MatchHandler) simpleTransition(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, actor models.Principal, matchID int) (*models.Match, error)) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	matchID, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	match, err := fn(r.Context(), principal, matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}
