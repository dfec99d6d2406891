package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/arenaone/arena/middleware"
	"github.com/arenaone/arena/models"
	"github.com/arenaone/arena/services"
)

type TournamentHandler struct {
	tournamentService   services.TournamentService
	registrationService services.RegistrationService
	bracketService      services.BracketService
}

func NewTournamentHandler(
	tournamentService services.TournamentService,
	registrationService services.RegistrationService,
	bracketService services.BracketService,
) *TournamentHandler {
	return &TournamentHandler{
		tournamentService:   tournamentService,
		registrationService: registrationService,
		bracketService:      bracketService,
	}
}

type tournamentPayload struct {
	Name            string                     `json:"name"`
	GameID          int                        `json:"game_id"`
	Structure       models.TournamentStructure `json:"structure"`
	TeamSize        int                        `json:"team_size"`
	MaxParticipants int                        `json:"max_participants"`
	EntryFee        int64                      `json:"entry_fee"`
	Rules           string                     `json:"rules"`
	PrizeStructure  models.PrizeStructure      `json:"prize_structure"`

	RegistrationStartDate time.Time `json:"registration_start_date"`
	RegistrationEndDate   time.Time `json:"registration_end_date"`
	CheckInStartDate      time.Time `json:"check_in_start_date"`
	TournamentStartDate   time.Time `json:"tournament_start_date"`
}

func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}

	var input tournamentPayload
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	tournament, err := h.tournamentService.Create(r.Context(), principal, services.CreateTournamentInput{
		Name:                  input.Name,
		GameID:                input.GameID,
		Structure:             input.Structure,
		TeamSize:              input.TeamSize,
		MaxParticipants:       input.MaxParticipants,
		EntryFee:              input.EntryFee,
		Rules:                 input.Rules,
		PrizeStructure:        input.PrizeStructure,
		RegistrationStartDate: input.RegistrationStartDate,
		RegistrationEndDate:   input.RegistrationEndDate,
		CheckInStartDate:      input.CheckInStartDate,
		TournamentStartDate:   input.TournamentStartDate,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	tournament, err := h.tournamentService.GetByID(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	var statuses []models.TournamentStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, models.TournamentStatus(s))
		}
	}

	tournaments, total, err := h.tournamentService.List(r.Context(), statuses,
		queryInt(r, "page", 1), queryInt(r, "per_page", 20))
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments, "total": total}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input struct {
		Name           *string                     `json:"name"`
		Rules          *string                     `json:"rules"`
		PrizeStructure *models.PrizeStructure      `json:"prize_structure"`
		GameID         *int                        `json:"game_id"`
		Structure      *models.TournamentStructure `json:"structure"`
		TeamSize       *int                        `json:"team_size"`
		MaxParticipant *int                        `json:"max_participants"`
		EntryFee       *int64                      `json:"entry_fee"`

		RegistrationStartDate *time.Time `json:"registration_start_date"`
		RegistrationEndDate   *time.Time `json:"registration_end_date"`
		CheckInStartDate      *time.Time `json:"check_in_start_date"`
		TournamentStartDate   *time.Time `json:"tournament_start_date"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	tournament, err := h.tournamentService.Update(r.Context(), principal, tournamentID, services.UpdateTournamentInput{
		Name:                  input.Name,
		Rules:                 input.Rules,
		PrizeStructure:        input.PrizeStructure,
		GameID:                input.GameID,
		Structure:             input.Structure,
		TeamSize:              input.TeamSize,
		MaxParticipants:       input.MaxParticipant,
		EntryFee:              input.EntryFee,
		RegistrationStartDate: input.RegistrationStartDate,
		RegistrationEndDate:   input.RegistrationEndDate,
		CheckInStartDate:      input.CheckInStartDate,
		TournamentStartDate:   input.TournamentStartDate,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) CloseRegistration(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.tournamentService.CloseRegistration)
}

func (h *TournamentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.tournamentService.Cancel)
}

func (h *TournamentHandler) transition(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, actor models.Principal, id int) (*models.Tournament, error)) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	tournament, err := fn(r.Context(), principal, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.tournamentService.Delete(r.Context(), principal, tournamentID); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TournamentHandler) Register(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input struct {
		TeamID *int `json:"team_id"`
	}
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, err)
			return
		}
	}

	registration, err := h.registrationService.Register(r.Context(), services.RegisterInput{
		UserID:       principal.UserID,
		TournamentID: tournamentID,
		TeamID:       input.TeamID,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registration": registration}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.registrationService.Cancel(r.Context(), principal.UserID, tournamentID); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TournamentHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	registration, err := h.registrationService.CheckIn(r.Context(), principal.UserID, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": registration}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	registrations, err := h.registrationService.ListByTournament(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": registrations}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) GenerateBracket(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	bracket, err := h.bracketService.GenerateBracket(r.Context(), principal, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) ListBrackets(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	bracketsList, err := h.bracketService.ListByTournament(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"brackets": bracketsList}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) GetBracket(w http.ResponseWriter, r *http.Request) {
	bracketID, err := idParam(r, "bracketID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	bracket, err := h.bracketService.GetBracket(r.Context(), bracketID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}
