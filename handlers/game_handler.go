package handlers

import (
	"net/http"

	"github.com/arenaone/arena/middleware"
	"github.com/arenaone/arena/services"
)

type GameHandler struct {
	gameService services.GameService
}

func NewGameHandler(gameService services.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

type gamePayload struct {
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	IconURL   string `json:"icon_url"`
	BannerURL string `json:"banner_url"`
	IsActive  bool   `json:"is_active"`
}

func (p gamePayload) toInput() services.GameInput {
	return services.GameInput{
		Name:      p.Name,
		ShortName: p.ShortName,
		IconURL:   p.IconURL,
		BannerURL: p.BannerURL,
		IsActive:  p.IsActive,
	}
}

func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}

	var input gamePayload
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	game, err := h.gameService.Create(r.Context(), principal, input.toInput())
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *GameHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	gameID, err := idParam(r, "gameID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input gamePayload
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	game, err := h.gameService.Update(r.Context(), principal, gameID, input.toInput())
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *GameHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	gameID, err := idParam(r, "gameID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	game, err := h.gameService.GetByID(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	onlyActive := r.URL.Query().Get("all") == ""

	games, err := h.gameService.List(r.Context(), onlyActive)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"games": games}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}
