package handlers

import (
	"net/http"

	"github.com/arenaone/arena/middleware"
	"github.com/arenaone/arena/models"
	"github.com/arenaone/arena/services"
)

type DisputeHandler struct {
	disputeService services.DisputeService
}

func NewDisputeHandler(disputeService services.DisputeService) *DisputeHandler {
	return &DisputeHandler{disputeService: disputeService}
}

func (h *DisputeHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}

	var input struct {
		MatchID int    `json:"match_id"`
		Reason  string `json:"reason"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	dispute, err := h.disputeService.Create(r.Context(), principal, services.CreateDisputeInput{
		MatchID: input.MatchID,
		Reason:  input.Reason,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"dispute": dispute}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *DisputeHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	disputeID, err := idParam(r, "disputeID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	dispute, err := h.disputeService.GetByID(r.Context(), principal, disputeID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"dispute": dispute}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *DisputeHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	status := models.DisputeStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.DisputeStatusOpen
	}

	disputes, total, err := h.disputeService.ListByStatus(r.Context(), status,
		queryInt(r, "page", 1), queryInt(r, "per_page", 20))
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"disputes": disputes, "total": total}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *DisputeHandler) TakeUnderReview(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	disputeID, err := idParam(r, "disputeID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	dispute, err := h.disputeService.TakeUnderReview(r.Context(), principal, disputeID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"dispute": dispute}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *DisputeHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	disputeID, err := idParam(r, "disputeID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input struct {
		Decision     models.DisputeDecision `json:"decision"`
		FinalComment string                 `json:"final_comment"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	dispute, err := h.disputeService.Resolve(r.Context(), principal, disputeID, services.ResolveDisputeInput{
		Decision:     input.Decision,
		FinalComment: input.FinalComment,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"dispute": dispute}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *DisputeHandler) AddEvidence(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	disputeID, err := idParam(r, "disputeID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	file, header, err := r.FormFile("evidence")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	defer file.Close()

	dispute, err := h.disputeService.AddEvidence(r.Context(), principal, disputeID, file,
		header.Header.Get("Content-Type"), r.FormValue("description"))
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"dispute": dispute}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *DisputeHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	disputeID, err := idParam(r, "disputeID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input struct {
		Content string `json:"content"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	comment, err := h.disputeService.AddComment(r.Context(), principal, disputeID, input.Content)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"comment": comment}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}
