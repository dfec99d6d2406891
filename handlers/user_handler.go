package handlers

import (
	"net/http"

	"github.com/arenaone/arena/middleware"
	"github.com/arenaone/arena/services"
)

type UserHandler struct {
	userService    services.UserService
	paymentService services.PaymentService
}

func NewUserHandler(userService services.UserService, paymentService services.PaymentService) *UserHandler {
	return &UserHandler{userService: userService, paymentService: paymentService}
}

func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, total, err := h.userService.List(r.Context(), queryInt(r, "page", 1), queryInt(r, "per_page", 20))
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"users": users, "total": total}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	userID, err := idParam(r, "userID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), principal, userID, services.UpdateProfileInput{
		Username: input.Username,
		Email:    input.Email,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	userID, err := idParam(r, "userID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	defer file.Close()

	user, err := h.userService.UploadAvatar(r.Context(), principal, userID, file, header.Header.Get("Content-Type"))
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *UserHandler) GetRatings(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	ratings, err := h.userService.GetRatings(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ratings": ratings}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	userID, err := idParam(r, "userID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.userService.Delete(r.Context(), principal, userID); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	userID, err := idParam(r, "userID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	transactions, total, err := h.paymentService.ListTransactions(r.Context(), principal, userID,
		queryInt(r, "page", 1), queryInt(r, "per_page", 20))
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"transactions": transactions, "total": total}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}
