package handlers

import (
	"net/http"

	"github.com/arenaone/arena/middleware"
	"github.com/arenaone/arena/services"
)

type PaymentHandler struct {
	paymentService services.PaymentService
}

func NewPaymentHandler(paymentService services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) InitiateCharge(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}

	var input struct {
		Amount int64 `json:"amount"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	initiation, err := h.paymentService.InitiateCharge(r.Context(), principal, input.Amount)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"charge": initiation}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

// VerifyCharge — callback шлюза после оплаты. Authority и Status приходят
// query-параметрами; Status == "OK" означает успешную оплату на стороне шлюза.
func (h *PaymentHandler) VerifyCharge(w http.ResponseWriter, r *http.Request) {
	authority := r.URL.Query().Get("Authority")
	if authority == "" {
		errorResponse(w, http.StatusBadRequest, "missing Authority parameter")
		return
	}
	gatewayOK := r.URL.Query().Get("Status") == "OK"

	transaction, err := h.paymentService.VerifyCharge(r.Context(), authority, gatewayOK)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"transaction": transaction}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}
