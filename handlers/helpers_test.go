package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arenaone/arena/services"
)

func TestMapServiceErrorToHTTP(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"tournament not found", services.ErrTournamentNotFound, http.StatusNotFound},
		{"duplicate registration", services.ErrRegistrationConflict, http.StatusConflict},
		{"tournament full", services.ErrTournamentFull, http.StatusConflict},
		{"insufficient funds", services.ErrInsufficientFunds, http.StatusPaymentRequired},
		{"validation failure", services.ErrValidationFailed, http.StatusBadRequest},
		// Регистрация вне окна — ошибка состояния турнира, а не прав
		// вызывающего: 400, как и остальные нарушения статусной машины.
		{"registration not open", services.ErrRegistrationNotOpen, http.StatusBadRequest},
		{"invalid state", services.ErrInvalidState, http.StatusBadRequest},
		{"bad credentials", services.ErrInvalidCredentials, http.StatusUnauthorized},
		{"forbidden operation", services.ErrForbiddenOperation, http.StatusForbidden},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mapServiceErrorToHTTP(rec, tt.err)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
