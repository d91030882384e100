package handler

import (
	"errors"
	"net/http"

	"github.com/efreitasn/toyexchange/internal/domain"
)

// statusBySentinel maps sentinel errors to HTTP status codes. The sentinel
// text doubles as the error code in the response body.
var statusBySentinel = []struct {
	err    error
	status int
}{
	{domain.ErrMissingOperand, http.StatusBadRequest},
	{domain.ErrNegativeQuantity, http.StatusBadRequest},
	{domain.ErrUnknownOpcode, http.StatusBadRequest},
	{domain.ErrCompanyNotFound, http.StatusNotFound},
	{domain.ErrExchangeNotFound, http.StatusNotFound},
	{domain.ErrOperatorNotFound, http.StatusNotFound},
	{domain.ErrPositionNotFound, http.StatusNotFound},
	{domain.ErrNoHolding, http.StatusConflict},
	{domain.ErrInsufficientBalance, http.StatusConflict},
	{domain.ErrAmountOverflow, http.StatusConflict},
}

// mapError maps domain errors to HTTP responses.
func mapError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}
	var configErr *domain.ConfigError
	if errors.As(err, &configErr) {
		WriteError(w, http.StatusUnprocessableEntity, "invalid_config", configErr.Error())
		return
	}

	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			WriteError(w, s.status, s.err.Error(), err.Error())
			return
		}
	}
	WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
}
