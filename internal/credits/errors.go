package credits

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/palette/internal/pipeline"
)

var (
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrMissingUser    = errors.New("user id required")
	ErrGrantsDisabled = errors.New("credit grants are disabled")
)

// MapHTTPStatus maps credit errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrMissingUser):
		return http.StatusBadRequest
	case errors.Is(err, ErrGrantsDisabled):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
